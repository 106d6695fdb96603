// Package ffserr defines the error-kind vocabulary of spec §7 and the
// single place that knows how to translate a Kind to a syscall.Errno
// for the FUSE boundary or a process exit code for the CLI boundary,
// mirroring the role the teacher's fs.ToErrno plays at its own
// boundary (github.com/hanwen/go-fuse/v2/fs).
package ffserr

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind enumerates the error kinds named in §7.
type Kind int

const (
	_ Kind = iota
	NoEntry
	Exists
	NotEmpty
	IsDirectory
	NotDirectory
	PermissionDenied
	InvalidValue
	ReadOnlyFilesystem
	NoAttribute

	// Startup kinds, all map to process exit 1.
	RootNotDirectory
	FormatParseError
	MountpointUnusable
	OutputUnwritable

	// Pack-time kinds.
	SymlinkLoop
	AncestorSymlink
	SymlinkEscape
	MaxDepthExceeded
)

func (k Kind) String() string {
	switch k {
	case NoEntry:
		return "NoEntry"
	case Exists:
		return "Exists"
	case NotEmpty:
		return "NotEmpty"
	case IsDirectory:
		return "IsDirectory"
	case NotDirectory:
		return "NotDirectory"
	case PermissionDenied:
		return "PermissionDenied"
	case InvalidValue:
		return "InvalidValue"
	case ReadOnlyFilesystem:
		return "ReadOnlyFilesystem"
	case NoAttribute:
		return "NoAttribute"
	case RootNotDirectory:
		return "RootNotDirectory"
	case FormatParseError:
		return "FormatParseError"
	case MountpointUnusable:
		return "MountpointUnusable"
	case OutputUnwritable:
		return "OutputUnwritable"
	case SymlinkLoop:
		return "SymlinkLoop"
	case AncestorSymlink:
		return "AncestorSymlink"
	case SymlinkEscape:
		return "SymlinkEscape"
	case MaxDepthExceeded:
		return "MaxDepthExceeded"
	default:
		return "Unknown"
	}
}

// Error wraps a Kind with the operation and path it occurred on, like
// the standard library's *os.PathError.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error.
func New(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// As extracts the Kind of err, if it is (or wraps) an *Error.
func As(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Errno maps a Kind to the syscall.Errno the FUSE dispatcher should
// return to the kernel, per the parenthetical errno in §7.
func Errno(k Kind) syscall.Errno {
	switch k {
	case NoEntry:
		return syscall.ENOENT
	case Exists:
		return syscall.EEXIST
	case NotEmpty:
		return syscall.ENOTEMPTY
	case IsDirectory:
		return syscall.EISDIR
	case NotDirectory:
		return syscall.ENOTDIR
	case PermissionDenied:
		return syscall.EACCES
	case InvalidValue:
		return syscall.EINVAL
	case ReadOnlyFilesystem:
		return syscall.EROFS
	case NoAttribute:
		return syscall.ENODATA
	default:
		return syscall.EIO
	}
}

// ExitCode maps a Kind to the CLI exit status of §6.1/§6.2: 1 for
// filesystem/runtime errors, 2 for CLI-argument errors. Startup and
// pack-time kinds are always runtime errors (exit 1); CLI argument
// parsing errors are produced directly by cobra/pflag and do not flow
// through this package.
func ExitCode(k Kind) int {
	return 1
}
