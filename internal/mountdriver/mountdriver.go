// Package mountdriver implements the mount driver M of §2 item 6: it
// decodes INPUT into a value.Value, builds a tree.Table from it,
// serves the table over FUSE via internal/fsys, and on unmount
// re-encodes the table in INPUT's format (or the -t target format,
// when given) and writes it to the configured output.
package mountdriver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	fusefs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/google/uuid"

	"github.com/go-ffs/ffs/internal/ffserr"
	"github.com/go-ffs/ffs/internal/format"
	"github.com/go-ffs/ffs/internal/fsys"
	"github.com/go-ffs/ffs/internal/tree"
	"github.com/go-ffs/ffs/internal/value"
	"github.com/go-ffs/ffs/internal/xlog"
)

var log = xlog.For("mountdriver")

// Options bundles the §6.1 flag surface that mountdriver itself
// consumes; cmd/ffs is responsible for parsing flags into this.
type Options struct {
	Mount string

	SourceFormat string
	TargetFormat string

	New      string // --new PATH; mutually exclusive with InputPath
	InPlace  bool   // -i
	Output   string // -o
	NoOutput bool

	Pretty     bool
	AllowOther bool
	Debug      bool
	Policy     tree.Policy
}

// inferFormat guesses FMT from a path's extension, per §6.1's "--new
// PATH (create empty output with inferred format)".
func inferFormat(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json", true
	case ".yaml", ".yml":
		return "yaml", true
	case ".toml":
		return "toml", true
	default:
		return "", false
	}
}

// readInput loads the root value.Value from either --new or INPUT
// (a path, or "-"/empty for stdin).
func readInput(inputPath string, opts *Options) (value.Value, string, error) {
	if opts.New != "" {
		fmtName := opts.TargetFormat
		if fmtName == "" {
			var ok bool
			fmtName, ok = inferFormat(opts.New)
			if !ok {
				return value.Value{}, "", fmt.Errorf("mountdriver: cannot infer format from %q, pass --target", opts.New)
			}
		}
		return format.Empty(), fmtName, nil
	}

	var data []byte
	var err error
	if inputPath == "" || inputPath == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(inputPath)
	}
	if err != nil {
		return value.Value{}, "", ffserr.New(ffserr.MountpointUnusable, "read-input", inputPath, err)
	}

	fmtName := opts.SourceFormat
	if fmtName == "" {
		var ok bool
		fmtName, ok = inferFormat(inputPath)
		if !ok {
			return value.Value{}, "", fmt.Errorf("mountdriver: cannot infer format from %q, pass --source", inputPath)
		}
	}
	codec, err := format.Lookup(fmtName)
	if err != nil {
		return value.Value{}, "", err
	}
	v, err := codec.Decode(data)
	if err != nil {
		return value.Value{}, "", ffserr.New(ffserr.FormatParseError, "decode", inputPath, err)
	}
	return v, fmtName, nil
}

// Run decodes inputPath, mounts it at opts.Mount, blocks until
// unmount, then re-encodes and writes the output per §6.1's three
// output modes. It returns a non-nil error on any §7 failure; callers
// map the error to a process exit code via ffserr.ExitCode.
func Run(inputPath string, opts Options) error {
	root, fmtName, err := readInput(inputPath, &opts)
	if err != nil {
		return err
	}
	if opts.TargetFormat != "" {
		fmtName = opts.TargetFormat
	}

	table, err := tree.Build(root, opts.Policy)
	if err != nil {
		return err
	}

	fsRoot := fsys.NewRoot(table)
	server, err := fusefs.Mount(opts.Mount, fsRoot, &fusefs.Options{
		MountOptions: mountOptions(opts),
	})
	if err != nil {
		return ffserr.New(ffserr.MountpointUnusable, "mount", opts.Mount, err)
	}
	log.WithField("mount", opts.Mount).Info("mounted")

	server.Wait()
	log.Info("unmounted")

	if opts.NoOutput {
		return nil
	}

	out := table.Serialize()
	codec, err := format.Lookup(fmtName)
	if err != nil {
		return err
	}
	data, err := codec.Encode(out, opts.Pretty)
	if err != nil {
		return ffserr.New(ffserr.FormatParseError, "encode", inputPath, err)
	}

	return writeOutput(inputPath, opts, data)
}

func writeOutput(inputPath string, opts Options, data []byte) error {
	switch {
	case opts.Output != "":
		return writeFile(opts.Output, data)
	case opts.New != "":
		return writeFile(opts.New, data)
	case opts.InPlace:
		return writeAtomic(inputPath, data)
	default:
		_, err := os.Stdout.Write(data)
		if err != nil {
			return ffserr.New(ffserr.OutputUnwritable, "write-output", "-", err)
		}
		return nil
	}
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return ffserr.New(ffserr.OutputUnwritable, "write-output", path, err)
	}
	return nil
}

// writeAtomic implements -i's "the input file is never truncated
// before the encode succeeds": it writes to a sibling temp file named
// with a random uuid suffix, then renames over the destination.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return ffserr.New(ffserr.OutputUnwritable, "write-output", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return ffserr.New(ffserr.OutputUnwritable, "write-output", path, err)
	}
	return nil
}

func mountOptions(opts Options) fuse.MountOptions {
	return fuse.MountOptions{
		FsName:     "ffs",
		Name:       "ffs",
		AllowOther: opts.AllowOther,
		Debug:      opts.Debug,
	}
}
