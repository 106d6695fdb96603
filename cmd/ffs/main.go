// Command ffs mounts a JSON/YAML/TOML document as a POSIX directory
// tree and writes the edited tree back out on unmount.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-ffs/ffs/internal/cliutil"
	"github.com/go-ffs/ffs/internal/ffserr"
	"github.com/go-ffs/ffs/internal/mountdriver"
	"github.com/go-ffs/ffs/internal/munge"
	"github.com/go-ffs/ffs/internal/tree"
	"github.com/go-ffs/ffs/internal/xlog"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// usageErr marks a CLI-argument error (exit code 2), as distinct from
// a filesystem/runtime error (exit code 1).
type usageErr struct{ msg string }

func (e *usageErr) Error() string { return e.msg }

func usageErrorf(format string, args ...interface{}) error {
	return &usageErr{msg: fmt.Sprintf(format, args...)}
}

func run(args []string) int {
	var (
		mount        string
		sourceFmt    = cliutil.NewFormatValue("")
		targetFmt    = cliutil.NewFormatValue("")
		newPath      string
		inPlace      bool
		output       string
		noOutput     bool
		uid          uint32
		gid          uint32
		mode         = cliutil.NewOctalModeValue(0644)
		dirMode      = cliutil.NewOctalModeValue(0755)
		mungeFlag    = cliutil.NewMungeValue(munge.Rename)
		noXattr      bool
		keepMacos    bool
		unpadded     bool
		exact        bool
		pretty       bool
		readonly     bool
		eager        bool
		allowOther   bool
		quiet        bool
		debug        bool
		timestamps   bool
		completions  string
	)

	root := &cobra.Command{
		Use:           "ffs [INPUT|-]",
		Short:         "mount a JSON/YAML/TOML document as a directory tree",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			xlog.SetTimestamps(timestamps)
			if quiet {
				xlog.SetQuiet()
			}
			if debug {
				xlog.SetDebug()
			}

			if completions != "" {
				return writeCompletions(cmd, completions)
			}

			var input string
			if len(args) == 1 {
				input = args[0]
			}

			exclusive := 0
			for _, set := range []bool{newPath != "", inPlace, output != ""} {
				if set {
					exclusive++
				}
			}
			if exclusive > 1 {
				return usageErrorf("--new, -i/--in-place, and -o/--output are mutually exclusive")
			}
			if newPath != "" && input != "" {
				return usageErrorf("--new cannot be combined with an INPUT argument")
			}
			if mount == "" {
				return usageErrorf("-m/--mount is required")
			}

			policy := tree.DefaultPolicy()
			policy.Munge = mungeFlag.Value
			policy.Unpadded = unpadded
			policy.Exact = exact
			policy.KeepMacosXattr = keepMacos
			policy.ReadOnly = readonly
			policy.Eager = eager
			policy.FileMode = mode.Value
			policy.DirMode = dirMode.Value
			policy.Uid = uid
			policy.Gid = gid
			_ = noXattr // mount path always records user.type; --no-xattr only applies to pack/unpack (§6.2)

			opts := mountdriver.Options{
				Mount:        mount,
				SourceFormat: sourceFmt.Value,
				TargetFormat: targetFmt.Value,
				New:          newPath,
				InPlace:      inPlace,
				Output:       output,
				NoOutput:     noOutput,
				Pretty:       pretty,
				AllowOther:   allowOther,
				Debug:        debug,
				Policy:       policy,
			}
			return mountdriver.Run(input, opts)
		},
	}

	flags := root.Flags()
	flags.StringVarP(&mount, "mount", "m", "", "mountpoint")
	flags.VarP(sourceFmt, "source", "s", "input format: json, yaml, or toml")
	flags.VarP(targetFmt, "target", "t", "output format: json, yaml, or toml")
	flags.StringVar(&newPath, "new", "", "mount a fresh empty document, written to PATH on unmount")
	flags.BoolVarP(&inPlace, "in-place", "i", false, "write back over INPUT on unmount")
	flags.StringVarP(&output, "output", "o", "", "write output to PATH instead of INPUT")
	flags.BoolVar(&noOutput, "no-output", false, "discard edits instead of writing an output")
	flags.Uint32VarP(&uid, "uid", "u", uint32(os.Getuid()), "owner uid for materialized inodes")
	flags.Uint32VarP(&gid, "gid", "g", uint32(os.Getgid()), "owner gid for materialized inodes")
	flags.Var(mode, "mode", "file mode for scalar entries, octal")
	flags.Var(dirMode, "dirmode", "directory mode for map/list entries, octal")
	flags.Var(mungeFlag, "munge", "reserved-key handling: rename or filter")
	flags.BoolVar(&noXattr, "no-xattr", false, "unused for mount; kept for flag-surface parity with pack/unpack")
	flags.BoolVar(&keepMacos, "keep-macos-xattr", false, "do not hide macOS ._* sidecar files")
	flags.BoolVar(&unpadded, "unpadded", false, "do not zero-pad list element filenames")
	flags.BoolVar(&exact, "exact", false, "disable the single-trailing-newline convenience trim")
	flags.BoolVar(&pretty, "pretty", false, "pretty-print the output document")
	flags.BoolVar(&readonly, "readonly", false, "reject all mutating operations with EROFS")
	flags.BoolVar(&eager, "eager", false, "materialize the entire tree at mount instead of lazily")
	flags.BoolVar(&allowOther, "allow-other", false, "mount with allow_other")
	flags.BoolVarP(&quiet, "quiet", "q", false, "raise the log level to errors only")
	flags.BoolVarP(&debug, "debug", "d", false, "enable debug logging and FUSE protocol tracing")
	flags.BoolVar(&timestamps, "time", false, "include timestamps in log output")
	flags.StringVar(&completions, "completions", "", "print a shell completion script for SHELL and exit")

	err := root.Execute()
	if err == nil {
		return 0
	}

	fmt.Fprintln(os.Stderr, "ffs:", err)

	var ue *usageErr
	if errors.As(err, &ue) {
		return 2
	}
	if kind, ok := ffserr.As(err); ok {
		return ffserr.ExitCode(kind)
	}
	return 1
}
