// Command pack walks a real directory tree and serializes it as a
// JSON/YAML/TOML document, without mounting anything.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/go-ffs/ffs/internal/cliutil"
	"github.com/go-ffs/ffs/internal/ffserr"
	"github.com/go-ffs/ffs/internal/format"
	"github.com/go-ffs/ffs/internal/munge"
	"github.com/go-ffs/ffs/internal/pack"
	"github.com/go-ffs/ffs/internal/xlog"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

type usageErr struct{ msg string }

func (e *usageErr) Error() string { return e.msg }

func usageErrorf(format string, args ...interface{}) error {
	return &usageErr{msg: fmt.Sprintf(format, args...)}
}

func run(args []string) int {
	var (
		output         string
		targetFmt      = cliutil.NewFormatValue("json")
		mungeFlag      = cliutil.NewMungeValue(munge.Rename)
		exact          bool
		noXattr        bool
		keepMacos      bool
		pretty         bool
		maxDepth       int
		neverFollow    bool
		followAll      bool
		followSelected []string
		allowEscape    bool
		quiet          bool
		debug          bool
		timestamps     bool
	)

	root := &cobra.Command{
		Use:           "pack DIR",
		Short:         "serialize a directory tree as a JSON/YAML/TOML document",
		Args:          cobra.ExactArgs(1),
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

			dir := args[0]

			mode, err := symlinkMode(neverFollow, followAll, len(followSelected) > 0)
			if err != nil {
				return err
			}

			opts := pack.DefaultOptions()
			opts.Munge = mungeFlag.Value
			opts.Exact = exact
			opts.NoXattr = noXattr
			opts.KeepMacosXattr = keepMacos
			opts.Pretty = pretty
			opts.MaxDepth = maxDepth
			opts.SymlinkMode = mode
			opts.AllowSymlinkEscape = allowEscape
			if len(followSelected) > 0 {
				selected := make(map[string]bool, len(followSelected))
				for _, p := range followSelected {
					abs, err := filepath.Abs(p)
					if err != nil {
						return usageErrorf("invalid -H path %q: %v", p, err)
					}
					selected[filepath.Clean(abs)] = true
				}
				opts.FollowSelected = selected
			}

			v, err := pack.Pack(dir, opts)
			if err != nil {
				return err
			}

			codec, err := format.Lookup(targetFmt.Value)
			if err != nil {
				return err
			}
			data, err := codec.Encode(v, opts.Pretty)
			if err != nil {
				return ffserr.New(ffserr.FormatParseError, "encode", dir, err)
			}

			if output != "" {
				if err := os.WriteFile(output, data, 0644); err != nil {
					return ffserr.New(ffserr.OutputUnwritable, "write-output", output, err)
				}
				return nil
			}
			_, err = os.Stdout.Write(data)
			if err != nil {
				return ffserr.New(ffserr.OutputUnwritable, "write-output", "-", err)
			}
			return nil
		},
	}

	flags := root.Flags()
	flags.StringVarP(&output, "output", "o", "", "write output to PATH instead of stdout")
	flags.Var(targetFmt, "target", "output format: json, yaml, or toml")
	flags.Var(mungeFlag, "munge", "reserved-key handling: rename or filter")
	flags.BoolVar(&exact, "exact", false, "disable the single-trailing-newline convenience trim")
	flags.BoolVar(&noXattr, "no-xattr", false, "ignore user.type extended attributes while packing")
	flags.BoolVar(&keepMacos, "keep-macos-xattr", false, "do not hide macOS ._* sidecar files")
	flags.BoolVar(&pretty, "pretty", false, "pretty-print the output document")
	flags.IntVar(&maxDepth, "max-depth", 0, "stop descending at depth D (0 means unlimited)")
	flags.BoolVarP(&neverFollow, "never-follow", "P", false, "never follow symlinks (default)")
	flags.BoolVarP(&followAll, "follow-all", "L", false, "follow every symlink")
	flags.StringArrayVarP(&followSelected, "follow", "H", nil, "follow only the given symlink paths (repeatable)")
	flags.BoolVar(&allowEscape, "allow-symlink-escape", false, "allow a followed symlink to resolve outside DIR")
	flags.BoolVarP(&quiet, "quiet", "q", false, "raise the log level to errors only")
	flags.BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	flags.BoolVar(&timestamps, "time", false, "include timestamps in log output")

	err := root.Execute()
	if err == nil {
		return 0
	}

	fmt.Fprintln(os.Stderr, "pack:", err)

	var ue *usageErr
	if errors.As(err, &ue) {
		return 2
	}
	if kind, ok := ffserr.As(err); ok {
		return ffserr.ExitCode(kind)
	}
	return 1
}

func symlinkMode(never, all, hasSelected bool) (pack.SymlinkMode, error) {
	count := 0
	for _, b := range []bool{never, all, hasSelected} {
		if b {
			count++
		}
	}
	if count > 1 {
		return 0, usageErrorf("-P, -L, and -H are mutually exclusive")
	}
	switch {
	case all:
		return pack.Follow, nil
	case hasSelected:
		return pack.FollowSelected, nil
	default:
		return pack.NoFollow, nil
	}
}
