// Command unpack materializes a JSON/YAML/TOML document as a real
// directory tree on disk, without mounting anything.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

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

func run(args []string) int {
	var (
		into       string
		typeFmt    = cliutil.NewFormatValue("")
		mungeFlag  = cliutil.NewMungeValue(munge.Rename)
		exact      bool
		noXattr    bool
		unpadded   bool
		quiet      bool
		debug      bool
		timestamps bool
	)

	root := &cobra.Command{
		Use:           "unpack [INPUT|-]",
		Short:         "materialize a JSON/YAML/TOML document as a directory tree",
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

			input := "-"
			if len(args) == 1 {
				input = args[0]
			}

			var data []byte
			var err error
			if input == "" || input == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(input)
			}
			if err != nil {
				return ffserr.New(ffserr.MountpointUnusable, "read-input", input, err)
			}

			fmtName := typeFmt.Value
			if fmtName == "" {
				var ok bool
				fmtName, ok = inferFormat(input)
				if !ok {
					return usageErrorf("cannot infer format from %q, pass --type", input)
				}
			}
			codec, err := format.Lookup(fmtName)
			if err != nil {
				return err
			}
			v, err := codec.Decode(data)
			if err != nil {
				return ffserr.New(ffserr.FormatParseError, "decode", input, err)
			}

			dest := into
			if dest == "" {
				if input == "" || input == "-" {
					return usageErrorf("--into is required when INPUT is stdin")
				}
				base := filepath.Base(input)
				dest = strings.TrimSuffix(base, filepath.Ext(base))
			}

			opts := pack.DefaultOptions()
			opts.Munge = mungeFlag.Value
			opts.Exact = exact
			opts.NoXattr = noXattr
			opts.Unpadded = unpadded

			return pack.Unpack(v, dest, opts)
		},
	}

	flags := root.Flags()
	flags.StringVar(&into, "into", "", "destination directory (default: INPUT's filename stem)")
	flags.Var(typeFmt, "type", "input format: json, yaml, or toml")
	flags.Var(mungeFlag, "munge", "reserved-key handling: rename or filter")
	flags.BoolVar(&exact, "exact", false, "disable the single-trailing-newline convenience trim")
	flags.BoolVar(&noXattr, "no-xattr", false, "do not record user.type extended attributes")
	flags.BoolVar(&unpadded, "unpadded", false, "do not zero-pad list element filenames")
	flags.BoolVarP(&quiet, "quiet", "q", false, "raise the log level to errors only")
	flags.BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	flags.BoolVar(&timestamps, "time", false, "include timestamps in log output")

	err := root.Execute()
	if err == nil {
		return 0
	}

	fmt.Fprintln(os.Stderr, "unpack:", err)

	var ue *usageErr
	if errors.As(err, &ue) {
		return 2
	}
	if kind, ok := ffserr.As(err); ok {
		return ffserr.ExitCode(kind)
	}
	return 1
}
