// Package xlog wraps logrus with the per-package filter §6.4
// describes: a RUST_LOG-style "pkg=level,pkg2=level2" string read
// from FFS_LOG, plus the root level toggled by -d/--debug and
// -q/--quiet.
package xlog

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	root   = logrus.New()
	filter = map[string]logrus.Level{}
)

func init() {
	root.SetOutput(os.Stderr)
	if f := os.Getenv("FFS_LOG"); f != "" {
		filter, _ = ParseFilter(f)
	}
}

// ParseFilter parses a "pkg=level,pkg2=level2" string into a
// per-package level map. An entry with an unrecognized level is
// skipped rather than failing the whole parse, so a typo in one
// clause does not silence every other package's logging.
func ParseFilter(s string) (map[string]logrus.Level, error) {
	out := make(map[string]logrus.Level)
	for _, clause := range strings.Split(s, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		parts := strings.SplitN(clause, "=", 2)
		if len(parts) != 2 {
			continue
		}
		lvl, err := logrus.ParseLevel(strings.TrimSpace(parts[1]))
		if err != nil {
			continue
		}
		out[strings.TrimSpace(parts[0])] = lvl
	}
	return out, nil
}

// SetDebug raises the root logger to DebugLevel (-d/--debug, §6.1).
func SetDebug() { root.SetLevel(logrus.DebugLevel) }

// SetQuiet raises the root logger's threshold to ErrorLevel
// (-q/--quiet, §6.1).
func SetQuiet() { root.SetLevel(logrus.ErrorLevel) }

// SetTimestamps enables full timestamps on every log line (--time,
// §6.1).
func SetTimestamps(on bool) {
	root.SetFormatter(&logrus.TextFormatter{FullTimestamp: on, DisableTimestamp: !on})
}

// For returns a logger scoped to pkg, honoring any FFS_LOG override
// for that package name.
func For(pkg string) *logrus.Entry {
	entry := root.WithField("pkg", pkg)
	if lvl, ok := filter[pkg]; ok {
		scoped := logrus.New()
		scoped.SetOutput(root.Out)
		scoped.SetFormatter(root.Formatter)
		scoped.SetLevel(lvl)
		entry = scoped.WithField("pkg", pkg)
	}
	return entry
}
