// Package munge implements the bidirectional key↔filename translation
// of §3.3: the handful of key shapes that are illegal or reserved as
// POSIX filenames get escaped on the way into the tree, and restored
// on the way back out.
package munge

import "strings"

// Policy selects how reserved keys are handled.
type Policy int

const (
	// Rename escapes a reserved key to a munged filename and
	// remembers the original so Restore is exact.
	Rename Policy = iota
	// Filter drops entries whose key needs escaping entirely.
	Filter
)

// ParsePolicy maps the --munge CLI flag value to a Policy.
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "rename":
		return Rename, true
	case "filter":
		return Filter, true
	default:
		return 0, false
	}
}

func (p Policy) String() string {
	if p == Filter {
		return "filter"
	}
	return "rename"
}

// NeedsMunge reports whether key is one of the reserved shapes that
// cannot pass through unchanged: ".", "..", an embedded NUL, or an
// embedded "/".
func NeedsMunge(key string) bool {
	switch key {
	case ".", "..":
		return true
	}
	return strings.ContainsRune(key, 0) || strings.ContainsRune(key, '/')
}

// Munge converts key to a filesystem-safe name under p. ok is false
// under Filter when the entry should be dropped entirely.
func Munge(key string, p Policy) (name string, ok bool) {
	if !NeedsMunge(key) {
		return key, true
	}
	if p == Filter {
		return "", false
	}
	switch key {
	case ".":
		return "_.", true
	case "..":
		return "_..", true
	}
	var b strings.Builder
	for _, r := range key {
		switch r {
		case 0:
			b.WriteString("_NUL_")
		case '/':
			b.WriteString("_SLASH_")
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), true
}

// Restore reverses Munge given the inode's stored restoration name.
// restorationName is the original key captured at mount/build time;
// present is whether that name is still recorded (it is cleared once
// a user-initiated rename makes the filename no longer match its
// munged form, per §4.2 rename). When present is false, name is
// returned unchanged: the filename itself is the key.
func Restore(name string, restorationName string, present bool) string {
	if present {
		return restorationName
	}
	return name
}

// Unmunge is a best-effort syntactic inverse of Munge, used by
// internal/pack which (unlike internal/tree) has no per-inode
// restoration name to consult: it only ever sees a bare filename on
// disk. It correctly reverses any name Munge itself produced, but
// cannot distinguish a munged name from a literal key that happens to
// look like one (e.g. a real key named "_."); that ambiguity is
// accepted for the non-mounted path and documented as such.
func Unmunge(name string) string {
	switch name {
	case "_.":
		return "."
	case "_..":
		return ".."
	}
	if !strings.Contains(name, "_NUL_") && !strings.Contains(name, "_SLASH_") {
		return name
	}
	r := strings.NewReplacer("_NUL_", "\x00", "_SLASH_", "/")
	return r.Replace(name)
}

// MungedForm recomputes what Munge(original, p) would currently
// produce, used by rename handling to decide whether a user-supplied
// new filename still matches the inode's restoration name (§4.2: "the
// inode's restoration name ... is cleared when the filename no longer
// matches its munged form").
func MungedForm(original string, p Policy) (string, bool) {
	return Munge(original, p)
}
