// Package pack implements the non-mounted path of §4.4: converting a
// value.Value tree to and from a real directory on disk, without ever
// going through a FUSE mount. It shares internal/tree's TypeTag
// vocabulary (the user.type xattr protocol is identical in both
// directions) but keeps its own, disk-oriented walker rather than
// reusing internal/tree.Table, since its traversal order and failure
// modes (symlink handling, max-depth) are peculiar to real
// filesystems.
package pack

import (
	"fmt"
	"math"
	"strconv"

	"github.com/go-ffs/ffs/internal/munge"
	"github.com/go-ffs/ffs/internal/tree"
)

// SymlinkMode selects how Pack treats symlinks (§4.4, §6.2 -P/-L/-H).
type SymlinkMode int

const (
	NoFollow SymlinkMode = iota
	Follow
	FollowSelected
)

// Options bundles the pack/unpack configuration of §6.2.
type Options struct {
	Munge           munge.Policy
	Unpadded        bool
	Exact           bool
	NoXattr         bool
	KeepMacosXattr  bool
	Pretty          bool
	TrailingNewline bool
	MaxDepth        int // 0 means unlimited

	SymlinkMode        SymlinkMode
	FollowSelected     map[string]bool // absolute paths to follow under FollowSelected
	AllowSymlinkEscape bool
}

// DefaultOptions mirrors tree.DefaultPolicy's defaults for the fields
// the two share.
func DefaultOptions() Options {
	return Options{
		Munge:           munge.Rename,
		TrailingNewline: true,
	}
}

// listIndexWidth mirrors internal/tree's §4.1 N = ceil(log10(len))+1
// rule, applied here to real directory entries instead of in-memory
// list items.
func listIndexWidth(n int, unpadded bool) int {
	if unpadded || n <= 0 {
		return 0
	}
	return int(math.Ceil(math.Log10(float64(n)))) + 1
}

func formatListIndex(i, width int) string {
	if width <= 0 {
		return strconv.Itoa(i)
	}
	return fmt.Sprintf("%0*d", width, i)
}

const reservedXattr = "user.type"

func mungeName(key string, p munge.Policy) (string, bool) {
	return munge.Munge(key, p)
}

// parseTypeTagXattr reads and parses a user.type xattr value, falling
// back to a default TypeTag when absent or unparseable (§4.4 "default
// named"/auto).
func parseTypeTagXattr(raw []byte, present bool, def tree.TypeTag) tree.TypeTag {
	if !present {
		return def
	}
	tag, ok := tree.ParseTypeTag(string(raw))
	if !ok {
		return def
	}
	return tag
}
