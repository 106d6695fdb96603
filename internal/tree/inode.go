// Package tree implements the inode table T of §3.2: a persistent,
// in-memory representation of a value.Value as numbered inodes with
// parent/child pointers, attributes, extended attributes, and type
// tags. It is the engine the FUSE dispatcher (internal/fsys) drives,
// and it meets value.Value only through Build and Table.Serialize.
// The pack/unpack walkers (internal/pack) do not use Table; they share
// only the TypeTag vocabulary defined here.
package tree

import (
	"time"

	"github.com/go-ffs/ffs/internal/value"
)

// Kind distinguishes Directory and File inodes (§3.2).
type Kind int

const (
	Directory Kind = iota
	File
)

// TypeTag is the type classification carried by every inode (§3.2
// "type tag"). For a Directory it is always Named or List. For a File
// it is either a specific scalar Kind, or Auto, meaning the payload's
// type is inferred at serialization time via value.Classify (§3.1,
// §4.3).
type TypeTag struct {
	Auto bool
	Kind value.Kind
}

var (
	TagNamed = TypeTag{Kind: value.KindMap}
	TagList  = TypeTag{Kind: value.KindList}
	TagAuto  = TypeTag{Auto: true}
)

func ScalarTag(k value.Kind) TypeTag { return TypeTag{Kind: k} }

// String renders the user.type xattr value (§6.3).
func (t TypeTag) String() string {
	if t.Auto {
		return "auto"
	}
	return t.Kind.String()
}

// ParseTypeTag parses a user.type xattr value. The second return is
// false for a value outside the reserved vocabulary.
func ParseTypeTag(s string) (TypeTag, bool) {
	if s == "auto" {
		return TagAuto, true
	}
	k, ok := value.ParseKind(s)
	if !ok {
		return TypeTag{}, false
	}
	return TypeTag{Kind: k}, true
}

// ValidForKind reports whether a type tag is legal on an inode of the
// given Kind: files cannot be tagged named/list, directories cannot
// be tagged scalar or auto (§4.2 Setxattr).
func (t TypeTag) ValidForKind(k Kind) bool {
	if k == Directory {
		return !t.Auto && (t.Kind == value.KindMap || t.Kind == value.KindList)
	}
	if t.Auto {
		return true
	}
	return t.Kind != value.KindMap && t.Kind != value.KindList
}

// Times bundles the four inode timestamps (§3.2).
type Times struct {
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
	Crtime time.Time
}

// Attr is the POSIX-visible attribute set of an inode, independent of
// payload or children, returned by Getattr/Lookup/Setattr.
type Attr struct {
	Ino   uint64
	Kind  Kind
	Mode  uint32
	Uid   uint32
	Gid   uint32
	Size  uint64
	Nlink uint32
	Times Times
}

// Inode is one node of the tree (§3.2). Directory and File payloads
// are mutually exclusive; which fields are meaningful is determined
// by Kind.
type Inode struct {
	Ino    uint64
	Kind   Kind
	Parent uint64

	Mode uint32
	Uid  uint32
	Gid  uint32
	Times

	TypeTag TypeTag

	RestorationName string
	HasRestoration  bool

	Xattrs map[string][]byte

	// Directory payload.
	children *childList
	deferred *value.Value // non-nil until expanded (§4.1 lazy materialization)
	expanded bool

	// File payload.
	data  []byte
	dirty bool
}

func newInode(ino uint64, kind Kind, parent uint64) *Inode {
	n := &Inode{
		Ino:     ino,
		Kind:    kind,
		Parent:  parent,
		Xattrs:  make(map[string][]byte),
		Mode:    0644,
	}
	if kind == Directory {
		n.children = newChildList()
		n.expanded = true
		n.Mode = 0755
	}
	return n
}

func (n *Inode) size() uint64 {
	if n.Kind == File {
		return uint64(len(n.data))
	}
	return 0
}
