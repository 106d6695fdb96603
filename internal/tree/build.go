package tree

import (
	"fmt"
	"math"
	"strconv"

	"github.com/go-ffs/ffs/internal/ffserr"
	"github.com/go-ffs/ffs/internal/munge"
	"github.com/go-ffs/ffs/internal/value"
)

// Build constructs a fresh Table from a decoded root value.Value
// (§4.1). If root is not a Map or List, it fails with
// RootNotDirectory before any mount takes place, per §4.1/§4.4/S3.
func Build(root value.Value, policy Policy) (*Table, error) {
	if !root.IsDirLike() {
		return nil, ffserr.New(ffserr.RootNotDirectory, "build", "/", fmt.Errorf("root must be a directory (map or list), got %v", root.Kind()))
	}

	t := newTable(policy)
	rootNode := t.allocInode(Directory, RootIno)
	rootNode.Parent = RootIno // root's parent is itself, by convention (§3.2)
	rootNode.Mode = policy.DirMode
	rootNode.Uid = policy.Uid
	rootNode.Gid = policy.Gid
	setDeferred(rootNode, root)
	rootNode.Xattrs["user.type"] = []byte(rootNode.TypeTag.String())

	if policy.Eager {
		t.expandAll(rootNode)
	}
	return t, nil
}

// setDeferred installs v as n's unexpanded payload: the directory
// type tag is fixed immediately (Map→named, List→list), but children
// are not materialized until Expand runs (§4.1 lazy materialization).
func setDeferred(n *Inode, v value.Value) {
	vv := v
	n.deferred = &vv
	n.expanded = false
	n.children = newChildList()
	if v.Kind() == value.KindList {
		n.TypeTag = TagList
	} else {
		n.TypeTag = TagNamed
	}
}

// expand materializes n's direct children from its deferred value, if
// not already expanded (§4.1). It is idempotent and is called from
// Lookup and Readdir before consulting n.children.
func (t *Table) expand(n *Inode) {
	if n.Kind != Directory || n.expanded {
		return
	}
	defer func() { n.expanded = true }()

	v := n.deferred
	n.deferred = nil
	if v == nil {
		return
	}

	switch v.Kind() {
	case value.KindMap:
		om := v.MapVal()
		for _, key := range om.Keys() {
			child, _ := om.Get(key)
			t.insertChild(n, key, child)
		}
	case value.KindList:
		items := v.ListItems()
		width := listIndexWidth(len(items), t.policy.Unpadded)
		for i, child := range items {
			name := formatListIndex(i, width)
			t.insertChild(n, name, child)
		}
	}
}

// expandAll recursively expands n and every descendant directory;
// used for --eager (§4.1 "Eager mode forces expansion at mount").
func (t *Table) expandAll(n *Inode) {
	t.expand(n)
	for _, name := range n.children.orderedNames() {
		ino, _ := n.children.get(name)
		ch := t.inodes[ino]
		if ch.Kind == Directory {
			t.expandAll(ch)
		}
	}
}

// insertChild materializes one child value under parent directory n,
// munging its key to a filename and recording a restoration name when
// munging changed it.
func (t *Table) insertChild(n *Inode, key string, v value.Value) {
	name, ok := munge.Munge(key, t.policy.Munge)
	if !ok {
		return // Filter policy drops reserved keys entirely.
	}

	var child *Inode
	if v.IsDirLike() {
		child = t.allocInode(Directory, n.Ino)
		child.Mode = t.policy.DirMode
		setDeferred(child, v)
	} else {
		child = t.allocInode(File, n.Ino)
		child.Mode = t.policy.FileMode
		child.TypeTag = ScalarTag(v.Kind())
		child.data = renderScalarFile(v, t.policy)
	}
	child.Uid = t.policy.Uid
	child.Gid = t.policy.Gid
	child.Xattrs["user.type"] = []byte(child.TypeTag.String())

	if munge.NeedsMunge(key) {
		child.RestorationName = key
		child.HasRestoration = true
	}

	n.children.set(name, child.Ino)
}

// renderScalarFile is §4.1's "serialized scalar" rule plus the
// trailing-newline policy.
func renderScalarFile(v value.Value, p Policy) []byte {
	data := value.Render(v)
	if p.TrailingNewline && v.Kind() != value.KindBytes {
		data = append(append([]byte(nil), data...), '\n')
	}
	return data
}

// listIndexWidth computes N = ceil(log10(len))+1 per §4.1, unless
// unpadded is configured.
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
