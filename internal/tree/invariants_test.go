package tree

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-ffs/ffs/internal/value"
)

// I1: every non-root inode is reachable from exactly one parent
// directory, under some child name.
func TestInvariantEveryInodeHasOneParent(t *testing.T) {
	tbl := buildMap(t, "a", value.String("x"))
	root := tbl.inodes[RootIno]
	tbl.expand(root)
	aIno, ok := root.children.get("a")
	require.True(t, ok)

	a := tbl.inodes[aIno]
	assert.Equal(t, RootIno, a.Parent)

	_, hasA := root.children.get("a")
	assert.True(t, hasA)
}

// I2: sibling names are unique; Create refuses to collide.
func TestInvariantSiblingNamesUnique(t *testing.T) {
	tbl := buildMap(t)
	_, err := tbl.Create(RootIno, "dup", 0644)
	require.NoError(t, err)
	_, err = tbl.Create(RootIno, "dup", 0644)
	assert.Error(t, err)
	_, err = tbl.Mkdir(RootIno, "dup", 0755)
	assert.Error(t, err)
}

// I3: directory nlink is 2 + number of Directory children.
func TestInvariantDirectoryNlink(t *testing.T) {
	tbl := buildMap(t)
	attr, err := tbl.Getattr(RootIno)
	require.NoError(t, err)
	assert.EqualValues(t, 2, attr.Nlink)

	_, err = tbl.Mkdir(RootIno, "d1", 0755)
	require.NoError(t, err)
	_, err = tbl.Mkdir(RootIno, "d2", 0755)
	require.NoError(t, err)
	_, err = tbl.Create(RootIno, "f", 0644)
	require.NoError(t, err)

	attr, err = tbl.Getattr(RootIno)
	require.NoError(t, err)
	assert.EqualValues(t, 4, attr.Nlink)

	fAttr, err := tbl.Lookup(RootIno, "f")
	require.NoError(t, err)
	assert.EqualValues(t, 1, fAttr.Nlink)
}

// I4: list-typed directories reorder their elements by byte-wise
// sorted filename on serialization, regardless of insertion order.
func TestInvariantListOrderIsSortedByName(t *testing.T) {
	tbl, err := Build(value.List([]value.Value{value.String("a"), value.String("b"), value.String("c")}), DefaultPolicy())
	require.NoError(t, err)
	root := tbl.inodes[RootIno]
	tbl.expand(root)
	names := root.children.orderedNames()
	sortedCopy := append([]string(nil), names...)
	sort.Strings(sortedCopy)
	assert.Equal(t, sortedCopy, names)

	out := tbl.Serialize()
	items := out.ListItems()
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].Str())
	assert.Equal(t, "b", items[1].Str())
	assert.Equal(t, "c", items[2].Str())
}

// I5: a valid user.type xattr is authoritative over auto-classification.
func TestInvariantExplicitTypeTagIsAuthoritative(t *testing.T) {
	tbl := buildMap(t, "n", value.Int(7))
	root := tbl.inodes[RootIno]
	tbl.expand(root)
	ino, _ := root.children.get("n")

	require.NoError(t, tbl.Setxattr(ino, "user.type", []byte("string")))
	out := tbl.Serialize()
	v, _ := out.MapVal().Get("n")
	assert.Equal(t, value.KindString, v.Kind())
}

// P5: setxattr(i, "user.type", tau) followed by removexattr(i,
// "user.type") reverts the effective tag to auto-typing, so a value
// whose explicit tag was overridden goes back to being classified
// from its payload bytes.
func TestInvariantRemovexattrRevertsToAutoTyping(t *testing.T) {
	tbl := buildMap(t, "n", value.String("3"))
	root := tbl.inodes[RootIno]
	tbl.expand(root)
	ino, _ := root.children.get("n")

	require.NoError(t, tbl.Setxattr(ino, "user.type", []byte("integer")))
	out := tbl.Serialize()
	v, _ := out.MapVal().Get("n")
	require.Equal(t, value.KindInt, v.Kind())

	require.NoError(t, tbl.Removexattr(ino, "user.type"))
	assert.True(t, tbl.inodes[ino].TypeTag.Auto)

	out = tbl.Serialize()
	v, _ = out.MapVal().Get("n")
	assert.Equal(t, value.KindString, v.Kind())
}

// P5 (directory case): a Directory has no auto-typed form, so removing
// its reserved tag is rejected rather than reverted.
func TestInvariantRemovexattrRejectedOnDirectory(t *testing.T) {
	tbl := buildMap(t)
	_, err := tbl.Mkdir(RootIno, "d", 0755)
	require.NoError(t, err)
	root := tbl.inodes[RootIno]
	dIno, _ := root.children.get("d")

	assert.Error(t, tbl.Removexattr(dIno, "user.type"))
}

// I5 (invalid case): an unparseable user.type value is rejected, not
// silently accepted.
func TestInvariantInvalidTypeTagRejected(t *testing.T) {
	tbl := buildMap(t, "n", value.Int(7))
	root := tbl.inodes[RootIno]
	tbl.expand(root)
	ino, _ := root.children.get("n")

	err := tbl.Setxattr(ino, "user.type", []byte("not-a-real-type"))
	assert.Error(t, err)
}

// I5 (directory/scalar mismatch): a Directory cannot be tagged with a
// scalar type, nor a File with "named"/"list".
func TestInvariantTypeTagKindMismatchRejected(t *testing.T) {
	tbl := buildMap(t)
	_, err := tbl.Mkdir(RootIno, "d", 0755)
	require.NoError(t, err)
	root := tbl.inodes[RootIno]
	dIno, _ := root.children.get("d")
	assert.Error(t, tbl.Setxattr(dIno, "user.type", []byte("string")))

	_, err = tbl.Create(RootIno, "f", 0644)
	require.NoError(t, err)
	fIno, _ := root.children.get("f")
	assert.Error(t, tbl.Setxattr(fIno, "user.type", []byte("named")))
}

// I6: a write leaves mtime and ctime no earlier than they were before
// it.
func TestInvariantTimesUpdateOnMutation(t *testing.T) {
	tbl := buildMap(t)
	_, err := tbl.Create(RootIno, "f", 0644)
	require.NoError(t, err)
	root := tbl.inodes[RootIno]
	ino, _ := root.children.get("f")

	before, err := tbl.Getattr(ino)
	require.NoError(t, err)

	_, err = tbl.Write(ino, 0, []byte("hi"))
	require.NoError(t, err)
	after, err := tbl.Getattr(ino)
	require.NoError(t, err)

	assert.False(t, after.Times.Mtime.Before(before.Times.Mtime))
	assert.False(t, after.Times.Ctime.Before(before.Times.Ctime))
}
