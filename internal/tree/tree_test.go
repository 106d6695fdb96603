package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-ffs/ffs/internal/value"
)

func buildMap(t *testing.T, pairs ...any) *Table {
	t.Helper()
	om := value.NewOrderedMap()
	for i := 0; i < len(pairs); i += 2 {
		om.Set(pairs[i].(string), pairs[i+1].(value.Value))
	}
	tbl, err := Build(value.Map(om), DefaultPolicy())
	require.NoError(t, err)
	return tbl
}

// S1: edit scalar files and create new ones; unmount preserves
// existing key order and appends new keys.
func TestScenarioS1(t *testing.T) {
	tbl := buildMap(t,
		"name", value.String("Michael Greenberg"),
		"eyes", value.Int(2),
		"fingernails", value.Int(10),
		"human", value.Bool(true),
	)

	root := tbl.inodes[RootIno]
	tbl.expand(root)

	nameIno, ok := root.children.get("name")
	require.True(t, ok)
	data, err := tbl.Read(nameIno, 0, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "Michael Greenberg\n", string(data))

	eyesIno, _ := root.children.get("eyes")
	data, _ = tbl.Read(eyesIno, 0, 1<<20)
	assert.Equal(t, "2\n", string(data))

	zero := uint64(0)
	_, err = tbl.Setattr(nameIno, SetattrIn{Size: &zero}, 0, 0)
	require.NoError(t, err)
	_, err = tbl.Write(nameIno, 0, []byte("Mikey Indiana\n"))
	require.NoError(t, err)

	_, err = tbl.Create(RootIno, "nose", 0644)
	require.NoError(t, err)
	noseIno, _ := root.children.get("nose")
	_, err = tbl.Write(noseIno, 0, []byte("1\n"))
	require.NoError(t, err)

	_, err = tbl.Mkdir(RootIno, "pockets", 0755)
	require.NoError(t, err)
	pocketsIno, _ := root.children.get("pockets")
	_, err = tbl.Create(pocketsIno, "pants", 0644)
	require.NoError(t, err)
	pantsIno, _ := tbl.inodes[pocketsIno].children.get("pants")
	_, err = tbl.Write(pantsIno, 0, []byte("keys\n"))
	require.NoError(t, err)
	_, err = tbl.Create(pocketsIno, "shirt", 0644)
	require.NoError(t, err)
	shirtIno, _ := tbl.inodes[pocketsIno].children.get("shirt")
	_, err = tbl.Write(shirtIno, 0, []byte("pen\n"))
	require.NoError(t, err)

	out := tbl.Serialize()
	require.Equal(t, value.KindMap, out.Kind())
	om := out.MapVal()
	assert.Equal(t, []string{"name", "eyes", "fingernails", "human", "nose", "pockets"}, om.Keys())

	nameVal, _ := om.Get("name")
	assert.Equal(t, "Mikey Indiana", nameVal.Str())

	pocketsVal, _ := om.Get("pockets")
	pom := pocketsVal.MapVal()
	assert.Equal(t, []string{"pants", "shirt"}, pom.Keys())
	pantsVal, _ := pom.Get("pants")
	assert.Equal(t, "keys", pantsVal.Str())
}

// S2: a list root retagged "named" via setxattr, then its children
// renamed, serializes as a Map keyed by the new names.
func TestScenarioS2(t *testing.T) {
	tbl, err := Build(value.List([]value.Value{
		value.Int(1), value.Int(2), value.String("3"), value.Bool(false),
	}), DefaultPolicy())
	require.NoError(t, err)

	root := tbl.inodes[RootIno]
	tbl.expand(root)
	names := root.children.orderedNames()
	require.Len(t, names, 4)

	require.NoError(t, tbl.Setxattr(RootIno, "user.type", []byte("named")))

	newNames := []string{"loneliest_number", "to_tango", "three", "not_true"}
	for i, old := range names {
		require.NoError(t, tbl.Rename(RootIno, old, RootIno, newNames[i]))
	}

	out := tbl.Serialize()
	require.Equal(t, value.KindMap, out.Kind())
	om := out.MapVal()
	assert.ElementsMatch(t, newNames, om.Keys())

	v, ok := om.Get("loneliest_number")
	require.True(t, ok)
	assert.Equal(t, int64(1), v.Int())
	v, ok = om.Get("not_true")
	require.True(t, ok)
	assert.Equal(t, false, v.Bool())
}

// S4: --new starts from an empty map directory; files created under
// it are exposed as a JSON array, in byte-wise filename order (a, a1,
// b), once the root is retagged "list".
func TestScenarioS4(t *testing.T) {
	tbl, err := Build(value.Map(value.NewOrderedMap()), DefaultPolicy())
	require.NoError(t, err)

	_, err = tbl.Create(RootIno, "a", 0644)
	require.NoError(t, err)
	root := tbl.inodes[RootIno]
	aIno, _ := root.children.get("a")
	_, err = tbl.Write(aIno, 0, []byte("hi"))
	require.NoError(t, err)

	_, err = tbl.Create(RootIno, "a1", 0644)
	require.NoError(t, err)
	a1Ino, _ := root.children.get("a1")
	_, err = tbl.Write(a1Ino, 0, []byte("hello"))
	require.NoError(t, err)

	_, err = tbl.Create(RootIno, "b", 0644)
	require.NoError(t, err)
	bIno, _ := root.children.get("b")
	_, err = tbl.Write(bIno, 0, []byte("bye"))
	require.NoError(t, err)

	require.NoError(t, tbl.Setxattr(RootIno, "user.type", []byte("list")))

	out := tbl.Serialize()
	require.Equal(t, value.KindList, out.Kind())
	items := out.ListItems()
	require.Len(t, items, 3)
	assert.Equal(t, "hi", items[0].Str())
	assert.Equal(t, "hello", items[1].Str())
	assert.Equal(t, "bye", items[2].Str())
}

// S5: reserved keys "." and ".." are munged to "_." and "_.." under
// the default Rename policy, and restored on serialize without edits.
func TestScenarioS5(t *testing.T) {
	tbl := buildMap(t,
		".", value.String("first"),
		"..", value.String("second"),
		"dot", value.String("third"),
		"dotdot", value.String("fourth"),
	)
	root := tbl.inodes[RootIno]
	tbl.expand(root)

	assert.Equal(t, []string{"_.", "_..", "dot", "dotdot"}, root.children.orderedNames())

	out := tbl.Serialize()
	om := out.MapVal()
	assert.Equal(t, []string{".", "..", "dot", "dotdot"}, om.Keys())
	v, _ := om.Get(".")
	assert.Equal(t, "first", v.Str())
}

func TestListDirectorySerializesInSortedNameOrder(t *testing.T) {
	tbl, err := Build(value.List([]value.Value{value.Int(1), value.Int(2)}), DefaultPolicy())
	require.NoError(t, err)
	root := tbl.inodes[RootIno]
	tbl.expand(root)

	// The two list entries are named "00" and "01" (width 2); "10" is
	// added after them and sorts after them byte-wise.
	_, err = tbl.Create(RootIno, "10", 0644)
	require.NoError(t, err)
	ino, _ := root.children.get("10")
	_, err = tbl.Write(ino, 0, []byte("ten"))
	require.NoError(t, err)

	out := tbl.Serialize()
	items := out.ListItems()
	// byte-wise: "00" < "01" < "10".
	require.Len(t, items, 3)
	assert.Equal(t, int64(1), items[0].Int())
	assert.Equal(t, int64(2), items[1].Int())
	assert.Equal(t, "ten", items[2].Str())
}

func TestRenameClearsRestorationWhenNameNoLongerMatches(t *testing.T) {
	tbl := buildMap(t, ".", value.String("x"))
	root := tbl.inodes[RootIno]
	tbl.expand(root)

	ino, ok := root.children.get("_.")
	require.True(t, ok)
	require.NoError(t, tbl.Rename(RootIno, "_.", RootIno, "literal"))

	n := tbl.inodes[ino]
	assert.False(t, n.HasRestoration)

	out := tbl.Serialize()
	om := out.MapVal()
	_, hasLiteral := om.Get("literal")
	assert.True(t, hasLiteral)
}

func TestUnlinkRejectsDirectoryAndRmdirRejectsNonEmpty(t *testing.T) {
	tbl := buildMap(t)
	_, err := tbl.Mkdir(RootIno, "d", 0755)
	require.NoError(t, err)

	err = tbl.Unlink(RootIno, "d")
	assert.Error(t, err)

	root := tbl.inodes[RootIno]
	dIno, _ := root.children.get("d")
	_, err = tbl.Create(dIno, "f", 0644)
	require.NoError(t, err)

	err = tbl.Rmdir(RootIno, "d")
	assert.Error(t, err)

	require.NoError(t, tbl.Unlink(dIno, "f"))
	require.NoError(t, tbl.Rmdir(RootIno, "d"))
}

func TestBuildRejectsScalarRoot(t *testing.T) {
	_, err := Build(value.Bool(false), DefaultPolicy())
	require.Error(t, err)

	_, err = Build(value.Null(), DefaultPolicy())
	require.Error(t, err)
}

func TestExplicitTypeTagFallsBackOnParseFailure(t *testing.T) {
	tbl := buildMap(t, "n", value.Int(42))
	root := tbl.inodes[RootIno]
	tbl.expand(root)
	ino, _ := root.children.get("n")

	require.NoError(t, tbl.Setxattr(ino, "user.type", []byte("integer")))
	_, err := tbl.Write(ino, 0, []byte("not-a-number"))
	require.NoError(t, err)

	out := tbl.Serialize()
	v, _ := out.MapVal().Get("n")
	// the write leaves the payload "not-a-number"; the explicit
	// "integer" tag fails to parse it, so classification falls back
	// to String.
	assert.Equal(t, value.KindString, v.Kind())
}
