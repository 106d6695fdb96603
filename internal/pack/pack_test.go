package pack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/xattr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-ffs/ffs/internal/value"
)

func xattrSupported(t *testing.T, dir string) bool {
	t.Helper()
	probe := filepath.Join(dir, ".xattr-probe")
	require.NoError(t, os.WriteFile(probe, []byte("x"), 0644))
	err := xattr.Set(probe, "user.ffs_probe", []byte("1"))
	return err == nil
}

func TestScenarioS6BinaryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	if !xattrSupported(t, dir) {
		t.Skip("filesystem does not support extended attributes")
	}

	om := value.NewOrderedMap()
	om.Set("payload", value.Bytes([]byte{0x00, 0xff, 0x10, 0x20, 'h', 'i'}))
	root := value.Map(om)

	target := filepath.Join(dir, "out")
	opts := DefaultOptions()
	require.NoError(t, Unpack(root, target, opts))

	got, err := Pack(target, opts)
	require.NoError(t, err)

	gotMap := got.MapVal()
	v, ok := gotMap.Get("payload")
	require.True(t, ok)
	assert.Equal(t, value.KindBytes, v.Kind())
	assert.Equal(t, []byte{0x00, 0xff, 0x10, 0x20, 'h', 'i'}, v.ByteSlice())

	// Round trip again to confirm byte-identical stability.
	target2 := filepath.Join(dir, "out2")
	require.NoError(t, Unpack(got, target2, opts))
	got2, err := Pack(target2, opts)
	require.NoError(t, err)
	v2, ok := got2.MapVal().Get("payload")
	require.True(t, ok)
	assert.Equal(t, v.ByteSlice(), v2.ByteSlice())
}

func TestPackListDirectoryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	if !xattrSupported(t, dir) {
		t.Skip("filesystem does not support extended attributes")
	}

	root := value.List([]value.Value{value.String("a"), value.String("b"), value.String("c")})
	target := filepath.Join(dir, "out")
	opts := DefaultOptions()
	require.NoError(t, Unpack(root, target, opts))

	got, err := Pack(target, opts)
	require.NoError(t, err)
	require.Equal(t, value.KindList, got.Kind())
	items := got.ListItems()
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].Str())
	assert.Equal(t, "b", items[1].Str())
	assert.Equal(t, "c", items[2].Str())
}

func TestPackMaxDepthTruncatesDescent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "b"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a", "b", "leaf"), []byte("x"), 0644))

	opts := DefaultOptions()
	opts.MaxDepth = 1
	got, err := Pack(dir, opts)
	require.NoError(t, err)

	a, ok := got.MapVal().Get("a")
	require.True(t, ok)
	require.Equal(t, value.KindMap, a.Kind())
	assert.Equal(t, 0, a.MapVal().Len(), "entries at the depth limit become empty containers")
}

func TestPackSkipsUnfollowedSymlink(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real"), []byte("x"), 0644))
	require.NoError(t, os.Symlink(filepath.Join(dir, "real"), filepath.Join(dir, "link")))

	opts := DefaultOptions()
	opts.SymlinkMode = NoFollow
	got, err := Pack(dir, opts)
	require.NoError(t, err)
	_, ok := got.MapVal().Get("link")
	assert.False(t, ok, "no-follow must skip the symlink entirely")
	_, ok = got.MapVal().Get("real")
	assert.True(t, ok)
}

func TestPackFollowsSymlinkWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real"), []byte("x"), 0644))
	require.NoError(t, os.Symlink(filepath.Join(dir, "real"), filepath.Join(dir, "link")))

	opts := DefaultOptions()
	opts.SymlinkMode = Follow
	got, err := Pack(dir, opts)
	require.NoError(t, err)
	v, ok := got.MapVal().Get("link")
	require.True(t, ok)
	assert.Equal(t, "x", v.Str())
}

func TestPackDetectsSymlinkLoop(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))
	require.NoError(t, os.Symlink(filepath.Join(sub, "loop"), filepath.Join(sub, "loop")))

	opts := DefaultOptions()
	opts.SymlinkMode = Follow
	_, err := Pack(dir, opts)
	require.Error(t, err)
}

func TestPackDetectsAncestorSymlink(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))
	require.NoError(t, os.Symlink(dir, filepath.Join(sub, "up")))

	opts := DefaultOptions()
	opts.SymlinkMode = Follow
	_, err := Pack(dir, opts)
	require.Error(t, err)
}

func TestPackDetectsSymlinkEscape(t *testing.T) {
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret"), []byte("x"), 0644))

	dir := t.TempDir()
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret"), filepath.Join(dir, "escape")))

	opts := DefaultOptions()
	opts.SymlinkMode = Follow
	_, err := Pack(dir, opts)
	require.Error(t, err)

	opts.AllowSymlinkEscape = true
	got, err := Pack(dir, opts)
	require.NoError(t, err)
	v, ok := got.MapVal().Get("escape")
	require.True(t, ok)
	assert.Equal(t, "x", v.Str())
}

func TestMungedNameRoundTripsThroughPack(t *testing.T) {
	dir := t.TempDir()
	if !xattrSupported(t, dir) {
		t.Skip("filesystem does not support extended attributes")
	}

	om := value.NewOrderedMap()
	om.Set(".", value.String("dot"))
	om.Set("a/b", value.String("slash"))
	root := value.Map(om)

	target := filepath.Join(dir, "out")
	opts := DefaultOptions()
	require.NoError(t, Unpack(root, target, opts))

	got, err := Pack(target, opts)
	require.NoError(t, err)
	v, ok := got.MapVal().Get(".")
	require.True(t, ok)
	assert.Equal(t, "dot", v.Str())
	v, ok = got.MapVal().Get("a/b")
	require.True(t, ok)
	assert.Equal(t, "slash", v.Str())
}
