package pack

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/xattr"

	"github.com/go-ffs/ffs/internal/ffserr"
	"github.com/go-ffs/ffs/internal/munge"
	"github.com/go-ffs/ffs/internal/tree"
	"github.com/go-ffs/ffs/internal/value"
)

// Pack walks sourceDir and builds the value.Value it represents
// (§4.4, the inverse of Unpack).
func Pack(sourceDir string, opts Options) (value.Value, error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return value.Value{}, ffserr.New(ffserr.MountpointUnusable, "pack", sourceDir, err)
	}
	if !info.IsDir() {
		return value.Value{}, ffserr.New(ffserr.RootNotDirectory, "pack", sourceDir, nil)
	}
	return packDir(sourceDir, sourceDir, 0, opts)
}

// packDir reads dir's user.type xattr to decide Named vs List, then
// builds the corresponding container. depth counts directories below
// the pack root; at opts.MaxDepth the container is returned empty
// rather than descended into (§4.4 "entries at depth D become empty
// Maps/Lists").
func packDir(root, dir string, depth int, opts Options) (value.Value, error) {
	dirTag := readDirTag(dir, opts)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return value.Value{}, ffserr.New(ffserr.MountpointUnusable, "pack", dir, err)
	}

	if dirTag == tree.TagList {
		if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
			return value.List(nil), nil
		}
		items := make([]value.Value, 0, len(entries))
		for _, entry := range entries {
			if skipMacosSidecar(entry.Name(), opts) {
				continue
			}
			v, ok, err := packEntry(root, dir, entry, depth, opts)
			if err != nil {
				return value.Value{}, err
			}
			if ok {
				items = append(items, v)
			}
		}
		return value.List(items), nil
	}

	if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
		return value.Map(value.NewOrderedMap()), nil
	}
	om := value.NewOrderedMap()
	for _, entry := range entries {
		name := entry.Name()
		if skipMacosSidecar(name, opts) {
			continue
		}
		v, ok, err := packEntry(root, dir, entry, depth, opts)
		if !ok || err != nil {
			if err != nil {
				return value.Value{}, err
			}
			continue
		}
		om.Set(munge.Unmunge(name), v)
	}
	return value.Map(om), nil
}

// packEntry resolves a single directory entry (following a symlink if
// configured to) and packs it, returning ok=false when the entry
// should be silently skipped (an un-followed symlink).
func packEntry(root, dir string, entry os.DirEntry, depth int, opts Options) (value.Value, bool, error) {
	name := entry.Name()
	path := filepath.Join(dir, name)

	info, err := entry.Info()
	if err != nil {
		return value.Value{}, false, ffserr.New(ffserr.MountpointUnusable, "pack", path, err)
	}

	realPath := path
	if info.Mode()&os.ModeSymlink != 0 {
		real, ok, err := resolveSymlink(root, dir, path, opts)
		if err != nil {
			return value.Value{}, false, err
		}
		if !ok {
			return value.Value{}, false, nil
		}
		realPath = real
		info, err = os.Stat(realPath)
		if err != nil {
			return value.Value{}, false, ffserr.New(ffserr.MountpointUnusable, "pack", realPath, err)
		}
	}

	if info.IsDir() {
		v, err := packDir(root, realPath, depth+1, opts)
		return v, true, err
	}
	v, err := packFile(realPath, opts)
	return v, true, err
}

func packFile(path string, opts Options) (value.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return value.Value{}, ffserr.New(ffserr.MountpointUnusable, "pack", path, err)
	}

	raw, present := readXattr(path, reservedXattr)
	tag := parseTypeTagXattr(raw, present, tree.TagAuto)

	if !tag.Auto {
		if !opts.Exact && tag.Kind != value.KindBytes {
			data = trimSingleTrailingNewline(data)
		}
		v, err := value.Parse(data, tag.Kind)
		if err == nil {
			return v, nil
		}
	} else if !opts.Exact {
		data = trimSingleTrailingNewline(data)
	}
	return value.Classify(data), nil
}

func trimSingleTrailingNewline(data []byte) []byte {
	if len(data) > 0 && data[len(data)-1] == '\n' {
		return data[:len(data)-1]
	}
	return data
}

func skipMacosSidecar(name string, opts Options) bool {
	return !opts.KeepMacosXattr && strings.HasPrefix(name, "._")
}

// readDirTag reads a directory's user.type xattr, defaulting to Named
// per §4.4 ("directories are classified named or list via xattr with
// default named").
func readDirTag(dir string, opts Options) tree.TypeTag {
	raw, present := readXattr(dir, reservedXattr)
	if !present {
		return tree.TagNamed
	}
	tag, ok := tree.ParseTypeTag(string(raw))
	if !ok || (tag.Kind != value.KindList && tag.Kind != value.KindMap) {
		return tree.TagNamed
	}
	return tag
}

// readXattr wraps xattr.Get, treating any error (missing attribute,
// or a filesystem/platform without xattr support at all) as simply
// absent rather than a hard failure: pack must still work on
// filesystems that cannot store user.type.
func readXattr(path, name string) ([]byte, bool) {
	v, err := xattr.Get(path, name)
	if err != nil {
		return nil, false
	}
	return v, true
}
