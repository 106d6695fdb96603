package pack

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/xattr"

	"github.com/go-ffs/ffs/internal/ffserr"
	"github.com/go-ffs/ffs/internal/tree"
	"github.com/go-ffs/ffs/internal/value"
)

// Unpack materializes v as a real directory tree rooted at targetDir
// (§4.4). targetDir must not exist, or must exist and be empty.
func Unpack(v value.Value, targetDir string, opts Options) error {
	if !v.IsDirLike() {
		return ffserr.New(ffserr.RootNotDirectory, "unpack", targetDir, fmt.Errorf("root must be a directory (map or list), got %v", v.Kind()))
	}
	if err := ensureEmptyOrAbsent(targetDir); err != nil {
		return err
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return ffserr.New(ffserr.MountpointUnusable, "unpack", targetDir, err)
	}
	if !opts.NoXattr {
		tag := tree.TagNamed
		if v.Kind() == value.KindList {
			tag = tree.TagList
		}
		_ = xattr.Set(targetDir, reservedXattr, []byte(tag.String()))
	}
	return unpackDir(v, targetDir, opts)
}

func ensureEmptyOrAbsent(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return ffserr.New(ffserr.MountpointUnusable, "unpack", dir, err)
	}
	if len(entries) > 0 {
		return ffserr.New(ffserr.Exists, "unpack", dir, fmt.Errorf("target directory is not empty"))
	}
	return nil
}

func unpackDir(v value.Value, dir string, opts Options) error {
	switch v.Kind() {
	case value.KindMap:
		om := v.MapVal()
		for _, key := range om.Keys() {
			child, _ := om.Get(key)
			name, ok := mungeName(key, opts.Munge)
			if !ok {
				continue
			}
			if err := unpackEntry(child, dir, name, opts); err != nil {
				return err
			}
		}
		return nil
	case value.KindList:
		items := v.ListItems()
		width := listIndexWidth(len(items), opts.Unpadded)
		for i, child := range items {
			name := formatListIndex(i, width)
			if err := unpackEntry(child, dir, name, opts); err != nil {
				return err
			}
		}
		return nil
	default:
		return ffserr.New(ffserr.RootNotDirectory, "unpack", dir, nil)
	}
}

func unpackEntry(v value.Value, dir, name string, opts Options) error {
	path := filepath.Join(dir, name)
	if v.IsDirLike() {
		if err := os.Mkdir(path, 0755); err != nil {
			return ffserr.New(ffserr.MountpointUnusable, "unpack", path, err)
		}
		if !opts.NoXattr {
			tag := tree.TagNamed
			if v.Kind() == value.KindList {
				tag = tree.TagList
			}
			_ = xattr.Set(path, reservedXattr, []byte(tag.String()))
		}
		return unpackDir(v, path, opts)
	}

	data := value.Render(v)
	if opts.TrailingNewline && v.Kind() != value.KindBytes {
		data = append(append([]byte(nil), data...), '\n')
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return ffserr.New(ffserr.MountpointUnusable, "unpack", path, err)
	}
	if !opts.NoXattr {
		_ = xattr.Set(path, reservedXattr, []byte(tree.ScalarTag(v.Kind()).String()))
	}
	return nil
}
