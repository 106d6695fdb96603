package pack

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ffs/ffs/internal/ffserr"
)

// resolveSymlink follows the symlink at path (contained in dir, under
// root) according to opts.SymlinkMode, applying §4.4's three distinct
// failure modes. It returns the real path to stat/read in place of
// path, or ok=false if the symlink should be silently skipped
// (no-follow, or follow-selected without path selected).
//
// This is hand-rolled rather than filepath.EvalSymlinks because the
// stdlib helper collapses loop/ancestor/escape into one generic error
// and gives no visited-set hook to distinguish them (§4.4 DESIGN
// NOTES).
func resolveSymlink(root, dir, path string, opts Options) (real string, ok bool, err error) {
	switch opts.SymlinkMode {
	case NoFollow:
		return "", false, nil
	case FollowSelected:
		abs, aerr := filepath.Abs(path)
		if aerr != nil || !opts.FollowSelected[filepath.Clean(abs)] {
			return "", false, nil
		}
	case Follow:
		// always follows
	}

	visited := map[string]bool{}
	current := path
	for {
		abs, aerr := filepath.Abs(current)
		if aerr != nil {
			return "", false, ffserr.New(ffserr.AncestorSymlink, "pack", current, aerr)
		}
		abs = filepath.Clean(abs)
		if visited[abs] {
			return "", false, ffserr.New(ffserr.SymlinkLoop, "pack", path, nil)
		}
		visited[abs] = true

		info, lerr := os.Lstat(abs)
		if lerr != nil {
			return "", false, ffserr.New(ffserr.MountpointUnusable, "pack", abs, lerr)
		}
		if info.Mode()&os.ModeSymlink == 0 {
			real = abs
			break
		}
		target, rerr := os.Readlink(abs)
		if rerr != nil {
			return "", false, ffserr.New(ffserr.MountpointUnusable, "pack", abs, rerr)
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(abs), target)
		}
		current = filepath.Clean(target)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false, ffserr.New(ffserr.MountpointUnusable, "pack", root, err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", false, ffserr.New(ffserr.MountpointUnusable, "pack", dir, err)
	}

	if isAncestor(real, absDir) {
		return "", false, ffserr.New(ffserr.AncestorSymlink, "pack", path, nil)
	}
	if !opts.AllowSymlinkEscape && !within(absRoot, real) {
		return "", false, ffserr.New(ffserr.SymlinkEscape, "pack", path, nil)
	}
	return real, true, nil
}

// isAncestor reports whether candidate is dir itself or an ancestor
// directory of dir (which would make following it recurse forever).
func isAncestor(candidate, dir string) bool {
	return within(candidate, dir)
}

// within reports whether target is root itself or lives under root.
func within(root, target string) bool {
	root = filepath.Clean(root)
	target = filepath.Clean(target)
	if root == target {
		return true
	}
	return strings.HasPrefix(target, root+string(filepath.Separator))
}
