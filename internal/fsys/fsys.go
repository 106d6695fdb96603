// Package fsys is the FUSE operation dispatcher F of §4.2/§5: it
// wires github.com/hanwen/go-fuse/v2/fs's Node interfaces to an
// internal/tree.Table, the way the teacher's fs/loopback.go wires
// them to a real backing directory and fs/mem.go wires them to a
// plain byte slice. Here the backing store is always the same
// in-memory tree, so every node is addressed by its tree.Inode id
// rather than by a path or syscall handle.
package fsys

import (
	"context"
	"syscall"

	fusefs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/go-ffs/ffs/internal/ffserr"
	"github.com/go-ffs/ffs/internal/tree"
	"github.com/go-ffs/ffs/internal/xlog"
)

var log = xlog.For("fsys")

// node is one FUSE-visible inode, backed by a tree.Inode of the same
// id living in root.Table.
type node struct {
	fusefs.Inode

	root *Root
	ino  uint64
}

// Root is the filesystem's root node and entry point for Mount.
type Root struct {
	node

	Table *tree.Table
}

// NewRoot builds the root node for a mount backed by t.
func NewRoot(t *tree.Table) *Root {
	r := &Root{Table: t}
	r.ino = tree.RootIno
	r.root = r
	return r
}

var (
	_ fusefs.InodeEmbedder  = (*node)(nil)
	_ fusefs.NodeOnAdder    = (*Root)(nil)
	_ fusefs.NodeGetattrer  = (*node)(nil)
	_ fusefs.NodeSetattrer  = (*node)(nil)
	_ fusefs.NodeLookuper   = (*node)(nil)
	_ fusefs.NodeReaddirer  = (*node)(nil)
	_ fusefs.NodeMkdirer    = (*node)(nil)
	_ fusefs.NodeCreater    = (*node)(nil)
	_ fusefs.NodeUnlinker   = (*node)(nil)
	_ fusefs.NodeRmdirer    = (*node)(nil)
	_ fusefs.NodeRenamer    = (*node)(nil)
	_ fusefs.NodeGetxattrer = (*node)(nil)
	_ fusefs.NodeSetxattrer = (*node)(nil)
	_ fusefs.NodeRemovexattrer = (*node)(nil)
	_ fusefs.NodeListxattrer   = (*node)(nil)
	_ fusefs.NodeOpener        = (*node)(nil)
	_ fusefs.NodeReader        = (*node)(nil)
	_ fusefs.NodeWriter        = (*node)(nil)
	_ fusefs.NodeFlusher       = (*node)(nil)
	_ fusefs.NodeStatfser      = (*Root)(nil)
)

// OnAdd is called once when the root is attached to the FUSE
// connection. It does nothing: under Eager, tree.Build has already
// expanded the whole tree, and otherwise internal/tree materializes
// children lazily via Table.Readdir/Lookup.
func (r *Root) OnAdd(ctx context.Context) {}

func (n *node) child(ino uint64) *node {
	return &node{root: n.root, ino: ino}
}

func errnoOf(err error) syscall.Errno {
	if err == nil {
		return fusefs.OK
	}
	if k, ok := ffserr.As(err); ok {
		return ffserr.Errno(k)
	}
	return syscall.EIO
}

func modeFor(a tree.Attr) uint32 {
	if a.Kind == tree.Directory {
		return syscall.S_IFDIR | a.Mode
	}
	return syscall.S_IFREG | a.Mode
}

func fillAttr(out *fuse.Attr, a tree.Attr) {
	out.Ino = a.Ino
	out.Size = a.Size
	out.Nlink = a.Nlink
	out.Mode = modeFor(a)
	out.Uid = a.Uid
	out.Gid = a.Gid
	out.SetTimes(&a.Times.Atime, &a.Times.Mtime, &a.Times.Ctime)
}

func fillAttrOut(out *fuse.AttrOut, a tree.Attr) { fillAttr(&out.Attr, a) }

func fillEntryOut(out *fuse.EntryOut, a tree.Attr) {
	out.NodeId = a.Ino
	fillAttr(&out.Attr, a)
}

func stableAttr(a tree.Attr) fusefs.StableAttr {
	return fusefs.StableAttr{Mode: modeFor(a) &^ 07777, Ino: a.Ino}
}

// Statfs reports placeholder filesystem statistics; macOS requires a
// successful Statfs for the mount to come up at all (§4 DESIGN NOTES
// parity with fs/loopback.go's own comment on NodeStatfser).
func (r *Root) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	out.Bsize = 4096
	out.NameLen = 255
	return fusefs.OK
}

func (n *node) Getattr(ctx context.Context, f fusefs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	n.root.Table.RLock()
	defer n.root.Table.RUnlock()
	attr, err := n.root.Table.Getattr(n.ino)
	if err != nil {
		return errnoOf(err)
	}
	fillAttrOut(out, attr)
	return fusefs.OK
}

func (n *node) Setattr(ctx context.Context, f fusefs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	policy := n.root.Table.Policy()
	if policy.ReadOnly {
		return syscall.EROFS
	}
	var req tree.SetattrIn
	if sz, ok := in.GetSize(); ok {
		v := sz
		req.Size = &v
	}
	if m, ok := in.GetMode(); ok {
		v := m & 07777
		req.Mode = &v
	}
	if u, ok := in.GetUID(); ok {
		v := u
		req.Uid = &v
	}
	if g, ok := in.GetGID(); ok {
		v := g
		req.Gid = &v
	}

	n.root.Table.Lock()
	defer n.root.Table.Unlock()
	attr, err := n.root.Table.Setattr(n.ino, req, policy.Uid, policy.Gid)
	if err != nil {
		return errnoOf(err)
	}
	fillAttrOut(out, attr)
	return fusefs.OK
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fusefs.Inode, syscall.Errno) {
	n.root.Table.RLock()
	defer n.root.Table.RUnlock()
	attr, err := n.root.Table.Lookup(n.ino, name)
	if err != nil {
		return nil, errnoOf(err)
	}
	fillEntryOut(out, attr)
	return n.NewInode(ctx, n.child(attr.Ino), stableAttr(attr)), fusefs.OK
}

func (n *node) Readdir(ctx context.Context) (fusefs.DirStream, syscall.Errno) {
	n.root.Table.RLock()
	defer n.root.Table.RUnlock()
	entries, err := n.root.Table.Readdir(n.ino)
	if err != nil {
		return nil, errnoOf(err)
	}
	out := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		mode := uint32(syscall.S_IFREG)
		if e.Kind == tree.Directory {
			mode = syscall.S_IFDIR
		}
		out = append(out, fuse.DirEntry{Mode: mode, Name: e.Name, Ino: e.Ino})
	}
	return fusefs.NewListDirStream(out), fusefs.OK
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fusefs.Inode, syscall.Errno) {
	n.root.Table.Lock()
	defer n.root.Table.Unlock()
	attr, err := n.root.Table.Mkdir(n.ino, name, mode&07777)
	if err != nil {
		return nil, errnoOf(err)
	}
	fillEntryOut(out, attr)
	return n.NewInode(ctx, n.child(attr.Ino), stableAttr(attr)), fusefs.OK
}

func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fusefs.Inode, fusefs.FileHandle, uint32, syscall.Errno) {
	n.root.Table.Lock()
	defer n.root.Table.Unlock()
	attr, err := n.root.Table.Create(n.ino, name, mode&07777)
	if err != nil {
		return nil, nil, 0, errnoOf(err)
	}
	fillEntryOut(out, attr)
	child := n.NewInode(ctx, n.child(attr.Ino), stableAttr(attr))
	return child, nil, 0, fusefs.OK
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	n.root.Table.Lock()
	defer n.root.Table.Unlock()
	return errnoOf(n.root.Table.Unlink(n.ino, name))
}

func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	n.root.Table.Lock()
	defer n.root.Table.Unlock()
	return errnoOf(n.root.Table.Rmdir(n.ino, name))
}

// Rename takes the write lock across both the old and new parent
// directories for its whole duration, satisfying the rename-atomicity
// requirement even though newParent may be a different *node than n.
func (n *node) Rename(ctx context.Context, name string, newParent fusefs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	np, ok := newParent.(*node)
	if !ok {
		log.Error("rename target is not an ffs node")
		return syscall.EINVAL
	}
	n.root.Table.Lock()
	defer n.root.Table.Unlock()
	return errnoOf(n.root.Table.Rename(n.ino, name, np.ino, newName))
}

func (n *node) Getxattr(ctx context.Context, attr string, dest []byte) (uint32, syscall.Errno) {
	n.root.Table.RLock()
	defer n.root.Table.RUnlock()
	val, err := n.root.Table.Getxattr(n.ino, attr)
	if err != nil {
		return 0, errnoOf(err)
	}
	if len(dest) < len(val) {
		return uint32(len(val)), syscall.ERANGE
	}
	copy(dest, val)
	return uint32(len(val)), fusefs.OK
}

func (n *node) Setxattr(ctx context.Context, attr string, data []byte, flags uint32) syscall.Errno {
	n.root.Table.Lock()
	defer n.root.Table.Unlock()
	return errnoOf(n.root.Table.Setxattr(n.ino, attr, data))
}

func (n *node) Removexattr(ctx context.Context, attr string) syscall.Errno {
	n.root.Table.Lock()
	defer n.root.Table.Unlock()
	return errnoOf(n.root.Table.Removexattr(n.ino, attr))
}

func (n *node) Listxattr(ctx context.Context, dest []byte) (uint32, syscall.Errno) {
	n.root.Table.RLock()
	defer n.root.Table.RUnlock()
	names, err := n.root.Table.Listxattr(n.ino)
	if err != nil {
		return 0, errnoOf(err)
	}
	var size uint32
	for _, name := range names {
		size += uint32(len(name)) + 1
	}
	if uint32(len(dest)) < size {
		return size, syscall.ERANGE
	}
	off := 0
	for _, name := range names {
		off += copy(dest[off:], name)
		dest[off] = 0
		off++
	}
	return size, fusefs.OK
}

// Open never returns a FileHandle: payload reads/writes go straight
// through Table by inode id, so there is no per-handle state to keep.
func (n *node) Open(ctx context.Context, flags uint32) (fusefs.FileHandle, uint32, syscall.Errno) {
	if n.root.Table.Policy().ReadOnly && flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	return nil, 0, fusefs.OK
}

func (n *node) Read(ctx context.Context, f fusefs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n.root.Table.RLock()
	defer n.root.Table.RUnlock()
	data, err := n.root.Table.Read(n.ino, off, len(dest))
	if err != nil {
		return nil, errnoOf(err)
	}
	return fuse.ReadResultData(data), fusefs.OK
}

func (n *node) Write(ctx context.Context, f fusefs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	n.root.Table.Lock()
	defer n.root.Table.Unlock()
	written, err := n.root.Table.Write(n.ino, off, data)
	if err != nil {
		return 0, errnoOf(err)
	}
	return uint32(written), fusefs.OK
}

func (n *node) Flush(ctx context.Context, f fusefs.FileHandle) syscall.Errno { return fusefs.OK }
