// Operations implementing the public contract of §4.2. None of these
// methods take the Table lock themselves: per §5, the caller
// (internal/fsys) acquires Table.Lock/RLock for the whole callback
// before calling in, so that lookup-then-mutate sequences such as
// rename are observed atomically.
package tree

import (
	"fmt"

	"github.com/go-ffs/ffs/internal/ffserr"
	"github.com/go-ffs/ffs/internal/munge"
)

// DirEntry is one entry returned by Readdir.
type DirEntry struct {
	Name string
	Ino  uint64
	Kind Kind
}

func (t *Table) dir(ino uint64, op string) (*Inode, error) {
	n, ok := t.get(ino)
	if !ok {
		return nil, ffserr.New(ffserr.NoEntry, op, fmt.Sprint(ino), nil)
	}
	if n.Kind != Directory {
		return nil, ffserr.New(ffserr.NotDirectory, op, fmt.Sprint(ino), nil)
	}
	t.expand(n)
	return n, nil
}

// Lookup finds a direct child of parent by name (§4.2).
func (t *Table) Lookup(parent uint64, name string) (Attr, error) {
	p, err := t.dir(parent, "lookup")
	if err != nil {
		return Attr{}, err
	}
	ino, ok := p.children.get(name)
	if !ok {
		return Attr{}, ffserr.New(ffserr.NoEntry, "lookup", name, nil)
	}
	ch := t.inodes[ino]
	return t.attr(ch), nil
}

// Getattr always succeeds if the inode exists (§4.2).
func (t *Table) Getattr(ino uint64) (Attr, error) {
	n, ok := t.get(ino)
	if !ok {
		return Attr{}, ffserr.New(ffserr.NoEntry, "getattr", fmt.Sprint(ino), nil)
	}
	return t.attr(n), nil
}

// SetattrIn bundles the optional fields setattr may change (§4.2).
type SetattrIn struct {
	Size *uint64
	Mode *uint32
	Uid  *uint32
	Gid  *uint32
}

// Setattr applies the requested changes, enforcing that uid/gid
// changes only match the mount-owner uid/gid (§4.2).
func (t *Table) Setattr(ino uint64, in SetattrIn, mountUid, mountGid uint32) (Attr, error) {
	n, ok := t.get(ino)
	if !ok {
		return Attr{}, ffserr.New(ffserr.NoEntry, "setattr", fmt.Sprint(ino), nil)
	}
	if in.Uid != nil && *in.Uid != mountUid {
		return Attr{}, ffserr.New(ffserr.PermissionDenied, "setattr", fmt.Sprint(ino), nil)
	}
	if in.Gid != nil && *in.Gid != mountGid {
		return Attr{}, ffserr.New(ffserr.PermissionDenied, "setattr", fmt.Sprint(ino), nil)
	}
	if in.Size != nil {
		t.resize(n, *in.Size)
		n.dirty = true
		t.touchMtime(n)
	}
	if in.Mode != nil {
		n.Mode = *in.Mode
	}
	t.touchCtime(n)
	return t.attr(n), nil
}

func (t *Table) resize(n *Inode, size uint64) {
	if uint64(len(n.data)) == size {
		return
	}
	if uint64(len(n.data)) > size {
		n.data = n.data[:size]
		return
	}
	grown := make([]byte, size)
	copy(grown, n.data)
	n.data = grown
}

// Read returns bytes from a File's payload; reads past EOF are empty
// (§4.2).
func (t *Table) Read(ino uint64, offset int64, length int) ([]byte, error) {
	n, ok := t.get(ino)
	if !ok {
		return nil, ffserr.New(ffserr.NoEntry, "read", fmt.Sprint(ino), nil)
	}
	if n.Kind != File {
		return nil, ffserr.New(ffserr.IsDirectory, "read", fmt.Sprint(ino), nil)
	}
	if offset < 0 || offset >= int64(len(n.data)) {
		return nil, nil
	}
	end := offset + int64(length)
	if end > int64(len(n.data)) {
		end = int64(len(n.data))
	}
	out := make([]byte, end-offset)
	copy(out, n.data[offset:end])
	return out, nil
}

// Write extends the payload as needed, marks the file dirty, and
// updates mtime/ctime (§4.2).
func (t *Table) Write(ino uint64, offset int64, data []byte) (int, error) {
	n, ok := t.get(ino)
	if !ok {
		return 0, ffserr.New(ffserr.NoEntry, "write", fmt.Sprint(ino), nil)
	}
	if n.Kind != File {
		return 0, ffserr.New(ffserr.IsDirectory, "write", fmt.Sprint(ino), nil)
	}
	if t.policy.ReadOnly {
		return 0, ffserr.New(ffserr.ReadOnlyFilesystem, "write", fmt.Sprint(ino), nil)
	}
	end := offset + int64(len(data))
	if end > int64(len(n.data)) {
		grown := make([]byte, end)
		copy(grown, n.data)
		n.data = grown
	}
	copy(n.data[offset:end], data)
	n.dirty = true
	t.touchMtime(n)
	return len(data), nil
}

// Create allocates a new File inode with type tag "auto" (§4.2).
func (t *Table) Create(parent uint64, name string, mode uint32) (Attr, error) {
	if t.policy.ReadOnly {
		return Attr{}, ffserr.New(ffserr.ReadOnlyFilesystem, "create", name, nil)
	}
	p, err := t.dir(parent, "create")
	if err != nil {
		return Attr{}, err
	}
	if _, ok := p.children.get(name); ok {
		return Attr{}, ffserr.New(ffserr.Exists, "create", name, nil)
	}
	child := t.allocInode(File, p.Ino)
	child.Mode = mode &^ 0111 // files are never executable by default
	child.Uid = t.policy.Uid
	child.Gid = t.policy.Gid
	child.TypeTag = TagAuto
	child.Xattrs["user.type"] = []byte(child.TypeTag.String())
	if munge.NeedsMunge(name) {
		// A newly created file's name IS the key; only stamp a
		// restoration name if the filename itself, taken as a key,
		// would need munging again (kept for symmetry, normally
		// false for kernel-delivered names).
		child.RestorationName = name
		child.HasRestoration = false
	}
	p.children.set(name, child.Ino)
	t.touchMtime(p)
	return t.attr(child), nil
}

// Mkdir allocates a new, initially-empty Directory inode tagged
// "named" (§4.2).
func (t *Table) Mkdir(parent uint64, name string, mode uint32) (Attr, error) {
	if t.policy.ReadOnly {
		return Attr{}, ffserr.New(ffserr.ReadOnlyFilesystem, "mkdir", name, nil)
	}
	p, err := t.dir(parent, "mkdir")
	if err != nil {
		return Attr{}, err
	}
	if _, ok := p.children.get(name); ok {
		return Attr{}, ffserr.New(ffserr.Exists, "mkdir", name, nil)
	}
	child := t.allocInode(Directory, p.Ino)
	child.Mode = mode
	child.Uid = t.policy.Uid
	child.Gid = t.policy.Gid
	child.TypeTag = TagNamed
	child.Xattrs["user.type"] = []byte(child.TypeTag.String())
	p.children.set(name, child.Ino)
	t.touchMtime(p)
	return t.attr(child), nil
}

// Unlink removes a File child; it never succeeds on a Directory (§4.2, P6).
func (t *Table) Unlink(parent uint64, name string) error {
	if t.policy.ReadOnly {
		return ffserr.New(ffserr.ReadOnlyFilesystem, "unlink", name, nil)
	}
	p, err := t.dir(parent, "unlink")
	if err != nil {
		return err
	}
	ino, ok := p.children.get(name)
	if !ok {
		return ffserr.New(ffserr.NoEntry, "unlink", name, nil)
	}
	ch := t.inodes[ino]
	if ch.Kind == Directory {
		return ffserr.New(ffserr.IsDirectory, "unlink", name, nil)
	}
	p.children.del(name)
	delete(t.inodes, ino)
	t.touchMtime(p)
	return nil
}

// Rmdir removes an empty Directory child (§4.2, P6).
func (t *Table) Rmdir(parent uint64, name string) error {
	if t.policy.ReadOnly {
		return ffserr.New(ffserr.ReadOnlyFilesystem, "rmdir", name, nil)
	}
	p, err := t.dir(parent, "rmdir")
	if err != nil {
		return err
	}
	ino, ok := p.children.get(name)
	if !ok {
		return ffserr.New(ffserr.NoEntry, "rmdir", name, nil)
	}
	ch := t.inodes[ino]
	if ch.Kind != Directory {
		return ffserr.New(ffserr.NotDirectory, "rmdir", name, nil)
	}
	t.expand(ch)
	if ch.children.len() > 0 {
		return ffserr.New(ffserr.NotEmpty, "rmdir", name, nil)
	}
	p.children.del(name)
	delete(t.inodes, ino)
	t.touchMtime(p)
	return nil
}

// Rename moves a child from one directory to another, observing both
// parents and the target under the single critical section the
// caller already holds (§4.2, §5, DESIGN NOTES "Rename atomicity").
func (t *Table) Rename(oldParent uint64, oldName string, newParent uint64, newName string) error {
	if t.policy.ReadOnly {
		return ffserr.New(ffserr.ReadOnlyFilesystem, "rename", oldName, nil)
	}
	op, err := t.dir(oldParent, "rename")
	if err != nil {
		return err
	}
	np, err := t.dir(newParent, "rename")
	if err != nil {
		return err
	}
	ino, ok := op.children.get(oldName)
	if !ok {
		return ffserr.New(ffserr.NoEntry, "rename", oldName, nil)
	}
	moved := t.inodes[ino]

	if op == np && oldName == newName {
		return nil
	}

	if targetIno, ok := np.children.get(newName); ok {
		target := t.inodes[targetIno]
		if target.Kind == Directory {
			t.expand(target)
			if target.children.len() > 0 {
				return ffserr.New(ffserr.NotEmpty, "rename", newName, nil)
			}
		}
		np.children.del(newName)
		delete(t.inodes, targetIno)
	}

	op.children.del(oldName)
	np.children.set(newName, ino)
	moved.Parent = np.Ino

	// §4.2: a user-initiated rename overrides restoration once the
	// new filename no longer matches the munged form of the
	// original key.
	if moved.HasRestoration {
		munged, _ := munge.MungedForm(moved.RestorationName, t.policy.Munge)
		if munged != newName {
			moved.HasRestoration = false
			moved.RestorationName = ""
		}
	}

	t.touchMtime(op)
	t.touchMtime(np)
	t.touchCtime(moved)
	return nil
}

// reservedXattr is the one xattr name ffs itself interprets (§3.2,
// §6.3); all others pass through as opaque user metadata.
const reservedXattr = "user.type"

// Setxattr sets an extended attribute. Writes to the reserved
// "user.type" name are validated against the inode's Kind and, on
// success, retag the inode instead of being stored verbatim (§4.2).
func (t *Table) Setxattr(ino uint64, name string, val []byte) error {
	n, ok := t.get(ino)
	if !ok {
		return ffserr.New(ffserr.NoEntry, "setxattr", fmt.Sprint(ino), nil)
	}
	if t.policy.ReadOnly {
		return ffserr.New(ffserr.ReadOnlyFilesystem, "setxattr", name, nil)
	}
	if name == reservedXattr {
		tag, ok := ParseTypeTag(string(val))
		if !ok || !tag.ValidForKind(n.Kind) {
			return ffserr.New(ffserr.InvalidValue, "setxattr", name, nil)
		}
		n.TypeTag = tag
		n.Xattrs[reservedXattr] = []byte(tag.String())
		t.touchCtime(n)
		return nil
	}
	n.Xattrs[name] = append([]byte(nil), val...)
	t.touchCtime(n)
	return nil
}

// Getxattr reads a single extended attribute.
func (t *Table) Getxattr(ino uint64, name string) ([]byte, error) {
	n, ok := t.get(ino)
	if !ok {
		return nil, ffserr.New(ffserr.NoEntry, "getxattr", fmt.Sprint(ino), nil)
	}
	val, ok := n.Xattrs[name]
	if !ok {
		return nil, ffserr.New(ffserr.NoAttribute, "getxattr", name, nil)
	}
	return val, nil
}

// Listxattr lists extended attribute names set on an inode.
func (t *Table) Listxattr(ino uint64) ([]string, error) {
	n, ok := t.get(ino)
	if !ok {
		return nil, ffserr.New(ffserr.NoEntry, "listxattr", fmt.Sprint(ino), nil)
	}
	names := make([]string, 0, len(n.Xattrs))
	for name := range n.Xattrs {
		names = append(names, name)
	}
	return names, nil
}

// Removexattr removes an extended attribute. Removing the reserved
// "user.type" name reverts the inode to auto-typing rather than
// deleting anything permanent: a Directory has no auto-typed form
// (it is always Named or List), so that case is rejected; a File
// goes back to Auto, so its variant is re-inferred from its payload
// at the next serialization (§4.2, P5).
func (t *Table) Removexattr(ino uint64, name string) error {
	n, ok := t.get(ino)
	if !ok {
		return ffserr.New(ffserr.NoEntry, "removexattr", fmt.Sprint(ino), nil)
	}
	if t.policy.ReadOnly {
		return ffserr.New(ffserr.ReadOnlyFilesystem, "removexattr", name, nil)
	}
	if name == reservedXattr {
		if n.Kind == Directory {
			return ffserr.New(ffserr.PermissionDenied, "removexattr", name, nil)
		}
		n.TypeTag = TagAuto
		delete(n.Xattrs, reservedXattr)
		t.touchCtime(n)
		return nil
	}
	if _, ok := n.Xattrs[name]; !ok {
		return ffserr.New(ffserr.NoAttribute, "removexattr", name, nil)
	}
	delete(n.Xattrs, name)
	t.touchCtime(n)
	return nil
}

// Readdir lists the current children of a Directory inode.
func (t *Table) Readdir(ino uint64) ([]DirEntry, error) {
	n, err := t.dir(ino, "readdir")
	if err != nil {
		return nil, err
	}
	names := n.children.orderedNames()
	out := make([]DirEntry, 0, len(names))
	for _, name := range names {
		childIno, _ := n.children.get(name)
		ch := t.inodes[childIno]
		out = append(out, DirEntry{Name: name, Ino: childIno, Kind: ch.Kind})
	}
	return out, nil
}
