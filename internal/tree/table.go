package tree

import (
	"sync"
	"time"

	"github.com/go-ffs/ffs/internal/munge"
)

// RootIno is the inode id of the tree root (§3.2).
const RootIno = 1

// Policy bundles the mount/unpack configuration that changes how the
// tree is built and serialized (§4.1, §4.4, §6.1).
type Policy struct {
	Munge           munge.Policy
	Unpadded        bool
	Exact           bool
	KeepMacosXattr  bool
	TrailingNewline bool
	ReadOnly        bool
	Eager           bool
	FileMode        uint32
	DirMode         uint32
	Uid             uint32
	Gid             uint32
}

// DefaultPolicy matches the CLI defaults of §6.1.
func DefaultPolicy() Policy {
	return Policy{
		Munge:           munge.Rename,
		TrailingNewline: true,
		FileMode:        0644,
		DirMode:         0755,
	}
}

// Table is the mount's single, process-wide shared inode table
// (§3.2, §5). Every top-level operation acquires mu for its entire
// duration (§5); mu is an RWMutex so that the documented
// reader/writer refinement is available from the start — see
// internal/fsys for which operations take which side.
type Table struct {
	mu      sync.RWMutex
	nextIno uint64
	inodes  map[uint64]*Inode
	policy  Policy
	now     func() time.Time
}

func newTable(policy Policy) *Table {
	return &Table{
		nextIno: RootIno,
		inodes:  make(map[uint64]*Inode),
		policy:  policy,
		now:     time.Now,
	}
}

// Lock/Unlock/RLock/RUnlock expose the single mount-wide lock
// directly to internal/fsys, which is expected to hold it for an
// entire FUSE callback (§5).
func (t *Table) Lock()    { t.mu.Lock() }
func (t *Table) Unlock()  { t.mu.Unlock() }
func (t *Table) RLock()   { t.mu.RLock() }
func (t *Table) RUnlock() { t.mu.RUnlock() }

func (t *Table) allocInode(kind Kind, parent uint64) *Inode {
	ino := t.nextIno
	t.nextIno++
	n := newInode(ino, kind, parent)
	now := t.now()
	n.Times = Times{Atime: now, Mtime: now, Ctime: now, Crtime: now}
	t.inodes[ino] = n
	return n
}

func (t *Table) get(ino uint64) (*Inode, bool) {
	n, ok := t.inodes[ino]
	return n, ok
}

func (t *Table) touchMtime(n *Inode) {
	now := t.now()
	n.Mtime = now
	n.Ctime = now
}

func (t *Table) touchCtime(n *Inode) {
	n.Ctime = t.now()
}

// nlink computes I3: 2 + number of Directory children, for
// directories; 1 for files.
func (t *Table) nlink(n *Inode) uint32 {
	if n.Kind != Directory {
		return 1
	}
	t.expand(n)
	subdirs := uint32(0)
	for _, name := range n.children.orderedNames() {
		ino, _ := n.children.get(name)
		if ch, ok := t.inodes[ino]; ok && ch.Kind == Directory {
			subdirs++
		}
	}
	return 2 + subdirs
}

// attr builds the POSIX attribute view used by Getattr/Lookup (§4.2).
func (t *Table) attr(n *Inode) Attr {
	return Attr{
		Ino:   n.Ino,
		Kind:  n.Kind,
		Mode:  n.Mode,
		Uid:   n.Uid,
		Gid:   n.Gid,
		Size:  n.size(),
		Nlink: t.nlink(n),
		Times: n.Times,
	}
}

// Policy returns the table's configuration (read-only).
func (t *Table) Policy() Policy { return t.policy }
