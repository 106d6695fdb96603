package tree

import (
	"sort"
	"strings"

	"github.com/go-ffs/ffs/internal/munge"
	"github.com/go-ffs/ffs/internal/value"
)

// Serialize converts the whole table back to a value.Value, starting
// at the root inode (§4.3). It is the T→V direction the mount driver
// runs at unmount.
func (t *Table) Serialize() value.Value {
	root := t.inodes[RootIno]
	return t.serializeDir(root)
}

func (t *Table) serializeDir(n *Inode) value.Value {
	t.expand(n)
	names := n.children.orderedNames()

	if n.TypeTag == TagList {
		// P7: list directories serialize in byte-wise sorted filename
		// order, not insertion order, so that files added out of
		// order (e.g. "2" before "10") still round-trip positionally
		// by name rather than by creation time.
		sorted := append([]string(nil), names...)
		sort.Strings(sorted)
		items := make([]value.Value, 0, len(sorted))
		for _, name := range sorted {
			if t.skipMacosSidecar(name) {
				continue
			}
			ino, _ := n.children.get(name)
			items = append(items, t.serializeChild(t.inodes[ino], name))
		}
		return value.List(items)
	}

	om := value.NewOrderedMap()
	for _, name := range names {
		if t.skipMacosSidecar(name) {
			continue
		}
		ino, _ := n.children.get(name)
		ch := t.inodes[ino]
		key := munge.Restore(name, ch.RestorationName, ch.HasRestoration)
		om.Set(key, t.serializeChild(ch, name))
	}
	return value.Map(om)
}

func (t *Table) serializeChild(n *Inode, name string) value.Value {
	if n.Kind == Directory {
		return t.serializeDir(n)
	}
	return t.serializeFile(n)
}

// serializeFile implements §4.3's "File with explicit type tag, or
// Auto" rule: a non-auto tag is parsed strictly; a parse failure (or
// Auto itself) falls back to the §3.1 classification chain.
func (t *Table) serializeFile(n *Inode) value.Value {
	data := n.data
	if !t.policy.Exact && t.policy.TrailingNewline {
		data = trimSingleTrailingNewline(data)
	}

	if !n.TypeTag.Auto {
		if v, err := value.Parse(data, n.TypeTag.Kind); err == nil {
			return v
		}
	}
	return value.Classify(data)
}

func trimSingleTrailingNewline(data []byte) []byte {
	if len(data) > 0 && data[len(data)-1] == '\n' {
		return data[:len(data)-1]
	}
	return data
}

// skipMacosSidecar reports whether name is a macOS "._*" AppleDouble
// sidecar file that serialization should omit unless
// --keep-macos-xattr was requested (§4.3, §4.4).
func (t *Table) skipMacosSidecar(name string) bool {
	return !t.policy.KeepMacosXattr && strings.HasPrefix(name, "._")
}
