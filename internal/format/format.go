// Package format contracts the three serialization formats the core
// demands of its encoders/decoders (§1: "core only contracts their
// behavior"). Each adapter is thin; the bidirectional V↔filesystem
// mapping lives entirely in internal/tree.
package format

import (
	"fmt"

	"github.com/go-ffs/ffs/internal/value"
)

// Codec decodes bytes into a value.Value and encodes a value.Value
// back into bytes, for one concrete format.
type Codec interface {
	// Name is the CLI-facing format identifier: "json", "yaml", or "toml".
	Name() string
	Decode(data []byte) (value.Value, error)
	Encode(v value.Value, pretty bool) ([]byte, error)
}

// Lookup resolves a CLI format name (FMT ∈ {json,toml,yaml}, §6.1) to
// its Codec.
func Lookup(name string) (Codec, error) {
	switch name {
	case "json":
		return JSON{}, nil
	case "yaml":
		return YAML{}, nil
	case "toml":
		return TOML{}, nil
	default:
		return nil, fmt.Errorf("format: unknown format %q", name)
	}
}

// Empty returns the fresh root Value used by `ffs --new` (§6.1): an
// empty Map, since the new mount must itself be directory-rooted
// (§4.1 RootNotDirectory).
func Empty() value.Value {
	return value.Map(value.NewOrderedMap())
}
