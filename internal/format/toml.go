package format

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/go-ffs/ffs/internal/value"
)

// TOML is the Codec for TOML, built on github.com/pelletier/go-toml/v2
// (promoted here from gcsfuse's indirect dependency list, where it
// backs Viper's config loader). TOML has no top-level list and no
// null (§3.1, §4.3), so Encode rejects both with a descriptive error
// that the mount driver surfaces verbatim at unmount (§7 "Encoder
// errors").
//
// Decode goes through go-toml/v2's Unmarshal into a generic map,
// which (like encoding/json's map decode) does not preserve key
// order; see DESIGN.md for why this is an accepted, documented
// asymmetry versus Encode, which walks value.OrderedMap directly and
// does preserve order.
type TOML struct{}

func (TOML) Name() string { return "toml" }

func (TOML) Decode(data []byte) (value.Value, error) {
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return value.Value{}, err
	}
	return value.FromAny(m)
}

func (TOML) Encode(v value.Value, pretty bool) ([]byte, error) {
	if v.Kind() != value.KindMap {
		return nil, fmt.Errorf("format: TOML cannot encode a root %v (TOML has no top-level list)", v.Kind())
	}
	var buf bytes.Buffer
	if err := encodeTOMLTable(&buf, nil, v.MapVal()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeTOMLTable writes path's scalar keys as `key = value` lines,
// then recurses into nested tables and arrays of tables, each
// preceded by its own `[a.b]` / `[[a.b]]` header. path is the
// already-quoted dotted key path leading to this table.
func encodeTOMLTable(buf *bytes.Buffer, path []string, om *value.OrderedMap) error {
	var nestedTables []string
	var nestedArrays []string

	for _, k := range om.Keys() {
		v, _ := om.Get(k)
		if v.Kind() == value.KindMap {
			nestedTables = append(nestedTables, k)
			continue
		}
		if v.Kind() == value.KindList && isTableArray(v) {
			nestedArrays = append(nestedArrays, k)
			continue
		}
		line, err := encodeTOMLKeyValue(k, v)
		if err != nil {
			return err
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	for _, k := range nestedTables {
		v, _ := om.Get(k)
		childPath := append(append([]string{}, path...), k)
		buf.WriteByte('\n')
		fmt.Fprintf(buf, "[%s]\n", strings.Join(quoteAll(childPath), "."))
		if err := encodeTOMLTable(buf, childPath, v.MapVal()); err != nil {
			return err
		}
	}

	for _, k := range nestedArrays {
		v, _ := om.Get(k)
		childPath := append(append([]string{}, path...), k)
		for _, item := range v.ListItems() {
			buf.WriteByte('\n')
			fmt.Fprintf(buf, "[[%s]]\n", strings.Join(quoteAll(childPath), "."))
			if err := encodeTOMLTable(buf, childPath, item.MapVal()); err != nil {
				return err
			}
		}
	}
	return nil
}

// isTableArray reports whether every element of a list Value is a
// Map, which TOML represents as an array of tables ([[a.b]]) rather
// than an inline array.
func isTableArray(v value.Value) bool {
	items := v.ListItems()
	if len(items) == 0 {
		return false
	}
	for _, e := range items {
		if e.Kind() != value.KindMap {
			return false
		}
	}
	return true
}

func quoteAll(parts []string) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = quoteTOMLKey(p)
	}
	return out
}

func quoteTOMLKey(k string) string {
	if isBareKey(k) {
		return k
	}
	return strconv.Quote(k)
}

func isBareKey(k string) bool {
	if k == "" {
		return false
	}
	for _, r := range k {
		if !(r == '_' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

func encodeTOMLKeyValue(k string, v value.Value) (string, error) {
	val, err := encodeTOMLValue(v)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s = %s", quoteTOMLKey(k), val), nil
}

func encodeTOMLValue(v value.Value) (string, error) {
	switch v.Kind() {
	case value.KindNull:
		return "", fmt.Errorf("format: TOML cannot represent null")
	case value.KindBool:
		if v.Bool() {
			return "true", nil
		}
		return "false", nil
	case value.KindInt:
		return strconv.FormatInt(v.Int(), 10), nil
	case value.KindFloat:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64), nil
	case value.KindDatetime:
		return v.Time().Format(time.RFC3339), nil
	case value.KindString:
		return strconv.Quote(v.Str()), nil
	case value.KindBytes:
		return strconv.Quote(base64.StdEncoding.EncodeToString(v.ByteSlice())), nil
	case value.KindList:
		var parts []string
		for _, e := range v.ListItems() {
			s, err := encodeTOMLValue(e)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	default:
		return "", fmt.Errorf("format: cannot encode kind %v as a TOML value", v.Kind())
	}
}
