// Package value implements the tagged tree type that unifies JSON,
// YAML, and TOML data: null, bool, integer, float, datetime, string,
// bytes, list, and map. It is pure data — no filesystem, no I/O.
package value

import "time"

// Kind tags the variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDatetime
	KindString
	KindBytes
	KindList
	KindMap
)

// String returns the wire name used for the user.type xattr and CLI
// reporting (§6.3 of the reserved xattr protocol).
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindDatetime:
		return "datetime"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "named"
	default:
		return "unknown"
	}
}

// ParseKind maps a user.type xattr value back to a Kind. The second
// return is false for anything not in the reserved vocabulary.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "null":
		return KindNull, true
	case "boolean":
		return KindBool, true
	case "integer":
		return KindInt, true
	case "float":
		return KindFloat, true
	case "datetime":
		return KindDatetime, true
	case "string":
		return KindString, true
	case "bytes":
		return KindBytes, true
	case "named":
		return KindMap, true
	case "list":
		return KindList, true
	default:
		return 0, false
	}
}

// IsScalar reports whether k can back a File inode.
func (k Kind) IsScalar() bool {
	switch k {
	case KindMap, KindList:
		return false
	default:
		return true
	}
}

// Value is an immutable tagged tree node. Only the field matching Kind
// is meaningful; constructors below are the supported way to build one.
type Value struct {
	kind     Kind
	boolVal  bool
	intVal   int64
	floatVal float64
	timeVal  time.Time
	strVal   string
	bytesVal []byte
	listVal  []Value
	mapVal   *OrderedMap
}

func Null() Value                 { return Value{kind: KindNull} }
func Bool(b bool) Value           { return Value{kind: KindBool, boolVal: b} }
func Int(i int64) Value           { return Value{kind: KindInt, intVal: i} }
func Float(f float64) Value       { return Value{kind: KindFloat, floatVal: f} }
func Datetime(t time.Time) Value  { return Value{kind: KindDatetime, timeVal: t} }
func String(s string) Value       { return Value{kind: KindString, strVal: s} }
func Bytes(b []byte) Value        { return Value{kind: KindBytes, bytesVal: append([]byte(nil), b...)} }
func List(vs []Value) Value       { return Value{kind: KindList, listVal: vs} }
func Map(m *OrderedMap) Value     { return Value{kind: KindMap, mapVal: m} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) Bool() bool          { return v.boolVal }
func (v Value) Int() int64          { return v.intVal }
func (v Value) Float() float64      { return v.floatVal }
func (v Value) Time() time.Time     { return v.timeVal }
func (v Value) Str() string         { return v.strVal }
func (v Value) ByteSlice() []byte   { return v.bytesVal }
func (v Value) ListItems() []Value  { return v.listVal }
func (v Value) MapVal() *OrderedMap { return v.mapVal }

// IsDirLike reports whether v would build a Directory inode (§4.1).
func (v Value) IsDirLike() bool {
	return v.kind == KindMap || v.kind == KindList
}
