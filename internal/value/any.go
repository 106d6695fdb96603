package value

import (
	"fmt"
	"time"
)

// FromAny converts the generic tree produced by encoding/json's
// Unmarshal-into-any (or an equivalent decoder) into a Value. Maps
// are expected as map[string]any; since Go's map does not preserve
// key order, the resulting Map's key order is not defined. Only
// format/toml.go uses FromAny; format/json.go decodes through
// json.Decoder tokens instead and does not call it.
func FromAny(a any) (Value, error) {
	switch x := a.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case float64:
		if x == float64(int64(x)) {
			return Int(int64(x)), nil
		}
		return Float(x), nil
	case int64:
		return Int(x), nil
	case string:
		return String(x), nil
	case time.Time:
		return Datetime(x), nil
	case []byte:
		return Bytes(x), nil
	case []any:
		items := make([]Value, 0, len(x))
		for _, e := range x {
			v, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return List(items), nil
	case map[string]any:
		om := NewOrderedMap()
		for k, e := range x {
			v, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			om.Set(k, v)
		}
		return Map(om), nil
	default:
		return Value{}, fmt.Errorf("value: cannot convert %T", a)
	}
}

// ToAny converts a Value back into the generic any-tree that
// gopkg.in/yaml.v3 and encoding/json encoders accept. Maps become
// map[string]any, so Map key order is not preserved; the format
// package's encoders walk OrderedMap directly instead of using ToAny.
func ToAny(v Value) any {
	switch v.Kind() {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool()
	case KindInt:
		return v.Int()
	case KindFloat:
		return v.Float()
	case KindDatetime:
		return v.Time()
	case KindString:
		return v.Str()
	case KindBytes:
		return v.ByteSlice()
	case KindList:
		items := v.ListItems()
		out := make([]any, len(items))
		for i, e := range items {
			out[i] = ToAny(e)
		}
		return out
	case KindMap:
		om := v.MapVal()
		out := make(map[string]any, om.Len())
		for _, k := range om.Keys() {
			e, _ := om.Get(k)
			out[k] = ToAny(e)
		}
		return out
	default:
		return nil
	}
}
