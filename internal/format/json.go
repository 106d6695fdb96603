package format

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/go-ffs/ffs/internal/value"
)

// JSON is the Codec for JSON, built on encoding/json. Decoding walks
// tokens by hand so that object key order survives into the
// value.OrderedMap (stdlib Unmarshal-into-any loses order, since it
// targets a Go map).
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Decode(data []byte) (value.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return value.Value{}, err
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (value.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return value.Value{}, err
	}
	return decodeJSONToken(dec, tok)
}

func decodeJSONToken(dec *json.Decoder, tok json.Token) (value.Value, error) {
	switch t := tok.(type) {
	case nil:
		return value.Null(), nil
	case bool:
		return value.Bool(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return value.Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return value.Value{}, err
		}
		return value.Float(f), nil
	case string:
		return value.String(t), nil
	case json.Delim:
		switch t {
		case '[':
			var items []value.Value
			for dec.More() {
				v, err := decodeJSONValue(dec)
				if err != nil {
					return value.Value{}, err
				}
				items = append(items, v)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return value.Value{}, err
			}
			return value.List(items), nil
		case '{':
			om := value.NewOrderedMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return value.Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return value.Value{}, fmt.Errorf("format: json object key is not a string: %v", keyTok)
				}
				v, err := decodeJSONValue(dec)
				if err != nil {
					return value.Value{}, err
				}
				om.Set(key, v)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return value.Value{}, err
			}
			return value.Map(om), nil
		}
	}
	return value.Value{}, fmt.Errorf("format: unexpected JSON token %v", tok)
}

func (JSON) Encode(v value.Value, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeJSONValue(&buf, v); err != nil {
		return nil, err
	}
	if !pretty {
		return buf.Bytes(), nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return buf.Bytes(), nil
	}
	return out.Bytes(), nil
}

func encodeJSONValue(buf *bytes.Buffer, v value.Value) error {
	switch v.Kind() {
	case value.KindNull:
		buf.WriteString("null")
	case value.KindBool:
		if v.Bool() {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case value.KindInt:
		fmt.Fprintf(buf, "%d", v.Int())
	case value.KindFloat:
		b, err := json.Marshal(v.Float())
		if err != nil {
			return err
		}
		buf.Write(b)
	case value.KindDatetime:
		b, err := json.Marshal(v.Time())
		if err != nil {
			return err
		}
		buf.Write(b)
	case value.KindString:
		b, err := json.Marshal(v.Str())
		if err != nil {
			return err
		}
		buf.Write(b)
	case value.KindBytes:
		b, err := json.Marshal(base64.StdEncoding.EncodeToString(v.ByteSlice()))
		if err != nil {
			return err
		}
		buf.Write(b)
	case value.KindList:
		buf.WriteByte('[')
		for i, e := range v.ListItems() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeJSONValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case value.KindMap:
		buf.WriteByte('{')
		om := v.MapVal()
		for i, k := range om.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			e, _ := om.Get(k)
			if err := encodeJSONValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("format: cannot encode kind %v as JSON", v.Kind())
	}
	return nil
}
