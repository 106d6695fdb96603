package format

import (
	"encoding/base64"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/go-ffs/ffs/internal/value"
)

// YAML is the Codec for YAML, built on gopkg.in/yaml.v3. It decodes
// and encodes through yaml.Node directly so that mapping-key order
// survives (yaml.v3's Node API exposes mapping content as a flat
// Key,Value,Key,Value... slice in document order), matching how
// gcsfuse and rclone both pull in yaml.v3 rather than yaml.v2 for new
// code.
type YAML struct{}

func (YAML) Name() string { return "yaml" }

func (YAML) Decode(data []byte) (value.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return value.Value{}, err
	}
	if len(doc.Content) == 0 {
		return value.Null(), nil
	}
	return decodeYAMLNode(doc.Content[0])
}

func decodeYAMLNode(n *yaml.Node) (value.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value.Null(), nil
		}
		return decodeYAMLNode(n.Content[0])
	case yaml.ScalarNode:
		return decodeYAMLScalar(n)
	case yaml.SequenceNode:
		items := make([]value.Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := decodeYAMLNode(c)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, v)
		}
		return value.List(items), nil
	case yaml.MappingNode:
		om := value.NewOrderedMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode := n.Content[i]
			valNode := n.Content[i+1]
			v, err := decodeYAMLNode(valNode)
			if err != nil {
				return value.Value{}, err
			}
			om.Set(keyNode.Value, v)
		}
		return value.Map(om), nil
	case yaml.AliasNode:
		return decodeYAMLNode(n.Alias)
	default:
		return value.Value{}, fmt.Errorf("format: unsupported YAML node kind %v", n.Kind)
	}
}

func decodeYAMLScalar(n *yaml.Node) (value.Value, error) {
	if n.Tag == "!!binary" {
		var raw []byte
		if err := n.Decode(&raw); err != nil {
			return value.Value{}, err
		}
		return value.Bytes(raw), nil
	}
	switch n.Tag {
	case "!!null":
		return value.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return value.Value{}, err
		}
		return value.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return value.Value{}, err
		}
		return value.Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return value.Value{}, err
		}
		return value.Float(f), nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return value.Value{}, err
		}
		return value.Datetime(t), nil
	default:
		return value.String(n.Value), nil
	}
}

func (YAML) Encode(v value.Value, pretty bool) ([]byte, error) {
	node, err := encodeYAMLNode(v)
	if err != nil {
		return nil, err
	}
	node.Style = 0
	out := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{node}}
	return yaml.Marshal(out)
}

func encodeYAMLNode(v value.Value) (*yaml.Node, error) {
	switch v.Kind() {
	case value.KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case value.KindBool:
		val := "false"
		if v.Bool() {
			val = "true"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: val}, nil
	case value.KindInt:
		n := &yaml.Node{}
		if err := n.Encode(v.Int()); err != nil {
			return nil, err
		}
		return n, nil
	case value.KindFloat:
		n := &yaml.Node{}
		if err := n.Encode(v.Float()); err != nil {
			return nil, err
		}
		return n, nil
	case value.KindDatetime:
		n := &yaml.Node{}
		if err := n.Encode(v.Time()); err != nil {
			return nil, err
		}
		return n, nil
	case value.KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Str()}, nil
	case value.KindBytes:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!binary", Value: base64.StdEncoding.EncodeToString(v.ByteSlice())}, nil
	case value.KindList:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range v.ListItems() {
			cn, err := encodeYAMLNode(e)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, cn)
		}
		return seq, nil
	case value.KindMap:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		om := v.MapVal()
		for _, k := range om.Keys() {
			e, _ := om.Get(k)
			cn, err := encodeYAMLNode(e)
			if err != nil {
				return nil, err
			}
			m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, cn)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("format: cannot encode kind %v as YAML", v.Kind())
	}
}
