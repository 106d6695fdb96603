package format

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-ffs/ffs/internal/value"
)

func sampleMap() value.Value {
	om := value.NewOrderedMap()
	om.Set("name", value.String("Michael Greenberg"))
	om.Set("eyes", value.Int(2))
	om.Set("fingernails", value.Int(10))
	om.Set("human", value.Bool(true))
	return value.Map(om)
}

func TestJSONRoundTrip(t *testing.T) {
	v := sampleMap()
	data, err := JSON{}.Encode(v, false)
	require.NoError(t, err)

	got, err := JSON{}.Decode(data)
	require.NoError(t, err)
	require.Equal(t, value.KindMap, got.Kind())
	require.Equal(t, []string{"name", "eyes", "fingernails", "human"}, got.MapVal().Keys())

	name, ok := got.MapVal().Get("name")
	require.True(t, ok)
	require.Equal(t, "Michael Greenberg", name.Str())
}

func TestYAMLRoundTrip(t *testing.T) {
	v := sampleMap()
	data, err := YAML{}.Encode(v, false)
	require.NoError(t, err)

	got, err := YAML{}.Decode(data)
	require.NoError(t, err)
	require.Equal(t, []string{"name", "eyes", "fingernails", "human"}, got.MapVal().Keys())
}

func TestTOMLEncodeRejectsRootList(t *testing.T) {
	v := value.List([]value.Value{value.Int(1), value.Int(2)})
	_, err := TOML{}.Encode(v, false)
	require.Error(t, err)
}

func TestTOMLEncodeRejectsNull(t *testing.T) {
	om := value.NewOrderedMap()
	om.Set("x", value.Null())
	_, err := TOML{}.Encode(value.Map(om), false)
	require.Error(t, err)
}

func TestTOMLEncodeDecode(t *testing.T) {
	om := value.NewOrderedMap()
	om.Set("name", value.String("ffs"))
	om.Set("count", value.Int(3))
	v := value.Map(om)

	data, err := TOML{}.Encode(v, false)
	require.NoError(t, err)
	require.Contains(t, string(data), "name =")

	got, err := TOML{}.Decode(data)
	require.NoError(t, err)
	require.Equal(t, value.KindMap, got.Kind())
	gotName, ok := got.MapVal().Get("name")
	require.True(t, ok)
	require.Equal(t, "ffs", gotName.Str())
}

func TestLookupUnknownFormat(t *testing.T) {
	_, err := Lookup("xml")
	require.Error(t, err)
}

func TestJSONBytesBase64(t *testing.T) {
	om := value.NewOrderedMap()
	om.Set("blob", value.Bytes([]byte{0x00, 0xff, 0x10}))
	data, err := JSON{}.Encode(value.Map(om), false)
	require.NoError(t, err)
	require.Contains(t, string(data), `"blob":"`)
}
