package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	conduit "github.com/ghackebeil/conduit"
	"github.com/ghackebeil/conduit/layout"
)

func TestConduitProtocolWithValues(t *testing.T) {
	doc := `{
		"a": {"dtype": "int32", "length": 1, "value": 5},
		"b": {"dtype": "float64", "length": 3, "value": [1.0, 2.0, 3.0]}
	}`
	n, err := Generate([]byte(doc), ProtocolConduit, conduit.DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, layout.Object, n.Tag())
	assert.Equal(t, []string{"a", "b"}, n.Schema().ChildNames())

	da := n.Get("a").Schema().DataType()
	require.Equal(t, int64(0), da.Offset)
	db := n.Get("b").Schema().DataType()
	require.Equal(t, int64(4), db.Offset, "cursor advanced past a")

	a, err := n.Get("a").ToInt32()
	require.NoError(t, err)
	require.Equal(t, int32(5), a)
	b, err := conduit.ToScalarArray[float64](n.Get("b"))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, b)

	require.Equal(t, int64(28), n.TotalBytesCompact())
	raw, err := n.Serialize()
	require.NoError(t, err)
	require.Len(t, raw, 28)
}

func TestConduitShorthand(t *testing.T) {
	n, err := Generate([]byte(`{"x": "uint16", "y": "float32"}`), ProtocolConduit, conduit.DefaultOptions())
	require.NoError(t, err)

	dx := n.Get("x").Schema().DataType()
	require.Equal(t, layout.Uint16, dx.Tag)
	require.Equal(t, int64(1), dx.Count)
	dy := n.Get("y").Schema().DataType()
	require.Equal(t, int64(2), dy.Offset)
}

func TestConduitExplicitLayout(t *testing.T) {
	doc := `{
		"v": {"dtype": "uint32", "length": 4, "offset": 8, "stride": 8, "endianness": "big"}
	}`
	n, err := Generate([]byte(doc), ProtocolConduit, conduit.DefaultOptions())
	require.NoError(t, err)

	dt := n.Get("v").Schema().DataType()
	require.Equal(t, int64(8), dt.Offset)
	require.Equal(t, int64(8), dt.Stride)
	require.Equal(t, int64(4), dt.ElementBytes)
	require.Equal(t, layout.EndianBig, dt.Endianness)
	require.Equal(t, int64(8+3*8+4), n.TotalBytes())
}

func TestConduitLists(t *testing.T) {
	n, err := Generate([]byte(`["int8", {"dtype": "int16", "length": 2}]`), ProtocolConduit, conduit.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, layout.List, n.Tag())
	require.Equal(t, 2, n.NumberOfChildren())
	require.Equal(t, int64(1), n.GetIndex(1).Schema().DataType().Offset)
}

func TestConduitCursorPacksManyLeaves(t *testing.T) {
	doc := `{
		"a": {"dtype": "int32", "length": 1},
		"b": {"dtype": "float64", "length": 3},
		"s": {"dtype": "char8_str", "length": 5},
		"t": {"dtype": "uint16", "length": 2}
	}`
	n, err := Generate([]byte(doc), ProtocolConduit, conduit.DefaultOptions())
	require.NoError(t, err)

	// each leaf starts exactly where the previous one ends, no holes
	for path, want := range map[string]int64{"a": 0, "b": 4, "s": 28, "t": 33} {
		require.Equal(t, want, n.Get(path).Schema().DataType().Offset, path)
	}
	require.Equal(t, int64(37), n.TotalBytes())

	raw, err := n.Serialize()
	require.NoError(t, err)
	require.Len(t, raw, 37)
}

func TestZeroLengthLeafKeepsCursor(t *testing.T) {
	doc := `{"a": "int32", "none": {"dtype": "uint8", "length": 0}, "b": "int32"}`
	n, err := Generate([]byte(doc), ProtocolConduit, conduit.DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, int64(0), n.Get("none").Schema().DataType().Count)
	require.Equal(t, int64(4), n.Get("b").Schema().DataType().Offset, "a zero-count leaf spans no bytes and must not move the cursor")
	require.Equal(t, int64(8), n.TotalBytes())
}

func TestConduitErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"unknown dtype", `{"a": {"dtype": "quaternion", "length": 1}}`},
		{"missing length", `{"a": {"dtype": "int32"}}`},
		{"stride below width", `{"a": {"dtype": "int32", "length": 2, "stride": 2}}`},
		{"bad endianness", `{"a": {"dtype": "int32", "length": 1, "endianness": "middle"}}`},
		{"unknown shorthand", `{"a": "int12"}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Generate([]byte(c.doc), ProtocolConduit, conduit.DefaultOptions())
			require.ErrorIs(t, err, conduit.ErrSchemaError)
		})
	}

	_, err := Generate([]byte(`{"broken`), ProtocolConduit, conduit.DefaultOptions())
	require.ErrorIs(t, err, conduit.ErrParseError)
}

func TestJSONProtocolInference(t *testing.T) {
	doc := `{"n": 2.5, "flag": true, "name": "hi", "arr": [1, 2]}`
	n, err := Generate([]byte(doc), ProtocolJSON, conduit.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"n", "flag", "name", "arr"}, n.Schema().ChildNames(), "document order is preserved")

	require.Equal(t, layout.Float64, n.Get("n").Tag(), "numbers infer float64")
	v, err := n.Get("n").ToFloat64()
	require.NoError(t, err)
	require.Equal(t, 2.5, v)

	require.Equal(t, layout.Uint8, n.Get("flag").Tag(), "booleans infer uint8")
	b, err := n.Get("flag").ToUint8()
	require.NoError(t, err)
	require.Equal(t, uint8(1), b)

	require.Equal(t, layout.Char8Str, n.Get("name").Tag())
	s, err := n.Get("name").AsCharString()
	require.NoError(t, err)
	require.Equal(t, "hi", s)

	require.Equal(t, layout.List, n.Get("arr").Tag())
	e0, err := n.Get("arr").GetIndex(0).ToFloat64()
	require.NoError(t, err)
	require.Equal(t, 1.0, e0)
}

func TestGenerateExternalAliases(t *testing.T) {
	doc := `{"a": {"dtype": "uint8", "length": 4}}`
	buf := []byte{10, 20, 30, 40}
	n, err := GenerateExternal([]byte(doc), buf, conduit.DefaultOptions())
	require.NoError(t, err)
	require.True(t, n.Get("a").IsDataExternal())

	vals, err := conduit.ToScalarArray[uint8](n.Get("a"))
	require.NoError(t, err)
	assert.Equal(t, []uint8{10, 20, 30, 40}, vals)

	// writes through the Node land in the caller's buffer and vice versa
	view, err := conduit.AsScalarArray[uint8](n.Get("a"))
	require.NoError(t, err)
	view.Set(0, 99)
	require.Equal(t, byte(99), buf[0])
	buf[3] = 77
	require.Equal(t, uint8(77), view.Get(3))

	_, err = GenerateExternal([]byte(doc), buf[:2], conduit.DefaultOptions())
	require.ErrorIs(t, err, conduit.ErrInvalidArgument)
}

func TestBase64JSONProtocol(t *testing.T) {
	// 5 as little-endian int32, base64 "BQAAAA=="
	doc := `{"schema": {"a": {"dtype": "int32", "length": 1, "endianness": "little"}}, "data": "BQAAAA=="}`
	n, err := Generate([]byte(doc), ProtocolBase64JSON, conduit.DefaultOptions())
	require.NoError(t, err)

	v, err := n.Get("a").ToInt32()
	require.NoError(t, err)
	require.Equal(t, int32(5), v)

	_, err = Generate([]byte(`{"data": "AA=="}`), ProtocolBase64JSON, conduit.DefaultOptions())
	require.ErrorIs(t, err, conduit.ErrSchemaError)
	_, err = Generate([]byte(`{"schema": {"a": "int32"}, "data": "!!!"}`), ProtocolBase64JSON, conduit.DefaultOptions())
	require.ErrorIs(t, err, conduit.ErrParseError)
	_, err = Generate([]byte(`{"schema": {"a": "int64"}, "data": "AA=="}`), ProtocolBase64JSON, conduit.DefaultOptions())
	require.ErrorIs(t, err, conduit.ErrInvalidArgument)
}

func TestParseSchemaOnly(t *testing.T) {
	sch, err := ParseSchema([]byte(`{"a": "int32", "b": {"dtype": "float64", "length": 2}}`), layout.EndianDefault)
	require.NoError(t, err)
	require.Equal(t, int64(20), sch.TotalBytes())
	require.Equal(t, int64(4), sch.ChildByName("b").DataType().Offset)
}
