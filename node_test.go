package conduit

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghackebeil/conduit/layout"
	"github.com/ghackebeil/conduit/schema"
)

func TestScalarSetAndRead(t *testing.T) {
	n := New()
	require.NoError(t, n.SetFloat64(3.14))

	v, err := n.ToFloat64()
	require.NoError(t, err)
	require.Equal(t, 3.14, v)
	require.Equal(t, int64(8), n.TotalBytes())

	raw, err := n.Serialize()
	require.NoError(t, err)
	require.Len(t, raw, 8)

	var want [8]byte
	if layout.MachineEndianness() == layout.EndianLittle {
		binary.LittleEndian.PutUint64(want[:], math.Float64bits(3.14))
	} else {
		binary.BigEndian.PutUint64(want[:], math.Float64bits(3.14))
	}
	assert.Equal(t, want[:], raw)
}

func TestObjectConstructionViaPath(t *testing.T) {
	n := New()
	c, err := n.Fetch("a/b/c")
	require.NoError(t, err)
	require.NoError(t, c.SetInt32(7))

	got, err := n.Get("a").Get("b").Get("c").ToInt32()
	require.NoError(t, err)
	require.Equal(t, int32(7), got)

	require.True(t, n.HasPath("a/b/c"))
	require.False(t, n.HasPath("a/b/d"))
	assert.Equal(t, []string{"a/b/c"}, n.Paths(true))
	assert.Equal(t, []string{"a"}, n.Paths(false))
}

func TestExternalStridedView(t *testing.T) {
	// 8 uint32 words; the leaf views every other one
	buf := make([]byte, 32)
	for i := 0; i < 8; i++ {
		arr, err := NewDataArray[uint32](buf, layout.DataType{Tag: layout.Uint32, Count: 8, ElementBytes: 4, Stride: 4})
		require.NoError(t, err)
		arr.Set(i, uint32(i*100))
	}

	n := New()
	dt := layout.DataType{Tag: layout.Uint32, Count: 4, Offset: 0, Stride: 8, ElementBytes: 4}
	require.NoError(t, SetExternalScalarArray[uint32](n, buf, dt))
	require.True(t, n.IsDataExternal())

	view, err := AsScalarArray[uint32](n)
	require.NoError(t, err)
	require.Equal(t, 4, view.Len())
	for i := 0; i < 4; i++ {
		require.Equal(t, uint32(i*200), view.Get(i), "elements 0,2,4,6 of the backing array")
	}

	// mutations through the Node are observable in the caller's buffer
	view.Set(1, 999)
	shared, err := NewDataArray[uint32](buf, layout.DataType{Tag: layout.Uint32, Count: 8, ElementBytes: 4, Stride: 4})
	require.NoError(t, err)
	require.Equal(t, uint32(999), shared.Get(2))
	shared.Set(2, 200)

	require.NoError(t, n.Compact())
	require.False(t, n.IsDataExternal(), "compaction re-roots into an owned buffer")
	require.Equal(t, int64(16), n.TotalBytes())

	packed, err := AsCompactSlice[uint32](n)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 200, 400, 600}, packed)

	// compact is idempotent
	require.NoError(t, n.Compact())
	again, err := AsCompactSlice[uint32](n)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 200, 400, 600}, again)
}

func TestCompactPacksManyLeaves(t *testing.T) {
	n := New()
	require.NoError(t, SetPathScalar(n, "a", int32(7)))
	require.NoError(t, SetPathScalarArray(n, "b", []float64{1, 2, 3}))
	require.NoError(t, SetPathCharString(n, "s", "hello"))
	require.Equal(t, int64(33), n.TotalBytesCompact())

	require.NoError(t, n.Compact())

	// leaves pack back to back into one shared buffer
	for path, want := range map[string]int64{"a": 0, "b": 4, "s": 28} {
		require.Equal(t, want, n.Get(path).Schema().DataType().Offset, path)
	}
	require.Equal(t, int64(33), n.TotalBytes())

	a, err := n.Get("a").ToInt32()
	require.NoError(t, err)
	require.Equal(t, int32(7), a)
	b, err := ToScalarArray[float64](n.Get("b"))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, b)
	s, err := n.Get("s").AsCharString()
	require.NoError(t, err)
	require.Equal(t, "hello", s)

	raw, err := n.Serialize()
	require.NoError(t, err)
	require.Len(t, raw, 33)
}

func TestEndianSwap(t *testing.T) {
	// two uint16 values [0x0102, 0x0304] stored little-endian
	buf := []byte{0x02, 0x01, 0x04, 0x03}
	n := New()
	dt := layout.DataType{Tag: layout.Uint16, Count: 2, ElementBytes: 2, Stride: 2, Endianness: layout.EndianLittle}
	require.NoError(t, SetExternalScalarArray[uint16](n, buf, dt))

	require.NoError(t, n.EndianSwap(layout.EndianBig))
	require.Equal(t, layout.EndianBig, n.Schema().DataType().Endianness)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, buf)

	view, err := AsScalarArray[uint16](n)
	require.NoError(t, err)
	require.Equal(t, uint16(0x0102), view.Get(0), "logical values survive the swap")
	require.Equal(t, uint16(0x0304), view.Get(1))

	// swap(e) twice is identity
	require.NoError(t, n.EndianSwap(layout.EndianLittle))
	require.NoError(t, n.EndianSwap(layout.EndianLittle))
	assert.Equal(t, []byte{0x02, 0x01, 0x04, 0x03}, buf)
}

func TestUpdateMerge(t *testing.T) {
	a := New()
	require.NoError(t, SetPathScalar(a, "x", int32(1)))
	require.NoError(t, SetPathScalar(a, "y/p", int32(2)))

	b := New()
	require.NoError(t, SetPathScalar(b, "y/q", int32(3)))
	require.NoError(t, SetPathScalar(b, "z", int32(4)))

	require.NoError(t, a.Update(b))

	assert.Equal(t, []string{"x", "y/p", "y/q", "z"}, a.Paths(true))
	for path, want := range map[string]int32{"x": 1, "y/p": 2, "y/q": 3, "z": 4} {
		got, err := a.Get(path).ToInt32()
		require.NoError(t, err, path)
		require.Equal(t, want, got, path)
	}

	// leaves replace wholesale on collision
	c := New()
	require.NoError(t, SetPathScalar(c, "x", int32(10)))
	require.NoError(t, a.Update(c))
	got, err := a.Get("x").ToInt32()
	require.NoError(t, err)
	require.Equal(t, int32(10), got)
}

func TestMissingPathSafety(t *testing.T) {
	n := New()
	require.NoError(t, SetPathScalar(n, "real", int8(1)))

	e := n.Get("no/such/path").Get("x").Get("y")
	require.True(t, e.IsEmpty())
	require.Same(t, Empty(), e, "lookups over missing paths return the shared sentinel")
	require.Equal(t, layout.Empty, n.Get("real").Get("deeper").Tag(), "descending through a leaf is not an error")
}

func TestEmptySentinelIsInert(t *testing.T) {
	e := Empty()
	require.True(t, e.IsEmpty())

	require.Error(t, e.SetFloat64(1.0))
	require.Error(t, e.SetNode(New()))
	e.Reset()

	child, err := e.Fetch("a/b")
	require.NoError(t, err)
	require.Same(t, Empty(), child)

	appended, err := e.Append()
	require.NoError(t, err)
	require.Same(t, Empty(), appended)

	require.True(t, e.IsEmpty(), "the sentinel never changes state")
	require.Equal(t, 0, e.NumberOfChildren())
}

func TestReset(t *testing.T) {
	n := New()
	require.NoError(t, SetPathScalarArray(n, "a/b", []float64{1, 2, 3}))
	require.Equal(t, layout.Object, n.Tag())

	n.Reset()
	require.True(t, n.IsEmpty())
	require.Equal(t, int64(0), n.TotalBytes())

	// a reset Node is reusable under a different tag
	_, err := n.Append()
	require.NoError(t, err)
	require.Equal(t, layout.List, n.Tag())
}

func TestListAppendAndChild(t *testing.T) {
	n := New()
	first, err := n.Append()
	require.NoError(t, err)
	require.NoError(t, first.SetUint8(7))
	require.Equal(t, layout.List, n.Tag())

	second, err := n.Child(1)
	require.NoError(t, err)
	require.NoError(t, second.SetUint8(8))
	require.Equal(t, 2, n.NumberOfChildren())

	_, err = n.Child(5)
	require.Error(t, err)

	require.NoError(t, n.RemoveIndex(0))
	require.Equal(t, 1, n.NumberOfChildren())
	v, err := n.GetIndex(0).ToUint8()
	require.NoError(t, err)
	require.Equal(t, uint8(8), v)
	require.Equal(t, 0, n.GetIndex(0).IndexInParent())

	// append on a leaf fails
	leafNode := New()
	require.NoError(t, leafNode.SetInt8(1))
	_, err = leafNode.Append()
	require.Error(t, err)
}

func TestZeroChildListSerializesToNothing(t *testing.T) {
	n := New()
	_, err := n.Append()
	require.NoError(t, err)
	require.NoError(t, n.RemoveIndex(0))

	raw, err := n.Serialize()
	require.NoError(t, err)
	require.Empty(t, raw)
	require.Equal(t, int64(0), n.TotalBytesCompact())
}

func TestRemoveDetaches(t *testing.T) {
	n := New()
	require.NoError(t, SetPathScalarArray(n, "keep", []int16{1}))
	require.NoError(t, SetPathScalarArray(n, "out/deep", []int16{4, 5}))

	detached, err := n.Remove("out")
	require.NoError(t, err)
	require.Nil(t, detached.Parent())
	require.False(t, n.HasPath("out"))
	require.True(t, n.HasPath("keep"))

	vals, err := ToScalarArray[int16](detached.Get("deep"))
	require.NoError(t, err)
	assert.Equal(t, []int16{4, 5}, vals)

	_, err = n.Remove("never")
	require.Error(t, err)
}

func TestSetNodeDeepCopies(t *testing.T) {
	src := New()
	require.NoError(t, SetPathScalarArray(src, "a", []uint32{1, 2, 3}))

	dst := New()
	require.NoError(t, dst.SetNode(src))
	require.True(t, dst.Equal(src))

	// mutating the copy leaves the source untouched
	view, err := AsScalarArray[uint32](dst.Get("a"))
	require.NoError(t, err)
	view.Set(0, 99)
	orig, err := ToScalarArray[uint32](src.Get("a"))
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, orig)
}

func TestSetSchemaAllocates(t *testing.T) {
	root := schema.NewObject()
	a, err := schema.NewLeaf(layout.DataType{Tag: layout.Int32, Count: 1, ElementBytes: 4, Stride: 4})
	require.NoError(t, err)
	require.NoError(t, root.AppendNamed("a", a))
	b, err := schema.NewLeaf(layout.DataType{Tag: layout.Float64, Count: 3, Offset: 4, ElementBytes: 8, Stride: 8})
	require.NoError(t, err)
	require.NoError(t, root.AppendNamed("b", b))

	n := New()
	require.NoError(t, n.SetSchema(root))
	require.Equal(t, layout.Object, n.Tag())
	require.Equal(t, int64(28), n.TotalBytesCompact())

	// leaves are zero-filled and writable
	got, err := n.Get("a").ToInt32()
	require.NoError(t, err)
	require.Equal(t, int32(0), got)

	view, err := AsScalarArray[float64](n.Get("b"))
	require.NoError(t, err)
	view.Set(2, 2.5)
	vals, err := ToScalarArray[float64](n.Get("b"))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 2.5}, vals)
}

func TestSetDataTypeReusesCompatibleStorage(t *testing.T) {
	n := New()
	require.NoError(t, SetScalarArray(n, []int32{1, 2, 3, 4}))
	slice, err := AsCompactSlice[int32](n)
	require.NoError(t, err)
	base := &slice[0]

	// same tag, same content bytes: the owned allocation is reused
	require.NoError(t, n.SetDataType(layout.DataType{Tag: layout.Int32, Count: 4, ElementBytes: 4, Stride: 4}))
	slice2, err := AsCompactSlice[int32](n)
	require.NoError(t, err)
	require.Same(t, base, &slice2[0])

	// different size: fresh allocation, old values gone
	require.NoError(t, n.SetDataType(layout.DataType{Tag: layout.Int32, Count: 8, ElementBytes: 4, Stride: 4}))
	vals, err := ToScalarArray[int32](n)
	require.NoError(t, err)
	assert.Equal(t, make([]int32, 8), vals)
}

func TestEqualNormalizesEndianness(t *testing.T) {
	le := []byte{0x02, 0x01}
	be := []byte{0x01, 0x02}

	a := New()
	require.NoError(t, SetExternalScalarArray[uint16](a, le,
		layout.DataType{Tag: layout.Uint16, Count: 1, ElementBytes: 2, Stride: 2, Endianness: layout.EndianLittle}))
	b := New()
	require.NoError(t, SetExternalScalarArray[uint16](b, be,
		layout.DataType{Tag: layout.Uint16, Count: 1, ElementBytes: 2, Stride: 2, Endianness: layout.EndianBig}))

	require.True(t, a.Equal(b), "same logical value under opposite byte orders")

	c := New()
	require.NoError(t, c.SetUint16(0x0103))
	require.False(t, a.Equal(c))

	d := New()
	require.NoError(t, d.SetUint32(0x0102))
	require.False(t, a.Equal(d), "tag mismatch")
}

func TestCharString(t *testing.T) {
	n := New()
	require.NoError(t, SetCharString(n, "hello"))
	require.Equal(t, layout.Char8Str, n.Tag())
	require.Equal(t, int64(5), n.TotalBytes())

	s, err := n.AsCharString()
	require.NoError(t, err)
	require.Equal(t, "hello", s)

	_, err = n.ToFloat64()
	require.Error(t, err, "char8_str has no scalar coercion")
}

func TestZeroCountLeaf(t *testing.T) {
	n := New()
	require.NoError(t, SetScalarArray(n, []float32{}))
	require.Equal(t, int64(0), n.TotalBytes())

	raw, err := n.Serialize()
	require.NoError(t, err)
	require.Empty(t, raw)

	_, err = n.ToFloat32()
	require.Error(t, err, "no element 0 to read")
}

func TestAsCompactSliceRequiresCompact(t *testing.T) {
	buf := make([]byte, 32)
	n := New()
	require.NoError(t, SetExternalScalarArray[uint32](n, buf,
		layout.DataType{Tag: layout.Uint32, Count: 4, Offset: 0, Stride: 8, ElementBytes: 4}))

	_, err := AsCompactSlice[uint32](n)
	require.ErrorIs(t, err, ErrLayoutError)

	require.NoError(t, n.Compact())
	_, err = AsCompactSlice[uint32](n)
	require.NoError(t, err)
}
