package conduit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghackebeil/conduit/layout"
)

func TestCoercionMatrix(t *testing.T) {
	n := New()

	// int -> int widening
	require.NoError(t, n.SetInt8(-5))
	i64, err := n.ToInt64()
	require.NoError(t, err)
	require.Equal(t, int64(-5), i64)

	// int -> float
	require.NoError(t, n.SetInt32(7))
	f, err := n.ToFloat64()
	require.NoError(t, err)
	require.Equal(t, 7.0, f)

	// float -> int truncates toward zero
	require.NoError(t, n.SetFloat64(-3.9))
	i32, err := n.ToInt32()
	require.NoError(t, err)
	require.Equal(t, int32(-3), i32)

	require.NoError(t, n.SetFloat64(3.9))
	i32, err = n.ToInt32()
	require.NoError(t, err)
	require.Equal(t, int32(3), i32)

	// float -> float
	require.NoError(t, n.SetFloat64(1.5))
	f32, err := n.ToFloat32()
	require.NoError(t, err)
	require.Equal(t, float32(1.5), f32)

	// unsigned -> signed within range
	require.NoError(t, n.SetUint16(300))
	i16, err := n.ToInt16()
	require.NoError(t, err)
	require.Equal(t, int16(300), i16)
}

func TestSaturatingCoercion(t *testing.T) {
	n := New()
	require.NoError(t, n.SetFloat64(1e9))

	i8, err := n.ToInt8()
	require.NoError(t, err)
	require.Equal(t, int8(127), i8, "clamped to the destination's max")

	require.NoError(t, n.SetFloat64(-1e9))
	i8, err = n.ToInt8()
	require.NoError(t, err)
	require.Equal(t, int8(-128), i8)

	// negative values saturate unsigned destinations at zero
	require.NoError(t, n.SetInt32(-1))
	u16, err := n.ToUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(0), u16)

	require.NoError(t, n.SetInt64(1<<40))
	u16, err = n.ToUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(65535), u16)
}

func TestWrappingCoercion(t *testing.T) {
	opts := DefaultOptions()
	opts.Saturate = false
	opts.OnSaturate = nil
	n := New(opts)

	require.NoError(t, n.SetInt16(0x1234))
	u8, err := n.ToUint8()
	require.NoError(t, err)
	require.Equal(t, uint8(0x34), u8, "two's-complement truncation in wrap mode")

	require.NoError(t, n.SetInt32(-1))
	u16, err := n.ToUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(0xffff), u16)
}

func TestSaturationHookFiresOnce(t *testing.T) {
	var calls []layout.TypeTag
	opts := DefaultOptions()
	opts.OnSaturate = func(path string, tag layout.TypeTag) {
		calls = append(calls, tag)
	}

	n := New(opts)
	require.NoError(t, SetPathScalar(n, "wide", 1e9))
	leafNode := n.Get("wide")

	for i := 0; i < 3; i++ {
		v, err := leafNode.ToInt8()
		require.NoError(t, err)
		require.Equal(t, int8(127), v)
	}
	require.Len(t, calls, 1, "the hook fires once per leaf instance")
	assert.Equal(t, layout.Int8, calls[0])
}

func TestToScalarArrayCoerces(t *testing.T) {
	n := New()
	require.NoError(t, SetScalarArray(n, []float64{1.9, -2.9, 300}))

	ints, err := ToScalarArray[int8](n)
	require.NoError(t, err)
	assert.Equal(t, []int8{1, -2, 127}, ints, "elementwise truncation with saturation")

	floats, err := ToScalarArray[float32](n)
	require.NoError(t, err)
	assert.Equal(t, []float32{1.9, -2.9, 300}, floats)
}

func TestCoercionRejectsComposites(t *testing.T) {
	n := New()
	_, err := n.Fetch("a")
	require.NoError(t, err)

	_, err = n.ToInt32()
	require.ErrorIs(t, err, ErrTypeMismatch)
	_, err = ToScalarArray[float64](n)
	require.ErrorIs(t, err, ErrTypeMismatch)
}
