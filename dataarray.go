package conduit

import (
	"fmt"
	"unsafe"

	"github.com/ghackebeil/conduit/layout"
)

// Scalar is the closed set of fixed-width Go types DataArray/leaf
// accessors operate on. char8_str is handled separately as raw bytes,
// since it has no single natural Go scalar type.
type Scalar interface {
	int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 | uint64 |
		float32 | float64
}

func scalarTag[T Scalar]() layout.TypeTag {
	var zero T
	switch any(zero).(type) {
	case int8:
		return layout.Int8
	case int16:
		return layout.Int16
	case int32:
		return layout.Int32
	case int64:
		return layout.Int64
	case uint8:
		return layout.Uint8
	case uint16:
		return layout.Uint16
	case uint32:
		return layout.Uint32
	case uint64:
		return layout.Uint64
	case float32:
		return layout.Float32
	case float64:
		return layout.Float64
	default:
		return layout.Empty
	}
}

// DataArray is a lightweight, non-owning, strided view over a leaf's
// bytes, typed to T at construction. It never allocates beyond its own
// header; Get/Set index straight into base.
type DataArray[T Scalar] struct {
	base []byte
	dt   layout.DataType
}

// NewDataArray binds a DataArray[T] to base using dt. sizeof(T) must equal
// dt.ElementBytes, and dt.Tag must be T's scalar tag, else TypeMismatch.
func NewDataArray[T Scalar](base []byte, dt layout.DataType) (DataArray[T], error) {
	var zero T
	if int64(unsafe.Sizeof(zero)) != dt.ElementBytes {
		return DataArray[T]{}, &Error{Kind: TypeMismatch, Message: fmt.Sprintf("DataArray[%T]: element_bytes %d does not match sizeof(T)=%d", zero, dt.ElementBytes, unsafe.Sizeof(zero))}
	}
	if dt.Tag != scalarTag[T]() {
		return DataArray[T]{}, &Error{Kind: TypeMismatch, Message: fmt.Sprintf("DataArray[%T]: dtype tag %s does not match T", zero, dt.Tag)}
	}
	need := dt.TotalBytes()
	if int64(len(base)) < need {
		return DataArray[T]{}, &Error{Kind: InvalidArgument, Message: fmt.Sprintf("backing region is %d bytes, need %d", len(base), need)}
	}
	return DataArray[T]{base: base, dt: dt}, nil
}

// Len returns the element count.
func (a DataArray[T]) Len() int { return int(a.dt.Count) }

// DataType returns the descriptor this view was bound with.
func (a DataArray[T]) DataType() layout.DataType { return a.dt }

// Get reads element i, applying an endian swap into a local copy when the
// descriptor's endianness differs from machine default.
func (a DataArray[T]) Get(i int) T {
	off := a.dt.ElementIndex(int64(i))
	word := a.base[off : off+a.dt.ElementBytes]
	if a.dt.Endianness.Resolve() != layout.MachineEndianness() {
		var tmp [8]byte
		copy(tmp[:a.dt.ElementBytes], word)
		_ = layout.Swap(tmp[:a.dt.ElementBytes], int(a.dt.ElementBytes))
		return *(*T)(unsafe.Pointer(&tmp[0]))
	}
	return *(*T)(unsafe.Pointer(&word[0]))
}

// Set writes element i, swapping into the backing buffer's byte order
// when the descriptor's endianness differs from machine default.
func (a DataArray[T]) Set(i int, v T) {
	off := a.dt.ElementIndex(int64(i))
	word := a.base[off : off+a.dt.ElementBytes]
	src := unsafe.Slice((*byte)(unsafe.Pointer(&v)), a.dt.ElementBytes)
	copy(word, src)
	if a.dt.Endianness.Resolve() != layout.MachineEndianness() {
		_ = layout.Swap(word, int(a.dt.ElementBytes))
	}
}

// CopyTo fills dst (len(dst) must be <= Len()) by calling Get for each
// index — a plain, allocation-free elementwise copy-out.
func (a DataArray[T]) CopyTo(dst []T) {
	n := len(dst)
	if n > a.Len() {
		n = a.Len()
	}
	for i := 0; i < n; i++ {
		dst[i] = a.Get(i)
	}
}

// CopyFrom writes src (len(src) must be <= Len()) via Set for each index.
func (a DataArray[T]) CopyFrom(src []T) {
	n := len(src)
	if n > a.Len() {
		n = a.Len()
	}
	for i := 0; i < n; i++ {
		a.Set(i, src[i])
	}
}
