package layout

import "fmt"

// DataType is a leaf's layout descriptor: everything needed to compute
// element addresses and footprints, but no bytes. It is an immutable
// value — callers replace it wholesale rather than mutating fields.
type DataType struct {
	Tag          TypeTag
	Count        int64
	Offset       int64
	ElementBytes int64
	Stride       int64
	Endianness   Endianness
}

// DefaultDataType returns the canonical compact DataType for one of the
// dtype name strings ("int8", …, "char8_str"), with
// count=1, offset=0, stride=element_bytes.
func DefaultDataType(name string) (DataType, error) {
	tag, ok := ParseTypeTag(name)
	if !ok || !tag.IsLeaf() {
		return DataType{}, fmt.Errorf("layout: unknown scalar dtype %q", name)
	}
	w := int64(tag.NaturalWidth())
	return DataType{Tag: tag, Count: 1, Offset: 0, ElementBytes: w, Stride: w, Endianness: EndianDefault}, nil
}

// ElementIndex returns the byte offset (relative to the backing buffer's
// base) of element i: offset + i*stride.
func (d DataType) ElementIndex(i int64) int64 {
	return d.Offset + i*d.Stride
}

// TotalBytes is the number of bytes spanned by the leaf, including any
// padding introduced by a stride wider than element_bytes: zero when
// Count is zero, otherwise offset + (count-1)*stride + element_bytes.
func (d DataType) TotalBytes() int64 {
	if d.Count == 0 {
		return 0
	}
	return d.Offset + (d.Count-1)*d.Stride + d.ElementBytes
}

// ContentBytes is the number of bytes actually occupied by element
// content, ignoring stride padding: count * element_bytes.
func (d DataType) ContentBytes() int64 {
	return d.Count * d.ElementBytes
}

// IsCompact reports whether the leaf is laid out with no padding and no
// offset within its logical window: stride == element_bytes && offset == 0.
func (d DataType) IsCompact() bool {
	return d.Stride == d.ElementBytes && d.Offset == 0
}

// CompatibleStorage holds iff both descriptors are leaves of the same tag
// occupying the same total content size, so a `set` can reuse the
// existing allocation instead of reallocating.
func (d DataType) CompatibleStorage(other DataType) bool {
	if !d.Tag.IsLeaf() || !other.Tag.IsLeaf() || d.Tag != other.Tag {
		return false
	}
	return d.Count*d.ElementBytes == other.Count*other.ElementBytes
}

// Validate checks the descriptor invariants: element_bytes >= 1,
// stride >= element_bytes, count/offset non-negative.
func (d DataType) Validate() error {
	if d.Count < 0 {
		return fmt.Errorf("layout: negative count %d", d.Count)
	}
	if d.Offset < 0 {
		return fmt.Errorf("layout: negative offset %d", d.Offset)
	}
	if d.Tag.IsLeaf() {
		if d.ElementBytes < 1 {
			return fmt.Errorf("layout: element_bytes must be >= 1, got %d", d.ElementBytes)
		}
		if d.Stride < d.ElementBytes {
			return fmt.Errorf("layout: stride %d < element_bytes %d", d.Stride, d.ElementBytes)
		}
	}
	return nil
}

// Compact returns a copy of d rewritten to a compact layout: the same tag,
// count and element_bytes, with offset 0 and stride == element_bytes.
func (d DataType) Compact() DataType {
	c := d
	c.Offset = 0
	c.Stride = d.ElementBytes
	return c
}

// WithOffset returns a copy of d at a new offset, all else unchanged.
func (d DataType) WithOffset(offset int64) DataType {
	c := d
	c.Offset = offset
	return c
}
