package conduit

import (
	"bytes"
	"fmt"
	"unsafe"

	"github.com/ghackebeil/conduit/layout"
	"github.com/ghackebeil/conduit/schema"
)

// makeLeafDataType builds the canonical compact descriptor for a scalar
// leaf of the given tag and count, honoring n's configured default
// endianness.
func (n *Node) makeLeafDataType(tag layout.TypeTag, count int64) layout.DataType {
	eb := int64(tag.NaturalWidth())
	return layout.DataType{
		Tag:          tag,
		Count:        count,
		Offset:       0,
		ElementBytes: eb,
		Stride:       eb,
		Endianness:   n.opts.DefaultEndianness,
	}
}

func (n *Node) allocateLeaf(dt layout.DataType) error {
	sch, err := newLeafSchema(dt)
	if err != nil {
		return err
	}
	// Reuse the existing allocation when the new descriptor occupies the
	// same content size and the current storage is owned.
	reuse := n.storageKind == storageOwned && n.sch.Tag().IsLeaf() &&
		n.sch.DataType().CompatibleStorage(dt) && int64(len(n.buf)) >= dt.TotalBytes()
	if !reuse {
		n.releaseStorage()
		n.buf = make([]byte, dt.TotalBytes())
		n.storageKind = storageOwned
	}
	// A leaf or EMPTY Schema is rewritten in place: a parent's schema tree
	// holds the same pointer and must see the new descriptor.
	if t := n.sch.Tag(); t.IsLeaf() || t == layout.Empty {
		_ = n.sch.SetDataType(dt) // dt was already validated by newLeafSchema
	} else {
		n.sch = sch
	}
	n.children = nil
	return nil
}

// SetScalar rewrites n in place as a single-element leaf holding v.
func SetScalar[T Scalar](n *Node, v T) error {
	if n.isSentinel() {
		return NewError(InvalidArgument, "", "cannot mutate the EMPTY sentinel")
	}
	dt := n.makeLeafDataType(scalarTag[T](), 1)
	if err := n.allocateLeaf(dt); err != nil {
		return err
	}
	arr, err := NewDataArray[T](n.buf, n.sch.DataType())
	if err != nil {
		return err
	}
	arr.Set(0, v)
	return nil
}

// SetScalarArray rewrites n in place as a leaf holding a copy of vals.
func SetScalarArray[T Scalar](n *Node, vals []T) error {
	if n.isSentinel() {
		return NewError(InvalidArgument, "", "cannot mutate the EMPTY sentinel")
	}
	dt := n.makeLeafDataType(scalarTag[T](), int64(len(vals)))
	if err := n.allocateLeaf(dt); err != nil {
		return err
	}
	arr, err := NewDataArray[T](n.buf, n.sch.DataType())
	if err != nil {
		return err
	}
	arr.CopyFrom(vals)
	return nil
}

// SetExternalScalarArray binds n to a borrowed view over base using dt,
// without copying (the zero-copy view regime).
// base must outlive n.
func SetExternalScalarArray[T Scalar](n *Node, base []byte, dt layout.DataType) error {
	if n.isSentinel() {
		return NewError(InvalidArgument, "", "cannot mutate the EMPTY sentinel")
	}
	if dt.Tag != scalarTag[T]() {
		return NewErrorf(TypeMismatch, "", "dtype tag %s does not match T", dt.Tag)
	}
	if err := dt.Validate(); err != nil {
		return NewError(LayoutError, "", err.Error())
	}
	sch, err := newLeafSchema(dt)
	if err != nil {
		return err
	}
	if int64(len(base)) < dt.TotalBytes() {
		return NewErrorf(InvalidArgument, "", "backing region is %d bytes, need %d", len(base), dt.TotalBytes())
	}
	n.releaseStorage()
	n.sch = sch
	n.children = nil
	n.buf = base
	n.storageKind = storageBorrowed
	return nil
}

// SetMmapScalarArray binds n to a leaf backed by a memory-mapped region.
// n takes ownership of region and closes it on Reset.
func SetMmapScalarArray[T Scalar](n *Node, region MmapRegion, dt layout.DataType) error {
	if err := SetExternalScalarArray[T](n, region.Bytes(), dt); err != nil {
		return err
	}
	n.storageKind = storageMmapped
	n.region = region
	return nil
}

// ToScalar reads element 0 of a scalar leaf, coercing it to T according
// to n's Options.Saturate policy.
func ToScalar[T Scalar](n *Node) (T, error) {
	var zero T
	if !n.Tag().IsLeaf() || n.Tag() == layout.Char8Str {
		return zero, NewErrorf(TypeMismatch, "", "cannot read %s as scalar", n.Tag())
	}
	dt := n.sch.DataType()
	if dt.Count < 1 {
		return zero, NewError(InvalidArgument, "", "leaf is empty")
	}
	raw, err := n.readElementAny(dt, 0)
	if err != nil {
		return zero, err
	}
	s := stageFromBytes(dt.Tag, raw)
	dstTag := scalarTag[T]()
	v, saturated := coerceStaged(s, dstTag, n.opts.Saturate)
	if saturated && n.opts.Saturate && n.opts.OnSaturate != nil && !n.saturated {
		n.saturated = true
		n.opts.OnSaturate(n.pathHint(), dstTag)
	}
	return v.(T), nil
}

// ToScalarArray reads every element of a scalar leaf, coercing each to T.
func ToScalarArray[T Scalar](n *Node) ([]T, error) {
	if !n.Tag().IsLeaf() || n.Tag() == layout.Char8Str {
		return nil, NewErrorf(TypeMismatch, "", "cannot read %s as scalar array", n.Tag())
	}
	dt := n.sch.DataType()
	dstTag := scalarTag[T]()
	out := make([]T, dt.Count)
	for i := int64(0); i < dt.Count; i++ {
		raw, err := n.readElementAny(dt, i)
		if err != nil {
			return nil, err
		}
		v, saturated := coerceStaged(stageFromBytes(dt.Tag, raw), dstTag, n.opts.Saturate)
		if saturated && n.opts.Saturate && n.opts.OnSaturate != nil && !n.saturated {
			n.saturated = true
			n.opts.OnSaturate(n.pathHint(), dstTag)
		}
		out[i] = v.(T)
	}
	return out, nil
}

// readElementAny reads element i of a leaf as a boxed Go scalar of its
// own native tag (not yet coerced), applying an endian swap if needed.
func (n *Node) readElementAny(dt layout.DataType, i int64) (any, error) {
	off := dt.ElementIndex(i)
	eb := dt.ElementBytes
	if off+eb > int64(len(n.buf)) {
		return nil, NewError(LayoutError, "", "element index out of bounds")
	}
	word := n.buf[off : off+eb]
	var tmp [8]byte
	src := word
	if dt.Endianness.Resolve() != layout.MachineEndianness() {
		copy(tmp[:eb], word)
		_ = layout.Swap(tmp[:eb], int(eb))
		src = tmp[:eb]
	}
	switch dt.Tag {
	case layout.Int8:
		return *(*int8)(unsafe.Pointer(&src[0])), nil
	case layout.Int16:
		return *(*int16)(unsafe.Pointer(&src[0])), nil
	case layout.Int32:
		return *(*int32)(unsafe.Pointer(&src[0])), nil
	case layout.Int64:
		return *(*int64)(unsafe.Pointer(&src[0])), nil
	case layout.Uint8:
		return *(*uint8)(unsafe.Pointer(&src[0])), nil
	case layout.Uint16:
		return *(*uint16)(unsafe.Pointer(&src[0])), nil
	case layout.Uint32:
		return *(*uint32)(unsafe.Pointer(&src[0])), nil
	case layout.Uint64:
		return *(*uint64)(unsafe.Pointer(&src[0])), nil
	case layout.Float32:
		return *(*float32)(unsafe.Pointer(&src[0])), nil
	case layout.Float64:
		return *(*float64)(unsafe.Pointer(&src[0])), nil
	default:
		return nil, NewErrorf(TypeMismatch, "", "unreadable leaf tag %s", dt.Tag)
	}
}

// pathHint returns a best-effort path for logging; Conduit does not
// track the original fetch path on the Node itself, so this walks up to
// the root via parent/indexInParent.
func (n *Node) pathHint() string {
	if n.parent == nil {
		return "/"
	}
	var parts []string
	cur := n
	for cur.parent != nil {
		if cur.parent.Tag() == layout.Object {
			names := cur.parent.sch.ChildNames()
			if cur.indexInParent < len(names) {
				parts = append([]string{names[cur.indexInParent]}, parts...)
			}
		} else {
			parts = append([]string{fmt.Sprintf("[%d]", cur.indexInParent)}, parts...)
		}
		cur = cur.parent
	}
	out := ""
	for _, p := range parts {
		if out != "" {
			out += "/"
		}
		out += p
	}
	return out
}

// SetCharString rewrites n as a char8_str leaf holding a copy of s's
// bytes.
func SetCharString(n *Node, s string) error {
	if n.isSentinel() {
		return NewError(InvalidArgument, "", "cannot mutate the EMPTY sentinel")
	}
	dt := n.makeLeafDataType(layout.Char8Str, int64(len(s)))
	if err := n.allocateLeaf(dt); err != nil {
		return err
	}
	copy(n.buf, s)
	return nil
}

// SetExternalCharString binds n to a borrowed char8_str view over base,
// avoiding a copy on read when n.opts.UnsafeStrings is set.
func SetExternalCharString(n *Node, base []byte) error {
	if n.isSentinel() {
		return NewError(InvalidArgument, "", "cannot mutate the EMPTY sentinel")
	}
	dt := n.makeLeafDataType(layout.Char8Str, int64(len(base)))
	sch, err := newLeafSchema(dt)
	if err != nil {
		return err
	}
	n.releaseStorage()
	n.sch = sch
	n.children = nil
	n.buf = base
	n.storageKind = storageBorrowed
	return nil
}

// AsCharString returns the leaf's content as a string. When
// n.opts.UnsafeStrings is set, the string aliases the leaf's backing
// bytes instead of copying; otherwise
// a defensive copy is made.
func (n *Node) AsCharString() (string, error) {
	if n.Tag() != layout.Char8Str {
		return "", NewErrorf(TypeMismatch, "", "cannot read %s as char8_str", n.Tag())
	}
	dt := n.sch.DataType()
	content := n.buf[dt.Offset : dt.Offset+dt.ContentBytes()]
	if n.opts.UnsafeStrings {
		return unsafe.String(unsafe.SliceData(content), len(content)), nil
	}
	return string(content), nil
}

// EndianSwap rewrites every leaf in the subtree rooted at n to target
// endianness, swapping bytes in place.
func (n *Node) EndianSwap(target layout.Endianness) error {
	if n.isSentinel() {
		return nil
	}
	switch n.Tag() {
	case layout.Object, layout.List:
		for _, c := range n.children {
			if err := c.EndianSwap(target); err != nil {
				return err
			}
		}
		return nil
	case layout.Empty:
		return nil
	default:
		dt := n.sch.DataType()
		resolved := target.Resolve()
		if dt.Endianness.Resolve() == resolved {
			return nil
		}
		if err := layout.SwapStrided(n.buf, int(dt.Offset), int(dt.Stride), int(dt.ElementBytes), int(dt.Count)); err != nil {
			return NewError(LayoutError, "", err.Error())
		}
		dt.Endianness = target
		if err := n.sch.SetDataType(dt); err != nil {
			return NewError(SchemaError, "", err.Error())
		}
		return nil
	}
}

// Compact rewrites the subtree rooted at n into a single freshly
// allocated, tightly packed buffer, normalizing every leaf's stride to
// its element width and discarding any external/mmap aliasing.
func (n *Node) Compact() error {
	if n.isSentinel() || n.Tag() == layout.Empty {
		return nil
	}
	total := n.sch.TotalBytesCompact()
	newBuf := make([]byte, total)
	cursor := int64(0)
	if err := n.compactInto(newBuf, &cursor); err != nil {
		return err
	}
	return nil
}

func (n *Node) compactInto(dst []byte, cursor *int64) error {
	switch n.Tag() {
	case layout.Object, layout.List:
		for _, c := range n.children {
			if err := c.compactInto(dst, cursor); err != nil {
				return err
			}
		}
		return nil
	case layout.Empty:
		return nil
	default:
		oldDt := n.sch.DataType()
		newDt := oldDt.Compact().WithOffset(*cursor)
		for i := int64(0); i < oldDt.Count; i++ {
			so := oldDt.ElementIndex(i)
			do := newDt.ElementIndex(i)
			copy(dst[do:do+oldDt.ElementBytes], n.buf[so:so+oldDt.ElementBytes])
		}
		if err := n.sch.SetDataType(newDt); err != nil {
			return NewError(SchemaError, "", err.Error())
		}
		n.releaseStorageLeafOnly()
		n.buf = dst
		n.storageKind = storageOwned
		// newDt.TotalBytes() already includes the offset; advancing by it
		// would count the cursor twice.
		*cursor += newDt.ContentBytes()
		return nil
	}
}

// CompactTo returns a deep, compacted copy of the subtree rooted at n,
// leaving n itself untouched. Used by callers (e.g. serialize) that need
// a depth-first, gap-free byte image without disturbing the live tree.
func (n *Node) CompactTo() (*Node, error) {
	clone := n.deepClone()
	if err := clone.Compact(); err != nil {
		return nil, err
	}
	return clone, nil
}

func (n *Node) deepClone() *Node {
	if n.isSentinel() || n.Tag() == layout.Empty {
		return New(n.opts)
	}
	clone := &Node{sch: n.sch.Clone(), opts: n.opts}
	switch n.Tag() {
	case layout.Object, layout.List:
		clone.children = make([]*Node, len(n.children))
		for i, c := range n.children {
			cc := c.deepClone()
			cc.parent = clone
			cc.indexInParent = i
			clone.children[i] = cc
		}
	default:
		clone.buf = append([]byte(nil), n.buf...)
		clone.storageKind = storageOwned
	}
	return clone
}

func (n *Node) releaseStorageLeafOnly() {
	if n.storageKind == storageMmapped && n.region != nil {
		_ = n.region.Close()
	}
	n.region = nil
}

// Equal reports whether n and other have the same shape (tag, and for
// composites the same child names/order) and the same leaf values, once
// both sides are compared element-by-element in machine-endian order
// (structural + value equality, independent of storage regime or
// declared endianness).
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Tag() != other.Tag() {
		return false
	}
	switch n.Tag() {
	case layout.Empty:
		return true
	case layout.Object:
		na, nb := n.sch.ChildNames(), other.sch.ChildNames()
		if len(na) != len(nb) {
			return false
		}
		for i := range na {
			if na[i] != nb[i] {
				return false
			}
			if !n.children[i].Equal(other.children[i]) {
				return false
			}
		}
		return true
	case layout.List:
		if len(n.children) != len(other.children) {
			return false
		}
		for i := range n.children {
			if !n.children[i].Equal(other.children[i]) {
				return false
			}
		}
		return true
	default:
		return n.leafEqual(other)
	}
}

func (n *Node) leafEqual(other *Node) bool {
	da, db := n.sch.DataType(), other.sch.DataType()
	if da.Tag != db.Tag || da.Count != db.Count {
		return false
	}
	for i := int64(0); i < da.Count; i++ {
		wa := n.normalizedElementBytes(da, i)
		wb := other.normalizedElementBytes(db, i)
		if !bytes.Equal(wa, wb) {
			return false
		}
	}
	return true
}

func (n *Node) normalizedElementBytes(dt layout.DataType, i int64) []byte {
	off := dt.ElementIndex(i)
	eb := dt.ElementBytes
	word := append([]byte(nil), n.buf[off:off+eb]...)
	if dt.Endianness.Resolve() != layout.MachineEndianness() {
		_ = layout.Swap(word, int(eb))
	}
	return word
}

func newLeafSchema(dt layout.DataType) (*schema.Schema, error) {
	return schema.NewLeaf(dt)
}

// PokeScalarFromJSON writes raw (a float64, bool, int or int64 as decoded
// from a JSON scalar) into element i of a leaf described by dt within
// buf, coercing it to dt.Tag under the given saturation policy and
// applying an endian swap when dt's endianness differs from machine
// default. Exported so the generator package can populate inline schema
// values without reaching into Node's private fields.
func PokeScalarFromJSON(buf []byte, dt layout.DataType, i int64, raw any, saturate bool) (bool, error) {
	var f float64
	switch x := raw.(type) {
	case float64:
		f = x
	case bool:
		if x {
			f = 1
		}
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	default:
		return false, NewErrorf(TypeMismatch, "", "cannot assign %T to %s element", raw, dt.Tag)
	}
	v, saturated := coerceStaged(staged{kind: stagedFloat, f: f}, dt.Tag, saturate)
	off := dt.ElementIndex(i)
	eb := dt.ElementBytes
	if off < 0 || off+eb > int64(len(buf)) {
		return false, NewError(LayoutError, "", "element index out of bounds")
	}
	word := buf[off : off+eb]
	if err := pokeScalarBytes(word, dt.Tag, v); err != nil {
		return false, err
	}
	if dt.Endianness.Resolve() != layout.MachineEndianness() {
		_ = layout.Swap(word, int(eb))
	}
	return saturated, nil
}

func pokeScalarBytes(word []byte, tag layout.TypeTag, v any) error {
	switch tag {
	case layout.Int8:
		word[0] = byte(v.(int8))
	case layout.Int16:
		*(*int16)(unsafe.Pointer(&word[0])) = v.(int16)
	case layout.Int32:
		*(*int32)(unsafe.Pointer(&word[0])) = v.(int32)
	case layout.Int64:
		*(*int64)(unsafe.Pointer(&word[0])) = v.(int64)
	case layout.Uint8:
		word[0] = v.(uint8)
	case layout.Uint16:
		*(*uint16)(unsafe.Pointer(&word[0])) = v.(uint16)
	case layout.Uint32:
		*(*uint32)(unsafe.Pointer(&word[0])) = v.(uint32)
	case layout.Uint64:
		*(*uint64)(unsafe.Pointer(&word[0])) = v.(uint64)
	case layout.Float32:
		*(*float32)(unsafe.Pointer(&word[0])) = v.(float32)
	case layout.Float64:
		*(*float64)(unsafe.Pointer(&word[0])) = v.(float64)
	default:
		return NewErrorf(TypeMismatch, "", "cannot write leaf tag %s", tag)
	}
	return nil
}

// PokeCharString writes s's bytes into a char8_str leaf described by dt
// within buf, truncating to dt.ContentBytes() if s is longer.
func PokeCharString(buf []byte, dt layout.DataType, s string) error {
	if dt.Tag != layout.Char8Str {
		return NewErrorf(TypeMismatch, "", "PokeCharString: not a char8_str leaf (%s)", dt.Tag)
	}
	n := dt.ContentBytes()
	if dt.Offset+n > int64(len(buf)) {
		return NewError(LayoutError, "", "char8_str leaf out of bounds")
	}
	m := int64(len(s))
	if m > n {
		m = n
	}
	copy(buf[dt.Offset:dt.Offset+m], s[:m])
	return nil
}
