package conduit

import (
	"unsafe"

	"github.com/ghackebeil/conduit/layout"
	"github.com/ghackebeil/conduit/schema"
)

// SetNode reinitializes n as a recursive deep copy of src: descriptor
// tree and leaf bytes are both copied, so later mutations of either tree
// are invisible to the other.
func (n *Node) SetNode(src *Node) error {
	if n.isSentinel() {
		return NewError(InvalidArgument, "", "cannot mutate the EMPTY sentinel")
	}
	if src == nil {
		return NewError(InvalidArgument, "", "source node is nil")
	}
	clone := src.deepClone()
	n.releaseStorage()
	n.adopt(clone)
	return nil
}

// adopt moves clone's schema/storage/children into n, reparenting the
// children. clone must be a freshly built root nothing else references.
func (n *Node) adopt(clone *Node) {
	n.sch = clone.sch
	n.buf = clone.buf
	n.storageKind = clone.storageKind
	n.region = clone.region
	n.children = clone.children
	for _, c := range n.children {
		c.parent = n
	}
}

// SetDataType reinitializes n as a leaf described by dt. When n already
// owns a leaf allocation that is storage-compatible with dt, that buffer is
// kept with its bytes unchanged; otherwise the prior storage is released
// and a fresh zero-filled buffer of dt's strided footprint is allocated.
func (n *Node) SetDataType(dt layout.DataType) error {
	if n.isSentinel() {
		return NewError(InvalidArgument, "", "cannot mutate the EMPTY sentinel")
	}
	if !dt.Tag.IsLeaf() {
		return NewErrorf(TypeMismatch, "", "set(DataType) requires a leaf tag, got %s", dt.Tag)
	}
	if err := dt.Validate(); err != nil {
		return NewError(SchemaError, "", err.Error())
	}
	return n.allocateLeaf(dt)
}

// SetSchema reinitializes n from a descriptor tree: the Schema is
// deep-copied, one shared zero-filled buffer of sch.TotalBytes() is
// allocated, and every descendant leaf is bound to it.
func (n *Node) SetSchema(sch *schema.Schema) error {
	if n.isSentinel() {
		return NewError(InvalidArgument, "", "cannot mutate the EMPTY sentinel")
	}
	if sch == nil {
		return NewError(InvalidArgument, "", "schema is nil")
	}
	clone := sch.Clone()
	buf := make([]byte, clone.TotalBytes())
	built := BindTree(clone, buf, false, n.opts)
	n.releaseStorage()
	n.adopt(built)
	return nil
}

// SetPathNode ensures OBJECT nodes along path exist, then deep-copies src
// into the terminal.
func (n *Node) SetPathNode(path string, src *Node) error {
	child, err := n.Fetch(path)
	if err != nil {
		return err
	}
	return child.SetNode(src)
}

// SetPathScalar is set_path for a single scalar value.
func SetPathScalar[T Scalar](n *Node, path string, v T) error {
	child, err := n.Fetch(path)
	if err != nil {
		return err
	}
	return SetScalar(child, v)
}

// SetPathScalarArray is set_path for a contiguous sequence of T.
func SetPathScalarArray[T Scalar](n *Node, path string, vals []T) error {
	child, err := n.Fetch(path)
	if err != nil {
		return err
	}
	return SetScalarArray(child, vals)
}

// SetPathCharString is set_path for a char8_str leaf.
func SetPathCharString(n *Node, path, s string) error {
	child, err := n.Fetch(path)
	if err != nil {
		return err
	}
	return SetCharString(child, s)
}

// SetPathExternalScalarArray is set_path_external: the terminal leaf
// borrows base rather than copying it.
func SetPathExternalScalarArray[T Scalar](n *Node, path string, base []byte, dt layout.DataType) error {
	child, err := n.Fetch(path)
	if err != nil {
		return err
	}
	return SetExternalScalarArray[T](child, base, dt)
}

// Update merges src into n: OBJECT children merge recursively, creating
// missing names; leaves and LISTs replace wholesale. EMPTY sources are a
// no-op.
func (n *Node) Update(src *Node) error {
	if n.isSentinel() {
		return nil
	}
	if src == nil || src.IsEmpty() {
		return nil
	}
	if src.Tag() == layout.Object && (n.Tag() == layout.Object || n.Tag() == layout.Empty) {
		for i, name := range src.sch.ChildNames() {
			child, err := n.Fetch(name)
			if err != nil {
				return err
			}
			if err := child.Update(src.children[i]); err != nil {
				return err
			}
		}
		return nil
	}
	return n.SetNode(src)
}

// AsScalarArray returns a strided DataArray[T] view over the leaf's bytes
// without copying. The view stays valid until the leaf's storage is
// released or replaced.
func AsScalarArray[T Scalar](n *Node) (DataArray[T], error) {
	if !n.Tag().IsLeaf() {
		return DataArray[T]{}, NewErrorf(TypeMismatch, "", "cannot view %s as a scalar array", n.Tag())
	}
	return NewDataArray[T](n.buf, n.sch.DataType())
}

// AsCompactSlice returns a []T aliasing the leaf's bytes directly. The
// leaf must be compact; a strided or offset layout fails with
// LayoutError.
func AsCompactSlice[T Scalar](n *Node) ([]T, error) {
	if !n.Tag().IsLeaf() {
		return nil, NewErrorf(TypeMismatch, "", "cannot view %s as a scalar slice", n.Tag())
	}
	dt := n.sch.DataType()
	if dt.Tag != scalarTag[T]() {
		return nil, NewErrorf(TypeMismatch, "", "leaf tag %s does not match T", dt.Tag)
	}
	var zero T
	if int64(unsafe.Sizeof(zero)) != dt.ElementBytes {
		return nil, NewErrorf(TypeMismatch, "", "element_bytes %d does not match sizeof(T)", dt.ElementBytes)
	}
	if !dt.IsCompact() {
		return nil, NewError(LayoutError, "", "leaf layout is not compact")
	}
	if dt.Count == 0 {
		return nil, nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&n.buf[dt.Offset])), dt.Count), nil
}
