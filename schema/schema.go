// Package schema implements the tree of layout descriptors parallel to
// the Node tree, responsible for child order, names, and offset/size
// arithmetic. It never touches bytes.
package schema

import (
	"fmt"
	"strings"

	"github.com/ghackebeil/conduit/layout"
)

// Schema is either a leaf (holding a layout.DataType), an OBJECT (ordered
// named children) or a LIST (ordered positional children), or the EMPTY
// placeholder a fresh, unset tree position starts as.
type Schema struct {
	tag layout.TypeTag
	dt  layout.DataType

	names    []string       // OBJECT only; names[i] names children[i]
	byName   map[string]int // OBJECT only
	children []*Schema      // OBJECT or LIST

	parent        *Schema // weak, non-owning back-reference
	indexInParent int
}

// NewEmpty returns a fresh, unset Schema node. Unlike Node's EMPTY
// sentinel this is never shared — each call allocates, since callers
// mutate it in place as they promote it to a leaf/object/list.
func NewEmpty() *Schema { return &Schema{tag: layout.Empty} }

// NewLeaf returns a Schema describing a single leaf with the given
// DataType.
func NewLeaf(dt layout.DataType) (*Schema, error) {
	if err := dt.Validate(); err != nil {
		return nil, err
	}
	return &Schema{tag: dt.Tag, dt: dt}, nil
}

// NewObject returns a Schema with no children, ready to accept named
// children via Fetch(path, true) or AppendNamed.
func NewObject() *Schema {
	return &Schema{tag: layout.Object, byName: map[string]int{}}
}

// NewList returns a Schema with no children, ready to accept positional
// children via Append.
func NewList() *Schema { return &Schema{tag: layout.List} }

// Tag reports the node's kind.
func (s *Schema) Tag() layout.TypeTag { return s.tag }

// DataType returns the leaf descriptor. Only meaningful when Tag().IsLeaf().
func (s *Schema) DataType() layout.DataType { return s.dt }

// SetDataType overwrites a leaf's descriptor in place (used by Node's leaf
// setters and by endian-swap/compaction rewrites).
func (s *Schema) SetDataType(dt layout.DataType) error {
	if !s.tag.IsLeaf() && s.tag != layout.Empty {
		return fmt.Errorf("schema: cannot set a leaf DataType on a %s node", s.tag)
	}
	if err := dt.Validate(); err != nil {
		return err
	}
	s.tag = dt.Tag
	s.dt = dt
	s.children = nil
	s.names = nil
	s.byName = nil
	return nil
}

// Parent returns the owning composite Schema, or nil for a root.
func (s *Schema) Parent() *Schema { return s.parent }

// IndexInParent returns this Schema's position in its parent's children,
// valid only when Parent() != nil.
func (s *Schema) IndexInParent() int { return s.indexInParent }

// NumberOfChildren returns len(children) for OBJECT/LIST, 0 otherwise.
func (s *Schema) NumberOfChildren() int { return len(s.children) }

// ChildNames returns the OBJECT's child names in insertion order. Returns
// nil for non-OBJECT schemas.
func (s *Schema) ChildNames() []string {
	if s.tag != layout.Object {
		return nil
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// ChildAt returns the i-th child of an OBJECT/LIST, or nil if out of range.
func (s *Schema) ChildAt(i int) *Schema {
	if i < 0 || i >= len(s.children) {
		return nil
	}
	return s.children[i]
}

// ChildByName returns the named OBJECT child, or nil if absent or s is not
// an OBJECT.
func (s *Schema) ChildByName(name string) *Schema {
	if s.tag != layout.Object {
		return nil
	}
	idx, ok := s.byName[name]
	if !ok {
		return nil
	}
	return s.children[idx]
}

func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// promoteToObject turns an EMPTY node into an OBJECT in place.
func (s *Schema) promoteToObject() error {
	if s.tag != layout.Empty {
		return fmt.Errorf("schema: cannot promote non-empty %s to object", s.tag)
	}
	s.tag = layout.Object
	s.byName = map[string]int{}
	return nil
}

// promoteToList turns an EMPTY node into a LIST in place.
func (s *Schema) promoteToList() error {
	if s.tag != layout.Empty {
		return fmt.Errorf("schema: cannot promote non-empty %s to list", s.tag)
	}
	s.tag = layout.List
	return nil
}

// AppendNamed attaches child to an OBJECT schema under name, which must be
// unique. Promotes an EMPTY receiver to OBJECT first.
func (s *Schema) AppendNamed(name string, child *Schema) error {
	if s.tag == layout.Empty {
		if err := s.promoteToObject(); err != nil {
			return err
		}
	}
	if s.tag != layout.Object {
		return fmt.Errorf("schema: cannot append named child to a %s node", s.tag)
	}
	if _, exists := s.byName[name]; exists {
		return fmt.Errorf("schema: duplicate child name %q", name)
	}
	child.parent = s
	child.indexInParent = len(s.children)
	s.names = append(s.names, name)
	s.byName[name] = len(s.children)
	s.children = append(s.children, child)
	return nil
}

// Append attaches a fresh EMPTY child to a LIST schema (promoting an
// EMPTY receiver to LIST first) and returns it.
func (s *Schema) Append() (*Schema, error) {
	if s.tag == layout.Empty {
		if err := s.promoteToList(); err != nil {
			return nil, err
		}
	}
	if s.tag != layout.List {
		return nil, fmt.Errorf("schema: append is only valid on a list, got %s", s.tag)
	}
	child := NewEmpty()
	child.parent = s
	child.indexInParent = len(s.children)
	s.children = append(s.children, child)
	return child, nil
}

// AppendChild attaches a pre-built child Schema to a LIST at the next
// positional index (promoting an EMPTY receiver to LIST first). Unlike
// Append, the child arrives fully formed — used by generator when a LIST
// element's shape is already known before it is attached.
func (s *Schema) AppendChild(child *Schema) error {
	if s.tag == layout.Empty {
		if err := s.promoteToList(); err != nil {
			return err
		}
	}
	if s.tag != layout.List {
		return fmt.Errorf("schema: cannot append positional child to a %s node", s.tag)
	}
	child.parent = s
	child.indexInParent = len(s.children)
	s.children = append(s.children, child)
	return nil
}

// Fetch descends the "/"-separated path, creating OBJECT children (and
// promoting an EMPTY node in its way to OBJECT) when create is true. A
// LEAF or LIST encountered mid-path is a structural conflict and errors
// when create is true. When create is false, a missing name or such a conflict simply
// yields a nil Schema with no error — "not found" is not a failure at
// this layer.
func (s *Schema) Fetch(path string, create bool) (*Schema, error) {
	cur := s
	for _, name := range splitPath(path) {
		if cur.tag == layout.Empty {
			if !create {
				return nil, nil
			}
			if err := cur.promoteToObject(); err != nil {
				return nil, err
			}
		}
		if cur.tag != layout.Object {
			if !create {
				return nil, nil
			}
			return nil, fmt.Errorf("schema: path component %q: %s is not an object", name, cur.tag)
		}
		idx, ok := cur.byName[name]
		if !ok {
			if !create {
				return nil, nil
			}
			child := NewEmpty()
			if err := cur.AppendNamed(name, child); err != nil {
				return nil, err
			}
			idx = cur.byName[name]
		}
		cur = cur.children[idx]
	}
	return cur, nil
}

// HasPath reports whether path resolves to an existing Schema.
func (s *Schema) HasPath(path string) bool {
	child, err := s.Fetch(path, false)
	return err == nil && child != nil
}

// Remove detaches the child named by path's final component from its
// OBJECT parent; later siblings shift down one index, keeping their
// insertion order. Returns an error if the path does not resolve to a
// direct child of an OBJECT.
func (s *Schema) Remove(path string) error {
	parts := splitPath(path)
	if len(parts) == 0 {
		return fmt.Errorf("schema: empty path")
	}
	parent := s
	if len(parts) > 1 {
		var err error
		parent, err = s.Fetch(strings.Join(parts[:len(parts)-1], "/"), false)
		if err != nil {
			return err
		}
		if parent == nil {
			return fmt.Errorf("schema: path %q not found", path)
		}
	}
	name := parts[len(parts)-1]
	if parent.tag != layout.Object {
		return fmt.Errorf("schema: %q is not an object", path)
	}
	idx, ok := parent.byName[name]
	if !ok {
		return fmt.Errorf("schema: no such child %q", name)
	}
	parent.removeAt(idx)
	return nil
}

// RemoveIndex removes the i-th child of a LIST, shifting subsequent
// indices down by one.
func (s *Schema) RemoveIndex(i int) error {
	if s.tag != layout.List {
		return fmt.Errorf("schema: index removal requires a list, got %s", s.tag)
	}
	if i < 0 || i >= len(s.children) {
		return fmt.Errorf("schema: index %d out of range", i)
	}
	s.children = append(s.children[:i], s.children[i+1:]...)
	for j := i; j < len(s.children); j++ {
		s.children[j].indexInParent = j
	}
	return nil
}

// removeAt removes the child at idx from an OBJECT, renumbering names/
// byName/indexInParent for the remaining children.
func (s *Schema) removeAt(idx int) {
	name := s.names[idx]
	delete(s.byName, name)
	s.names = append(s.names[:idx], s.names[idx+1:]...)
	s.children = append(s.children[:idx], s.children[idx+1:]...)
	for j := idx; j < len(s.children); j++ {
		s.children[j].indexInParent = j
		s.byName[s.names[j]] = j
	}
}

// TotalBytes is the strided footprint of the subtree: for a leaf, its
// DataType.TotalBytes(); for a composite, the maximal end position over
// its children. Leaf offsets are root-relative, so each child's
// TotalBytes() already locates its end within the shared buffer — summing
// them would count every offset twice.
func (s *Schema) TotalBytes() int64 {
	if s.tag.IsLeaf() {
		return s.dt.TotalBytes()
	}
	var total int64
	for _, c := range s.children {
		if end := c.TotalBytes(); end > total {
			total = end
		}
	}
	return total
}

// TotalBytesCompact is TotalBytes() assuming every descendant leaf is
// rewritten compact (stride == element_bytes, offset starting at 0 within
// its window).
func (s *Schema) TotalBytesCompact() int64 {
	if s.tag.IsLeaf() {
		return s.dt.ContentBytes()
	}
	var total int64
	for _, c := range s.children {
		total += c.TotalBytesCompact()
	}
	return total
}

// CompactTo produces a parallel Schema (attached as dst) with every leaf
// rewritten to offset=cursor, stride=element_bytes, advancing cursor by
// count*element_bytes; composite ordering is preserved exactly. dst must
// be a fresh *Schema (typically NewEmpty()); it is populated in place.
func (s *Schema) CompactTo(dst *Schema, cursor *int64) error {
	switch s.tag {
	case layout.Empty:
		return nil
	case layout.Object:
		if err := dst.promoteToObject(); err != nil && dst.tag != layout.Object {
			return err
		}
		for i, name := range s.names {
			childDst := NewEmpty()
			if err := s.children[i].CompactTo(childDst, cursor); err != nil {
				return err
			}
			if err := dst.AppendNamed(name, childDst); err != nil {
				return err
			}
		}
		return nil
	case layout.List:
		if err := dst.promoteToList(); err != nil && dst.tag != layout.List {
			return err
		}
		for _, c := range s.children {
			childDst := NewEmpty()
			if err := c.CompactTo(childDst, cursor); err != nil {
				return err
			}
			childDst.parent = dst
			childDst.indexInParent = len(dst.children)
			dst.children = append(dst.children, childDst)
		}
		return nil
	default: // leaf
		compact := s.dt.Compact().WithOffset(*cursor)
		if err := dst.SetDataType(compact); err != nil {
			return err
		}
		*cursor += compact.ContentBytes()
		return nil
	}
}

// Clone deep-copies the subtree rooted at s, detached from any parent.
func (s *Schema) Clone() *Schema {
	switch s.tag {
	case layout.Empty:
		return NewEmpty()
	case layout.Object:
		clone := NewObject()
		for i, name := range s.names {
			_ = clone.AppendNamed(name, s.children[i].Clone())
		}
		return clone
	case layout.List:
		clone := NewList()
		for _, c := range s.children {
			cc := c.Clone()
			cc.parent = clone
			cc.indexInParent = len(clone.children)
			clone.children = append(clone.children, cc)
		}
		return clone
	default:
		clone, _ := NewLeaf(s.dt)
		return clone
	}
}
