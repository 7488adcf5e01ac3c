// Package conduit implements a hierarchical, schema-described, in-memory
// data tree with bit-exact layout control: Node is the tree entity,
// DataArray is a typed strided view over a leaf's bytes, and the
// coercion/error/options helpers round out the leaf value model.
package conduit

import (
	"fmt"

	"github.com/ghackebeil/conduit/layout"
	"github.com/ghackebeil/conduit/schema"
)

// MmapRegion is the contract a mmap collaborator (see the mmap package)
// must satisfy for Node to bind a leaf's storage to a mapped file. Kept
// as an interface here so this package never imports the
// platform-specific mmap package.
type MmapRegion interface {
	Bytes() []byte
	Sync() error
	Close() error
}

type storageKind uint8

const (
	storageNone storageKind = iota
	storageOwned
	storageBorrowed
	storageMmapped
)

// Node is the tree entity: a Schema reference, an optional data region,
// a parent back-reference, and, for composites, ordered children. Only
// leaves actually hold bytes; composite Nodes address their content
// indirectly through their leaf descendants. Nodes built together by one
// Generator/set-external/compact call share one buffer, while Nodes
// grown incrementally via Fetch/Set each own a tightly-sized buffer of
// their own — Compact/Serialize still unify a whole tree into one
// (see DESIGN.md).
type Node struct {
	sch *schema.Schema

	buf         []byte // leaf-only: the bytes sch's DataType indexes into
	storageKind storageKind
	region      MmapRegion // set only when storageKind == storageMmapped

	parent        *Node
	indexInParent int
	children      []*Node // OBJECT/LIST only, parallel to sch's children

	opts      Options
	saturated bool // guards Options.OnSaturate firing more than once for this leaf
}

// empty is the process-wide read-only sentinel returned by every failing
// lookup. All mutating calls against it are no-ops that return itself.
var empty = &Node{sch: schema.NewEmpty()}

// Empty returns the shared EMPTY sentinel Node.
func Empty() *Node { return empty }

// IsEmpty reports whether n is the EMPTY sentinel (by tag, not identity —
// a freshly constructed, not-yet-set Node is also EMPTY).
func (n *Node) IsEmpty() bool { return n.sch.Tag() == layout.Empty }

func (n *Node) isSentinel() bool { return n == empty }

// New returns a fresh, mutable EMPTY Node using opts (DefaultOptions() if
// none given).
func New(opts ...Options) *Node {
	o := DefaultOptions()
	if len(opts) > 0 {
		o = opts[0]
	}
	return &Node{sch: schema.NewEmpty(), opts: o}
}

// Tag reports the Node's kind.
func (n *Node) Tag() layout.TypeTag { return n.sch.Tag() }

// Schema returns the Node's Schema, owned or borrowed. Conduit does not
// expose a separate ownership flag: every Schema reachable from a Node
// is safe to read, and mutating it is only ever done through Node's own
// methods.
func (n *Node) Schema() *schema.Schema { return n.sch }

// Parent returns the owning Node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// IndexInParent returns this Node's position among its parent's children.
func (n *Node) IndexInParent() int { return n.indexInParent }

// NumberOfChildren returns the number of children for OBJECT/LIST, 0
// otherwise.
func (n *Node) NumberOfChildren() int { return len(n.children) }

// TotalBytes is the strided footprint of the subtree.
func (n *Node) TotalBytes() int64 { return n.sch.TotalBytes() }

// TotalBytesCompact is the footprint after compaction.
func (n *Node) TotalBytesCompact() int64 { return n.sch.TotalBytesCompact() }

// IsDataExternal reports whether this leaf's storage is borrowed.
func (n *Node) IsDataExternal() bool { return n.storageKind == storageBorrowed }

// IsMmapped reports whether this leaf's storage backs a memory-mapped
// file.
func (n *Node) IsMmapped() bool { return n.storageKind == storageMmapped }

// Reset releases all owned/mmapped resources and returns n to EMPTY. A
// no-op on the sentinel.
func (n *Node) Reset() {
	if n.isSentinel() {
		return
	}
	n.releaseStorage()
	n.sch = schema.NewEmpty()
	n.children = nil
	n.saturated = false
}

func (n *Node) releaseStorage() {
	if n.storageKind == storageMmapped && n.region != nil {
		_ = n.region.Close()
	}
	n.buf = nil
	n.region = nil
	n.storageKind = storageNone
	for _, c := range n.children {
		c.releaseStorage()
	}
}

func (n *Node) newChild() *Node {
	return &Node{sch: schema.NewEmpty(), opts: n.opts}
}

// path error/helpers ---------------------------------------------------

func pathErrf(path, format string, args ...any) error {
	return NewErrorf(PathError, path, format, args...)
}

// splitPath mirrors schema's path splitting (leading/trailing '/' and
// empty components are ignored).
func splitPath(path string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				out = append(out, path[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// Fetch descends path, creating OBJECT nodes as needed (promoting an
// EMPTY node in its way to OBJECT). A LEAF/LIST encountered mid-path is
// a PathError. Calling Fetch on the sentinel is a no-op returning the
// sentinel.
func (n *Node) Fetch(path string) (*Node, error) {
	if n.isSentinel() {
		return empty, nil
	}
	cur := n
	for _, name := range splitPath(path) {
		// An EMPTY node is promoted to OBJECT by AppendNamed below, which
		// rewrites its Schema in place so a parent's schema tree sees it.
		if cur.Tag() != layout.Object && cur.Tag() != layout.Empty {
			return nil, pathErrf(path, "%q is not an object", name)
		}
		idx := -1
		for i, cn := range cur.sch.ChildNames() {
			if cn == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			childSch := schema.NewEmpty()
			if err := cur.sch.AppendNamed(name, childSch); err != nil {
				return nil, NewError(SchemaError, path, err.Error())
			}
			child := cur.newChild()
			child.sch = childSch
			child.parent = cur
			child.indexInParent = len(cur.children)
			cur.children = append(cur.children, child)
			cur = child
		} else {
			cur = cur.children[idx]
		}
	}
	return cur, nil
}

func (n *Node) promoteToObject() error {
	if n.Tag() != layout.Empty {
		return NewErrorf(PathError, "", "cannot promote non-empty %s to object", n.Tag())
	}
	sch := schema.NewObject()
	n.sch = sch
	n.children = nil
	return nil
}

func (n *Node) promoteToList() error {
	if n.Tag() != layout.Empty {
		return NewErrorf(PathError, "", "cannot promote non-empty %s to list", n.Tag())
	}
	n.sch = schema.NewList()
	n.children = nil
	return nil
}

// Child returns the i-th child of an OBJECT/LIST, creating a fresh EMPTY
// LIST element if n is EMPTY or a LIST with i == NumberOfChildren()
// (mirroring Fetch's auto-vivification for OBJECTs). Out-of-range
// indexing otherwise is a PathError.
func (n *Node) Child(i int) (*Node, error) {
	if n.isSentinel() {
		return empty, nil
	}
	if n.Tag() == layout.Empty && i == 0 {
		if err := n.promoteToList(); err != nil {
			return nil, err
		}
	}
	if n.Tag() != layout.List && n.Tag() != layout.Object {
		return nil, NewErrorf(PathError, "", "index %d: %s is not a composite", i, n.Tag())
	}
	if i == len(n.children) {
		return n.Append()
	}
	if i < 0 || i >= len(n.children) {
		return nil, NewErrorf(PathError, "", "index %d out of range (len %d)", i, len(n.children))
	}
	return n.children[i], nil
}

// Append attaches a fresh EMPTY child to a LIST (promoting an EMPTY
// receiver to LIST first) and returns it. Fails if the current tag is a
// non-LIST, non-EMPTY tag.
func (n *Node) Append() (*Node, error) {
	if n.isSentinel() {
		return empty, nil
	}
	if n.Tag() == layout.Empty {
		if err := n.promoteToList(); err != nil {
			return nil, err
		}
	}
	if n.Tag() != layout.List {
		return nil, NewErrorf(PathError, "", "append requires a list, got %s", n.Tag())
	}
	childSch, err := n.sch.Append()
	if err != nil {
		return nil, NewError(SchemaError, "", err.Error())
	}
	child := n.newChild()
	child.sch = childSch
	child.parent = n
	child.indexInParent = len(n.children)
	n.children = append(n.children, child)
	return child, nil
}

// Get is the non-mutating counterpart of Fetch: an absent path or a
// type mismatch yields the EMPTY sentinel, never an error and never an
// allocation.
func (n *Node) Get(path string) *Node {
	if n == nil || n.isSentinel() {
		return empty
	}
	cur := n
	for _, name := range splitPath(path) {
		if cur.Tag() != layout.Object {
			return empty
		}
		child := cur.childByName(name)
		if child == nil {
			return empty
		}
		cur = child
	}
	return cur
}

func (n *Node) childByName(name string) *Node {
	for i, cn := range n.sch.ChildNames() {
		if cn == name {
			return n.children[i]
		}
	}
	return nil
}

// GetIndex is Get's LIST/OBJECT positional counterpart: out-of-range
// indexing yields the EMPTY sentinel.
func (n *Node) GetIndex(i int) *Node {
	if n == nil || n.isSentinel() {
		return empty
	}
	if i < 0 || i >= len(n.children) {
		return empty
	}
	return n.children[i]
}

// HasPath reports whether path resolves to an existing child.
func (n *Node) HasPath(path string) bool { return !n.Get(path).IsEmpty() || n.pathExists(path) }

// pathExists distinguishes "resolves to an EMPTY node that really is
// there" from "does not resolve at all" — Get collapses both to the
// sentinel, but HasPath needs the distinction.
func (n *Node) pathExists(path string) bool {
	cur := n
	for _, name := range splitPath(path) {
		if cur.Tag() != layout.Object {
			return false
		}
		child := cur.childByName(name)
		if child == nil {
			return false
		}
		cur = child
	}
	return true
}

// Paths enumerates OBJECT/LIST member paths. expand=false lists only the
// immediate children (as path components); expand=true recursively
// enumerates fully-qualified paths to every leaf.
func (n *Node) Paths(expand bool) []string {
	var out []string
	n.collectPaths("", expand, &out)
	return out
}

func (n *Node) collectPaths(prefix string, expand bool, out *[]string) {
	switch n.Tag() {
	case layout.Object:
		for i, name := range n.sch.ChildNames() {
			p := name
			if prefix != "" {
				p = prefix + "/" + name
			}
			child := n.children[i]
			if expand && child.Tag().IsComposite() {
				child.collectPaths(p, expand, out)
			} else {
				*out = append(*out, p)
			}
		}
	case layout.List:
		for i, child := range n.children {
			p := fmt.Sprintf("%s[%d]", prefix, i)
			if expand && child.Tag().IsComposite() {
				child.collectPaths(p, expand, out)
			} else {
				*out = append(*out, p)
			}
		}
	}
}

// RemovePath removes and drops the named OBJECT child.
func (n *Node) RemovePath(path string) error {
	if n.isSentinel() {
		return nil
	}
	parts := splitPath(path)
	if len(parts) == 0 {
		return pathErrf(path, "empty path")
	}
	parent := n
	for _, name := range parts[:len(parts)-1] {
		parent = parent.childByName(name)
		if parent == nil {
			return pathErrf(path, "no such child")
		}
	}
	last := parts[len(parts)-1]
	removedIdx := -1
	for i, cn := range parent.sch.ChildNames() {
		if cn == last {
			removedIdx = i
			break
		}
	}
	if removedIdx < 0 {
		return pathErrf(path, "no such child")
	}
	if err := parent.sch.Remove(last); err != nil {
		return NewError(PathError, path, err.Error())
	}
	parent.children = append(parent.children[:removedIdx], parent.children[removedIdx+1:]...)
	for j := removedIdx; j < len(parent.children); j++ {
		parent.children[j].indexInParent = j
	}
	return nil
}

// RemoveIndex removes the i-th child of a LIST, shifting subsequent
// indices down by one.
func (n *Node) RemoveIndex(i int) error {
	if n.isSentinel() {
		return nil
	}
	if err := n.sch.RemoveIndex(i); err != nil {
		return NewError(PathError, "", err.Error())
	}
	n.children = append(n.children[:i], n.children[i+1:]...)
	for j := i; j < len(n.children); j++ {
		n.children[j].indexInParent = j
	}
	return nil
}

// Remove detaches the named child from this OBJECT/LIST and returns it as
// an independent root: if the detached subtree relies on an ancestor's
// shared buffer it is compacted first, so it no longer aliases memory it
// does not own.
func (n *Node) Remove(path string) (*Node, error) {
	child := n.Get(path)
	if child.IsEmpty() && !n.pathExists(path) {
		return nil, pathErrf(path, "no such child")
	}
	if err := child.Compact(); err != nil {
		return nil, err
	}
	if err := n.RemovePath(path); err != nil {
		return nil, err
	}
	child.parent = nil
	child.indexInParent = 0
	return child, nil
}
