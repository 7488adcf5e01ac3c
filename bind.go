package conduit

import (
	"github.com/ghackebeil/conduit/layout"
	"github.com/ghackebeil/conduit/schema"
)

// BindTree constructs a Node tree mirroring sch, with every leaf Node
// sharing buf as its backing storage (child leaves
// of an OBJECT/LIST share one base pointer with their root). external
// selects whether leaves are marked as borrowed (caller-owned memory) or
// owned (the buffer belongs to the returned tree). Used by the generator
// package once it has built a Schema and, for allocated mode, populated
// buf with inline values.
func BindTree(sch *schema.Schema, buf []byte, external bool, opts Options) *Node {
	n := &Node{sch: sch, opts: opts}
	switch sch.Tag() {
	case layout.Object, layout.List:
		n.children = make([]*Node, sch.NumberOfChildren())
		for i := 0; i < sch.NumberOfChildren(); i++ {
			child := BindTree(sch.ChildAt(i), buf, external, opts)
			child.parent = n
			child.indexInParent = i
			n.children[i] = child
		}
	case layout.Empty:
		// no storage
	default:
		n.buf = buf
		if external {
			n.storageKind = storageBorrowed
		} else {
			n.storageKind = storageOwned
		}
	}
	return n
}
