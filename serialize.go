package conduit

import (
	"github.com/ghackebeil/conduit/layout"
)

// Serialize writes the depth-first, Schema-order concatenation of every
// leaf's content bytes: exactly TotalBytesCompact()
// bytes, no framing, no length prefix, endianness preserved verbatim.
// Unlike Compact(), this never rewrites n — it reads strided/padded
// leaves in place.
func (n *Node) Serialize() ([]byte, error) {
	return n.appendSerialized(nil)
}

func (n *Node) appendSerialized(dst []byte) ([]byte, error) {
	switch n.Tag() {
	case layout.Object, layout.List:
		for _, c := range n.children {
			var err error
			dst, err = c.appendSerialized(dst)
			if err != nil {
				return nil, err
			}
		}
		return dst, nil
	case layout.Empty:
		return dst, nil
	default:
		dt := n.sch.DataType()
		for i := int64(0); i < dt.Count; i++ {
			off := dt.ElementIndex(i)
			if off+dt.ElementBytes > int64(len(n.buf)) {
				return nil, NewError(LayoutError, n.pathHint(), "leaf content out of bounds during serialize")
			}
			dst = append(dst, n.buf[off:off+dt.ElementBytes]...)
		}
		return dst, nil
	}
}
