package conduit

// Named convenience wrappers over the generic SetScalar/ToScalar pair, one
// per scalar tag. The generic functions are the real implementation; these
// exist so call sites read the way the rest of the API does
// (n.SetFloat64(3.14) instead of conduit.SetScalar[float64](n, 3.14)).

func (n *Node) SetInt8(v int8) error       { return SetScalar(n, v) }
func (n *Node) SetInt16(v int16) error     { return SetScalar(n, v) }
func (n *Node) SetInt32(v int32) error     { return SetScalar(n, v) }
func (n *Node) SetInt64(v int64) error     { return SetScalar(n, v) }
func (n *Node) SetUint8(v uint8) error     { return SetScalar(n, v) }
func (n *Node) SetUint16(v uint16) error   { return SetScalar(n, v) }
func (n *Node) SetUint32(v uint32) error   { return SetScalar(n, v) }
func (n *Node) SetUint64(v uint64) error   { return SetScalar(n, v) }
func (n *Node) SetFloat32(v float32) error { return SetScalar(n, v) }
func (n *Node) SetFloat64(v float64) error { return SetScalar(n, v) }

func (n *Node) ToInt8() (int8, error)       { return ToScalar[int8](n) }
func (n *Node) ToInt16() (int16, error)     { return ToScalar[int16](n) }
func (n *Node) ToInt32() (int32, error)     { return ToScalar[int32](n) }
func (n *Node) ToInt64() (int64, error)     { return ToScalar[int64](n) }
func (n *Node) ToUint8() (uint8, error)     { return ToScalar[uint8](n) }
func (n *Node) ToUint16() (uint16, error)   { return ToScalar[uint16](n) }
func (n *Node) ToUint32() (uint32, error)   { return ToScalar[uint32](n) }
func (n *Node) ToUint64() (uint64, error)   { return ToScalar[uint64](n) }
func (n *Node) ToFloat32() (float32, error) { return ToScalar[float32](n) }
func (n *Node) ToFloat64() (float64, error) { return ToScalar[float64](n) }
