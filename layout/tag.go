// Package layout describes the byte-level shape of a Conduit leaf: its
// scalar kind, element width, stride, offset and endianness. It holds no
// bytes itself — DataType is a pure value, the arithmetic on top of it is
// what the rest of the tree relies on.
package layout

import "fmt"

// TypeTag is the closed set of kinds a Schema/Node can carry.
type TypeTag uint8

const (
	Empty TypeTag = iota
	Object
	List
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	Char8Str
)

func (t TypeTag) String() string {
	switch t {
	case Empty:
		return "empty"
	case Object:
		return "object"
	case List:
		return "list"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Char8Str:
		return "char8_str"
	default:
		return fmt.Sprintf("TypeTag(%d)", uint8(t))
	}
}

// IsLeaf reports whether t describes a scalar/array leaf (as opposed to a
// composite or the empty sentinel).
func (t TypeTag) IsLeaf() bool {
	switch t {
	case Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64, Float32, Float64, Char8Str:
		return true
	default:
		return false
	}
}

// IsComposite reports whether t is OBJECT or LIST.
func (t TypeTag) IsComposite() bool {
	return t == Object || t == List
}

// NaturalWidth returns the tag's default element width in bytes, or 0 for
// composite/empty tags (width is meaningless for those).
func (t TypeTag) NaturalWidth() int {
	switch t {
	case Int8, Uint8, Char8Str:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// ParseTypeTag maps the dtype names accepted by the JSON schema grammar
// to a TypeTag. "object" and "list" are accepted too, since the
// generic walker occasionally needs to round-trip a tag name string.
func ParseTypeTag(name string) (TypeTag, bool) {
	switch name {
	case "int8":
		return Int8, true
	case "int16":
		return Int16, true
	case "int32":
		return Int32, true
	case "int64":
		return Int64, true
	case "uint8":
		return Uint8, true
	case "uint16":
		return Uint16, true
	case "uint32":
		return Uint32, true
	case "uint64":
		return Uint64, true
	case "float32":
		return Float32, true
	case "float64":
		return Float64, true
	case "char8_str":
		return Char8Str, true
	case "object":
		return Object, true
	case "list":
		return List, true
	default:
		return Empty, false
	}
}
