package conduit

import (
	"log"

	"github.com/ghackebeil/conduit/layout"
)

// Options tunes Generator/Node construction: endianness defaults and the
// policy applied when a leaf coercion overflows its destination type
// (saturation with a once-per-leaf warning hook, by default).
type Options struct {
	// DefaultEndianness is applied to leaves whose schema does not specify
	// one explicitly. The zero value (EndianDefault) means "machine
	// default".
	DefaultEndianness layout.Endianness

	// Saturate selects the overflow policy for to_<tag>()/to_<tag>_array():
	// true clamps to the destination range, false wraps (two's-complement
	// truncation for int->int, platform truncation for float->int).
	Saturate bool

	// OnSaturate, if non-nil, is invoked the first time a given leaf
	// saturates during coercion. The default logs a single warning line.
	OnSaturate func(path string, tag layout.TypeTag)

	// UnsafeStrings, when true, makes AsCharString alias the leaf's
	// backing bytes instead of copying them. The caller must not mutate
	// or free the leaf's storage while the returned string is in use.
	UnsafeStrings bool
}

// DefaultOptions returns the Options Conduit uses when none are supplied:
// machine endianness, saturating coercion, logging via stdlib log.
func DefaultOptions() Options {
	return Options{
		DefaultEndianness: layout.EndianDefault,
		Saturate:          true,
		OnSaturate: func(path string, tag layout.TypeTag) {
			log.Printf("conduit: leaf %q saturated converting to %s", path, tag)
		},
	}
}
