package conduit

import (
	"math"

	"github.com/ghackebeil/conduit/layout"
)

// staged holds a leaf element widened losslessly into one of the three
// numeric families, so that coercion between any two scalar tags never
// round-trips through a narrower intermediate than either endpoint needs.
// The coercion matrix is enumerated explicitly rather
// than relying on Go's implicit numeric conversions.
type staged struct {
	kind stagedKind
	i    int64
	u    uint64
	f    float64
}

type stagedKind int

const (
	stagedSigned stagedKind = iota
	stagedUnsigned
	stagedFloat
)

func stageFromBytes(tag layout.TypeTag, v any) staged {
	switch tag {
	case layout.Int8:
		return staged{kind: stagedSigned, i: int64(v.(int8))}
	case layout.Int16:
		return staged{kind: stagedSigned, i: int64(v.(int16))}
	case layout.Int32:
		return staged{kind: stagedSigned, i: int64(v.(int32))}
	case layout.Int64:
		return staged{kind: stagedSigned, i: v.(int64)}
	case layout.Uint8:
		return staged{kind: stagedUnsigned, u: uint64(v.(uint8))}
	case layout.Uint16:
		return staged{kind: stagedUnsigned, u: uint64(v.(uint16))}
	case layout.Uint32:
		return staged{kind: stagedUnsigned, u: uint64(v.(uint32))}
	case layout.Uint64:
		return staged{kind: stagedUnsigned, u: v.(uint64)}
	case layout.Float32:
		return staged{kind: stagedFloat, f: float64(v.(float32))}
	case layout.Float64:
		return staged{kind: stagedFloat, f: v.(float64)}
	default:
		return staged{}
	}
}

// signedRange gives the representable [lo,hi] of an integer destination
// tag, for saturating/overflow-detecting coercion.
func signedRange(tag layout.TypeTag) (float64, float64) {
	switch tag {
	case layout.Int8:
		return math.MinInt8, math.MaxInt8
	case layout.Int16:
		return math.MinInt16, math.MaxInt16
	case layout.Int32:
		return math.MinInt32, math.MaxInt32
	default: // Int64
		return math.MinInt64, math.MaxInt64
	}
}

func unsignedMax(tag layout.TypeTag) float64 {
	switch tag {
	case layout.Uint8:
		return math.MaxUint8
	case layout.Uint16:
		return math.MaxUint16
	case layout.Uint32:
		return math.MaxUint32
	default: // Uint64
		return math.MaxUint64
	}
}

// coerceStaged converts a widened element to dstTag:
// integer->integer truncates two's-complement (or saturates),
// integer->float widens/converts, float->integer truncates toward zero
// (or saturates), float->float uses the platform conversion. saturated
// reports whether the mathematical value fell outside dstTag's range —
// in wrap mode the returned value still wraps, but saturated is reported
// so callers can decide whether that's worth a warning.
func coerceStaged(s staged, dstTag layout.TypeTag, saturate bool) (value any, saturated bool) {
	switch dstTag {
	case layout.Int8, layout.Int16, layout.Int32, layout.Int64:
		lo, hi := signedRange(dstTag)
		exact, clampedI64 := widenToInt64(s)
		over := exact < lo || exact > hi
		v := clampedI64
		if over && saturate {
			if exact < lo {
				v = int64(lo)
			} else {
				v = int64(hi)
			}
		}
		return truncateSigned(v, dstTag), over

	case layout.Uint8, layout.Uint16, layout.Uint32, layout.Uint64:
		max := unsignedMax(dstTag)
		exact, clampedU64 := widenToUint64(s)
		over := exact < 0 || exact > max
		v := clampedU64
		if over && saturate {
			if exact < 0 {
				v = 0
			} else {
				v = uint64(max)
			}
		}
		return truncateUnsigned(v, dstTag), over

	case layout.Float32:
		return float32(toFloat64(s)), false

	case layout.Float64:
		return toFloat64(s), false

	default:
		return nil, false
	}
}

func toFloat64(s staged) float64 {
	switch s.kind {
	case stagedSigned:
		return float64(s.i)
	case stagedUnsigned:
		return float64(s.u)
	default:
		return s.f
	}
}

// widenToInt64 returns (exactMathematicalValue, wrappedInt64) — exact is a
// float64 used only for range comparisons (safe even when the true value
// exceeds int64, since we only ever compare it against narrower bounds);
// wrapped is a defined int64 built via truncation, used as the basis for
// non-saturating (wrap) results.
func widenToInt64(s staged) (exact float64, wrapped int64) {
	switch s.kind {
	case stagedSigned:
		return float64(s.i), s.i
	case stagedUnsigned:
		return float64(s.u), int64(s.u) // wraps per Go's defined uint64->int64 conversion
	default:
		f := math.Trunc(s.f)
		switch {
		case f >= math.MaxInt64:
			return f, math.MaxInt64
		case f <= math.MinInt64:
			return f, math.MinInt64
		default:
			return f, int64(f)
		}
	}
}

func widenToUint64(s staged) (exact float64, wrapped uint64) {
	switch s.kind {
	case stagedUnsigned:
		return float64(s.u), s.u
	case stagedSigned:
		return float64(s.i), uint64(s.i) // wraps per Go's defined int64->uint64 conversion
	default:
		f := math.Trunc(s.f)
		switch {
		case f >= math.MaxUint64:
			return f, math.MaxUint64
		case f <= 0:
			return f, 0
		default:
			return f, uint64(f)
		}
	}
}

func truncateSigned(v int64, tag layout.TypeTag) any {
	switch tag {
	case layout.Int8:
		return int8(v)
	case layout.Int16:
		return int16(v)
	case layout.Int32:
		return int32(v)
	default:
		return v
	}
}

func truncateUnsigned(v uint64, tag layout.TypeTag) any {
	switch tag {
	case layout.Uint8:
		return uint8(v)
	case layout.Uint16:
		return uint16(v)
	case layout.Uint32:
		return uint32(v)
	default:
		return v
	}
}
