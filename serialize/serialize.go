// Package serialize implements Conduit's Serializer: the
// binary writer/reader pair and the three JSON emission protocols
// (pure, detailed, base64) symmetric to the generator package's intake
// protocols.
package serialize

import (
	"encoding/base64"
	"strconv"
	"strings"

	conduit "github.com/ghackebeil/conduit"
	"github.com/ghackebeil/conduit/generator"
	"github.com/ghackebeil/conduit/layout"
)

// EmitOptions controls JSON pretty-printing: Indent is
// repeated once per depth, Pad separates ':' from its value, EOE
// separates sibling entries.
type EmitOptions struct {
	Indent string
	Pad    string
	EOE    string
}

// DefaultEmitOptions returns two-space indentation, a single space after
// colons, and a comma+newline between entries.
func DefaultEmitOptions() EmitOptions {
	return EmitOptions{Indent: "  ", Pad: " ", EOE: ",\n"}
}

// Deserialize binds data as the external backing buffer for a Schema
// parsed from schemaJSON under the conduit protocol — the designated
// reader for Serialize's output.
func Deserialize(schemaJSON []byte, data []byte, opts conduit.Options) (*conduit.Node, error) {
	return generator.GenerateExternal(schemaJSON, data, opts)
}

// ToJSON emits n under protocol ("json" | "conduit" | "base64_json"),
// the inverse of generator.Generate.
func ToJSON(n *conduit.Node, protocol generator.Protocol, opts EmitOptions) (string, error) {
	var sb strings.Builder
	switch protocol {
	case generator.ProtocolJSON:
		if err := emitPure(n, 0, opts, &sb); err != nil {
			return "", err
		}
	case generator.ProtocolConduit:
		if err := emitDetailed(n, 0, opts, &sb, true); err != nil {
			return "", err
		}
	case generator.ProtocolBase64JSON:
		// The data half is compact, so the schema half describes n's
		// compacted layout.
		compacted, err := n.CompactTo()
		if err != nil {
			return "", err
		}
		var schemaSB strings.Builder
		if err := emitDetailed(compacted, 1, opts, &schemaSB, false); err != nil {
			return "", err
		}
		raw, err := n.Serialize()
		if err != nil {
			return "", err
		}
		sb.WriteString("{\n")
		sb.WriteString(opts.Indent)
		sb.WriteString(`"schema":`)
		sb.WriteString(opts.Pad)
		sb.WriteString(schemaSB.String())
		sb.WriteString(opts.EOE)
		sb.WriteString(opts.Indent)
		sb.WriteString(`"data":`)
		sb.WriteString(opts.Pad)
		sb.WriteString(quoteJSON(base64.StdEncoding.EncodeToString(raw)))
		sb.WriteString("\n}")
	default:
		return "", conduit.NewErrorf(conduit.SchemaError, "", "unknown protocol %q", protocol)
	}
	return sb.String(), nil
}

func indent(depth int, opts EmitOptions) string {
	return strings.Repeat(opts.Indent, depth)
}

// emitPure writes plain, metadata-free JSON: inline values only.
func emitPure(n *conduit.Node, depth int, opts EmitOptions, sb *strings.Builder) error {
	switch n.Tag() {
	case layout.Empty:
		sb.WriteString("null")
		return nil
	case layout.Object:
		names := n.Schema().ChildNames()
		if len(names) == 0 {
			sb.WriteString("{}")
			return nil
		}
		sb.WriteString("{\n")
		for i, name := range names {
			sb.WriteString(indent(depth+1, opts))
			sb.WriteString(quoteJSON(name))
			sb.WriteString(":")
			sb.WriteString(opts.Pad)
			if err := emitPure(n.GetIndex(i), depth+1, opts, sb); err != nil {
				return err
			}
			if i < len(names)-1 {
				sb.WriteString(opts.EOE)
			} else {
				sb.WriteString("\n")
			}
		}
		sb.WriteString(indent(depth, opts))
		sb.WriteString("}")
		return nil
	case layout.List:
		n0 := n.NumberOfChildren()
		if n0 == 0 {
			sb.WriteString("[]")
			return nil
		}
		sb.WriteString("[\n")
		for i := 0; i < n0; i++ {
			sb.WriteString(indent(depth+1, opts))
			if err := emitPure(n.GetIndex(i), depth+1, opts, sb); err != nil {
				return err
			}
			if i < n0-1 {
				sb.WriteString(opts.EOE)
			} else {
				sb.WriteString("\n")
			}
		}
		sb.WriteString(indent(depth, opts))
		sb.WriteString("]")
		return nil
	case layout.Char8Str:
		s, err := n.AsCharString()
		if err != nil {
			return err
		}
		sb.WriteString(quoteJSON(s))
		return nil
	default:
		return emitLeafValue(n, sb)
	}
}

// emitLeafValue writes a numeric leaf's value (or array of values) as
// plain JSON.
func emitLeafValue(n *conduit.Node, sb *strings.Builder) error {
	dt := n.Schema().DataType()
	vals, err := conduit.ToScalarArray[float64](n)
	if err != nil {
		return err
	}
	if dt.Count == 1 {
		sb.WriteString(strconv.FormatFloat(vals[0], 'g', -1, 64))
		return nil
	}
	sb.WriteString("[")
	for i, v := range vals {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	sb.WriteString("]")
	return nil
}

// emitDetailed writes every leaf as a dtype-tagged object (the
// detailed/conduit protocol), suitable for round-trip via
// generator.Generate(..., generator.ProtocolConduit, ...). When
// includeValues is false, leaves omit their "value" field (used for the
// base64 protocol's schema half).
func emitDetailed(n *conduit.Node, depth int, opts EmitOptions, sb *strings.Builder, includeValues bool) error {
	switch n.Tag() {
	case layout.Empty:
		sb.WriteString("null")
		return nil
	case layout.Object:
		names := n.Schema().ChildNames()
		if len(names) == 0 {
			sb.WriteString("{}")
			return nil
		}
		sb.WriteString("{\n")
		for i, name := range names {
			sb.WriteString(indent(depth+1, opts))
			sb.WriteString(quoteJSON(name))
			sb.WriteString(":")
			sb.WriteString(opts.Pad)
			if err := emitDetailed(n.GetIndex(i), depth+1, opts, sb, includeValues); err != nil {
				return err
			}
			if i < len(names)-1 {
				sb.WriteString(opts.EOE)
			} else {
				sb.WriteString("\n")
			}
		}
		sb.WriteString(indent(depth, opts))
		sb.WriteString("}")
		return nil
	case layout.List:
		n0 := n.NumberOfChildren()
		if n0 == 0 {
			sb.WriteString("[]")
			return nil
		}
		sb.WriteString("[\n")
		for i := 0; i < n0; i++ {
			sb.WriteString(indent(depth+1, opts))
			if err := emitDetailed(n.GetIndex(i), depth+1, opts, sb, includeValues); err != nil {
				return err
			}
			if i < n0-1 {
				sb.WriteString(opts.EOE)
			} else {
				sb.WriteString("\n")
			}
		}
		sb.WriteString(indent(depth, opts))
		sb.WriteString("]")
		return nil
	default:
		return emitLeafDetailed(n, depth, opts, sb, includeValues)
	}
}

func emitLeafDetailed(n *conduit.Node, depth int, opts EmitOptions, sb *strings.Builder, includeValues bool) error {
	dt := n.Schema().DataType()
	sb.WriteString("{\n")
	field := func(name, val string, last bool) {
		sb.WriteString(indent(depth+1, opts))
		sb.WriteString(quoteJSON(name))
		sb.WriteString(":")
		sb.WriteString(opts.Pad)
		sb.WriteString(val)
		if !last {
			sb.WriteString(opts.EOE)
		} else {
			sb.WriteString("\n")
		}
	}
	field("dtype", quoteJSON(dt.Tag.String()), false)
	field("length", strconv.FormatInt(dt.Count, 10), false)
	field("offset", strconv.FormatInt(dt.Offset, 10), false)
	field("stride", strconv.FormatInt(dt.Stride, 10), false)
	field("element_bytes", strconv.FormatInt(dt.ElementBytes, 10), false)
	field("endianness", quoteJSON(dt.Endianness.String()), !includeValues)
	if includeValues {
		var valBuf strings.Builder
		if dt.Tag == layout.Char8Str {
			s, err := n.AsCharString()
			if err != nil {
				return err
			}
			valBuf.WriteString(quoteJSON(s))
		} else if err := emitLeafValue(n, &valBuf); err != nil {
			return err
		}
		field("value", valBuf.String(), true)
	}
	sb.WriteString(indent(depth, opts))
	sb.WriteString("}")
	return nil
}

func quoteJSON(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
