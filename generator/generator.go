// Package generator implements Conduit's schema parser: it consumes a
// JSON schema under one of three protocols and produces either an
// allocated Node tree or a Node tree bound to caller-supplied bytes.
package generator

import (
	"encoding/base64"

	conduit "github.com/ghackebeil/conduit"
	"github.com/ghackebeil/conduit/layout"
	"github.com/ghackebeil/conduit/schema"
)

// Protocol selects the JSON schema grammar a Generate call parses
// against.
type Protocol string

const (
	ProtocolJSON       Protocol = "json"
	ProtocolConduit    Protocol = "conduit"
	ProtocolBase64JSON Protocol = "base64_json"
)

// leafRecord pairs a just-built leaf Schema with the raw JSON value (if
// any) that should populate it, so a single schema-building pass can
// defer writing bytes until the backing buffer exists.
type leafRecord struct {
	sch   *schema.Schema
	value jsonValue
	has   bool
}

// Generate parses data under protocol and returns a freshly allocated
// Node tree (allocated mode).
func Generate(data []byte, protocol Protocol, opts conduit.Options) (*conduit.Node, error) {
	root, err := parseOrdered(data)
	if err != nil {
		return nil, conduit.WrapError(conduit.ParseError, "", err)
	}
	return generateFromValue(root, protocol, opts)
}

// GenerateExternal parses data under the conduit protocol and binds the
// resulting Schema to base without copying (external mode).
// Inline "value" fields, if present, are ignored — base already holds the
// leaf bytes.
func GenerateExternal(data []byte, base []byte, opts conduit.Options) (*conduit.Node, error) {
	root, err := parseOrdered(data)
	if err != nil {
		return nil, conduit.WrapError(conduit.ParseError, "", err)
	}
	cursor := int64(0)
	var recs []leafRecord
	sch, err := buildSchemaConduit(root, &cursor, &recs, opts.DefaultEndianness)
	if err != nil {
		return nil, err
	}
	if need := sch.TotalBytes(); int64(len(base)) < need {
		return nil, conduit.NewErrorf(conduit.InvalidArgument, "", "external buffer is %d bytes, need %d", len(base), need)
	}
	return conduit.BindTree(sch, base, true, opts), nil
}

// ParseSchema parses data under the conduit protocol and returns only the
// resulting Schema, without allocating or binding any backing bytes.
// Used by callers (e.g. fileio) that need a tree's footprint before
// deciding how much storage to provision.
func ParseSchema(data []byte, defaultEndian layout.Endianness) (*schema.Schema, error) {
	root, err := parseOrdered(data)
	if err != nil {
		return nil, conduit.WrapError(conduit.ParseError, "", err)
	}
	cursor := int64(0)
	var recs []leafRecord
	return buildSchemaConduit(root, &cursor, &recs, defaultEndian)
}

func generateFromValue(root jsonValue, protocol Protocol, opts conduit.Options) (*conduit.Node, error) {
	switch protocol {
	case ProtocolJSON:
		return generateJSON(root, opts)
	case ProtocolConduit:
		return generateConduit(root, opts)
	case ProtocolBase64JSON:
		return generateBase64JSON(root, opts)
	default:
		return nil, conduit.NewErrorf(conduit.SchemaError, "", "unknown protocol %q", protocol)
	}
}

func generateJSON(root jsonValue, opts conduit.Options) (*conduit.Node, error) {
	cursor := int64(0)
	var recs []leafRecord
	sch, err := buildSchemaJSON(root, &cursor, &recs, opts.DefaultEndianness)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, sch.TotalBytes())
	if err := populate(buf, recs, opts.Saturate); err != nil {
		return nil, err
	}
	return conduit.BindTree(sch, buf, false, opts), nil
}

func generateConduit(root jsonValue, opts conduit.Options) (*conduit.Node, error) {
	cursor := int64(0)
	var recs []leafRecord
	sch, err := buildSchemaConduit(root, &cursor, &recs, opts.DefaultEndianness)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, sch.TotalBytes())
	if err := populate(buf, recs, opts.Saturate); err != nil {
		return nil, err
	}
	return conduit.BindTree(sch, buf, false, opts), nil
}

func generateBase64JSON(root jsonValue, opts conduit.Options) (*conduit.Node, error) {
	if root.kind != jsonObject {
		return nil, conduit.NewError(conduit.SchemaError, "", "base64_json envelope must be an object")
	}
	schemaVal, ok := root.fieldOf("schema")
	if !ok {
		return nil, conduit.NewError(conduit.SchemaError, "", `base64_json envelope missing "schema"`)
	}
	dataVal, ok := root.fieldOf("data")
	if !ok || dataVal.kind != jsonString {
		return nil, conduit.NewError(conduit.SchemaError, "", `base64_json envelope missing string "data"`)
	}
	raw, err := base64.StdEncoding.DecodeString(dataVal.str)
	if err != nil {
		return nil, conduit.WrapError(conduit.ParseError, "", err)
	}
	cursor := int64(0)
	var recs []leafRecord
	sch, err := buildSchemaConduit(schemaVal, &cursor, &recs, opts.DefaultEndianness)
	if err != nil {
		return nil, err
	}
	if need := sch.TotalBytes(); int64(len(raw)) < need {
		return nil, conduit.NewErrorf(conduit.InvalidArgument, "", "base64 payload is %d bytes, schema needs %d", len(raw), need)
	}
	return conduit.BindTree(sch, raw, false, opts), nil
}

// buildSchemaJSON walks a pure-data JSON tree under the "json" protocol:
// number -> float64, boolean -> uint8, string -> char8_str,
// object/array recurse structurally. Because every number becomes a
// float64 leaf, integers outside [-2^53, 2^53] lose precision; the
// conduit protocol keeps the declared dtype.
func buildSchemaJSON(v jsonValue, cursor *int64, recs *[]leafRecord, endian layout.Endianness) (*schema.Schema, error) {
	switch v.kind {
	case jsonObject:
		sch := schema.NewObject()
		for _, f := range v.obj {
			child, err := buildSchemaJSON(f.val, cursor, recs, endian)
			if err != nil {
				return nil, err
			}
			if err := sch.AppendNamed(f.name, child); err != nil {
				return nil, conduit.NewError(conduit.SchemaError, f.name, err.Error())
			}
		}
		return sch, nil
	case jsonArray:
		sch := schema.NewList()
		for _, e := range v.arr {
			child, err := buildSchemaJSON(e, cursor, recs, endian)
			if err != nil {
				return nil, err
			}
			if err := sch.AppendChild(child); err != nil {
				return nil, conduit.NewError(conduit.SchemaError, "", err.Error())
			}
		}
		return sch, nil
	case jsonNumber:
		return leafFromJSON(layout.Float64, 1, v, cursor, recs, endian)
	case jsonBool:
		return leafFromJSON(layout.Uint8, 1, v, cursor, recs, endian)
	case jsonString:
		return leafFromJSON(layout.Char8Str, int64(len(v.str)), v, cursor, recs, endian)
	case jsonNull:
		return schema.NewEmpty(), nil
	default:
		return nil, conduit.NewError(conduit.SchemaError, "", "unrecognized JSON value")
	}
}

func leafFromJSON(tag layout.TypeTag, count int64, v jsonValue, cursor *int64, recs *[]leafRecord, endian layout.Endianness) (*schema.Schema, error) {
	w := int64(tag.NaturalWidth())
	dt := layout.DataType{Tag: tag, Count: count, Offset: *cursor, ElementBytes: w, Stride: w, Endianness: endian}
	sch, err := schema.NewLeaf(dt)
	if err != nil {
		return nil, conduit.NewError(conduit.SchemaError, "", err.Error())
	}
	*recs = append(*recs, leafRecord{sch: sch, value: v, has: true})
	// dt.TotalBytes() is the leaf's end position, offset included; a
	// zero-count leaf ends at 0 and must not rewind the cursor.
	if end := dt.TotalBytes(); end > *cursor {
		*cursor = end
	}
	return sch, nil
}

// buildSchemaConduit walks a schema tree under the "conduit" protocol
// grammar: a string shorthand, a dtype object (leaf), a named
// object (OBJECT), or a bare array (LIST).
func buildSchemaConduit(v jsonValue, cursor *int64, recs *[]leafRecord, endian layout.Endianness) (*schema.Schema, error) {
	switch v.kind {
	case jsonString:
		dt, err := layout.DefaultDataType(v.str)
		if err != nil {
			return nil, conduit.NewError(conduit.SchemaError, "", err.Error())
		}
		dt.Offset = *cursor
		dt.Endianness = endian
		sch, err := schema.NewLeaf(dt)
		if err != nil {
			return nil, conduit.NewError(conduit.SchemaError, "", err.Error())
		}
		*recs = append(*recs, leafRecord{sch: sch})
		if end := dt.TotalBytes(); end > *cursor {
			*cursor = end
		}
		return sch, nil

	case jsonArray:
		sch := schema.NewList()
		for _, e := range v.arr {
			child, err := buildSchemaConduit(e, cursor, recs, endian)
			if err != nil {
				return nil, err
			}
			if err := sch.AppendChild(child); err != nil {
				return nil, conduit.NewError(conduit.SchemaError, "", err.Error())
			}
		}
		return sch, nil

	case jsonObject:
		if v.hasField("dtype") {
			return buildLeafConduit(v, cursor, recs, endian)
		}
		sch := schema.NewObject()
		for _, f := range v.obj {
			child, err := buildSchemaConduit(f.val, cursor, recs, endian)
			if err != nil {
				return nil, err
			}
			if err := sch.AppendNamed(f.name, child); err != nil {
				return nil, conduit.NewError(conduit.SchemaError, f.name, err.Error())
			}
		}
		return sch, nil

	default:
		return nil, conduit.NewError(conduit.SchemaError, "", "expected a dtype string, object or array")
	}
}

func buildLeafConduit(v jsonValue, cursor *int64, recs *[]leafRecord, endian layout.Endianness) (*schema.Schema, error) {
	dtypeVal, _ := v.fieldOf("dtype")
	if dtypeVal.kind != jsonString {
		return nil, conduit.NewError(conduit.SchemaError, "", `"dtype" must be a string`)
	}
	tag, ok := layout.ParseTypeTag(dtypeVal.str)
	if !ok || !tag.IsLeaf() {
		return nil, conduit.NewErrorf(conduit.SchemaError, "", "unknown dtype %q", dtypeVal.str)
	}

	lengthVal, hasLength := v.fieldOf("length")
	if !hasLength || lengthVal.kind != jsonNumber {
		return nil, conduit.NewError(conduit.SchemaError, "", `leaf requires numeric "length"`)
	}
	count := int64(lengthVal.num)

	elementBytes := int64(tag.NaturalWidth())
	if ebVal, ok := v.fieldOf("element_bytes"); ok && ebVal.kind == jsonNumber {
		elementBytes = int64(ebVal.num)
	}
	stride := elementBytes
	if strideVal, ok := v.fieldOf("stride"); ok && strideVal.kind == jsonNumber {
		stride = int64(strideVal.num)
	}
	if stride < elementBytes {
		return nil, conduit.NewErrorf(conduit.SchemaError, "", "stride %d < element_bytes %d", stride, elementBytes)
	}

	offset := *cursor
	if offsetVal, ok := v.fieldOf("offset"); ok && offsetVal.kind == jsonNumber {
		offset = int64(offsetVal.num)
	}

	leafEndian := endian
	if endianVal, ok := v.fieldOf("endianness"); ok && endianVal.kind == jsonString {
		e, ok := layout.ParseEndianness(endianVal.str)
		if !ok {
			return nil, conduit.NewErrorf(conduit.SchemaError, "", "unknown endianness %q", endianVal.str)
		}
		leafEndian = e
	}

	dt := layout.DataType{Tag: tag, Count: count, Offset: offset, ElementBytes: elementBytes, Stride: stride, Endianness: leafEndian}
	if err := dt.Validate(); err != nil {
		return nil, conduit.NewError(conduit.SchemaError, "", err.Error())
	}
	sch, err := schema.NewLeaf(dt)
	if err != nil {
		return nil, conduit.NewError(conduit.SchemaError, "", err.Error())
	}
	if valueVal, ok := v.fieldOf("value"); ok {
		*recs = append(*recs, leafRecord{sch: sch, value: valueVal, has: true})
	} else {
		*recs = append(*recs, leafRecord{sch: sch})
	}
	// dt.TotalBytes() is the leaf's end position, offset included; an
	// explicit offset behind the cursor must not rewind it.
	if end := dt.TotalBytes(); end > *cursor {
		*cursor = end
	}
	return sch, nil
}

// populate writes each recorded leaf's inline value into buf.
func populate(buf []byte, recs []leafRecord, saturate bool) error {
	for _, rec := range recs {
		if !rec.has {
			continue
		}
		dt := rec.sch.DataType()
		if dt.Tag == layout.Char8Str {
			s := rec.value.str
			if rec.value.kind != jsonString {
				continue
			}
			if err := conduit.PokeCharString(buf, dt, s); err != nil {
				return err
			}
			continue
		}
		switch rec.value.kind {
		case jsonArray:
			n := dt.Count
			if int64(len(rec.value.arr)) < n {
				n = int64(len(rec.value.arr))
			}
			for i := int64(0); i < n; i++ {
				if _, err := conduit.PokeScalarFromJSON(buf, dt, i, scalarOf(rec.value.arr[i]), saturate); err != nil {
					return err
				}
			}
		case jsonNumber, jsonBool:
			if dt.Count < 1 {
				continue
			}
			if _, err := conduit.PokeScalarFromJSON(buf, dt, 0, scalarOf(rec.value), saturate); err != nil {
				return err
			}
		}
	}
	return nil
}

func scalarOf(v jsonValue) any {
	switch v.kind {
	case jsonNumber:
		return v.num
	case jsonBool:
		return v.b
	default:
		return nil
	}
}
