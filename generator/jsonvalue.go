package generator

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// jsonKind discriminates the value tree produced by parseOrdered. A plain
// map[string]any loses object key order, which must stay
// observable in serialization — so the walker reads JSON through
// Decoder.Token() instead of Unmarshal, and keeps its own ordered field
// list for objects.
type jsonKind int

const (
	jsonNull jsonKind = iota
	jsonBool
	jsonNumber
	jsonString
	jsonArray
	jsonObject
)

type jsonField struct {
	name string
	val  jsonValue
}

type jsonValue struct {
	kind jsonKind
	b    bool
	num  float64
	str  string
	arr  []jsonValue
	obj  []jsonField
}

func (v jsonValue) fieldOf(name string) (jsonValue, bool) {
	for _, f := range v.obj {
		if f.name == name {
			return f.val, true
		}
	}
	return jsonValue{}, false
}

func (v jsonValue) hasField(name string) bool {
	_, ok := v.fieldOf(name)
	return ok
}

// parseOrdered decodes data into a jsonValue tree, preserving object key
// order.
func parseOrdered(data []byte) (jsonValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	v, err := decodeValue(dec)
	if err != nil {
		return jsonValue{}, fmt.Errorf("generator: parse error: %w", err)
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (jsonValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return jsonValue{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case json.Delim('{'):
			var fields []jsonField
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return jsonValue{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return jsonValue{}, fmt.Errorf("expected object key, got %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return jsonValue{}, err
				}
				fields = append(fields, jsonField{name: key, val: val})
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return jsonValue{}, err
			}
			return jsonValue{kind: jsonObject, obj: fields}, nil
		case json.Delim('['):
			var arr []jsonValue
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return jsonValue{}, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return jsonValue{}, err
			}
			return jsonValue{kind: jsonArray, arr: arr}, nil
		default:
			return jsonValue{}, fmt.Errorf("unexpected delimiter %v", t)
		}
	case string:
		return jsonValue{kind: jsonString, str: t}, nil
	case float64:
		return jsonValue{kind: jsonNumber, num: t}, nil
	case bool:
		return jsonValue{kind: jsonBool, b: t}, nil
	case nil:
		return jsonValue{kind: jsonNull}, nil
	default:
		return jsonValue{}, fmt.Errorf("unexpected token %v (%T)", tok, tok)
	}
}
