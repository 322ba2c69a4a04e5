package action

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces deterministic JSON for an action: object keys
// sorted bytewise, strings NFC normalized, no HTML escaping. This is the only
// serialization used for journal rows and golden traces, so that replaying a
// session byte-compares against the original recording.
func (a Action) MarshalCanonical() ([]byte, error) {
	return marshalCanonical(a.canonicalMap())
}

// canonicalMap flattens the action to a map, omitting zero-valued optional
// fields the same way the json tags do.
func (a Action) canonicalMap() map[string]any {
	m := map[string]any{
		"type":       string(a.Type),
		"path":       a.Path,
		"requesting": a.Requesting,
		"requested":  a.Requested,
	}
	if a.Data != nil {
		m["data"] = a.Data
	}
	if a.Absent {
		m["absent"] = true
	}
	if len(a.Ordered) > 0 {
		ordered := make([]any, len(a.Ordered))
		for i, k := range a.Ordered {
			ordered[i] = k
		}
		m["ordered"] = ordered
	}
	if a.Source != "" {
		m["source"] = string(a.Source)
	}
	if a.Timestamp != 0 {
		m["timestamp"] = a.Timestamp
	}
	if a.Error != "" {
		m["error"] = a.Error
	}
	return m
}

func marshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case string:
		return marshalCanonicalString(val)
	case int:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case int64:
		return strconv.AppendInt(nil, val, 10), nil
	case float64:
		// Integral floats (the common case after a JSON round trip) render
		// without an exponent or trailing zeros.
		if val == float64(int64(val)) {
			return strconv.AppendInt(nil, int64(val), 10), nil
		}
		return strconv.AppendFloat(nil, val, 'g', -1, 64), nil
	case json.Number:
		return []byte(val.String()), nil
	case []any:
		return marshalCanonicalArray(val)
	case map[string]any:
		return marshalCanonicalObject(val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, fmt.Errorf("marshal string: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func marshalCanonicalArray(arr []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalObject(obj map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalCanonicalString(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("object[%q]: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
