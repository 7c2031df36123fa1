package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var errNotObject = errors.New("expected a JSON object")

// document is a JSON object that remembers its key order. Values are kept as raw JSON so
// numbers, nulls and nested values are written back exactly as read.
type document = orderedmap.OrderedMap[string, json.RawMessage]

func newDocument() *document {
	return orderedmap.New[string, json.RawMessage]()
}

func decodeDocument(data []byte) (*document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errNotObject
	}
	doc := newDocument()
	if err := doc.UnmarshalJSON(trimmed); err != nil {
		return nil, err
	}
	return doc, nil
}

// encodeDocument writes doc compactly in key order. OrderedMap.MarshalJSON is not used
// because it escapes <, > and & inside values, and datasets keep those verbatim.
func encodeDocument(doc *document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if doc != nil {
		first := true
		for pair := doc.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				buf.WriteByte(',')
			}
			first = false

			key, err := marshalNoEscape(pair.Key)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')

			value := pair.Value
			if len(value) == 0 {
				value = json.RawMessage("null")
			}
			if err := json.Compact(&buf, value); err != nil {
				return nil, fmt.Errorf("field %s: %w", pair.Key, err)
			}
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func cloneDocument(doc *document) *document {
	if doc == nil {
		return nil
	}
	out := newDocument()
	for pair := doc.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, append(json.RawMessage(nil), pair.Value...))
	}
	return out
}

// documentString reads a string value. Absent, null and non-string values report false.
func documentString(doc *document, key string) (string, bool) {
	raw, ok := doc.Get(key)
	if !ok {
		return "", false
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil || s == nil {
		return "", false
	}
	return *s, true
}

// documentInt reads an integral number; 12255.0 counts as 12255.
func documentInt(doc *document, key string) (int64, bool) {
	raw, ok := doc.Get(key)
	if !ok || bytes.HasPrefix(bytes.TrimSpace(raw), []byte(`"`)) {
		return 0, false
	}
	var n *json.Number
	if err := json.Unmarshal(raw, &n); err != nil || n == nil {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// marshalNoEscape encodes v without turning <, > and & into unicode escapes.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
