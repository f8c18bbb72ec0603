// Package orderedjson walks JSON objects in document order.
//
// encoding/json decodes objects into maps, which drops key order. Provider
// schemas and applicant records are rendered and forwarded in the order they
// were written, so both decode through EachMember instead.
package orderedjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotObject is returned when the document is not a JSON object.
var ErrNotObject = errors.New("orderedjson: value is not a JSON object")

// EachMember calls fn for every top-level member of the object in data, in
// document order. Duplicate keys are reported as they appear.
func EachMember(data []byte, fn func(key string, value json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("orderedjson: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return ErrNotObject
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("orderedjson: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("orderedjson: unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("orderedjson: member %q: %w", key, err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("orderedjson: %w", err)
	}
	if _, err := dec.Token(); err == nil {
		return errors.New("orderedjson: trailing data after object")
	}
	return nil
}

// Member is one key/value pair written by WriteObject.
type Member struct {
	Key   string
	Value any
}

// WriteObject encodes members as a JSON object preserving their order.
func WriteObject(members []Member) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(m.Value)
		if err != nil {
			return nil, fmt.Errorf("orderedjson: member %q: %w", m.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Kind classifies a raw JSON value by its first significant byte.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// KindOf reports the kind of a raw JSON value.
func KindOf(raw json.RawMessage) Kind {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return KindInvalid
	}
	switch c := trimmed[0]; {
	case c == 'n':
		return KindNull
	case c == 't' || c == 'f':
		return KindBool
	case c == '"':
		return KindString
	case c == '[':
		return KindArray
	case c == '{':
		return KindObject
	case c == '-' || (c >= '0' && c <= '9'):
		return KindNumber
	default:
		return KindInvalid
	}
}
