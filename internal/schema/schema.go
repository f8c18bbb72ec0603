// Package schema models the provider's parameter schema: the set of applicant
// fields the intake form renders and submits.
package schema

import (
	"encoding/json"
	"fmt"

	"idintake/pkg/platform/orderedjson"
)

// Validation carries the optional constraints a provider declares for a field.
type Validation struct {
	Pattern   string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	MinLength *int   `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength *int   `json:"max_length,omitempty" yaml:"max_length,omitempty"`
}

// Field describes one applicant-data field.
type Field struct {
	Name        string      `json:"name" yaml:"name"`
	Type        string      `json:"type" yaml:"type"`
	Required    bool        `json:"required" yaml:"required"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Validation  *Validation `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// HasMaxLength reports whether the field declares exactly the given max length.
func (f Field) HasMaxLength(n int) bool {
	return f.Validation != nil && f.Validation.MaxLength != nil && *f.Validation.MaxLength == n
}

// Map is an ordered set of fields keyed by name. Order follows the provider
// document (or the fallback table) and drives rendering order within a group.
type Map struct {
	fields []Field
	index  map[string]int
}

// NewMap builds a Map from fields. A repeated name replaces the earlier entry
// in place.
func NewMap(fields ...Field) *Map {
	m := &Map{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		m.put(f)
	}
	return m
}

func (m *Map) put(f Field) {
	if i, ok := m.index[f.Name]; ok {
		m.fields[i] = f
		return
	}
	m.index[f.Name] = len(m.fields)
	m.fields = append(m.fields, f)
}

// Len returns the number of fields.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.fields)
}

// Fields returns the fields in order. The slice is a copy.
func (m *Map) Fields() []Field {
	if m == nil {
		return nil
	}
	return append([]Field(nil), m.fields...)
}

// Names returns the field names in order.
func (m *Map) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, len(m.fields))
	for i, f := range m.fields {
		names[i] = f.Name
	}
	return names
}

// Get looks a field up by name.
func (m *Map) Get(name string) (Field, bool) {
	if m == nil {
		return Field{}, false
	}
	i, ok := m.index[name]
	if !ok {
		return Field{}, false
	}
	return m.fields[i], true
}

// Has reports whether name is a key of the map.
func (m *Map) Has(name string) bool {
	_, ok := m.Get(name)
	return ok
}

// Degraded reports whether the map is unusable for rendering: it is empty or
// no field carries a description. Degraded maps are replaced by Fallback.
func (m *Map) Degraded() bool {
	if m.Len() == 0 {
		return true
	}
	for _, f := range m.fields {
		if f.Description != "" {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the map as a JSON object in field order.
func (m *Map) MarshalJSON() ([]byte, error) {
	members := make([]orderedjson.Member, 0, m.Len())
	for _, f := range m.Fields() {
		members = append(members, orderedjson.Member{Key: f.Name, Value: f})
	}
	return orderedjson.WriteObject(members)
}

// UnmarshalJSON decodes a provider schema document; see Parse.
func (m *Map) UnmarshalJSON(data []byte) error {
	parsed, _, err := Parse(data)
	if err != nil {
		return err
	}
	*m = *parsed
	return nil
}

// Parse decodes a provider schema document, keeping document order. Members
// whose value is not an object cannot describe a field and are returned in
// skipped instead. The member key is authoritative for the field name.
func Parse(data []byte) (m *Map, skipped []string, err error) {
	m = NewMap()
	err = orderedjson.EachMember(data, func(key string, raw json.RawMessage) error {
		if orderedjson.KindOf(raw) != orderedjson.KindObject {
			skipped = append(skipped, key)
			return nil
		}
		var f Field
		if err := json.Unmarshal(raw, &f); err != nil {
			skipped = append(skipped, key)
			return nil
		}
		f.Name = key
		m.put(f)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("parse schema: %w", err)
	}
	return m, skipped, nil
}
