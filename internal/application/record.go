// Package application holds the applicant record submitted for evaluation.
package application

import (
	"bytes"
	"encoding/json"
	"strconv"

	"idintake/internal/schema"
	dErrors "idintake/pkg/domain-errors"
	"idintake/pkg/platform/orderedjson"
)

// Field is one name/value pair of a Record.
type Field struct {
	Name  string
	Value string

	// raw is the decoded JSON of a non-string value, re-sent unchanged.
	raw json.RawMessage
}

// Record is the applicant data as an ordered string-to-string mapping. Every
// value reads as a string regardless of the field's semantic type; values
// decoded from non-string JSON are encoded back as they arrived.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{index: make(map[string]int)}
}

// Set assigns value to name, appending the name if it is new.
func (r *Record) Set(name, value string) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	r.put(Field{Name: name, Value: value})
}

func (r *Record) put(f Field) {
	if i, ok := r.index[f.Name]; ok {
		r.fields[i] = f
		return
	}
	r.index[f.Name] = len(r.fields)
	r.fields = append(r.fields, f)
}

// Get returns the value for name, or "" when absent.
func (r *Record) Get(name string) string {
	if r == nil {
		return ""
	}
	if i, ok := r.index[name]; ok {
		return r.fields[i].Value
	}
	return ""
}

// Has reports whether name is present (possibly with an empty value).
func (r *Record) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.index[name]
	return ok
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.fields)
}

// Fields returns the fields in order. The slice is a copy.
func (r *Record) Fields() []Field {
	if r == nil {
		return nil
	}
	return append([]Field(nil), r.fields...)
}

// Names returns the field names in order.
func (r *Record) Names() []string {
	names := make([]string, 0, r.Len())
	for _, f := range r.Fields() {
		names = append(names, f.Name)
	}
	return names
}

// Complete conforms the record to the active schema: every schema key missing
// from the record is added with "". Keys the schema does not know are kept and
// returned so the caller can log them; forwarding them is intentional.
func (r *Record) Complete(m *schema.Map) (unknown []string) {
	for _, name := range m.Names() {
		if !r.Has(name) {
			r.Set(name, "")
		}
	}
	for _, f := range r.fields {
		if !m.Has(f.Name) {
			unknown = append(unknown, f.Name)
		}
	}
	return unknown
}

// MarshalJSON encodes the record as a JSON object in field order. Values set
// through Set are strings; decoded non-string values keep their JSON.
func (r *Record) MarshalJSON() ([]byte, error) {
	members := make([]orderedjson.Member, 0, r.Len())
	for _, f := range r.Fields() {
		var value any = f.Value
		if f.raw != nil {
			value = f.raw
		}
		members = append(members, orderedjson.Member{Key: f.Name, Value: value})
	}
	return orderedjson.WriteObject(members)
}

// UnmarshalJSON decodes a JSON object. Strings read as-is, null reads as "",
// other values read as their compact JSON text and are re-encoded unchanged.
func (r *Record) UnmarshalJSON(data []byte) error {
	rec := NewRecord()
	err := orderedjson.EachMember(data, func(key string, raw json.RawMessage) error {
		f, err := decodeField(key, raw)
		if err != nil {
			return err
		}
		rec.put(f)
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeBadRequest) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "application body must be a JSON object")
	}
	*r = *rec
	return nil
}

func decodeField(key string, raw json.RawMessage) (Field, error) {
	if orderedjson.KindOf(raw) == orderedjson.KindString {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Field{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "field "+strconv.Quote(key)+" is not valid JSON")
		}
		return Field{Name: key, Value: s}, nil
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return Field{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "field "+strconv.Quote(key)+" is not valid JSON")
	}
	f := Field{Name: key, raw: json.RawMessage(compact.Bytes())}
	if orderedjson.KindOf(raw) != orderedjson.KindNull {
		f.Value = compact.String()
	}
	return f, nil
}
