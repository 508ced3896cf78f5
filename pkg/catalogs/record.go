// Package catalogs defines the values exchanged between the local inventory,
// the remote catalog and the reconciler: image records, the handles that
// identify one stored revision of a record, and services.
package catalogs

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/agentstation/cmdbsync/pkg/constants"
	"github.com/agentstation/cmdbsync/pkg/errors"
)

// Field is one key/value pair of a record. Values are kept as raw JSON so
// descriptive fields are passed through verbatim.
type Field struct {
	Key   string          `json:"key" yaml:"key"`
	Value json.RawMessage `json:"value" yaml:"value"`
}

// Record is an image or container description keyed by its logical id.
// Fields keep the order in which they were read. A Record is treated as an
// immutable value: With returns a modified copy.
type Record struct {
	id     string
	fields []Field
}

// NewRecord builds a record from ordered fields. The logical id is taken
// from the image_id field, which must be a non-empty JSON string.
func NewRecord(fields []Field) (Record, error) {
	r := Record{fields: make([]Field, 0, len(fields))}
	for _, f := range fields {
		r = r.set(f.Key, f.Value)
	}

	raw, ok := r.Get(constants.ImageIDField)
	if !ok {
		return Record{}, errors.NewParseError("json", "", constants.ImageIDField+" is required", nil)
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil || id == "" {
		return Record{}, errors.NewParseError("json", "", constants.ImageIDField+" must be a non-empty string", err)
	}
	r.id = id
	return r, nil
}

// LogicalID returns the stable identifier supplied by the local inventory.
func (r Record) LogicalID() string {
	return r.id
}

// Name returns the image_name field, or the logical id when it is absent.
func (r Record) Name() string {
	if name := r.String(constants.ImageNameField); name != "" {
		return name
	}
	return r.id
}

// Keys returns the field names in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Key
	}
	return keys
}

// Fields returns a copy of the ordered fields.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.fields)
}

// Get returns the raw JSON value of key.
func (r Record) Get(key string) (json.RawMessage, bool) {
	for _, f := range r.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// String returns the value of key when it is a JSON string, "" otherwise.
func (r Record) String(key string) string {
	raw, ok := r.Get(key)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// With returns a copy of r with key set to value. Existing keys keep their
// position; new keys are appended.
func (r Record) With(key string, value any) (Record, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Record{}, errors.WrapParse("json", key, err)
	}
	out := Record{id: r.id, fields: r.Fields()}
	return out.set(key, raw), nil
}

func (r Record) set(key string, value json.RawMessage) Record {
	for i, f := range r.fields {
		if f.Key == key {
			r.fields[i].Value = value
			return r
		}
	}
	r.fields = append(r.fields, Field{Key: key, Value: value})
	return r
}

// MarshalJSON encodes the record as a JSON object in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(f.Value) == 0 {
			buf.WriteString("null")
			continue
		}
		buf.Write(f.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	fields, err := DecodeObject(data)
	if err != nil {
		return err
	}
	rec, err := NewRecord(fields)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// DecodeObject reads the top-level keys of a JSON object in order.
func DecodeObject(data []byte) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.WrapParse("json", "", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.NewParseError("json", "", fmt.Sprintf("expected an object, got %v", tok), nil)
	}

	var fields []Field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.WrapParse("json", "", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.NewParseError("json", "", fmt.Sprintf("expected an object key, got %v", tok), nil)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, errors.WrapParse("json", "", err)
		}
		fields = append(fields, Field{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, errors.WrapParse("json", "", err)
	}
	return fields, nil
}
