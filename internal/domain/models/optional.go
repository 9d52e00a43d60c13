package models

import (
	"bytes"
	"encoding/json"
)

// OptionalString tracks presence and value for JSON PATCH semantics (RFC 7396).
// This enables tri-state handling that Go's *string cannot express:
//   - Present=false: field absent from JSON (don't change)
//   - Present=true, Value=nil: field is JSON null (clear/set to NULL)
//   - Present=true, Value=&"text": field has value
type OptionalString struct {
	Present bool
	Value   *string
}

// Set returns a present OptionalString holding v.
func Set(v string) OptionalString {
	return OptionalString{Present: true, Value: &v}
}

// Clear returns a present OptionalString holding NULL.
func Clear() OptionalString {
	return OptionalString{Present: true}
}

// Get returns the value when the field is present and non-null.
func (o OptionalString) Get() (string, bool) {
	if !o.Present || o.Value == nil {
		return "", false
	}
	return *o.Value, true
}

// UnmarshalJSON implements json.Unmarshaler.
// When this method is called, the field was present in the JSON.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true

	if string(bytes.TrimSpace(data)) == "null" {
		o.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// MarshalJSON writes the value or null. Absent fields should be dropped by
// the caller with omitempty on a pointer.
func (o OptionalString) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}
