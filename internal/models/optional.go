package models

import (
	"bytes"
	"encoding/json"
)

// Optional is a string field of a partial update. Set records that the key
// was present in the body; Value is nil when the key carried null.
type Optional struct {
	Set   bool
	Value *string
}

// Present returns a field that was supplied with v.
func Present(v string) Optional {
	return Optional{Set: true, Value: &v}
}

// Null returns a field that was supplied as null.
func Null() Optional {
	return Optional{Set: true}
}

func (o *Optional) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}
