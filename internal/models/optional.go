package models

import "encoding/json"

// Optional carries a value together with an explicit presence flag so that
// partial updates can tell "not provided" apart from a zero value or null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// UnmarshalJSON marks the field as set whenever its key is present. An
// explicit null also sets Null and leaves Value at its zero value.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.Null = string(data) == "null"
	if o.Null {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON encodes the held value, or null when unset.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
