package schema

import (
	"encoding/json"
	"maps"
	"slices"
)

// Schema is a map of field names to their expected types.
type Schema map[string]Type

// Validate checks data against schema. Keys outside the schema are
// rejected, nil values are accepted, missing keys are fine.
// A nil schema accepts anything.
func Validate(s Schema, data map[string]any) error {
	if s == nil {
		return nil
	}

	var errs []error
	for _, key := range slices.Sorted(maps.Keys(data)) {
		value := data[key]
		typ, ok := s[key]
		if !ok {
			errs = append(errs, &ValidationError{Key: key, Reason: "unknown field", Value: value})
			continue
		}
		if value == nil {
			continue
		}
		if err := typ.Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: key, Reason: err.Error(), Value: value})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// MarshalJSON serializes the schema as a map of field names to type names.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	raw := make(map[string]string, len(s))
	for key, typ := range s {
		raw[key] = typ.Name()
	}
	return json.Marshal(raw)
}
