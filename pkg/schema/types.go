package schema

import (
	"fmt"
	"reflect"
)

// Type defines the contract for field validation.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "[string]").
	Name() string
	// Validate checks if a non-nil value conforms to this type.
	Validate(value any) error
}

type stringType struct{}

func (stringType) Name() string { return "string" }

func (stringType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

type numberType struct{}

func (numberType) Name() string { return "number" }

func (numberType) Validate(value any) error {
	switch value.(type) {
	case int, int32, int64, float32, float64:
		return nil
	}
	return fmt.Errorf("expected number, got %T", value)
}

type sliceType struct {
	elem Type
}

func (t sliceType) Name() string { return "[" + t.elem.Name() + "]" }

func (t sliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected list, got %T", value)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elem.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// wrappedType is the {key: value} shape editors write for select controls.
type wrappedType struct {
	key  string
	elem Type
}

func (t wrappedType) Name() string { return "{" + t.key + ": " + t.elem.Name() + "}" }

func (t wrappedType) Validate(value any) error {
	var inner any
	switch m := value.(type) {
	case map[string]any:
		v, ok := m[t.key]
		if !ok || len(m) != 1 {
			return fmt.Errorf("expected exactly the key %q", t.key)
		}
		inner = v
	case map[string]string:
		v, ok := m[t.key]
		if !ok || len(m) != 1 {
			return fmt.Errorf("expected exactly the key %q", t.key)
		}
		inner = v
	default:
		return fmt.Errorf("expected map, got %T", value)
	}
	return t.elem.Validate(inner)
}

// String accepts strings.
func String() Type { return stringType{} }

// Number accepts integers and floats.
func Number() Type { return numberType{} }

// Slice accepts lists whose elements all satisfy elem.
func Slice(elem Type) Type { return sliceType{elem: elem} }

// Wrapped accepts single-key maps {key: v} where v satisfies elem.
func Wrapped(key string, elem Type) Type { return wrappedType{key: key, elem: elem} }
