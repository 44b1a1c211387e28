package memory

import (
	"fmt"
	"sort"

	"github.com/aretw0/espalier/pkg/config"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.DefinitionLoader using an in-memory map.
type Loader struct {
	docs map[string][]byte
}

// NewLoader creates a new Loader with the provided raw documents (YAML or JSON).
func NewLoader(data map[string]string) *Loader {
	docs := make(map[string][]byte)
	for k, v := range data {
		docs[k] = []byte(v)
	}
	return &Loader{
		docs: docs,
	}
}

// NewFromDefinitions creates a new Loader from definition values.
// This handles serialization automatically, improving DX for tests.
func NewFromDefinitions(defs ...*config.Definition) (*Loader, error) {
	docs := make(map[string][]byte)
	for _, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("definition missing ID")
		}
		bytes, err := yaml.Marshal(def)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal definition %s: %w", def.ID, err)
		}
		docs[def.ID] = bytes
	}
	return &Loader{docs: docs}, nil
}

// GetDefinition retrieves the raw definition of a diagram by ID.
func (l *Loader) GetDefinition(id string) ([]byte, error) {
	content, ok := l.docs[id]
	if !ok {
		return nil, fmt.Errorf("definition not found: %s", id)
	}
	return content, nil
}

// ListDefinitions returns all available definition IDs.
func (l *Loader) ListDefinitions() ([]string, error) {
	keys := make([]string, 0, len(l.docs))
	for k := range l.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
