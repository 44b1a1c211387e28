package registry

import (
	"slices"
	"sync"

	"github.com/aretw0/espalier/pkg/domain"
)

// Registry maps string tags to entries of a single kind (node types, field
// codecs, ...). It replaces global lookups: callers pass an explicit
// registry into whatever needs to resolve tags.
type Registry[T any] struct {
	mu      sync.RWMutex
	kind    string
	entries map[string]T
	order   []string
}

// New creates an empty registry. kind names the entries in resolution errors.
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{
		kind:    kind,
		entries: make(map[string]T),
	}
}

// Register adds an entry.
// If an entry with the same name exists, it is overwritten.
func (r *Registry[T]) Register(name string, entry T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; !exists {
		r.order = append(r.order, name)
	}
	r.entries[name] = entry
}

// Resolve looks up an entry by name.
// Returns a *domain.ResolutionError if the name is not registered.
func (r *Registry[T]) Resolve(name string) (T, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		var zero T
		return zero, &domain.ResolutionError{Kind: r.kind, Name: name}
	}
	return entry, nil
}

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Names returns the registered names in registration order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}
