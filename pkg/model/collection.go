package model

import "github.com/aretw0/espalier/pkg/lookup"

// Collection is an ordered, observable set of models keyed by identity.
type Collection[M Keyed] struct {
	items *lookup.Lookup[string, M]
	muted int
}

// NewCollection creates a collection seeded with models. Seeding is silent.
func NewCollection[M Keyed](models ...M) *Collection[M] {
	c := &Collection[M]{items: lookup.New[string, M]()}
	for _, m := range models {
		c.Add(m, Silent())
	}
	return c
}

// Add inserts m (or replaces the model with the same key in place).
func (c *Collection[M]) Add(m M, opts ...SetOption) M {
	if applySet(opts).silent {
		c.muted++
		defer func() { c.muted-- }()
	}
	c.items.Add(m.Key(), m)
	return m
}

// Remove drops the model with key. Missing keys are a no-op.
func (c *Collection[M]) Remove(key string, opts ...SetOption) (M, bool) {
	if applySet(opts).silent {
		c.muted++
		defer func() { c.muted-- }()
	}
	return c.items.Remove(key)
}

// Get returns the model with key.
func (c *Collection[M]) Get(key string) (M, bool) {
	return c.items.Get(key)
}

// Has reports whether key is present.
func (c *Collection[M]) Has(key string) bool {
	return c.items.Has(key)
}

// Keys returns model keys in insertion order.
func (c *Collection[M]) Keys() []string {
	return c.items.Keys()
}

// Models returns the models in insertion order.
func (c *Collection[M]) Models() []M {
	return c.items.Values()
}

// Len returns the number of models.
func (c *Collection[M]) Len() int {
	return c.items.Len()
}

// OnAdd subscribes fn to non-silent additions.
func (c *Collection[M]) OnAdd(fn func(M)) (off func()) {
	return c.items.On(lookup.EventAdd, func(_ string, m M) {
		if c.muted == 0 {
			fn(m)
		}
	})
}

// OnRemove subscribes fn to non-silent removals.
func (c *Collection[M]) OnRemove(fn func(M)) (off func()) {
	return c.items.On(lookup.EventRemove, func(_ string, m M) {
		if c.muted == 0 {
			fn(m)
		}
	})
}
