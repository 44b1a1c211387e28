// Package model holds the data side of a diagram: attribute bags with change
// notifications and ordered, observable collections of them.
package model

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// Keyed is implemented by anything stored in a Collection.
type Keyed interface {
	Key() string
}

// ChangeFunc observes a non-silent attribute write.
type ChangeFunc func(m *Model, attr string, value any)

type setConfig struct {
	silent bool
}

// SetOption tweaks a single write.
type SetOption func(*setConfig)

// Silent suppresses change (or add/remove) notifications for one call.
func Silent() SetOption {
	return func(c *setConfig) { c.silent = true }
}

func applySet(opts []SetOption) setConfig {
	var c setConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Model is the single source of truth for one diagram element.
// Views read from it; they never own authoritative state.
type Model struct {
	id        string
	typ       string
	attrs     map[string]any
	listeners []*changeSub
	destroyed bool
}

type changeSub struct {
	fn     ChangeFunc
	active bool
}

// New creates a model with a random UUID.
func New(typ string, attrs map[string]any) *Model {
	return NewWithID(uuid.NewString(), typ, attrs)
}

// NewWithID creates a model with a caller supplied identity.
func NewWithID(id, typ string, attrs map[string]any) *Model {
	m := &Model{
		id:    id,
		typ:   typ,
		attrs: make(map[string]any, len(attrs)),
	}
	maps.Copy(m.attrs, attrs)
	return m
}

// Key implements Keyed.
func (m *Model) Key() string { return m.id }

// ID returns the model identity.
func (m *Model) ID() string { return m.id }

// Type returns the node type tag the model was created for.
func (m *Model) Type() string { return m.typ }

// Get returns the raw attribute value, nil when unset.
func (m *Model) Get(attr string) any {
	return m.attrs[attr]
}

// String returns the attribute as a string, or "" when it is unset or not a string.
func (m *Model) String(attr string) string {
	s, _ := m.attrs[attr].(string)
	return s
}

// Set writes an attribute. Unless Silent is passed, change listeners run
// synchronously after the write.
func (m *Model) Set(attr string, value any, opts ...SetOption) {
	m.attrs[attr] = value
	if applySet(opts).silent {
		return
	}
	for _, sub := range slices.Clone(m.listeners) {
		if sub.active {
			sub.fn(m, attr, value)
		}
	}
}

// Unset clears an attribute.
func (m *Model) Unset(attr string, opts ...SetOption) {
	if _, ok := m.attrs[attr]; !ok {
		return
	}
	delete(m.attrs, attr)
	if applySet(opts).silent {
		return
	}
	for _, sub := range slices.Clone(m.listeners) {
		if sub.active {
			sub.fn(m, attr, nil)
		}
	}
}

// OnChange subscribes to non-silent writes.
func (m *Model) OnChange(fn ChangeFunc) (off func()) {
	sub := &changeSub{fn: fn, active: true}
	m.listeners = append(m.listeners, sub)
	return func() {
		if !sub.active {
			return
		}
		sub.active = false
		if i := slices.Index(m.listeners, sub); i >= 0 {
			m.listeners = slices.Delete(m.listeners, i, i+1)
		}
	}
}

// Attributes returns a shallow copy of the attribute bag.
func (m *Model) Attributes() map[string]any {
	return maps.Clone(m.attrs)
}

// Decode copies the attributes into target using mapstructure tags.
func (m *Model) Decode(target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(m.attrs); err != nil {
		return fmt.Errorf("decode model %s: %w", m.id, err)
	}
	return nil
}

// Destroy marks the model as dead and drops its listeners.
// It is idempotent.
func (m *Model) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true
	for _, sub := range m.listeners {
		sub.active = false
	}
	m.listeners = nil
}

// Destroyed reports whether Destroy was called.
func (m *Model) Destroyed() bool { return m.destroyed }

// MarshalJSON flattens the attributes next to id and type.
func (m *Model) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.attrs)+2)
	maps.Copy(out, m.attrs)
	out["id"] = m.id
	out["type"] = m.typ
	return json.Marshal(out)
}
