package lookup

import "slices"

// EventKind enumerates the structural changes a Lookup reports.
type EventKind string

const (
	// EventAdd is emitted after a key is inserted or overwritten.
	EventAdd EventKind = "add"
	// EventRemove is emitted after an existing key is removed.
	EventRemove EventKind = "remove"
)

// Listener receives the key and value involved in a structural change.
type Listener[K comparable, V any] func(key K, value V)

// Pair is a single key/value entry.
type Pair[K comparable, V any] struct {
	Key   K
	Value V
}

type subscription[K comparable, V any] struct {
	fn     Listener[K, V]
	active bool
}

// Lookup is an insertion-ordered map with add/remove notifications.
// The zero value is ready to use.
type Lookup[K comparable, V any] struct {
	order     []K
	items     map[K]V
	listeners map[EventKind][]*subscription[K, V]
}

// New creates a Lookup seeded with the given pairs, in order.
// Seeding does not emit events.
func New[K comparable, V any](pairs ...Pair[K, V]) *Lookup[K, V] {
	l := &Lookup[K, V]{}
	l.init()
	for _, p := range pairs {
		l.set(p.Key, p.Value)
	}
	return l
}

func (l *Lookup[K, V]) init() {
	if l.items == nil {
		l.items = make(map[K]V)
	}
	if l.listeners == nil {
		l.listeners = make(map[EventKind][]*subscription[K, V])
	}
}

func (l *Lookup[K, V]) set(key K, value V) {
	if _, exists := l.items[key]; !exists {
		l.order = append(l.order, key)
	}
	l.items[key] = value
}

// Get returns the value stored for key. ok is false when the key is absent.
func (l *Lookup[K, V]) Get(key K) (value V, ok bool) {
	value, ok = l.items[key]
	return value, ok
}

// Has reports whether key is present.
func (l *Lookup[K, V]) Has(key K) bool {
	_, ok := l.items[key]
	return ok
}

// Len returns the number of entries.
func (l *Lookup[K, V]) Len() int {
	return len(l.order)
}

// Add stores value under key and emits EventAdd.
// An existing key keeps its position; only its value changes.
func (l *Lookup[K, V]) Add(key K, value V) *Lookup[K, V] {
	l.init()
	l.set(key, value)
	l.emit(EventAdd, key, value)
	return l
}

// Remove deletes key and returns the value it held.
// EventRemove is emitted only if the key existed.
func (l *Lookup[K, V]) Remove(key K) (value V, ok bool) {
	value, ok = l.items[key]
	if !ok {
		return value, false
	}
	delete(l.items, key)
	if i := slices.Index(l.order, key); i >= 0 {
		l.order = slices.Delete(l.order, i, i+1)
	}
	l.emit(EventRemove, key, value)
	return value, true
}

// Keys returns a copy of the keys in insertion order.
func (l *Lookup[K, V]) Keys() []K {
	return slices.Clone(l.order)
}

// Values returns a copy of the values in key order.
func (l *Lookup[K, V]) Values() []V {
	values := make([]V, 0, len(l.order))
	for _, k := range l.order {
		values = append(values, l.items[k])
	}
	return values
}

// Items returns a shallow copy of the entries as a plain map.
func (l *Lookup[K, V]) Items() map[K]V {
	items := make(map[K]V, len(l.items))
	for k, v := range l.items {
		items[k] = v
	}
	return items
}

// Pairs returns a copy of the entries in key order.
func (l *Lookup[K, V]) Pairs() []Pair[K, V] {
	pairs := make([]Pair[K, V], 0, len(l.order))
	for _, k := range l.order {
		pairs = append(pairs, Pair[K, V]{Key: k, Value: l.items[k]})
	}
	return pairs
}

// On registers fn for the given event kind and returns a function that
// removes the registration. Calling the returned function twice is harmless.
func (l *Lookup[K, V]) On(kind EventKind, fn Listener[K, V]) (off func()) {
	l.init()
	sub := &subscription[K, V]{fn: fn, active: true}
	l.listeners[kind] = append(l.listeners[kind], sub)
	return func() {
		if !sub.active {
			return
		}
		sub.active = false
		subs := l.listeners[kind]
		if i := slices.Index(subs, sub); i >= 0 {
			l.listeners[kind] = slices.Delete(subs, i, i+1)
		}
	}
}

// Off removes every listener registered for kind.
func (l *Lookup[K, V]) Off(kind EventKind) {
	for _, sub := range l.listeners[kind] {
		sub.active = false
	}
	delete(l.listeners, kind)
}

func (l *Lookup[K, V]) emit(kind EventKind, key K, value V) {
	// Listeners may subscribe or unsubscribe while we dispatch.
	subs := slices.Clone(l.listeners[kind])
	for _, sub := range subs {
		if sub.active {
			sub.fn(key, value)
		}
	}
}
