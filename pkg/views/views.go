// Package views keeps a set of views in one-to-one correspondence with the
// models of a backing collection.
package views

import (
	"errors"
	"log/slog"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/lookup"
	"github.com/aretw0/espalier/pkg/model"
)

// Renderer is implemented by views that draw themselves.
type Renderer interface {
	Render() error
}

// Destroyer is implemented by views holding resources outside the set
// (canvas elements, wires). Destroy must be idempotent.
type Destroyer interface {
	Destroy()
}

// Factory builds the view for a model.
type Factory[M model.Keyed, V comparable] func(M) (V, error)

// Observer is notified of view churn. See pkg/observability.
type Observer interface {
	ViewCreated(set string)
	ViewDestroyed(set string)
	Reconciled(set string, added, removed int)
}

// Option configures a ViewSet.
type Option func(*config)

type config struct {
	name     string
	logger   *slog.Logger
	observer Observer
}

// WithName labels the set in logs and metrics.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithLogger sets the logger used to report eager construction failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithObserver attaches a churn observer.
func WithObserver(o Observer) Option {
	return func(c *config) { c.observer = o }
}

// ViewSet mirrors a model collection with views keyed by model identity.
//
// Views are created eagerly when the collection reports an addition and
// lazily by Reconcile for anything the events missed (silent adds, failed
// eager construction). The views never hold authoritative state.
//
// Each view is bound to the model instance it was built from. Replacing the
// model under a key in the collection makes the old view stale: Add and
// Reconcile destroy it and build a new one. Models must be comparable
// (pointers in practice).
type ViewSet[M model.Keyed, V comparable] struct {
	cfg      config
	models   *model.Collection[M]
	factory  Factory[M, V]
	views    *lookup.Lookup[string, V]
	bound    map[string]any
	removing map[string]bool
	offs     []func()
}

// New creates a view set over models and subscribes to its changes.
// Existing models get their views at the first Reconcile.
func New[M model.Keyed, V comparable](models *model.Collection[M], factory Factory[M, V], opts ...Option) *ViewSet[M, V] {
	cfg := config{name: "views", logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &ViewSet[M, V]{
		cfg:      cfg,
		models:   models,
		factory:  factory,
		views:    lookup.New[string, V](),
		bound:    make(map[string]any),
		removing: make(map[string]bool),
	}
	s.offs = append(s.offs,
		models.OnAdd(s.modelAdded),
		models.OnRemove(s.modelRemoved),
	)
	return s
}

func (s *ViewSet[M, V]) modelAdded(m M) {
	if _, err := s.Add(m.Key()); err != nil {
		s.cfg.logger.Warn("View construction failed, deferring to reconcile",
			"set", s.cfg.name,
			"key", m.Key(),
			"err", err,
		)
	}
}

func (s *ViewSet[M, V]) modelRemoved(m M) {
	s.Remove(m.Key())
}

// Models returns the backing collection.
func (s *ViewSet[M, V]) Models() *model.Collection[M] { return s.models }

// Get returns the view for key.
func (s *ViewSet[M, V]) Get(key string) (V, bool) { return s.views.Get(key) }

// Has reports whether a view exists for key.
func (s *ViewSet[M, V]) Has(key string) bool { return s.views.Has(key) }

// Keys returns the view keys in creation order.
func (s *ViewSet[M, V]) Keys() []string { return s.views.Keys() }

// Values returns the views in creation order.
func (s *ViewSet[M, V]) Values() []V { return s.views.Values() }

// Len returns the number of views.
func (s *ViewSet[M, V]) Len() int { return s.views.Len() }

// On subscribes to view additions and removals.
func (s *ViewSet[M, V]) On(kind lookup.EventKind, fn lookup.Listener[string, V]) (off func()) {
	return s.views.On(kind, fn)
}

// Add builds and stores the view for the model with key. The model must be
// in the backing collection. An existing view built from the same model
// instance is returned unchanged; a view built from a replaced model is
// destroyed and rebuilt.
func (s *ViewSet[M, V]) Add(key string) (V, error) {
	m, ok := s.models.Get(key)
	if !ok {
		var zero V
		return zero, &domain.StaleReferenceError{Kind: "model", ID: key}
	}
	if v, ok := s.views.Get(key); ok {
		if s.bound[key] == any(m) {
			return v, nil
		}
		s.Remove(key)
	}
	v, err := s.factory(m)
	if err != nil {
		var zero V
		return zero, err
	}
	// The factory may have re-entered and built the view already.
	if existing, ok := s.views.Get(key); ok && s.bound[key] == any(m) {
		return existing, nil
	}
	s.bound[key] = m
	s.views.Add(key, v)
	if s.cfg.observer != nil {
		s.cfg.observer.ViewCreated(s.cfg.name)
	}
	return v, nil
}

// Remove destroys and drops the view for key. Missing keys are a no-op.
func (s *ViewSet[M, V]) Remove(key string) (V, bool) {
	v, ok := s.views.Get(key)
	if !ok || s.removing[key] {
		var zero V
		return zero, false
	}
	s.removing[key] = true
	defer delete(s.removing, key)

	if d, ok := any(v).(Destroyer); ok {
		d.Destroy()
	}
	if _, ok := s.views.Remove(key); !ok {
		return v, false
	}
	delete(s.bound, key)
	if s.cfg.observer != nil {
		s.cfg.observer.ViewDestroyed(s.cfg.name)
	}
	return v, true
}

// Reconcile removes views whose model is gone, adds views for models that
// have none (or only a view of a replaced model), then renders every view. The removal pass completes before the
// addition pass starts. Calling it again without model changes creates and
// destroys nothing.
func (s *ViewSet[M, V]) Reconcile() error {
	var errs []error

	removed := 0
	for _, key := range s.views.Keys() {
		if !s.models.Has(key) {
			if _, ok := s.Remove(key); ok {
				removed++
			}
		}
	}

	added := 0
	for _, key := range s.models.Keys() {
		if s.current(key) || !s.models.Has(key) {
			continue
		}
		if _, err := s.Add(key); err != nil {
			errs = append(errs, err)
			continue
		}
		added++
	}

	for _, p := range s.views.Pairs() {
		// A render hook may have removed later views.
		if cur, ok := s.views.Get(p.Key); !ok || cur != p.Value {
			continue
		}
		if r, ok := any(p.Value).(Renderer); ok {
			if err := r.Render(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if s.cfg.observer != nil {
		s.cfg.observer.Reconciled(s.cfg.name, added, removed)
	}
	return errors.Join(errs...)
}

// current reports whether key has a view built from the model now held
// under key.
func (s *ViewSet[M, V]) current(key string) bool {
	m, ok := s.models.Get(key)
	return ok && s.views.Has(key) && s.bound[key] == any(m)
}

// Render is Reconcile, named after the render pass that drives it.
func (s *ViewSet[M, V]) Render() error {
	return s.Reconcile()
}

// Close stops following the backing collection. Views are left in place.
func (s *ViewSet[M, V]) Close() {
	for _, off := range s.offs {
		off()
	}
	s.offs = nil
}
