package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/canvas"
	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/diagram"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates diagram access, ensuring safe concurrent edits.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store    ports.DiagramStore
	registry *diagram.Registry
	loader   ports.DefinitionLoader

	mu    sync.Mutex            // Guards locks and live
	locks map[string]*lockEntry // Active locks
	live  map[string]*diagram.Diagram

	newCanvas   func() canvas.Canvas
	diagramOpts []diagram.Option
	locker      ports.DistributedLocker
	lockTTL     time.Duration
	logger      *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking. Live diagrams are then reloaded
// from the store on every access, since another replica may have edited them.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock expiry (default 30s).
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLoader sets the source of definitions for diagrams not yet in the store.
func WithLoader(loader ports.DefinitionLoader) Option {
	return func(m *Manager) {
		m.loader = loader
	}
}

// WithDiagramOptions applies opts to every diagram the Manager builds.
func WithDiagramOptions(opts ...diagram.Option) Option {
	return func(m *Manager) {
		m.diagramOpts = append(m.diagramOpts, opts...)
	}
}

// WithCanvas sets the canvas factory (default: in-memory canvas).
func WithCanvas(factory func() canvas.Canvas) Option {
	return func(m *Manager) {
		m.newCanvas = factory
	}
}

// NewManager creates a workspace persisting to store and resolving node
// types through reg.
func NewManager(store ports.DiagramStore, reg *diagram.Registry, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		registry:  reg,
		locks:     make(map[string]*lockEntry),
		live:      make(map[string]*diagram.Diagram),
		newCanvas: func() canvas.Canvas { return canvas.NewMemory() },
		lockTTL:   30 * time.Second,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// WithLock executes fn while holding the lock for diagram id.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"diagram_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// View runs fn against the diagram without persisting afterwards.
func (m *Manager) View(ctx context.Context, id string, fn func(*diagram.Diagram) error) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		d, err := m.open(ctx, id)
		if err != nil {
			return err
		}
		return fn(d)
	})
}

// Edit runs fn against the diagram and then saves a snapshot, also when fn
// fails part way, as the live diagram already reflects whatever fn changed.
func (m *Manager) Edit(ctx context.Context, id string, fn func(*diagram.Diagram) error) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		d, err := m.open(ctx, id)
		if err != nil {
			return err
		}
		fnErr := fn(d)
		if err := m.store.Save(ctx, id, d.Snapshot()); err != nil {
			return errors.Join(fnErr, fmt.Errorf("failed to save diagram: %w", err))
		}
		return fnErr
	})
}

// Create builds a diagram from def and persists it, replacing any diagram
// with the same ID.
func (m *Manager) Create(ctx context.Context, def *config.Definition) (*diagram.Diagram, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("definition missing ID")
	}
	var d *diagram.Diagram
	err := m.WithLock(ctx, def.ID, func(ctx context.Context) error {
		var err error
		d, err = m.build(def)
		if err != nil {
			return err
		}
		if err := m.store.Save(ctx, def.ID, d.Snapshot()); err != nil {
			return fmt.Errorf("failed to save diagram: %w", err)
		}
		m.remember(def.ID, d)
		return nil
	})
	return d, err
}

// Delete forgets the live diagram and removes it from the store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		m.forget(id)
		return m.store.Delete(ctx, id)
	})
}

// Evict drops the live copy of a diagram; the next access rebuilds it.
func (m *Manager) Evict(id string) {
	m.forget(id)
}

// List returns the IDs of every diagram the workspace can open.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)

	stored, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range stored {
		seen[id] = true
	}
	if m.loader != nil {
		defs, err := m.loader.ListDefinitions()
		if err != nil {
			return nil, err
		}
		for _, id := range defs {
			seen[id] = true
		}
	}
	m.mu.Lock()
	for id := range m.live {
		seen[id] = true
	}
	m.mu.Unlock()

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Registry returns the node types diagrams are built from.
func (m *Manager) Registry() *diagram.Registry {
	return m.registry
}

// Store returns the underlying diagram store.
func (m *Manager) Store() ports.DiagramStore {
	return m.store
}

// open returns the live diagram, rebuilding it from the store, or from the
// loader's definition, when needed. Callers hold the diagram's lock.
func (m *Manager) open(ctx context.Context, id string) (*diagram.Diagram, error) {
	if m.locker == nil {
		m.mu.Lock()
		d, ok := m.live[id]
		m.mu.Unlock()
		if ok {
			return d, nil
		}
	}

	def, err := m.definition(ctx, id)
	if err != nil {
		return nil, err
	}
	d, err := m.build(def)
	if err != nil {
		return nil, err
	}
	m.remember(id, d)
	return d, nil
}

func (m *Manager) definition(ctx context.Context, id string) (*config.Definition, error) {
	snap, err := m.store.Load(ctx, id)
	if err == nil {
		m.logger.Debug("Diagram restored from store", "diagram_id", id)
		return config.FromSnapshot(snap), nil
	}
	if !errors.Is(err, domain.ErrDiagramNotFound) {
		return nil, fmt.Errorf("failed to load diagram: %w", err)
	}
	if m.loader == nil {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrDiagramNotFound)
	}

	raw, err := m.loader.GetDefinition(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrDiagramNotFound)
	}
	def, err := config.Parse(raw)
	if err != nil {
		return nil, err
	}
	if def.ID == "" {
		def.ID = id
	}
	if def.ID != id {
		return nil, fmt.Errorf("definition %s declares id %q", id, def.ID)
	}
	m.logger.Debug("Diagram built from definition", "diagram_id", id)
	return def, nil
}

// build creates the diagram and renders it so that its canvas is live.
func (m *Manager) build(def *config.Definition) (*diagram.Diagram, error) {
	opts := append([]diagram.Option{diagram.WithLogger(m.logger)}, m.diagramOpts...)
	d, err := config.Build(def, m.registry, m.newCanvas(), opts...)
	if err != nil {
		return nil, err
	}
	if err := d.Render(); err != nil {
		return nil, fmt.Errorf("failed to render diagram %s: %w", def.ID, err)
	}
	return d, nil
}

func (m *Manager) remember(id string, d *diagram.Diagram) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live[id] = d
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, id)
}
