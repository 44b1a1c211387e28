package espalier

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/adapters/file"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/diagram"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/observability"
	"github.com/aretw0/espalier/pkg/persistence/middleware"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/session"
	"github.com/aretw0/espalier/pkg/states"
)

// Version is the release of this module.
//
//go:embed VERSION
var Version string

type workspace struct {
	loader   ports.DefinitionLoader
	store    ports.DiagramStore
	storeMWs []middleware.Middleware
	locker   ports.DistributedLocker
	registry *diagram.Registry
	recorder *observability.Recorder
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
}

// Option defines a functional option for configuring the workspace.
type Option func(*workspace)

// WithLoader injects a custom DefinitionLoader, bypassing the directory loader.
func WithLoader(l ports.DefinitionLoader) Option {
	return func(w *workspace) {
		w.loader = l
	}
}

// WithStore sets where diagram snapshots are persisted (default: in memory).
func WithStore(s ports.DiagramStore) Option {
	return func(w *workspace) {
		w.store = s
	}
}

// WithStoreMiddleware wraps the store, first middleware outermost.
func WithStoreMiddleware(mws ...middleware.Middleware) Option {
	return func(w *workspace) {
		w.storeMWs = append(w.storeMWs, mws...)
	}
}

// WithLocker enables distributed locking across replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(w *workspace) {
		w.locker = l
	}
}

// WithRegistry replaces the built-in node types.
func WithRegistry(reg *diagram.Registry) Option {
	return func(w *workspace) {
		w.registry = reg
	}
}

// WithRecorder exports lifecycle and view churn metrics through r.
func WithRecorder(r *observability.Recorder) Option {
	return func(w *workspace) {
		w.recorder = r
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(w *workspace) {
		w.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *workspace) {
		w.logger = logger
	}
}

// New creates a diagram workspace.
// By default, definitions are read from dir and snapshots are kept in memory.
// If WithLoader is provided, dir can be empty.
func New(dir string, opts ...Option) (*session.Manager, error) {
	w := &workspace{
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.loader == nil {
		if dir == "" {
			return nil, fmt.Errorf("dir is required when no custom loader is provided")
		}
		absPath, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path: %w", err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open definitions: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", absPath)
		}
		w.loader = file.New(absPath)
	}
	if w.store == nil {
		w.store = memory.NewStore()
	}
	store := middleware.Chain(w.store, w.storeMWs...)
	if w.registry == nil {
		w.registry = states.NewRegistry()
	}

	sets := []domain.LifecycleHooks{observability.LogHooks(w.logger), w.hooks}
	diagramOpts := []diagram.Option{}
	if w.recorder != nil {
		sets = append(sets, w.recorder.Hooks())
		diagramOpts = append(diagramOpts, diagram.WithObserver(w.recorder))
	}
	diagramOpts = append(diagramOpts, diagram.WithLifecycleHooks(observability.Combine(sets...)))

	mgrOpts := []session.Option{
		session.WithLoader(w.loader),
		session.WithLogger(w.logger),
		session.WithDiagramOptions(diagramOpts...),
	}
	if w.locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(w.locker))
	}
	return session.NewManager(store, w.registry, mgrOpts...), nil
}
