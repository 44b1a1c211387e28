package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/pkg/adapters/file"
	loamAdapter "github.com/aretw0/espalier/pkg/adapters/loam"
	"github.com/aretw0/espalier/pkg/adapters/redis"
	"github.com/aretw0/espalier/pkg/observability"
	"github.com/aretw0/espalier/pkg/persistence/middleware"
	"github.com/aretw0/espalier/pkg/session"
)

// Definition loaders.
const (
	LoaderFile = "file"
	LoaderLoam = "loam"
)

// Options are the flags shared by every command that opens a workspace.
type Options struct {
	// Dir holds the diagram definitions.
	Dir string
	// Loader selects how Dir is read: "file" (default) or "loam", which
	// also accepts Markdown documents with definition front matter.
	Loader string
	// StoreDir persists snapshots on disk. Empty means <Dir>/.espalier/diagrams.
	StoreDir string
	// Memory keeps snapshots in memory only, ignoring StoreDir.
	Memory bool
	// RedisAddr persists snapshots in Redis and enables distributed locking.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LogLevel      string
	// EncryptionKey seals saved snapshots with AES-256-GCM. It is the
	// base64 encoding of 32 bytes.
	EncryptionKey string
	// Redact masks saved field values whose name matches one of the
	// regular expressions.
	Redact []string
	// Metrics registers a Prometheus recorder on Workspace.Metrics.
	Metrics bool
}

// Workspace is an opened workspace with the resources behind it.
type Workspace struct {
	*session.Manager
	Metrics *prometheus.Registry
	Logger  *slog.Logger
	closers []func() error
}

// Close releases the store connection, if any.
func (w *Workspace) Close() error {
	var firstErr error
	for _, c := range w.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OpenWorkspace initializes a workspace with standard CLI conventions:
// Redis when an address is given, otherwise snapshots on disk next to the
// definitions.
func OpenWorkspace(ctx context.Context, opts Options) (*Workspace, error) {
	logger := createLogger(opts.LogLevel)
	w := &Workspace{Logger: logger}

	wsOpts := []espalier.Option{espalier.WithLogger(logger)}

	switch {
	case opts.RedisAddr != "":
		store := redis.New(opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
		if err := store.Client().Ping(ctx).Err(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.RedisAddr, err)
		}
		w.closers = append(w.closers, store.Close)
		wsOpts = append(wsOpts,
			espalier.WithStore(store),
			espalier.WithLocker(redis.NewLocker(store.Client(), "espalier:")),
		)
		logger.Info("Using Redis store", "addr", opts.RedisAddr)
	case !opts.Memory:
		dir := opts.StoreDir
		if dir == "" {
			dir = filepath.Join(opts.Dir, ".espalier", "diagrams")
		}
		wsOpts = append(wsOpts, espalier.WithStore(file.NewStore(dir)))
		logger.Info("Using file store", "dir", dir)
	}

	switch opts.Loader {
	case "", LoaderFile:
	case LoaderLoam:
		loader, err := loamAdapter.Open(opts.Dir)
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		wsOpts = append(wsOpts, espalier.WithLoader(loader))
	default:
		_ = w.Close()
		return nil, fmt.Errorf("unknown loader %q (use %s or %s)", opts.Loader, LoaderFile, LoaderLoam)
	}

	mws, err := storeMiddleware(opts)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	if len(mws) > 0 {
		wsOpts = append(wsOpts, espalier.WithStoreMiddleware(mws...))
	}

	if opts.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		recorder, err := observability.NewRecorder(reg)
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		w.Metrics = reg
		wsOpts = append(wsOpts, espalier.WithRecorder(recorder))
	}

	mgr, err := espalier.New(opts.Dir, wsOpts...)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("error initializing workspace: %w", err)
	}
	w.Manager = mgr
	return w, nil
}

func storeMiddleware(opts Options) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(opts.Redact) > 0 {
		mw, err := middleware.NewRedactMiddleware(opts.Redact)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if opts.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(opts.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("encryption key is not base64: %w", err)
		}
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}
