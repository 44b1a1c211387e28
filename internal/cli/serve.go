package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/internal/presentation/tui"
	httpAdapter "github.com/aretw0/espalier/pkg/adapters/http"
)

const shutdownTimeout = 5 * time.Second

// RunServe serves the workspace over HTTP until ctx is cancelled.
func RunServe(ctx context.Context, out io.Writer, opts Options, addr string) error {
	opts.Metrics = true
	ws, err := OpenWorkspace(ctx, opts)
	if err != nil {
		return err
	}
	defer ws.Close()

	handler := httpAdapter.NewHandler(ws.Manager,
		httpAdapter.WithLogger(ws.Logger),
		httpAdapter.WithMetrics(ws.Metrics),
	)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tui.PrintBanner(out, espalier.Version)
	printSystemMessage(out, "Serving diagrams from %s on %s", opts.Dir, addr)

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		printSystemMessage(out, "Shutting down...")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			ws.Logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		printSystemMessage(out, "Server stopped gracefully")
		return nil
	}
}
