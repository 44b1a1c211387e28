package cli

import (
	"context"
	"fmt"

	mcpAdapter "github.com/aretw0/espalier/pkg/adapters/mcp"
)

// MCP transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// RunMCP serves the workspace to MCP clients until ctx is cancelled or, on
// stdio, the client hangs up. Nothing but protocol traffic is written to
// stdout.
func RunMCP(ctx context.Context, opts Options, transport string, port int) error {
	if transport != TransportStdio && transport != TransportSSE {
		return fmt.Errorf("unknown transport %q (use %s or %s)", transport, TransportStdio, TransportSSE)
	}
	ws, err := OpenWorkspace(ctx, opts)
	if err != nil {
		return err
	}
	defer ws.Close()

	srv := mcpAdapter.NewServer(ws.Manager, mcpAdapter.WithLogger(ws.Logger))
	if transport == TransportSSE {
		return srv.ServeSSE(ctx, port)
	}
	return srv.ServeStdio()
}
