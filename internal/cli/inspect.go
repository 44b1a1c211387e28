package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/espalier/internal/presentation/graph"
	"github.com/aretw0/espalier/internal/presentation/tui"
	"github.com/aretw0/espalier/pkg/diagram"
	"github.com/aretw0/espalier/pkg/domain"
)

func snapshot(ctx context.Context, opts Options, id string) (*domain.Snapshot, error) {
	ws, err := OpenWorkspace(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	var snap *domain.Snapshot
	err = ws.View(ctx, id, func(d *diagram.Diagram) error {
		snap = d.Snapshot()
		return nil
	})
	return snap, err
}

// RunGraph writes the Mermaid flowchart of diagram id.
func RunGraph(ctx context.Context, out io.Writer, opts Options, id string, overlay *graph.GraphOverlay) error {
	snap, err := snapshot(ctx, opts, id)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, graph.GenerateMermaid(snap, overlay))
	return err
}

// RunPreview writes a readable summary of diagram id, rendered for the
// terminal when out is one.
func RunPreview(ctx context.Context, out *os.File, opts Options, id string) error {
	snap, err := snapshot(ctx, opts, id)
	if err != nil {
		return err
	}
	render, err := tui.NewRenderer(out)
	if err != nil {
		return err
	}
	text, err := render(tui.Summary(snap))
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, text)
	return err
}

// RunInspect writes the snapshot of diagram id as indented JSON.
func RunInspect(ctx context.Context, out io.Writer, opts Options, id string) error {
	snap, err := snapshot(ctx, opts, id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// RunList writes the IDs of every diagram in the workspace.
func RunList(ctx context.Context, out io.Writer, opts Options) error {
	ws, err := OpenWorkspace(ctx, opts)
	if err != nil {
		return err
	}
	defer ws.Close()

	ids, err := ws.List(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(out, "No diagrams found.")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(out, "- "+id)
	}
	return nil
}

// RunRemove deletes the stored snapshots of ids. Definitions are untouched,
// so a removed diagram reverts to its definition.
func RunRemove(ctx context.Context, out io.Writer, opts Options, ids []string) error {
	ws, err := OpenWorkspace(ctx, opts)
	if err != nil {
		return err
	}
	defer ws.Close()

	failed := 0
	for _, id := range ids {
		if err := ws.Delete(ctx, id); err != nil {
			fmt.Fprintf(out, "Error removing '%s': %v\n", id, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "Removed diagram '%s'\n", id)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d removals failed", failed, len(ids))
	}
	return nil
}
