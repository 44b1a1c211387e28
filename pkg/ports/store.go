package ports

import (
	"context"

	"github.com/aretw0/espalier/pkg/domain"
)

// DiagramStore defines the interface for persisting diagram snapshots.
// This lets an edited diagram outlive the process that edited it.
type DiagramStore interface {
	// Save persists the snapshot under the given diagram ID.
	Save(ctx context.Context, diagramID string, snap *domain.Snapshot) error

	// Load retrieves the snapshot for a given diagram ID.
	// Returns domain.ErrDiagramNotFound if the diagram does not exist.
	Load(ctx context.Context, diagramID string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a given diagram ID.
	Delete(ctx context.Context, diagramID string) error

	// List returns the IDs of stored diagrams.
	List(ctx context.Context) ([]string, error)
}
