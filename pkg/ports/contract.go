package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/domain"
)

func contractSnapshot(id string) *domain.Snapshot {
	return &domain.Snapshot{
		ID: id,
		Groups: []domain.GroupSnapshot{
			{Name: "exitToEntry", From: domain.MatchSnapshot{Role: "exit"}, To: domain.MatchSnapshot{Role: "entry"}},
		},
		Nodes: []domain.NodeSnapshot{
			{
				SlotID: "ask", NodeID: "n1", Type: "choice", Mode: "edit",
				Position:  domain.Position{X: 1, Y: 2},
				Fields:    map[string]any{"text": "Hi?", "options": []any{"a", "b"}},
				Endpoints: []domain.EndpointSnapshot{{ID: "e1", Attr: "exit_endpoint", Role: "exit", Side: "right"}},
			},
			{SlotID: "bye", NodeID: "n2", Type: "end", Mode: "preview"},
		},
		Connections: []domain.ConnectionSnapshot{{ID: "c1", Group: "exitToEntry", Source: "e1", Target: "e2"}},
	}
}

// RunDiagramStoreContract runs a suite of tests to verify that a DiagramStore
// implementation adheres to the defined interface contract.
func RunDiagramStoreContract(t *testing.T, store DiagramStore) {
	ctx := context.Background()
	diagramID := "contract-test-diagram-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := contractSnapshot(diagramID)

		err := store.Save(ctx, diagramID, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, diagramID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap.ID, loaded.ID)
		assert.Equal(t, snap.Groups, loaded.Groups)
		assert.Equal(t, snap.Connections, loaded.Connections)
		require.Len(t, loaded.Nodes, 2)
		assert.Equal(t, snap.Nodes[0].Endpoints, loaded.Nodes[0].Endpoints)
		assert.Equal(t, "Hi?", loaded.Nodes[0].Fields["text"])
		assert.Equal(t, domain.Position{X: 1, Y: 2}, loaded.Nodes[0].Position)
	})

	t.Run("Load Is Isolated From Caller", func(t *testing.T) {
		loaded, err := store.Load(ctx, diagramID)
		require.NoError(t, err)
		loaded.Nodes[0].Fields["text"] = "mutated"

		again, err := store.Load(ctx, diagramID)
		require.NoError(t, err)
		assert.Equal(t, "Hi?", again.Nodes[0].Fields["text"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+diagramID)
		assert.ErrorIs(t, err, domain.ErrDiagramNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, diagramID, contractSnapshot(diagramID))
		require.NoError(t, err)

		err = store.Delete(ctx, diagramID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, diagramID)
		assert.ErrorIs(t, err, domain.ErrDiagramNotFound, "Load after Delete should return ErrDiagramNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := diagramID + "-1"
		id2 := diagramID + "-2"
		_ = store.Save(ctx, id1, contractSnapshot(id1))
		_ = store.Save(ctx, id2, contractSnapshot(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
