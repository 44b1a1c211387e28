package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/dsl"
	"github.com/aretw0/espalier/pkg/session"
	"github.com/aretw0/espalier/pkg/states"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	b := dsl.New("support")
	b.Add("ask").Choice("Did that help?", "yes", "no").To("details")
	b.Add("details").At(1, 0).Freetext("Tell us more").To("bye")
	b.Add("bye").At(2, 0).End("Thanks!").Preview()

	loader, err := memory.NewFromDefinitions(b.Definition())
	require.NoError(t, err)
	mgr := session.NewManager(memory.NewStore(), states.NewRegistry(), session.WithLoader(loader))
	return NewServer(mgr)
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func endpoint(t *testing.T, snap domain.Snapshot, slot, attr string) string {
	t.Helper()
	n, ok := snap.Node(slot)
	require.True(t, ok, "slot %s", slot)
	for _, ep := range n.Endpoints {
		if ep.Attr == attr {
			return ep.ID
		}
	}
	t.Fatalf("slot %s has no endpoint %s", slot, attr)
	return ""
}

func TestServer_Tools(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, []string{
		"list_diagrams", "list_types", "get_diagram", "graph",
		"add_slot", "remove_slot", "reset_slot", "set_mode",
		"change_field", "connect", "disconnect",
	}, s.Tools())
}

func TestServer_ListAndGet(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	list, err := s.handleList(ctx, callRequest("list_diagrams", nil), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"support"}, list.Diagrams)

	snap, err := s.handleGet(ctx, callRequest("get_diagram", nil), DiagramArgs{ID: "support"})
	require.NoError(t, err)
	assert.Len(t, snap.Nodes, 3)
	assert.Len(t, snap.Connections, 2)

	_, err = s.handleGet(ctx, callRequest("get_diagram", nil), DiagramArgs{ID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrDiagramNotFound)

	types, err := s.handleTypes(ctx, callRequest("list_types", nil), nil)
	require.NoError(t, err)
	assert.Len(t, types.Types, 4)
}

func TestServer_Graph(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleGraph(ctx, callRequest("graph", map[string]any{"id": "support", "selected": "ask"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "graph LR")
	assert.Contains(t, text.Text, "class ask selected")

	res, err = s.handleGraph(ctx, callRequest("graph", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestServer_Editing(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	t.Run("Change Field", func(t *testing.T) {
		snap, err := s.handleChangeField(ctx, callRequest("change_field", nil), FieldArgs{
			ID: "support", Slot: "ask", Field: "text", Value: "Better\x00 now?",
		})
		require.NoError(t, err)
		n, _ := snap.Node("ask")
		assert.Equal(t, "Better now?", n.Fields["text"])
	})

	t.Run("Preview Rejects Edits", func(t *testing.T) {
		_, err := s.handleSetMode(ctx, callRequest("set_mode", nil), ModeArgs{ID: "support", Slot: "ask", Mode: "preview"})
		require.NoError(t, err)

		_, err = s.handleChangeField(ctx, callRequest("change_field", nil), FieldArgs{
			ID: "support", Slot: "ask", Field: "text", Value: "Nope",
		})
		assert.ErrorIs(t, err, domain.ErrReadOnly)

		_, err = s.handleSetMode(ctx, callRequest("set_mode", nil), ModeArgs{ID: "support", Slot: "ask", Mode: "sideways"})
		assert.Error(t, err)
	})

	t.Run("Reset", func(t *testing.T) {
		snap, err := s.handleReset(ctx, callRequest("reset_slot", nil), ResetArgs{
			ID: "support", Slot: "details", Type: states.TypeEnd,
		})
		require.NoError(t, err)
		n, _ := snap.Node("details")
		assert.Equal(t, states.TypeEnd, n.Type)
	})

	t.Run("Add And Remove Slot", func(t *testing.T) {
		snap, err := s.handleAddSlot(ctx, callRequest("add_slot", nil), AddSlotArgs{
			ID: "support", Slot: "extra", Type: states.TypeEnd, X: 3,
		})
		require.NoError(t, err)
		assert.Len(t, snap.Nodes, 4)

		snap, err = s.handleRemoveSlot(ctx, callRequest("remove_slot", nil), SlotArgs{ID: "support", Slot: "extra"})
		require.NoError(t, err)
		assert.Len(t, snap.Nodes, 3)
	})
}

func TestServer_Connections(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	snap, err := s.handleGet(ctx, callRequest("get_diagram", nil), DiagramArgs{ID: "support"})
	require.NoError(t, err)
	first := snap.Connections[0].ID

	after, err := s.handleDisconnect(ctx, callRequest("disconnect", nil), DisconnectArgs{ID: "support", Connection: first})
	require.NoError(t, err)
	assert.Len(t, after.Connections, 1)

	_, err = s.handleDisconnect(ctx, callRequest("disconnect", nil), DisconnectArgs{ID: "support", Connection: first})
	assert.Error(t, err)

	_, err = s.handleConnect(ctx, callRequest("connect", nil), ConnectArgs{
		ID:     "support",
		Source: endpoint(t, snap, "details", states.EntryEndpoint),
		Target: endpoint(t, snap, "ask", states.ExitEndpoint),
	})
	assert.ErrorIs(t, err, domain.ErrNotAccepted)

	after, err = s.handleConnect(ctx, callRequest("connect", nil), ConnectArgs{
		ID:     "support",
		Source: endpoint(t, snap, "ask", states.ExitEndpoint),
		Target: endpoint(t, snap, "details", states.EntryEndpoint),
	})
	require.NoError(t, err)
	assert.Len(t, after.Connections, 2)
}

func TestServer_StructuredErrors(t *testing.T) {
	s := newTestServer(t)
	handler := mcp.NewStructuredToolHandler(s.handleReset)

	res, err := handler(context.Background(), callRequest("reset_slot", map[string]any{
		"id": "support", "slot": "ghost", "type": states.TypeEnd,
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = handler(context.Background(), callRequest("reset_slot", map[string]any{
		"id": "support", "slot": "bye", "type": states.TypeFreetext,
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
}

func TestServer_ReadDiagram(t *testing.T) {
	s := newTestServer(t)
	req := mcp.ReadResourceRequest{}
	req.Params.URI = "espalier://diagrams/support"

	contents, err := s.readDiagram(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "application/json", text.MIMEType)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal([]byte(text.Text), &snap))
	assert.Equal(t, "support", snap.ID)

	req.Params.URI = "espalier://other"
	_, err = s.readDiagram(context.Background(), req)
	assert.Error(t, err)
}
