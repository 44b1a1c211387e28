package diagram_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/canvas"
	"github.com/aretw0/espalier/pkg/diagram"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/model"
	"github.com/aretw0/espalier/pkg/plumbing"
	"github.com/aretw0/espalier/pkg/states"
)

func newDiagram(t *testing.T, opts ...diagram.Option) (*diagram.Diagram, *canvas.Memory) {
	t.Helper()
	c := canvas.NewMemory()
	return diagram.New(states.NewRegistry(), c, opts...), c
}

func TestSlot_Reset(t *testing.T) {
	d, _ := newDiagram(t)

	s, err := d.AddSlot("s1", domain.Position{X: 10, Y: 20}, "", diagram.ResetOptions{})
	require.NoError(t, err)
	require.NotNil(t, s.Node())
	assert.Equal(t, states.TypeChoice, s.Type(), "Default type is choice")

	first := s.Node()
	firstModel := first.Model()

	t.Run("Retyping Replaces Node And Model", func(t *testing.T) {
		_, err := s.Reset(states.TypeFreetext, diagram.ResetOptions{})
		require.NoError(t, err)

		assert.Equal(t, states.TypeFreetext, s.Node().Type())
		assert.NotSame(t, first, s.Node())
		assert.False(t, d.Models().Has(firstModel.ID()), "Old model must leave the collection")
		assert.True(t, firstModel.Destroyed())
		assert.True(t, first.Destroyed())
		assert.Equal(t, 1, d.Models().Len())
		assert.Equal(t, 1, d.States().Len())
	})

	t.Run("Same Type Still Rebuilds", func(t *testing.T) {
		before := s.Node()
		_, err := s.Reset(states.TypeFreetext, diagram.ResetOptions{})
		require.NoError(t, err)
		assert.NotSame(t, before, s.Node())
		assert.NotEqual(t, before.ID(), s.Node().ID())
		assert.Equal(t, 1, d.Models().Len())
	})

	t.Run("Identity And Position Survive", func(t *testing.T) {
		assert.Equal(t, "s1", s.ID())
		assert.Equal(t, domain.Position{X: 10, Y: 20}, s.Position())
		assert.Same(t, s.Node().Slot(), s)
	})

	t.Run("Unknown Type Leaves Slot Untouched", func(t *testing.T) {
		before := s.Node()
		_, err := s.Reset("smoke_signal", diagram.ResetOptions{})
		var resErr *domain.ResolutionError
		require.ErrorAs(t, err, &resErr)
		assert.Equal(t, "smoke_signal", resErr.Name)
		assert.Same(t, before, s.Node())
		assert.False(t, before.Destroyed())
	})

	t.Run("Foreign Endpoint Leaves Slot Untouched", func(t *testing.T) {
		other, err := d.AddSlot("s2", domain.Position{X: 300}, states.TypeChoice, diagram.ResetOptions{})
		require.NoError(t, err)
		taken, ok := other.Node().Endpoint(states.ExitEndpoint)
		require.True(t, ok)

		before := s.Node()
		_, err = s.Reset(states.TypeChoice, diagram.ResetOptions{
			Fields: map[string]any{states.ExitEndpoint: taken.ID},
		})
		require.ErrorIs(t, err, domain.ErrEndpointInUse)
		assert.Same(t, before, s.Node())
		assert.False(t, before.Destroyed())
		assert.Equal(t, states.TypeFreetext, s.Type())
		assert.True(t, d.Models().Has(before.ID()))
		assert.False(t, taken.Destroyed())
		assert.Equal(t, 2, d.Models().Len())

		require.NoError(t, d.RemoveSlot("s2"))
	})

	t.Run("Own Endpoints Can Be Kept", func(t *testing.T) {
		exit, ok := s.Node().Endpoint(states.ExitEndpoint)
		require.True(t, ok)

		_, err := s.Reset(states.TypeChoice, diagram.ResetOptions{
			Fields: map[string]any{states.ExitEndpoint: exit.ID},
		})
		require.NoError(t, err)
		kept, ok := s.Node().Endpoint(states.ExitEndpoint)
		require.True(t, ok)
		assert.Equal(t, exit.ID, kept.ID)
		assert.NotSame(t, exit, kept)
	})

	t.Run("Repeated Endpoint In Fields", func(t *testing.T) {
		before := s.Node()
		_, err := s.Reset(states.TypeFreetext, diagram.ResetOptions{
			Fields: map[string]any{states.EntryEndpoint: "twin", states.ExitEndpoint: "twin"},
		})
		require.ErrorIs(t, err, domain.ErrEndpointInUse)
		assert.Same(t, before, s.Node())
	})
}

func TestSlot_ResetDropsConnections(t *testing.T) {
	d, c := newDiagram(t)
	render := diagram.ResetOptions{Render: true}

	a, err := d.AddSlot("a", domain.Position{}, states.TypeChoice, render)
	require.NoError(t, err)
	b, err := d.AddSlot("b", domain.Position{X: 200}, states.TypeFreetext, render)
	require.NoError(t, err)

	exit, ok := a.Node().Endpoint(states.ExitEndpoint)
	require.True(t, ok)
	entry, ok := b.Node().Endpoint(states.EntryEndpoint)
	require.True(t, ok)

	conn, err := d.Connect(exit.ID, entry.ID, plumbing.ConnectOptions{Render: true})
	require.NoError(t, err)
	assert.Equal(t, "exitToEntry", conn.Model.Group)
	assert.Len(t, c.Wires(), 1)

	_, err = d.ResetSlot("b", states.TypeEnd, render)
	require.NoError(t, err)

	assert.Equal(t, 0, d.Connections().Models().Len())
	assert.Equal(t, 0, d.Connections().Views().Len())
	assert.Empty(t, c.Wires())
	assert.True(t, conn.Destroyed())
	assert.True(t, entry.Destroyed())
	assert.False(t, exit.Destroyed(), "Endpoints of the other node survive")

	_, ok = c.Element(entry.ID)
	assert.False(t, ok)
}

func TestDiagram_ConnectRejectsWrongDirection(t *testing.T) {
	d, _ := newDiagram(t)
	a, err := d.AddSlot("a", domain.Position{}, states.TypeChoice, diagram.ResetOptions{})
	require.NoError(t, err)
	b, err := d.AddSlot("b", domain.Position{}, states.TypeChoice, diagram.ResetOptions{})
	require.NoError(t, err)

	aEntry, _ := a.Node().Endpoint(states.EntryEndpoint)
	bExit, _ := b.Node().Endpoint(states.ExitEndpoint)
	aExit, _ := a.Node().Endpoint(states.ExitEndpoint)

	_, err = d.Connect(aEntry.ID, bExit.ID, plumbing.ConnectOptions{})
	assert.ErrorIs(t, err, domain.ErrNotAccepted)

	_, err = d.Connect(aExit.ID, aEntry.ID, plumbing.ConnectOptions{})
	assert.ErrorIs(t, err, domain.ErrNotAccepted, "Self loops are rejected")

	_, err = d.Connect(bExit.ID, aEntry.ID, plumbing.ConnectOptions{})
	assert.NoError(t, err)
	assert.Equal(t, 1, d.Connections().Models().Len())
}

func TestNode_ModeSwitch(t *testing.T) {
	var switches []string
	d, c := newDiagram(t, diagram.WithLifecycleHooks(domain.LifecycleHooks{
		OnModeSwitch: func(e *domain.NodeEvent) { switches = append(switches, e.Mode) },
	}))
	s, err := d.AddSlot("s1", domain.Position{}, states.TypeChoice, diagram.ResetOptions{
		Render: true,
		Fields: map[string]any{"text": "Pick one", "options": []string{"yes", "no"}},
	})
	require.NoError(t, err)
	n := s.Node()

	el, ok := c.Element(n.Anchor())
	require.True(t, ok)
	assert.Contains(t, string(el.HTML), "choice-edit")
	assert.Equal(t, "slot-s1", el.Parent)

	require.NoError(t, n.Preview())
	el, _ = c.Element(n.Anchor())
	assert.Contains(t, string(el.HTML), "choice-preview")
	assert.NotContains(t, string(el.HTML), "choice-edit", "Preview replaces the edit markup")
	assert.Contains(t, string(el.HTML), "<li>yes</li>")
	assert.Equal(t, diagram.ModePreview, n.Mode())

	t.Run("Mode Views Share The Model", func(t *testing.T) {
		require.NoError(t, n.Edit())
		require.NoError(t, n.Change("text", "Changed"))
		assert.Equal(t, "Changed", n.ModeView(diagram.ModePreview).Data()["text"])
		assert.Equal(t, "Changed", n.ModeView(diagram.ModeEdit).Data()["text"])
	})

	t.Run("Same Mode Re Renders", func(t *testing.T) {
		before := n.Renders()
		require.NoError(t, n.Edit())
		assert.Equal(t, before+1, n.Renders())
	})

	t.Run("Preview Rejects Edits", func(t *testing.T) {
		require.NoError(t, n.Preview())
		assert.Error(t, n.Change("text", "nope"))
	})

	assert.Equal(t, []string{"preview", "edit", "edit", "preview"}, switches)

	t.Run("Endpoints Survive Mode Switch", func(t *testing.T) {
		for _, ep := range n.Endpoints() {
			_, ok := c.Element(ep.ID)
			assert.True(t, ok, ep.Attr)
		}
	})
}

func TestNode_ChangeUnknownField(t *testing.T) {
	d, _ := newDiagram(t)
	s, err := d.AddSlot("s1", domain.Position{}, states.TypeFreetext, diagram.ResetOptions{})
	require.NoError(t, err)

	err = s.Node().Change("colour", "red")
	var resErr *domain.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "field", resErr.Kind)
}

func TestNode_ChangeInPreview(t *testing.T) {
	d, _ := newDiagram(t)
	s, err := d.AddSlot("s1", domain.Position{}, states.TypeFreetext, diagram.ResetOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Node().Preview())

	err = s.Node().Change("text", "hello")
	assert.ErrorIs(t, err, domain.ErrReadOnly)
}

func TestDiagram_Slots(t *testing.T) {
	d, c := newDiagram(t)

	_, err := d.AddSlot("s1", domain.Position{}, "", diagram.ResetOptions{})
	require.NoError(t, err)
	_, err = d.AddSlot("s1", domain.Position{}, "", diagram.ResetOptions{})
	assert.ErrorIs(t, err, domain.ErrDuplicateSlot)

	_, err = d.AddSlot("s2", domain.Position{}, "nope", diagram.ResetOptions{})
	assert.Error(t, err)
	_, ok := d.Slot("s2")
	assert.False(t, ok, "Failed slot creation is rolled back")

	_, err = d.ResetSlot("missing", states.TypeEnd, diagram.ResetOptions{})
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)
	_, err = d.SlotNode("missing")
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)

	require.NoError(t, d.Render())
	_, ok = c.Element("slot-s1")
	assert.True(t, ok)

	require.NoError(t, d.RemoveSlot("s1"))
	assert.Equal(t, 0, d.Models().Len())
	assert.Equal(t, 0, d.States().Len())
	_, ok = c.Element("slot-s1")
	assert.False(t, ok)
	assert.True(t, errors.Is(d.RemoveSlot("s1"), domain.ErrSlotNotFound))
}

func TestDiagram_LifecycleHooks(t *testing.T) {
	var events []domain.EventType
	record := func(e *domain.NodeEvent) { events = append(events, e.Type) }
	d, _ := newDiagram(t, diagram.WithLifecycleHooks(domain.LifecycleHooks{
		OnNodeCreate:  record,
		OnNodeDestroy: record,
		OnSlotReset:   record,
	}))

	_, err := d.AddSlot("s1", domain.Position{}, "", diagram.ResetOptions{})
	require.NoError(t, err)
	_, err = d.ResetSlot("s1", states.TypeEnd, diagram.ResetOptions{})
	require.NoError(t, err)

	assert.Equal(t, []domain.EventType{
		domain.EventNodeCreate,
		domain.EventNodeDestroy,
		domain.EventNodeCreate,
		domain.EventSlotReset,
	}, events)
}

func TestDiagram_Snapshot(t *testing.T) {
	d, _ := newDiagram(t, diagram.WithID("support"))
	a, err := d.AddSlot("a", domain.Position{X: 1, Y: 2}, states.TypeChoice, diagram.ResetOptions{
		Fields: map[string]any{"text": "Hello"},
	})
	require.NoError(t, err)
	b, err := d.AddSlot("b", domain.Position{}, states.TypeEnd, diagram.ResetOptions{})
	require.NoError(t, err)

	exit, _ := a.Node().Endpoint(states.ExitEndpoint)
	entry, _ := b.Node().Endpoint(states.EntryEndpoint)
	_, err = d.Connect(exit.ID, entry.ID, plumbing.ConnectOptions{ID: "c1"})
	require.NoError(t, err)

	snap := d.Snapshot()
	assert.Equal(t, "support", snap.ID)
	require.Len(t, snap.Nodes, 2)

	first, ok := snap.Node("a")
	require.True(t, ok)
	assert.Equal(t, states.TypeChoice, first.Type)
	assert.Equal(t, "Hello", first.Fields["text"])
	assert.NotContains(t, first.Fields, states.ExitEndpoint, "Endpoint IDs are reported as endpoints, not fields")
	assert.Len(t, first.Endpoints, 2)
	assert.Equal(t, domain.Position{X: 1, Y: 2}, first.Position)

	require.Len(t, snap.Connections, 1)
	assert.Equal(t, "c1", snap.Connections[0].ID)
	assert.Equal(t, exit.ID, snap.Connections[0].Source)
}

func TestDiagram_DuplicateEndpointIDs(t *testing.T) {
	d, _ := newDiagram(t)
	_, err := d.AddSlot("a", domain.Position{}, states.TypeEnd, diagram.ResetOptions{
		Fields: map[string]any{states.EntryEndpoint: "shared"},
	})
	require.NoError(t, err)

	_, err = d.AddSlot("b", domain.Position{}, states.TypeEnd, diagram.ResetOptions{
		Fields: map[string]any{states.EntryEndpoint: "shared"},
	})
	assert.ErrorIs(t, err, domain.ErrEndpointInUse)
	assert.Equal(t, 1, d.Models().Len(), "Failed node creation leaves no model behind")
}

func TestApplyField(t *testing.T) {
	m := model.NewWithID("hook", "http_json", map[string]any{"url": "http://old"})
	changes := 0
	m.OnChange(func(*model.Model, string, any) { changes++ })

	diagram.ApplyField(m, "url", diagram.None, diagram.Plain)
	assert.Equal(t, "http://old", m.Get("url"))

	diagram.ApplyField(m, "url", "http://new", diagram.Plain)
	assert.Equal(t, "http://new", m.Get("url"))

	diagram.ApplyField(m, "channel_type", "sms", diagram.Wrap("value"))
	assert.Equal(t, map[string]any{"value": "sms"}, m.Get("channel_type"))

	diagram.ApplyField(m, "url", diagram.Unassigned, diagram.Plain)
	assert.Nil(t, m.Get("url"))

	assert.Zero(t, changes, "field writes are silent")
}
