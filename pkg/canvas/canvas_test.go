package canvas_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/canvas"
	"github.com/aretw0/espalier/pkg/domain"
)

func TestMemory_Place(t *testing.T) {
	c := canvas.NewMemory()
	require.NoError(t, c.Place(canvas.Element{Anchor: "slot-a", Position: domain.Position{X: 10, Y: 20}}))
	require.NoError(t, c.Place(canvas.Element{Anchor: "node-1", Parent: "slot-a", HTML: "<p>edit</p>"}))
	require.NoError(t, c.Place(canvas.Element{Anchor: "node-1", HTML: "<p>preview</p>"}))

	el, ok := c.Element("node-1")
	require.True(t, ok)
	assert.Equal(t, "slot-a", el.Parent)
	assert.Equal(t, "<p>preview</p>", string(el.HTML))

	err := c.Place(canvas.Element{Anchor: "orphan", Parent: "missing"})
	var stale *domain.StaleReferenceError
	assert.ErrorAs(t, err, &stale)
	assert.Error(t, c.Place(canvas.Element{}))
}

func TestMemory_RemoveCascades(t *testing.T) {
	c := canvas.NewMemory()
	require.NoError(t, c.Place(canvas.Element{Anchor: "slot-a"}))
	require.NoError(t, c.Place(canvas.Element{Anchor: "node-1", Parent: "slot-a"}))
	require.NoError(t, c.Place(canvas.Element{Anchor: "ep-1", Parent: "node-1"}))

	c.Remove("node-1")
	c.Remove("node-1")

	_, ok := c.Element("ep-1")
	assert.False(t, ok)
	_, ok = c.Element("slot-a")
	assert.True(t, ok)
}

func TestMemory_Wires(t *testing.T) {
	c := canvas.NewMemory()
	require.NoError(t, c.Place(canvas.Element{Anchor: "x1"}))
	require.NoError(t, c.Place(canvas.Element{Anchor: "y1"}))

	var connected, detached []string
	c.OnConnect(func(w *canvas.Wire) { connected = append(connected, w.ID) })
	c.OnDetach(func(w *canvas.Wire) { detached = append(detached, w.ID) })

	w, err := c.Connect("x1", "y1", "leftToRight")
	require.NoError(t, err)
	assert.Equal(t, []string{w.ID}, connected)
	assert.Len(t, c.Wires(), 1)

	require.NoError(t, c.Detach(w))
	assert.ErrorIs(t, c.Detach(w), canvas.ErrUnknownWire)
	assert.Equal(t, []string{w.ID}, detached)
	assert.Empty(t, c.Wires())

	_, err = c.Connect("x1", "nowhere", "")
	var stale *domain.StaleReferenceError
	assert.ErrorAs(t, err, &stale)
}

func TestMemory_HTML(t *testing.T) {
	c := canvas.NewMemory()
	require.NoError(t, c.Place(canvas.Element{Anchor: "slot-a", Class: "slot", Position: domain.Position{X: 5, Y: 7}}))
	require.NoError(t, c.Place(canvas.Element{Anchor: "node-1", Parent: "slot-a", HTML: "<b>hi</b>"}))
	require.NoError(t, c.Place(canvas.Element{Anchor: "slot-b"}))
	_, err := c.Connect("slot-a", "slot-b", "a<b")
	require.NoError(t, err)

	out := string(c.HTML())
	assert.Contains(t, out, `<div id="slot-a" class="slot" style="position:absolute;left:5px;top:7px">`)
	assert.Contains(t, out, `<div id="node-1" class=""><b>hi</b></div>`)
	assert.Contains(t, out, `a&lt;b`)

	snap := c.Snapshot()
	assert.Len(t, snap.Elements, 3)
	assert.Len(t, snap.Wires, 1)
}
