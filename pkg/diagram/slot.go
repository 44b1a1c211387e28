package diagram

import (
	"github.com/aretw0/espalier/pkg/canvas"
	"github.com/aretw0/espalier/pkg/domain"
)

// ResetOptions tweaks Slot.Reset.
type ResetOptions struct {
	// Render draws the new node immediately.
	Render bool
	// Fields seeds the new model on top of the type defaults.
	Fields map[string]any
	// Mode is the initial mode of the new node (default: edit).
	Mode Mode
}

// Slot is a fixed diagram position holding exactly one swappable node.
// The slot's identity and position survive every Reset.
type Slot struct {
	id       string
	diagram  *Diagram
	position domain.Position
	typ      string
	node     *Node
}

// ID returns the slot identity.
func (s *Slot) ID() string { return s.id }

// Anchor is the canvas anchor of the slot.
func (s *Slot) Anchor() string { return "slot-" + s.id }

// Position returns the externally supplied position.
func (s *Slot) Position() domain.Position { return s.position }

// Type returns the type of the current node, "" when the slot is empty.
func (s *Slot) Type() string { return s.typ }

// Node returns the current node, nil if the slot was removed or a reset
// failed after the old node was destroyed.
func (s *Slot) Node() *Node { return s.node }

// Reset destroys the current node and its model (which drops the
// connections on its endpoints) and builds a node of typ in its place.
// Resetting to the current type still rebuilds.
func (s *Slot) Reset(typ string, opts ResetOptions) (*Slot, error) {
	d := s.diagram
	nodeType, err := d.registry.Resolve(typ)
	if err != nil {
		return s, err
	}
	if err := nodeType.ValidateFields(opts.Fields); err != nil {
		return s, err
	}
	if opts.Mode != "" {
		if _, err := ParseMode(string(opts.Mode)); err != nil {
			return s, err
		}
	}

	owner := ""
	if s.node != nil {
		owner = s.node.ID()
	}
	if err := d.checkEndpoints(nodeType, opts.Fields, owner); err != nil {
		return s, err
	}

	from := s.typ
	if s.node != nil {
		d.removeNode(s.node.ID())
		s.node = nil
	}

	n, err := d.createNode(nodeType, s, opts.Fields)
	if err != nil {
		s.typ = ""
		return s, err
	}
	if opts.Mode != "" {
		n.active = opts.Mode
	}
	s.typ = typ
	s.node = n

	if from != "" {
		d.fireNode(d.hooks.OnSlotReset, domain.EventSlotReset, n)
	}
	d.logger.Debug("Slot reset", "slot", s.id, "from", from, "to", typ, "node", n.ID())

	if opts.Render {
		return s, s.Render()
	}
	return s, nil
}

// Render draws the slot and its node.
func (s *Slot) Render() error {
	if err := s.place(); err != nil {
		return err
	}
	if s.node == nil {
		return nil
	}
	return s.node.Render()
}

func (s *Slot) place() error {
	return s.diagram.canvas.Place(canvas.Element{
		Anchor:   s.Anchor(),
		Class:    "slot",
		Position: s.position,
	})
}
