package dsl

import (
	"fmt"

	"github.com/aretw0/espalier/pkg/canvas"
	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/diagram"
	"github.com/aretw0/espalier/pkg/plumbing"
)

// Builder manages the definition construction.
type Builder struct {
	def   config.Definition
	slots map[string]*SlotBuilder
	order []string
}

// New creates a new definition builder for diagram id.
func New(id string) *Builder {
	return &Builder{
		def:   config.Definition{ID: id},
		slots: make(map[string]*SlotBuilder),
	}
}

// Add creates a new slot in the diagram.
// If the slot already exists, it returns the existing builder.
func (b *Builder) Add(id string) *SlotBuilder {
	if sb, ok := b.slots[id]; ok {
		return sb
	}
	sb := &SlotBuilder{slot: config.Slot{ID: id}, builder: b}
	b.slots[id] = sb
	b.order = append(b.order, id)
	return sb
}

// DefaultType sets the type of slots that declare none.
func (b *Builder) DefaultType(typ string) *Builder {
	b.def.DefaultType = typ
	return b
}

// Group declares a connection group. Groups are tried in declaration order.
func (b *Builder) Group(name string, from, to plumbing.Match) *Builder {
	b.def.Groups = append(b.def.Groups, config.Group{Name: name, From: from, To: to})
	return b
}

// Connect links two endpoints by slot and attribute. Empty attributes pick
// the first exit of from and the first entry of to.
func (b *Builder) Connect(from, fromAttr, to, toAttr string) *Builder {
	b.def.Connections = append(b.def.Connections, config.Connection{
		From: config.EndpointRef{Slot: from, Endpoint: fromAttr},
		To:   config.EndpointRef{Slot: to, Endpoint: toAttr},
	})
	return b
}

// Definition returns the accumulated definition.
func (b *Builder) Definition() *config.Definition {
	def := b.def
	def.Slots = make([]config.Slot, 0, len(b.order))
	for _, id := range b.order {
		def.Slots = append(def.Slots, b.slots[id].slot)
	}
	def.Connections = append([]config.Connection(nil), b.def.Connections...)
	return &def
}

// Build compiles the definition into a diagram drawing on c.
func (b *Builder) Build(reg *diagram.Registry, c canvas.Canvas, opts ...diagram.Option) (*diagram.Diagram, error) {
	d, err := config.Build(b.Definition(), reg, c, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build diagram %s: %w", b.def.ID, err)
	}
	return d, nil
}
