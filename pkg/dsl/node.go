package dsl

import (
	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/diagram"
	"github.com/aretw0/espalier/pkg/states"
)

// SlotBuilder provides a fluent API for configuring a slot and its node.
type SlotBuilder struct {
	slot    config.Slot
	builder *Builder
}

// Type sets the node type.
func (s *SlotBuilder) Type(typ string) *SlotBuilder {
	s.slot.Type = typ
	return s
}

// At places the slot on the grid.
func (s *SlotBuilder) At(x, y int) *SlotBuilder {
	s.slot.X, s.slot.Y = x, y
	return s
}

// Field sets a model attribute of the node.
func (s *SlotBuilder) Field(key string, value any) *SlotBuilder {
	if s.slot.Fields == nil {
		s.slot.Fields = make(map[string]any)
	}
	s.slot.Fields[key] = value
	return s
}

// Choice makes the node a choice state with a prompt and its options.
func (s *SlotBuilder) Choice(text string, options ...string) *SlotBuilder {
	return s.Type(states.TypeChoice).Field("text", text).Field("options", options)
}

// Freetext makes the node a free text question.
func (s *SlotBuilder) Freetext(text string) *SlotBuilder {
	return s.Type(states.TypeFreetext).Field("text", text)
}

// End makes the node a terminal state.
func (s *SlotBuilder) End(text string) *SlotBuilder {
	return s.Type(states.TypeEnd).Field("text", text)
}

// HTTPJSON makes the node an HTTP call, storing method and url the way the
// http_json editor writes them.
func (s *SlotBuilder) HTTPJSON(method, url string) *SlotBuilder {
	return s.Type(states.TypeHTTPJSON).
		Field("method", diagram.Wrap("model")(method)).
		Field("url", diagram.Wrap("url")(url))
}

// Preview starts the node in preview mode.
func (s *SlotBuilder) Preview() *SlotBuilder {
	s.slot.Mode = string(diagram.ModePreview)
	return s
}

// To connects this slot's first exit to target's first entry.
func (s *SlotBuilder) To(target string) *SlotBuilder {
	s.builder.Connect(s.slot.ID, "", target, "")
	return s
}
