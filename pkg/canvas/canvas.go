// Package canvas is the visual surface a diagram renders onto: positioned
// elements addressed by anchor and the wires drawn between them.
package canvas

import (
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/google/uuid"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/lookup"
)

// ErrUnknownWire is returned when detaching a wire the canvas does not hold.
var ErrUnknownWire = errors.New("unknown wire")

// Element is a rendered piece of markup attached to an anchor.
type Element struct {
	Anchor   string          `json:"anchor"`
	Parent   string          `json:"parent,omitempty"`
	Class    string          `json:"class,omitempty"`
	HTML     template.HTML   `json:"html"`
	Position domain.Position `json:"position"`
}

// Wire is the visual link between two anchors.
type Wire struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// Canvas is implemented by rendering backends.
type Canvas interface {
	// Place creates the element or replaces the markup of an existing one.
	Place(el Element) error
	// Remove drops the element and its descendants. Missing anchors are a no-op.
	Remove(anchor string)
	// Connect draws a wire between two placed anchors.
	Connect(source, target, label string) (*Wire, error)
	// Detach removes a wire.
	Detach(w *Wire) error
}

// Snapshot is a serialisable copy of a canvas.
type Snapshot struct {
	Elements []Element `json:"elements"`
	Wires    []Wire    `json:"wires"`
}

// Memory is an in-process Canvas. Its wire additions and removals are
// observable through OnConnect and OnDetach.
type Memory struct {
	elements *lookup.Lookup[string, *Element]
	wires    *lookup.Lookup[string, *Wire]
}

var _ Canvas = (*Memory)(nil)

// NewMemory creates an empty canvas.
func NewMemory() *Memory {
	return &Memory{
		elements: lookup.New[string, *Element](),
		wires:    lookup.New[string, *Wire](),
	}
}

// Place implements Canvas.
func (c *Memory) Place(el Element) error {
	if el.Anchor == "" {
		return fmt.Errorf("place: empty anchor")
	}
	if el.Parent != "" && !c.elements.Has(el.Parent) {
		return &domain.StaleReferenceError{Kind: "anchor", ID: el.Parent}
	}
	if existing, ok := c.elements.Get(el.Anchor); ok {
		existing.HTML = el.HTML
		existing.Class = el.Class
		if el.Parent != "" {
			existing.Parent = el.Parent
		}
		if el.Position != (domain.Position{}) {
			existing.Position = el.Position
		}
		return nil
	}
	copied := el
	c.elements.Add(el.Anchor, &copied)
	return nil
}

// Remove implements Canvas.
func (c *Memory) Remove(anchor string) {
	if !c.elements.Has(anchor) {
		return
	}
	for _, el := range c.elements.Values() {
		if el.Parent == anchor {
			c.Remove(el.Anchor)
		}
	}
	c.elements.Remove(anchor)
}

// Connect implements Canvas.
func (c *Memory) Connect(source, target, label string) (*Wire, error) {
	for _, anchor := range []string{source, target} {
		if !c.elements.Has(anchor) {
			return nil, &domain.StaleReferenceError{Kind: "anchor", ID: anchor}
		}
	}
	w := &Wire{ID: uuid.NewString(), Source: source, Target: target, Label: label}
	c.wires.Add(w.ID, w)
	return w, nil
}

// Detach implements Canvas.
func (c *Memory) Detach(w *Wire) error {
	if w == nil {
		return ErrUnknownWire
	}
	if _, ok := c.wires.Remove(w.ID); !ok {
		return fmt.Errorf("detach %s: %w", w.ID, ErrUnknownWire)
	}
	return nil
}

// Element returns a copy of the element placed at anchor.
func (c *Memory) Element(anchor string) (Element, bool) {
	el, ok := c.elements.Get(anchor)
	if !ok {
		return Element{}, false
	}
	return *el, true
}

// Wires returns copies of the current wires in creation order.
func (c *Memory) Wires() []Wire {
	out := make([]Wire, 0, c.wires.Len())
	for _, w := range c.wires.Values() {
		out = append(out, *w)
	}
	return out
}

// OnConnect subscribes to new wires.
func (c *Memory) OnConnect(fn func(*Wire)) (off func()) {
	return c.wires.On(lookup.EventAdd, func(_ string, w *Wire) { fn(w) })
}

// OnDetach subscribes to removed wires.
func (c *Memory) OnDetach(fn func(*Wire)) (off func()) {
	return c.wires.On(lookup.EventRemove, func(_ string, w *Wire) { fn(w) })
}

// Snapshot copies the canvas contents.
func (c *Memory) Snapshot() Snapshot {
	snap := Snapshot{Wires: c.Wires()}
	for _, el := range c.elements.Values() {
		snap.Elements = append(snap.Elements, *el)
	}
	return snap
}

// HTML renders the element tree as nested, absolutely positioned divs
// followed by a list of wires.
func (c *Memory) HTML() template.HTML {
	var sb strings.Builder
	sb.WriteString(`<div class="diagram">`)
	for _, el := range c.elements.Values() {
		if el.Parent == "" {
			c.writeElement(&sb, el)
		}
	}
	sb.WriteString(`<ul class="wires">`)
	for _, w := range c.wires.Values() {
		fmt.Fprintf(&sb, `<li data-source="%s" data-target="%s">%s</li>`,
			template.HTMLEscapeString(w.Source),
			template.HTMLEscapeString(w.Target),
			template.HTMLEscapeString(w.Label))
	}
	sb.WriteString(`</ul></div>`)
	return template.HTML(sb.String())
}

func (c *Memory) writeElement(sb *strings.Builder, el *Element) {
	fmt.Fprintf(sb, `<div id="%s" class="%s"`, template.HTMLEscapeString(el.Anchor), template.HTMLEscapeString(el.Class))
	if el.Parent == "" {
		fmt.Fprintf(sb, ` style="position:absolute;left:%dpx;top:%dpx"`, el.Position.X, el.Position.Y)
	}
	sb.WriteString(">")
	sb.WriteString(string(el.HTML))
	for _, child := range c.elements.Values() {
		if child.Parent == el.Anchor {
			c.writeElement(sb, child)
		}
	}
	sb.WriteString("</div>")
}
