package diagram

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/google/uuid"

	"github.com/aretw0/espalier/pkg/canvas"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/lookup"
	"github.com/aretw0/espalier/pkg/model"
	"github.com/aretw0/espalier/pkg/plumbing"
	"github.com/aretw0/espalier/pkg/registry"
	"github.com/aretw0/espalier/pkg/schema"
)

// EndpointSpec declares one endpoint of a node type. Attr names the model
// attribute that stores the endpoint's identity.
type EndpointSpec struct {
	Attr string
	Role plumbing.Role
	Side plumbing.Side
}

// NodeType describes a pluggable node subtype.
type NodeType struct {
	Name      string
	Edit      ModeFactory
	Preview   ModeFactory
	Endpoints []EndpointSpec
	// Defaults seeds the attributes of models created for this type.
	Defaults map[string]any
	// Fields describes the attributes editors may write. Nil skips validation.
	Fields schema.Schema
}

// ValidateFields checks a field set against the type's schema. Endpoint
// attributes are always accepted as strings.
func (t NodeType) ValidateFields(fields map[string]any) error {
	if t.Fields == nil {
		return nil
	}
	s := maps.Clone(t.Fields)
	for _, spec := range t.Endpoints {
		s[spec.Attr] = schema.String()
	}
	if err := schema.Validate(s, fields); err != nil {
		return fmt.Errorf("%s fields: %w", t.Name, err)
	}
	return nil
}

// Registry resolves node type tags.
type Registry = registry.Registry[NodeType]

// NewRegistry creates an empty node type registry.
func NewRegistry() *Registry {
	return registry.New[NodeType]("node type")
}

// Node is a dialogue state: one model, two mode views and a fixed endpoint set.
type Node struct {
	diagram   *Diagram
	model     *model.Model
	typ       NodeType
	slot      *Slot
	views     map[Mode]ModeView
	active    Mode
	endpoints *lookup.Lookup[string, *plumbing.Endpoint]
	renders   int
	destroyed bool
}

func newNode(d *Diagram, m *model.Model, typ NodeType, slot *Slot) (*Node, error) {
	n := &Node{
		diagram:   d,
		model:     m,
		typ:       typ,
		slot:      slot,
		active:    ModeEdit,
		endpoints: lookup.New[string, *plumbing.Endpoint](),
	}

	for _, spec := range typ.Endpoints {
		id := m.String(spec.Attr)
		if id == "" {
			id = uuid.NewString()
			m.Set(spec.Attr, id, model.Silent())
		}
		if existing, ok := d.endpoints.Get(id); ok && !existing.Destroyed() {
			n.releaseEndpoints()
			return nil, fmt.Errorf("endpoint %s of %s: %w by %s", id, m.ID(), domain.ErrEndpointInUse, existing.Owner)
		}
		ep := plumbing.NewEndpoint(d.canvas, id, spec.Attr, spec.Role, spec.Side, m.ID())
		n.endpoints.Add(spec.Attr, ep)
		d.endpoints.Add(id, ep)
	}

	edit, preview := typ.Edit, typ.Preview
	if edit == nil {
		edit = defaultFactory(ModeEdit)
	}
	if preview == nil {
		preview = defaultFactory(ModePreview)
	}
	n.views = map[Mode]ModeView{
		ModeEdit:    edit(n),
		ModePreview: preview(n),
	}
	return n, nil
}

func (n *Node) releaseEndpoints() {
	for _, ep := range n.endpoints.Values() {
		n.diagram.endpoints.Remove(ep.ID)
	}
}

// ID returns the node's (and its model's) identity.
func (n *Node) ID() string { return n.model.ID() }

// Anchor is the canvas anchor the node renders onto.
func (n *Node) Anchor() string { return "state-" + n.model.ID() }

// Type returns the node type tag.
func (n *Node) Type() string { return n.typ.Name }

// Model returns the shared model.
func (n *Node) Model() *model.Model { return n.model }

// Logger returns the diagram logger scoped to the node.
func (n *Node) Logger() *slog.Logger {
	return n.diagram.logger.With("node", n.model.ID(), "type", n.typ.Name)
}

// Slot returns the slot holding the node, nil for free nodes.
func (n *Node) Slot() *Slot { return n.slot }

// Mode returns the active mode.
func (n *Node) Mode() Mode { return n.active }

// ModeView returns the view for mode.
func (n *Node) ModeView(mode Mode) ModeView { return n.views[mode] }

// Renders counts completed renders.
func (n *Node) Renders() int { return n.renders }

// Endpoints returns the node's endpoints in schema order.
func (n *Node) Endpoints() []*plumbing.Endpoint { return n.endpoints.Values() }

// Endpoint returns the endpoint declared under attr.
func (n *Node) Endpoint(attr string) (*plumbing.Endpoint, bool) { return n.endpoints.Get(attr) }

// Destroyed reports whether Destroy was called.
func (n *Node) Destroyed() bool { return n.destroyed }

// Edit switches to edit mode and renders.
func (n *Node) Edit() error { return n.SetMode(ModeEdit) }

// Preview switches to preview mode and renders.
func (n *Node) Preview() error { return n.SetMode(ModePreview) }

// SetMode switches the active mode and renders, even if mode is already active.
func (n *Node) SetMode(mode Mode) error {
	if n.destroyed {
		return &domain.StaleReferenceError{Kind: "node", ID: n.ID()}
	}
	if _, ok := n.views[mode]; !ok {
		return &domain.ResolutionError{Kind: "mode", Name: string(mode)}
	}
	n.active = mode
	n.diagram.fireNode(n.diagram.hooks.OnModeSwitch, domain.EventModeSwitch, n)
	return n.Render()
}

// Change forwards a field edit to the active mode view.
func (n *Node) Change(field, value string) error {
	if n.destroyed {
		return &domain.StaleReferenceError{Kind: "node", ID: n.ID()}
	}
	c, ok := n.views[n.active].(Changer)
	if !ok {
		return fmt.Errorf("%s mode of %s: %w", n.active, n.typ.Name, domain.ErrReadOnly)
	}
	return c.Change(field, value)
}

// Render draws the active mode onto the node's anchor, replacing whatever
// the previous mode drew, then renders the endpoints.
func (n *Node) Render() error {
	if n.destroyed {
		return &domain.StaleReferenceError{Kind: "node", ID: n.ID()}
	}
	parent := ""
	if n.slot != nil {
		if err := n.slot.place(); err != nil {
			return err
		}
		parent = n.slot.Anchor()
	}

	html, err := renderMode(n.views[n.active])
	if err != nil {
		return err
	}
	err = n.diagram.canvas.Place(canvas.Element{
		Anchor: n.Anchor(),
		Parent: parent,
		Class:  "state state-" + n.typ.Name + " mode-" + string(n.active),
		HTML:   html,
	})
	if err != nil {
		return err
	}
	for _, ep := range n.endpoints.Values() {
		if err := ep.Render(n.Anchor()); err != nil {
			return err
		}
	}
	n.renders++
	return nil
}

// Destroy drops every connection touching the node's endpoints, then the
// endpoints, then the node's canvas element. It is idempotent. The model is
// left to whoever owns it.
func (n *Node) Destroy() {
	if n.destroyed {
		return
	}
	n.destroyed = true

	for _, ep := range n.endpoints.Values() {
		n.diagram.connections.DetachEndpoint(ep.ID)
	}
	for _, ep := range n.endpoints.Values() {
		ep.Destroy()
		n.diagram.endpoints.Remove(ep.ID)
	}
	n.diagram.canvas.Remove(n.Anchor())
	n.diagram.fireNode(n.diagram.hooks.OnNodeDestroy, domain.EventNodeDestroy, n)
}

// Snapshot returns the serialisable form of the node.
func (n *Node) Snapshot() domain.NodeSnapshot {
	snap := domain.NodeSnapshot{
		NodeID: n.ID(),
		Type:   n.typ.Name,
		Mode:   string(n.active),
		Fields: n.model.Attributes(),
	}
	for _, ep := range n.endpoints.Values() {
		delete(snap.Fields, ep.Attr)
		snap.Endpoints = append(snap.Endpoints, ep.Snapshot())
	}
	if len(snap.Fields) == 0 {
		snap.Fields = nil
	}
	if n.slot != nil {
		snap.SlotID = n.slot.ID()
		snap.Position = n.slot.Position()
	}
	return snap
}
