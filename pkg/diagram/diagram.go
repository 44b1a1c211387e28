// Package diagram is the composition root of the editor: slots holding
// swappable dialogue-state nodes, the node view set kept in sync with the
// state models, and the connection layer wiring node endpoints together.
package diagram

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/google/uuid"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/canvas"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/lookup"
	"github.com/aretw0/espalier/pkg/model"
	"github.com/aretw0/espalier/pkg/plumbing"
	"github.com/aretw0/espalier/pkg/views"
)

// Diagram owns the state models, their node views, the slots and the connections.
// It is not safe for concurrent use; callers serialise access (see pkg/session).
type Diagram struct {
	id          string
	registry    *Registry
	canvas      canvas.Canvas
	models      *model.Collection[*model.Model]
	states      *views.ViewSet[*model.Model, *Node]
	connections *plumbing.Connections
	endpoints   *lookup.Lookup[string, *plumbing.Endpoint]
	slots       *lookup.Lookup[string, *Slot]
	slotByModel map[string]string

	groups      []*plumbing.Group
	defaultType string
	hooks       domain.LifecycleHooks
	observer    views.Observer
	logger      *slog.Logger
}

// Option configures a Diagram.
type Option func(*Diagram)

// WithID sets the diagram identity (default: random UUID).
func WithID(id string) Option {
	return func(d *Diagram) { d.id = id }
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Diagram) { d.logger = logger }
}

// WithGroups declares the connection groups, in priority order.
// Without groups the diagram links exits to entries.
func WithGroups(groups ...*plumbing.Group) Option {
	return func(d *Diagram) { d.groups = append(d.groups, groups...) }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(d *Diagram) { d.hooks = hooks }
}

// WithObserver forwards view churn (for metrics).
func WithObserver(o views.Observer) Option {
	return func(d *Diagram) { d.observer = o }
}

// WithDefaultType sets the node type of slots added without one (default: "choice").
func WithDefaultType(typ string) Option {
	return func(d *Diagram) { d.defaultType = typ }
}

// New creates an empty diagram resolving node types through reg and drawing on c.
func New(reg *Registry, c canvas.Canvas, opts ...Option) *Diagram {
	d := &Diagram{
		id:          uuid.NewString(),
		registry:    reg,
		canvas:      c,
		models:      model.NewCollection[*model.Model](),
		endpoints:   lookup.New[string, *plumbing.Endpoint](),
		slots:       lookup.New[string, *Slot](),
		slotByModel: make(map[string]string),
		defaultType: "choice",
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if len(d.groups) == 0 {
		d.groups = []*plumbing.Group{plumbing.ExitToEntry()}
	}
	d.logger = d.logger.With("diagram", d.id)

	viewOpts := []views.Option{views.WithName("states"), views.WithLogger(d.logger)}
	connOpts := []plumbing.Option{plumbing.WithLogger(d.logger), plumbing.WithHooks(d.hooks)}
	if d.observer != nil {
		viewOpts = append(viewOpts, views.WithObserver(d.observer))
		connOpts = append(connOpts, plumbing.WithObserver(d.observer))
	}

	d.connections = plumbing.NewConnections(c, d.endpoints.Get, d.groups, connOpts...)
	d.states = views.New(d.models, d.buildNode, viewOpts...)
	d.states.On(lookup.EventRemove, func(_ string, n *Node) {
		delete(d.slotByModel, n.ID())
		if n.slot != nil && n.slot.node == n {
			n.slot.node = nil
		}
	})
	return d
}

// buildNode is the node view factory.
func (d *Diagram) buildNode(m *model.Model) (*Node, error) {
	typ, err := d.registry.Resolve(m.Type())
	if err != nil {
		return nil, err
	}
	var slot *Slot
	if slotID, ok := d.slotByModel[m.ID()]; ok {
		slot, _ = d.slots.Get(slotID)
	}
	n, err := newNode(d, m, typ, slot)
	if err != nil {
		return nil, err
	}
	d.fireNode(d.hooks.OnNodeCreate, domain.EventNodeCreate, n)
	return n, nil
}

func (d *Diagram) createNode(typ NodeType, slot *Slot, fields map[string]any) (*Node, error) {
	attrs := maps.Clone(typ.Defaults)
	if attrs == nil {
		attrs = make(map[string]any)
	}
	maps.Copy(attrs, fields)

	m := model.New(typ.Name, attrs)
	if slot != nil {
		d.slotByModel[m.ID()] = slot.id
	}
	d.models.Add(m, model.Silent())
	n, err := d.states.Add(m.ID())
	if err != nil {
		d.models.Remove(m.ID(), model.Silent())
		delete(d.slotByModel, m.ID())
		return nil, err
	}
	return n, nil
}

// checkEndpoints fails if a seeded endpoint id of typ is held by a live node
// other than owner, or is repeated within fields.
func (d *Diagram) checkEndpoints(typ NodeType, fields map[string]any, owner string) error {
	seen := make(map[string]string, len(typ.Endpoints))
	for _, spec := range typ.Endpoints {
		id, _ := fields[spec.Attr].(string)
		if id == "" {
			id, _ = typ.Defaults[spec.Attr].(string)
		}
		if id == "" {
			continue
		}
		if attr, dup := seen[id]; dup {
			return fmt.Errorf("endpoint %s of %s and %s: %w", id, attr, spec.Attr, domain.ErrEndpointInUse)
		}
		seen[id] = spec.Attr
		if existing, ok := d.endpoints.Get(id); ok && !existing.Destroyed() && existing.Owner != owner {
			return fmt.Errorf("endpoint %s: %w by %s", id, domain.ErrEndpointInUse, existing.Owner)
		}
	}
	return nil
}

// removeNode destroys the node and then removes and destroys its model.
func (d *Diagram) removeNode(id string) {
	d.states.Remove(id)
	if m, ok := d.models.Remove(id); ok {
		m.Destroy()
	}
	delete(d.slotByModel, id)
}

func (d *Diagram) fireNode(hook func(*domain.NodeEvent), typ domain.EventType, n *Node) {
	if hook == nil {
		return
	}
	ev := &domain.NodeEvent{Type: typ, NodeID: n.ID(), NodeType: n.Type(), Mode: string(n.active)}
	if n.slot != nil {
		ev.SlotID = n.slot.id
	}
	hook(ev)
}

// ID returns the diagram identity.
func (d *Diagram) ID() string { return d.id }

// Registry returns the node type registry.
func (d *Diagram) Registry() *Registry { return d.registry }

// Canvas returns the rendering surface.
func (d *Diagram) Canvas() canvas.Canvas { return d.canvas }

// Models returns the state model collection, the single source of truth for nodes.
func (d *Diagram) Models() *model.Collection[*model.Model] { return d.models }

// States returns the node view set.
func (d *Diagram) States() *views.ViewSet[*model.Model, *Node] { return d.states }

// Connections returns the connection layer.
func (d *Diagram) Connections() *plumbing.Connections { return d.connections }

// Endpoints returns the live endpoint index, keyed by endpoint ID.
func (d *Diagram) Endpoints() *lookup.Lookup[string, *plumbing.Endpoint] { return d.endpoints }

// Node returns the node with the given ID.
func (d *Diagram) Node(id string) (*Node, bool) { return d.states.Get(id) }

// Slot returns the slot with the given ID.
func (d *Diagram) Slot(id string) (*Slot, bool) { return d.slots.Get(id) }

// Slots returns the slots in insertion order.
func (d *Diagram) Slots() []*Slot { return d.slots.Values() }

// AddSlot creates a slot at pos holding a fresh node of typ (the default type
// when empty). The node is rendered only if opts.Render is set.
func (d *Diagram) AddSlot(id string, pos domain.Position, typ string, opts ResetOptions) (*Slot, error) {
	if d.slots.Has(id) {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrDuplicateSlot)
	}
	if typ == "" {
		typ = d.defaultType
	}
	s := &Slot{id: id, diagram: d, position: pos}
	d.slots.Add(id, s)
	if _, err := s.Reset(typ, opts); err != nil {
		d.slots.Remove(id)
		return nil, err
	}
	return s, nil
}

// RemoveSlot destroys the slot's node and model, then the slot itself.
func (d *Diagram) RemoveSlot(id string) error {
	s, ok := d.slots.Get(id)
	if !ok {
		return fmt.Errorf("%s: %w", id, domain.ErrSlotNotFound)
	}
	if s.node != nil {
		d.removeNode(s.node.ID())
	}
	d.canvas.Remove(s.Anchor())
	d.slots.Remove(id)
	return nil
}

// ResetSlot retypes the node held by slot id.
func (d *Diagram) ResetSlot(id, typ string, opts ResetOptions) (*Node, error) {
	s, ok := d.slots.Get(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrSlotNotFound)
	}
	if _, err := s.Reset(typ, opts); err != nil {
		return nil, err
	}
	return s.node, nil
}

// SlotNode returns the node currently held by slot id.
func (d *Diagram) SlotNode(id string) (*Node, error) {
	s, ok := d.slots.Get(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrSlotNotFound)
	}
	if s.node == nil {
		return nil, &domain.StaleReferenceError{Kind: "node", ID: id}
	}
	return s.node, nil
}

// Connect links two endpoints by ID through the first accepting group.
func (d *Diagram) Connect(source, target string, opts plumbing.ConnectOptions) (*plumbing.ConnectionView, error) {
	return d.connections.Connect(source, target, opts)
}

// Disconnect removes the connection with id.
func (d *Diagram) Disconnect(id string) bool {
	return d.connections.Disconnect(id)
}

// Render places every slot, reconciles and renders the nodes, then the
// connections. Nodes go first so that every endpoint anchor exists before
// wires are drawn.
func (d *Diagram) Render() error {
	var errs []error
	for _, s := range d.slots.Values() {
		if err := s.place(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.states.Render(); err != nil {
		errs = append(errs, err)
	}
	if err := d.connections.Render(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Snapshot captures the diagram's models.
func (d *Diagram) Snapshot() *domain.Snapshot {
	snap := &domain.Snapshot{ID: d.id, Nodes: []domain.NodeSnapshot{}, Connections: []domain.ConnectionSnapshot{}}
	for _, g := range d.connections.Groups() {
		if gs, ok := g.Snapshot(); ok {
			snap.Groups = append(snap.Groups, gs)
		}
	}
	seen := make(map[string]bool)
	for _, s := range d.slots.Values() {
		if s.node == nil {
			snap.Nodes = append(snap.Nodes, domain.NodeSnapshot{SlotID: s.id, Position: s.position})
			continue
		}
		seen[s.node.ID()] = true
		snap.Nodes = append(snap.Nodes, s.node.Snapshot())
	}
	for _, n := range d.states.Values() {
		if !seen[n.ID()] {
			snap.Nodes = append(snap.Nodes, n.Snapshot())
		}
	}
	for _, m := range d.connections.Models().Models() {
		snap.Connections = append(snap.Connections, m.Snapshot())
	}
	return snap
}
