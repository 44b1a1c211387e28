package plumbing

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/canvas"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/lookup"
	"github.com/aretw0/espalier/pkg/model"
	"github.com/aretw0/espalier/pkg/views"
)

// Resolver finds a live endpoint by ID.
type Resolver func(id string) (*Endpoint, bool)

// Option configures Connections.
type Option func(*Connections)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Connections) { c.logger = logger }
}

// WithHooks registers connect/disconnect callbacks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Connections) { c.hooks = hooks }
}

// WithObserver forwards view churn to o.
func WithObserver(o views.Observer) Option {
	return func(c *Connections) { c.observer = o }
}

// ConnectOptions tweaks Connect.
type ConnectOptions struct {
	// Group forces a specific group; empty picks the first accepting group.
	Group string
	// Render wires the connection on the canvas immediately.
	Render bool
	// ID overrides the generated connection ID.
	ID string
}

// Connections owns the connection models of a diagram, their views and the
// groups that decide which endpoint pairs may be linked.
type Connections struct {
	canvas   canvas.Canvas
	resolve  Resolver
	groups   *lookup.Lookup[string, *Group]
	models   *model.Collection[*ConnectionModel]
	views    *views.ViewSet[*ConnectionModel, *ConnectionView]
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	observer views.Observer
}

// NewConnections creates an empty connection layer.
func NewConnections(c canvas.Canvas, resolve Resolver, groups []*Group, opts ...Option) *Connections {
	conns := &Connections{
		canvas:  c,
		resolve: resolve,
		groups:  lookup.New[string, *Group](),
		models:  model.NewCollection[*ConnectionModel](),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(conns)
	}
	for _, g := range groups {
		conns.groups.Add(g.Name, g)
	}

	viewOpts := []views.Option{views.WithName("connections"), views.WithLogger(conns.logger)}
	if conns.observer != nil {
		viewOpts = append(viewOpts, views.WithObserver(conns.observer))
	}
	conns.views = views.New(conns.models, conns.create, viewOpts...)
	conns.views.On(lookup.EventAdd, func(_ string, v *ConnectionView) {
		conns.fire(conns.hooks.OnConnect, domain.EventConnect, v.Model)
	})
	conns.views.On(lookup.EventRemove, func(_ string, v *ConnectionView) {
		conns.fire(conns.hooks.OnDisconnect, domain.EventDisconnect, v.Model)
	})
	return conns
}

func (c *Connections) fire(hook func(*domain.ConnectionEvent), typ domain.EventType, m *ConnectionModel) {
	if hook == nil {
		return
	}
	hook(&domain.ConnectionEvent{Type: typ, ConnectionID: m.ID, Group: m.Group, Source: m.Source, Target: m.Target})
}

func (c *Connections) endpoint(id string) (*Endpoint, error) {
	ep, ok := c.resolve(id)
	if !ok || ep.Destroyed() {
		return nil, &domain.StaleReferenceError{Kind: "endpoint", ID: id}
	}
	return ep, nil
}

// create is the view factory: it resolves both endpoints and settles the group.
func (c *Connections) create(m *ConnectionModel) (*ConnectionView, error) {
	source, err := c.endpoint(m.Source)
	if err != nil {
		return nil, err
	}
	target, err := c.endpoint(m.Target)
	if err != nil {
		return nil, err
	}
	group, err := c.groupFor(m.Group, source, target)
	if err != nil {
		return nil, err
	}
	m.Group = group.Name
	return newConnectionView(c.canvas, m, source, target, c.logger), nil
}

func (c *Connections) groupFor(name string, source, target *Endpoint) (*Group, error) {
	if name != "" {
		g, ok := c.groups.Get(name)
		if !ok {
			return nil, &domain.ResolutionError{Kind: "group", Name: name}
		}
		if !g.Accepts(source, target) {
			return nil, fmt.Errorf("%s -> %s in %s: %w", source.ID, target.ID, name, domain.ErrNotAccepted)
		}
		return g, nil
	}
	for _, g := range c.groups.Values() {
		if g.Accepts(source, target) {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%s -> %s: %w", source.ID, target.ID, domain.ErrNotAccepted)
}

// Group returns the named group.
func (c *Connections) Group(name string) (*Group, bool) { return c.groups.Get(name) }

// Groups returns the groups in declaration order.
func (c *Connections) Groups() []*Group { return c.groups.Values() }

// Accepts asks the named group whether source may feed target.
func (c *Connections) Accepts(group string, source, target *Endpoint) (bool, error) {
	g, ok := c.groups.Get(group)
	if !ok {
		return false, &domain.ResolutionError{Kind: "group", Name: group}
	}
	return g.Accepts(source, target), nil
}

// Connect validates and records a new edge from sourceID to targetID. An id
// already held by another edge fails with domain.ErrDuplicateConnection.
func (c *Connections) Connect(sourceID, targetID string, opts ConnectOptions) (*ConnectionView, error) {
	source, err := c.endpoint(sourceID)
	if err != nil {
		return nil, err
	}
	target, err := c.endpoint(targetID)
	if err != nil {
		return nil, err
	}
	group, err := c.groupFor(opts.Group, source, target)
	if err != nil {
		return nil, err
	}

	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	if c.models.Has(id) {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrDuplicateConnection)
	}
	m := &ConnectionModel{ID: id, Group: group.Name, Source: source.ID, Target: target.ID}
	c.models.Add(m, model.Silent())
	v, err := c.views.Add(m.ID)
	if err != nil {
		c.models.Remove(m.ID, model.Silent())
		return nil, err
	}
	if opts.Render {
		if err := v.Render(); err != nil {
			return v, fmt.Errorf("render connection %s: %w", m.ID, err)
		}
	}
	return v, nil
}

// Disconnect removes the edge with id. It reports whether it existed.
func (c *Connections) Disconnect(id string) bool {
	_, ok := c.models.Remove(id)
	return ok
}

// Incident returns the models of edges touching endpoint id.
func (c *Connections) Incident(id string) []*ConnectionModel {
	var out []*ConnectionModel
	for _, m := range c.models.Models() {
		if m.Source == id || m.Target == id {
			out = append(out, m)
		}
	}
	return out
}

// DetachEndpoint removes every edge touching endpoint id and returns how many
// were removed.
func (c *Connections) DetachEndpoint(id string) int {
	removed := 0
	for _, m := range c.Incident(id) {
		if c.Disconnect(m.ID) {
			removed++
		}
	}
	// Views whose model went away silently still hold wires.
	for _, v := range c.views.Values() {
		if v.Source.ID == id || v.Target.ID == id {
			c.views.Remove(v.Model.ID)
		}
	}
	return removed
}

// Get returns the view of the edge with id.
func (c *Connections) Get(id string) (*ConnectionView, bool) { return c.views.Get(id) }

// Models returns the backing model collection.
func (c *Connections) Models() *model.Collection[*ConnectionModel] { return c.models }

// Views returns the view set.
func (c *Connections) Views() *views.ViewSet[*ConnectionModel, *ConnectionView] { return c.views }

// Render reconciles views with models and wires every edge.
func (c *Connections) Render() error { return c.views.Reconcile() }
