// Package plumbing models the connectable parts of a diagram: typed endpoints
// owned by nodes, and the directed connections drawn between them.
package plumbing

import (
	"github.com/aretw0/espalier/pkg/canvas"
	"github.com/aretw0/espalier/pkg/domain"
)

// Role tags what an endpoint is for.
type Role string

const (
	RoleEntry Role = "entry"
	RoleExit  Role = "exit"
)

// Side places an endpoint on the left or right edge of its node.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Endpoint is a connection anchor belonging to exactly one node.
// Connections reference endpoints by ID and never own them.
type Endpoint struct {
	ID    string
	Attr  string
	Role  Role
	Side  Side
	Owner string

	canvas    canvas.Canvas
	placed    bool
	destroyed bool
}

// NewEndpoint creates an endpoint that renders onto c.
func NewEndpoint(c canvas.Canvas, id, attr string, role Role, side Side, owner string) *Endpoint {
	return &Endpoint{ID: id, Attr: attr, Role: role, Side: side, Owner: owner, canvas: c}
}

// Render places the endpoint's anchor inside parent.
func (e *Endpoint) Render(parent string) error {
	if e.destroyed {
		return &domain.StaleReferenceError{Kind: "endpoint", ID: e.ID}
	}
	err := e.canvas.Place(canvas.Element{
		Anchor: e.ID,
		Parent: parent,
		Class:  "endpoint endpoint-" + string(e.Role) + " endpoint-" + string(e.Side),
	})
	if err != nil {
		return err
	}
	e.placed = true
	return nil
}

// Placed reports whether the anchor is currently on the canvas.
func (e *Endpoint) Placed() bool { return e.placed && !e.destroyed }

// Destroy removes the anchor from the canvas. It is idempotent.
func (e *Endpoint) Destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true
	e.canvas.Remove(e.ID)
}

// Destroyed reports whether Destroy was called.
func (e *Endpoint) Destroyed() bool { return e.destroyed }

// Snapshot returns the serialisable form of e.
func (e *Endpoint) Snapshot() domain.EndpointSnapshot {
	return domain.EndpointSnapshot{ID: e.ID, Attr: e.Attr, Role: string(e.Role), Side: string(e.Side)}
}
