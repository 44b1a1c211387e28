package plumbing

import (
	"errors"
	"log/slog"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/canvas"
	"github.com/aretw0/espalier/pkg/domain"
)

// ConnectionModel is the data behind an edge. Source and Target hold endpoint IDs.
type ConnectionModel struct {
	ID     string `json:"id"`
	Group  string `json:"group"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Key implements model.Keyed.
func (m *ConnectionModel) Key() string { return m.ID }

// Snapshot returns the serialisable form of m.
func (m *ConnectionModel) Snapshot() domain.ConnectionSnapshot {
	return domain.ConnectionSnapshot{ID: m.ID, Group: m.Group, Source: m.Source, Target: m.Target}
}

// ConnectionView draws one edge. It owns the canvas wire, not the endpoints.
type ConnectionView struct {
	Model  *ConnectionModel
	Source *Endpoint
	Target *Endpoint

	canvas    canvas.Canvas
	wire      *canvas.Wire
	destroyed bool
	logger    *slog.Logger
}

func newConnectionView(c canvas.Canvas, m *ConnectionModel, source, target *Endpoint, logger *slog.Logger) *ConnectionView {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ConnectionView{Model: m, Source: source, Target: target, canvas: c, logger: logger}
}

// Wire returns the current canvas wire, nil when not rendered or destroyed.
func (v *ConnectionView) Wire() *canvas.Wire { return v.wire }

// Render wires source to target on the canvas. Rendering an already wired
// connection is a no-op.
func (v *ConnectionView) Render() error {
	if v.destroyed {
		return &domain.StaleReferenceError{Kind: "connection", ID: v.Model.ID}
	}
	for _, ep := range []*Endpoint{v.Source, v.Target} {
		if ep.Destroyed() {
			return &domain.StaleReferenceError{Kind: "endpoint", ID: ep.ID}
		}
	}
	if v.wire != nil {
		return nil
	}
	w, err := v.canvas.Connect(v.Source.ID, v.Target.ID, v.Model.Group)
	if err != nil {
		return err
	}
	v.wire = w
	return nil
}

// Destroy detaches the wire and forgets it. Endpoints are left untouched.
// It is idempotent and safe to call while the owning node is being destroyed.
func (v *ConnectionView) Destroy() {
	if v.destroyed {
		return
	}
	v.destroyed = true
	if v.wire == nil {
		return
	}
	w := v.wire
	v.wire = nil
	if err := v.canvas.Detach(w); err != nil && !errors.Is(err, canvas.ErrUnknownWire) {
		v.logger.Warn("Failed to detach wire", "connection", v.Model.ID, "err", err)
	}
}

// Destroyed reports whether Destroy was called.
func (v *ConnectionView) Destroyed() bool { return v.destroyed }
