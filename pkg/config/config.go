// Package config loads diagram definitions from YAML or JSON documents and
// builds live diagrams from them.
package config

import (
	"fmt"
	"os"

	"github.com/aretw0/espalier/internal/compiler"
	"github.com/aretw0/espalier/internal/dto"
	"github.com/aretw0/espalier/internal/validator"
	"github.com/aretw0/espalier/pkg/canvas"
	"github.com/aretw0/espalier/pkg/diagram"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/plumbing"
)

type (
	Definition  = dto.Definition
	Slot        = dto.Slot
	Group       = dto.Group
	Connection  = dto.Connection
	EndpointRef = dto.EndpointRef
)

// Load reads and parses the definition at path.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML or JSON definition.
func Parse(data []byte) (*Definition, error) {
	return compiler.NewParser().Parse(data)
}

// Validate checks def against the node types in reg.
func Validate(def *Definition, reg *diagram.Registry) error {
	return validator.ValidateDefinition(def, reg)
}

// Build validates def and creates the diagram it describes on c. The
// diagram is not rendered. opts are applied after the ones derived from def.
func Build(def *Definition, reg *diagram.Registry, c canvas.Canvas, opts ...diagram.Option) (*diagram.Diagram, error) {
	if err := Validate(def, reg); err != nil {
		return nil, err
	}

	var base []diagram.Option
	if def.ID != "" {
		base = append(base, diagram.WithID(def.ID))
	}
	if def.DefaultType != "" {
		base = append(base, diagram.WithDefaultType(def.DefaultType))
	}
	for _, g := range def.Groups {
		base = append(base, diagram.WithGroups(plumbing.NewGroup(g.Name, g.From, g.To)))
	}
	d := diagram.New(reg, c, append(base, opts...)...)

	for _, s := range def.Slots {
		_, err := d.AddSlot(s.ID, domain.Position{X: s.X, Y: s.Y}, s.Type, diagram.ResetOptions{
			Fields: s.Fields,
			Mode:   diagram.Mode(s.Mode),
		})
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", s.ID, err)
		}
	}

	for _, conn := range def.Connections {
		source, err := resolve(d, conn.From, plumbing.RoleExit)
		if err != nil {
			return nil, err
		}
		target, err := resolve(d, conn.To, plumbing.RoleEntry)
		if err != nil {
			return nil, err
		}
		_, err = d.Connect(source.ID, target.ID, plumbing.ConnectOptions{ID: conn.ID, Group: conn.Group})
		if err != nil {
			return nil, fmt.Errorf("connection %s -> %s: %w", conn.From, conn.To, err)
		}
	}
	return d, nil
}

// resolve finds the endpoint named by ref, falling back to the first
// endpoint of the given role.
func resolve(d *diagram.Diagram, ref EndpointRef, role plumbing.Role) (*plumbing.Endpoint, error) {
	n, err := d.SlotNode(ref.Slot)
	if err != nil {
		return nil, err
	}
	if ref.Endpoint != "" {
		ep, ok := n.Endpoint(ref.Endpoint)
		if !ok {
			return nil, &domain.ResolutionError{Kind: "endpoint", Name: ref.String()}
		}
		return ep, nil
	}
	for _, ep := range n.Endpoints() {
		if ep.Role == role {
			return ep, nil
		}
	}
	return nil, &domain.ResolutionError{Kind: "endpoint", Name: ref.String() + " (" + string(role) + ")"}
}

// FromSnapshot turns a snapshot back into a definition. Endpoint IDs are
// carried in the slot fields so that rebuilt nodes keep them. Nodes outside
// slots are dropped.
func FromSnapshot(snap *domain.Snapshot) *Definition {
	def := &Definition{ID: snap.ID}
	for _, g := range snap.Groups {
		def.Groups = append(def.Groups, Group{
			Name: g.Name,
			From: plumbing.Match{Side: plumbing.Side(g.From.Side), Role: plumbing.Role(g.From.Role)},
			To:   plumbing.Match{Side: plumbing.Side(g.To.Side), Role: plumbing.Role(g.To.Role)},
		})
	}
	owner := make(map[string]EndpointRef)

	for _, n := range snap.Nodes {
		if n.SlotID == "" || n.Type == "" {
			continue
		}
		fields := make(map[string]any, len(n.Fields)+len(n.Endpoints))
		for k, v := range n.Fields {
			fields[k] = v
		}
		for _, ep := range n.Endpoints {
			fields[ep.Attr] = ep.ID
			owner[ep.ID] = EndpointRef{Slot: n.SlotID, Endpoint: ep.Attr}
		}
		mode := n.Mode
		if mode == string(diagram.ModeEdit) {
			mode = ""
		}
		def.Slots = append(def.Slots, Slot{
			ID:     n.SlotID,
			Type:   n.Type,
			X:      n.Position.X,
			Y:      n.Position.Y,
			Mode:   mode,
			Fields: fields,
		})
	}

	for _, c := range snap.Connections {
		from, okFrom := owner[c.Source]
		to, okTo := owner[c.Target]
		if !okFrom || !okTo {
			continue
		}
		def.Connections = append(def.Connections, Connection{ID: c.ID, Group: c.Group, From: from, To: to})
	}
	return def
}
