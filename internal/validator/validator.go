package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/espalier/internal/dto"
	"github.com/aretw0/espalier/pkg/diagram"
	"github.com/aretw0/espalier/pkg/plumbing"
)

// ValidateDefinition checks a definition against the node types in reg:
// slot, endpoint and connection ids are unique, types resolve, fields match
// the type schemas, and every connection names existing slots and endpoints.
func ValidateDefinition(def *dto.Definition, reg *diagram.Registry) error {
	var errors []string
	report := func(format string, args ...any) {
		errors = append(errors, fmt.Sprintf(format, args...))
	}

	defaultType := def.DefaultType
	if defaultType == "" {
		defaultType = "choice"
	}

	groups := map[string]bool{}
	for i, g := range def.Groups {
		if g.Name == "" {
			report("group #%d has no name", i)
			continue
		}
		if groups[g.Name] {
			report("group '%s' declared twice", g.Name)
		}
		groups[g.Name] = true
		for _, m := range []plumbing.Match{g.From, g.To} {
			if m.Role != "" && m.Role != plumbing.RoleEntry && m.Role != plumbing.RoleExit {
				report("group '%s': unknown role '%s'", g.Name, m.Role)
			}
			if m.Side != "" && m.Side != plumbing.SideLeft && m.Side != plumbing.SideRight {
				report("group '%s': unknown side '%s'", g.Name, m.Side)
			}
		}
	}

	types := map[string]diagram.NodeType{}
	endpoints := map[string]string{}
	for i, s := range def.Slots {
		if s.ID == "" {
			report("slot #%d has no id", i)
			continue
		}
		if _, dup := types[s.ID]; dup {
			report("slot '%s' declared twice", s.ID)
			continue
		}
		typ := s.Type
		if typ == "" {
			typ = defaultType
		}
		nt, err := reg.Resolve(typ)
		if err != nil {
			report("slot '%s': %v", s.ID, err)
			continue
		}
		types[s.ID] = nt
		if s.Mode != "" {
			if _, err := diagram.ParseMode(s.Mode); err != nil {
				report("slot '%s': %v", s.ID, err)
			}
		}
		if err := nt.ValidateFields(s.Fields); err != nil {
			report("slot '%s': %v", s.ID, err)
		}
		for _, spec := range nt.Endpoints {
			id, _ := s.Fields[spec.Attr].(string)
			if id == "" {
				continue
			}
			if owner, dup := endpoints[id]; dup {
				report("slot '%s': endpoint '%s' already used by slot '%s'", s.ID, id, owner)
				continue
			}
			endpoints[id] = s.ID
		}
	}

	connections := map[string]bool{}

	for i, c := range def.Connections {
		name := c.ID
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		if c.ID != "" {
			if connections[c.ID] {
				report("connection '%s' declared twice", c.ID)
			}
			connections[c.ID] = true
		}
		if c.Group != "" && len(def.Groups) > 0 && !groups[c.Group] {
			report("connection %s: unknown group '%s'", name, c.Group)
		}
		for _, ref := range []dto.EndpointRef{c.From, c.To} {
			nt, ok := types[ref.Slot]
			if !ok {
				report("connection %s: missing slot '%s'", name, ref.Slot)
				continue
			}
			if ref.Endpoint != "" && !hasEndpoint(nt, ref.Endpoint) {
				report("connection %s: %s has no endpoint '%s'", name, nt.Name, ref.Endpoint)
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}
	return nil
}

func hasEndpoint(nt diagram.NodeType, attr string) bool {
	for _, spec := range nt.Endpoints {
		if spec.Attr == attr {
			return true
		}
	}
	return false
}
