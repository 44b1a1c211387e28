package dto

import (
	"github.com/aretw0/espalier/pkg/plumbing"
)

// Definition is the on-disk shape of a diagram.
// It uses "mapstructure" tags so YAML and JSON documents decode the same way.
type Definition struct {
	ID          string       `json:"id" yaml:"id" mapstructure:"id"`
	DefaultType string       `json:"default_type,omitempty" yaml:"default_type,omitempty" mapstructure:"default_type"`
	Groups      []Group      `json:"groups,omitempty" yaml:"groups,omitempty" mapstructure:"groups"`
	Slots       []Slot       `json:"slots" yaml:"slots" mapstructure:"slots"`
	Connections []Connection `json:"connections,omitempty" yaml:"connections,omitempty" mapstructure:"connections"`
}

// Slot places one node on the grid.
type Slot struct {
	ID     string         `json:"id" yaml:"id" mapstructure:"id"`
	Type   string         `json:"type,omitempty" yaml:"type,omitempty" mapstructure:"type"`
	X      int            `json:"x" yaml:"x" mapstructure:"x"`
	Y      int            `json:"y" yaml:"y" mapstructure:"y"`
	Mode   string         `json:"mode,omitempty" yaml:"mode,omitempty" mapstructure:"mode"`
	Fields map[string]any `json:"fields,omitempty" yaml:"fields,omitempty" mapstructure:"fields"`
}

// Group declares a connection group as a directed pair of endpoint matches.
type Group struct {
	Name string         `json:"name" yaml:"name" mapstructure:"name"`
	From plumbing.Match `json:"from" yaml:"from" mapstructure:"from"`
	To   plumbing.Match `json:"to" yaml:"to" mapstructure:"to"`
}

// Connection links an endpoint of one slot's node to an endpoint of another's.
type Connection struct {
	ID    string      `json:"id,omitempty" yaml:"id,omitempty" mapstructure:"id"`
	Group string      `json:"group,omitempty" yaml:"group,omitempty" mapstructure:"group"`
	From  EndpointRef `json:"from" yaml:"from" mapstructure:"from"`
	To    EndpointRef `json:"to" yaml:"to" mapstructure:"to"`
}

// EndpointRef names an endpoint by slot and endpoint attribute.
// An empty Endpoint picks the node's first exit (for From) or entry (for To).
// Documents may write it as "slot" or "slot.attr".
type EndpointRef struct {
	Slot     string `json:"slot" yaml:"slot" mapstructure:"slot"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`
}

// String renders the ref in its short "slot.attr" form.
func (r EndpointRef) String() string {
	if r.Endpoint == "" {
		return r.Slot
	}
	return r.Slot + "." + r.Endpoint
}
