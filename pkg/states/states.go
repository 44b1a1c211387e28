// Package states provides the built-in dialogue state types: choice,
// freetext, end and http_json.
package states

import (
	"html/template"

	"github.com/aretw0/espalier/pkg/diagram"
	"github.com/aretw0/espalier/pkg/plumbing"
	"github.com/aretw0/espalier/pkg/schema"
)

const (
	TypeChoice   = "choice"
	TypeFreetext = "freetext"
	TypeEnd      = "end"
	TypeHTTPJSON = "http_json"
)

// Endpoint attribute names shared by the built-in types.
const (
	EntryEndpoint = "entry_endpoint"
	ExitEndpoint  = "exit_endpoint"
)

var textFields = schema.Schema{"text": schema.String()}

var (
	entry = diagram.EndpointSpec{Attr: EntryEndpoint, Role: plumbing.RoleEntry, Side: plumbing.SideLeft}
	exit  = diagram.EndpointSpec{Attr: ExitEndpoint, Role: plumbing.RoleExit, Side: plumbing.SideRight}
)

// Register adds every built-in type to reg.
func Register(reg *diagram.Registry) {
	for _, t := range Types() {
		reg.Register(t.Name, t)
	}
}

// NewRegistry returns a registry holding the built-in types.
func NewRegistry() *diagram.Registry {
	reg := diagram.NewRegistry()
	Register(reg)
	return reg
}

// Types lists the built-in node types.
func Types() []diagram.NodeType {
	return []diagram.NodeType{
		{
			Name:      TypeChoice,
			Edit:      func(n *diagram.Node) diagram.ModeView { return newChoiceEdit(n) },
			Preview:   func(n *diagram.Node) diagram.ModeView { return newChoicePreview(n) },
			Endpoints: []diagram.EndpointSpec{entry, exit},
			Defaults:  map[string]any{"text": "", "options": []string{}},
			Fields:    schema.Schema{"text": schema.String(), "options": schema.Slice(schema.String())},
		},
		{
			Name:      TypeFreetext,
			Edit:      func(n *diagram.Node) diagram.ModeView { return newFreetextEdit(n) },
			Preview:   func(n *diagram.Node) diagram.ModeView { return newFreetextPreview(n) },
			Endpoints: []diagram.EndpointSpec{entry, exit},
			Defaults:  map[string]any{"text": ""},
			Fields:    textFields,
		},
		{
			Name:      TypeEnd,
			Edit:      func(n *diagram.Node) diagram.ModeView { return newEndEdit(n) },
			Preview:   func(n *diagram.Node) diagram.ModeView { return newEndPreview(n) },
			Endpoints: []diagram.EndpointSpec{entry},
			Defaults:  map[string]any{"text": ""},
			Fields:    textFields,
		},
		{
			Name:      TypeHTTPJSON,
			Edit:      func(n *diagram.Node) diagram.ModeView { return newHTTPJSONEdit(n) },
			Preview:   func(n *diagram.Node) diagram.ModeView { return newHTTPJSONPreview(n) },
			Endpoints: []diagram.EndpointSpec{entry, exit},
			Fields: schema.Schema{
				"method":       schema.Wrapped("model", schema.String()),
				"url":          schema.Wrapped("url", schema.String()),
				"channel_type": schema.Wrapped("name", schema.String()),
			},
		},
	}
}

func parse(name, text string) *template.Template {
	return template.Must(template.New(name).Parse(text))
}
