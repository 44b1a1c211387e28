package diagram

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/model"
)

// Mode is the active rendering state of a node.
type Mode string

const (
	ModeEdit    Mode = "edit"
	ModePreview Mode = "preview"
)

// ParseMode resolves a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeEdit, ModePreview:
		return Mode(s), nil
	}
	return "", &domain.ResolutionError{Kind: "mode", Name: s}
}

// ModeView renders one mode of a node. Both mode views of a node are built
// once, when the node is created, and share the node's model.
type ModeView interface {
	Mode() Mode
	// Data derives the template input from the shared model.
	Data() map[string]any
	Template() *template.Template
}

// Changer is implemented by mode views that accept field edits.
type Changer interface {
	Change(field, value string) error
}

// ModeFactory builds a mode view for node.
type ModeFactory func(node *Node) ModeView

var emptyTemplate = template.Must(template.New("empty").Parse(""))

// BaseMode is embedded by concrete mode views. Subtypes override Data,
// calling BaseMode.Data and adding their own fields.
type BaseMode struct {
	node *Node
	mode Mode
	tmpl *template.Template
}

// NewBaseMode creates the shared part of a mode view.
func NewBaseMode(node *Node, mode Mode, tmpl *template.Template) BaseMode {
	if tmpl == nil {
		tmpl = emptyTemplate
	}
	return BaseMode{node: node, mode: mode, tmpl: tmpl}
}

// Node returns the owning node.
func (b *BaseMode) Node() *Node { return b.node }

// Model returns the shared model.
func (b *BaseMode) Model() *model.Model { return b.node.Model() }

// Mode implements ModeView.
func (b *BaseMode) Mode() Mode { return b.mode }

// Template implements ModeView.
func (b *BaseMode) Template() *template.Template { return b.tmpl }

// Data implements ModeView.
func (b *BaseMode) Data() map[string]any {
	return map[string]any{
		"id":    b.node.ID(),
		"type":  b.node.Type(),
		"mode":  string(b.mode),
		"model": b.node.Model().Attributes(),
	}
}

// Handlers maps field names to write-back functions.
type Handlers map[string]func(m *model.Model, value string)

// Dispatch runs the handler registered for field.
func (b *BaseMode) Dispatch(handlers Handlers, field, value string) error {
	h, ok := handlers[field]
	if !ok {
		return &domain.ResolutionError{Kind: "field", Name: field}
	}
	h(b.Model(), value)
	return nil
}

type defaultMode struct{ BaseMode }

func defaultFactory(mode Mode) ModeFactory {
	return func(n *Node) ModeView {
		return &defaultMode{NewBaseMode(n, mode, nil)}
	}
}

// renderMode is a pure function of the mode view's template and data.
func renderMode(v ModeView) (template.HTML, error) {
	var buf bytes.Buffer
	if err := v.Template().Execute(&buf, v.Data()); err != nil {
		return "", fmt.Errorf("render %s mode: %w", v.Mode(), err)
	}
	return template.HTML(buf.String()), nil
}
