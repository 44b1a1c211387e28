package states

import (
	"strings"

	"github.com/aretw0/espalier/pkg/diagram"
	"github.com/aretw0/espalier/pkg/model"
)

var (
	choiceEditTmpl = parse("choice_edit", `<div class="choice-edit">`+
		`<textarea class="text">{{.text}}</textarea>`+
		`<ul class="options">{{range .options}}<li><input class="option" value="{{.}}"></li>{{end}}</ul>`+
		`</div>`)
	choicePreviewTmpl = parse("choice_preview", `<div class="choice-preview">`+
		`<p class="text">{{.text}}</p>`+
		`<ol class="options">{{range .options}}<li>{{.}}</li>{{end}}</ol>`+
		`</div>`)
	freetextEditTmpl = parse("freetext_edit", `<div class="freetext-edit">`+
		`<textarea class="text">{{.text}}</textarea>`+
		`</div>`)
	freetextPreviewTmpl = parse("freetext_preview", `<div class="freetext-preview">`+
		`<p class="text">{{.text}}</p><p class="answer">...</p>`+
		`</div>`)
	endEditTmpl = parse("end_edit", `<div class="end-edit">`+
		`<textarea class="text">{{.text}}</textarea>`+
		`</div>`)
	endPreviewTmpl = parse("end_preview", `<div class="end-preview">`+
		`<p class="text">{{.text}}</p>`+
		`</div>`)
)

// textMode serves the types whose only field is a prompt text.
type textMode struct {
	diagram.BaseMode
}

func (m *textMode) Data() map[string]any {
	d := m.BaseMode.Data()
	d["text"] = m.Model().String("text")
	return d
}

type textEdit struct {
	textMode
	handlers diagram.Handlers
}

func (m *textEdit) Change(field, value string) error {
	return m.Dispatch(m.handlers, field, value)
}

var textHandlers = diagram.Handlers{
	"text": func(m *model.Model, v string) { diagram.ApplyField(m, "text", v, diagram.Plain) },
}

func newFreetextEdit(n *diagram.Node) diagram.ModeView {
	return &textEdit{textMode{diagram.NewBaseMode(n, diagram.ModeEdit, freetextEditTmpl)}, textHandlers}
}

func newFreetextPreview(n *diagram.Node) diagram.ModeView {
	return &textMode{diagram.NewBaseMode(n, diagram.ModePreview, freetextPreviewTmpl)}
}

func newEndEdit(n *diagram.Node) diagram.ModeView {
	return &textEdit{textMode{diagram.NewBaseMode(n, diagram.ModeEdit, endEditTmpl)}, textHandlers}
}

func newEndPreview(n *diagram.Node) diagram.ModeView {
	return &textMode{diagram.NewBaseMode(n, diagram.ModePreview, endPreviewTmpl)}
}

type choiceMode struct {
	textMode
}

func (m *choiceMode) Data() map[string]any {
	d := m.textMode.Data()
	d["options"] = options(m.Model())
	return d
}

// options reads the option list whether it came from Go ([]string) or from a
// decoded document ([]any).
func options(m *model.Model) []string {
	var fields struct {
		Options []string `mapstructure:"options"`
	}
	if err := m.Decode(&fields); err != nil {
		return nil
	}
	return fields.Options
}

type choiceEdit struct {
	choiceMode
}

func (m *choiceEdit) Change(field, value string) error {
	return m.Dispatch(choiceHandlers, field, value)
}

var choiceHandlers = diagram.Handlers{
	"text": textHandlers["text"],
	"options": func(m *model.Model, v string) {
		diagram.ApplyField(m, "options", v, func(raw string) any {
			var opts []string
			for _, o := range strings.Split(raw, ",") {
				if o = strings.TrimSpace(o); o != "" {
					opts = append(opts, o)
				}
			}
			return opts
		})
	},
}

func newChoiceEdit(n *diagram.Node) diagram.ModeView {
	return &choiceEdit{choiceMode{textMode{diagram.NewBaseMode(n, diagram.ModeEdit, choiceEditTmpl)}}}
}

func newChoicePreview(n *diagram.Node) diagram.ModeView {
	return &choiceMode{textMode{diagram.NewBaseMode(n, diagram.ModePreview, choicePreviewTmpl)}}
}
