package states

import (
	"github.com/aretw0/espalier/pkg/diagram"
	"github.com/aretw0/espalier/pkg/model"
)

// http_json states post or get JSON from a remote URL.

var (
	httpJSONEditTmpl = parse("http_json_edit", `<div class="httpjson-edit">`+
		`<select class="channel-type"><option value="unassigned">unassigned</option>{{with .channel_type}}<option selected>{{.}}</option>{{end}}</select>`+
		`<select class="httpjson-method"><option value="unassigned">unassigned</option>`+
		`{{range .methods}}<option{{if eq . $.method}} selected{{end}}>{{.}}</option>{{end}}</select>`+
		`<input class="httpjson-url" value="{{.url}}">`+
		`</div>`)
	httpJSONPreviewTmpl = parse("http_json_preview", `<div class="httpjson-preview">`+
		`<span class="method">{{.method}}</span> <span class="url">{{.url}}</span>`+
		`</div>`)
)

// HTTPMethods are the methods offered by the http_json editor.
var HTTPMethods = []string{"GET", "POST", "PUT", "DELETE"}

type httpJSONFields struct {
	Method *struct {
		Model string `mapstructure:"model"`
	} `mapstructure:"method"`
	URL *struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"url"`
	ChannelType *struct {
		Name string `mapstructure:"name"`
	} `mapstructure:"channel_type"`
}

type httpJSONMode struct {
	diagram.BaseMode
}

func (m *httpJSONMode) Data() map[string]any {
	d := m.BaseMode.Data()
	var f httpJSONFields
	if err := m.Model().Decode(&f); err != nil {
		m.Node().Logger().Warn("Malformed http_json fields", "err", err)
	}

	d["method"], d["url"], d["channel_type"] = "", "", ""
	if f.Method != nil {
		d["method"] = f.Method.Model
	}
	if f.URL != nil {
		d["url"] = f.URL.URL
	}
	if f.ChannelType != nil {
		d["channel_type"] = f.ChannelType.Name
	}
	return d
}

type httpJSONEdit struct {
	httpJSONMode
}

func (m *httpJSONEdit) Data() map[string]any {
	d := m.httpJSONMode.Data()
	d["methods"] = HTTPMethods
	return d
}

func (m *httpJSONEdit) Change(field, value string) error {
	return m.Dispatch(httpJSONHandlers, field, value)
}

var httpJSONHandlers = diagram.Handlers{
	"channel_type": func(m *model.Model, v string) {
		diagram.ApplyField(m, "channel_type", v, diagram.Wrap("name"))
	},
	"method": func(m *model.Model, v string) {
		diagram.ApplyField(m, "method", v, diagram.Wrap("model"))
	},
	"url": func(m *model.Model, v string) {
		diagram.ApplyField(m, "url", v, diagram.Wrap("url"))
	},
}

func newHTTPJSONEdit(n *diagram.Node) diagram.ModeView {
	return &httpJSONEdit{httpJSONMode{diagram.NewBaseMode(n, diagram.ModeEdit, httpJSONEditTmpl)}}
}

func newHTTPJSONPreview(n *diagram.Node) diagram.ModeView {
	return &httpJSONMode{diagram.NewBaseMode(n, diagram.ModePreview, httpJSONPreviewTmpl)}
}
