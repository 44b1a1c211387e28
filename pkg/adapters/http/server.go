// Package http exposes a diagram workspace as a JSON API, with HTML and
// Mermaid renderings of each diagram and a server-sent event stream of
// snapshots.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/internal/presentation/graph"
	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/diagram"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/plumbing"
	"github.com/aretw0/espalier/pkg/schema"
	"github.com/aretw0/espalier/pkg/session"
)

// Server serves one workspace.
type Server struct {
	Manager *session.Manager
	Streams *StreamManager
	metrics prometheus.Gatherer
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics serves g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.metrics = g }
}

// NewHandler creates a new HTTP handler for the workspace.
func NewHandler(mgr *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		Manager: mgr,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger

	r := chi.NewRouter()
	r.Get("/openapi.yaml", serveSpec)
	r.Get("/swagger", serveSwaggerUI)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}
	r.Get("/types", s.ListTypes)

	r.Route("/diagrams", func(r chi.Router) {
		r.Get("/", s.ListDiagrams)
		r.Post("/", s.CreateDiagram)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetDiagram)
			r.Delete("/", s.DeleteDiagram)
			r.Get("/html", s.GetHTML)
			r.Get("/graph", s.GetGraph)
			r.Get("/events", s.SubscribeEvents)

			r.Post("/slots", s.AddSlot)
			r.Delete("/slots/{slot}", s.RemoveSlot)
			r.Post("/slots/{slot}/reset", s.ResetSlot)
			r.Post("/slots/{slot}/mode", s.SetMode)
			r.Post("/slots/{slot}/fields", s.ChangeFields)

			r.Post("/connections", s.Connect)
			r.Delete("/connections/{conn}", s.Disconnect)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := GetSwagger(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "espalier-http",
		"version":     strings.TrimSpace(espalier.Version),
		"api_version": apiVersion,
	})
}

// TypeInfo describes a registered node type.
type TypeInfo struct {
	Name      string        `json:"name"`
	Fields    schema.Schema `json:"fields,omitempty"`
	Endpoints []string      `json:"endpoints"`
}

// ListTypes handles GET /types.
func (s *Server) ListTypes(w http.ResponseWriter, r *http.Request) {
	reg := s.Manager.Registry()
	var types []TypeInfo
	for _, name := range reg.Names() {
		t, err := reg.Resolve(name)
		if err != nil {
			continue
		}
		info := TypeInfo{Name: name, Fields: t.Fields, Endpoints: []string{}}
		for _, ep := range t.Endpoints {
			info.Endpoints = append(info.Endpoints, ep.Attr)
		}
		types = append(types, info)
	}
	s.writeJSON(w, http.StatusOK, types)
}

// ListDiagrams handles GET /diagrams.
func (s *Server) ListDiagrams(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Manager.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ids)
}

const maxDefinitionSize = 1 << 20

// CreateDiagram handles POST /diagrams with a JSON or YAML definition body.
func (s *Server) CreateDiagram(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDefinitionSize))
	if err != nil {
		s.badRequest(w, "Invalid request body", err)
		return
	}
	if err := ValidateDefinition(data); err != nil {
		s.badRequest(w, "Definition does not match schema", err)
		return
	}
	def, err := config.Parse(data)
	if err != nil {
		s.badRequest(w, "Invalid definition", err)
		return
	}
	if def.ID == "" {
		http.Error(w, "Definition id is required", http.StatusBadRequest)
		return
	}
	if err := config.Validate(def, s.Manager.Registry()); err != nil {
		s.badRequest(w, "Invalid definition", err)
		return
	}

	d, err := s.Manager.Create(r.Context(), def)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publish(d)
	s.writeJSON(w, http.StatusCreated, d.Snapshot())
}

// GetDiagram handles GET /diagrams/{id}.
func (s *Server) GetDiagram(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(d *diagram.Diagram) {
		s.writeJSON(w, http.StatusOK, d.Snapshot())
	})
}

// DeleteDiagram handles DELETE /diagrams/{id}.
func (s *Server) DeleteDiagram(w http.ResponseWriter, r *http.Request) {
	if err := s.Manager.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type htmlCanvas interface {
	HTML() template.HTML
}

// GetHTML handles GET /diagrams/{id}/html.
func (s *Server) GetHTML(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(d *diagram.Diagram) {
		c, ok := d.Canvas().(htmlCanvas)
		if !ok {
			http.Error(w, "Canvas cannot render HTML", http.StatusNotImplemented)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, c.HTML())
	})
}

// GetGraph handles GET /diagrams/{id}/graph.
// Query parameters: selected (slot ID) and editing (highlight edit mode).
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	var overlay *graph.GraphOverlay
	q := r.URL.Query()
	if q.Has("selected") || q.Has("editing") {
		overlay = &graph.GraphOverlay{
			Selected: q.Get("selected"),
			Editing:  q.Get("editing") == "true",
		}
	}
	s.view(w, r, func(d *diagram.Diagram) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, graph.GenerateMermaid(d.Snapshot(), overlay))
	})
}

// AddSlotRequest is the body of POST /diagrams/{id}/slots.
type AddSlotRequest struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	X      int            `json:"x"`
	Y      int            `json:"y"`
	Mode   string         `json:"mode"`
	Fields map[string]any `json:"fields"`
}

// AddSlot handles POST /diagrams/{id}/slots.
func (s *Server) AddSlot(w http.ResponseWriter, r *http.Request) {
	var body AddSlotRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.ID == "" {
		http.Error(w, "Slot id is required", http.StatusBadRequest)
		return
	}
	s.edit(w, r, http.StatusCreated, func(d *diagram.Diagram) error {
		_, err := d.AddSlot(body.ID, domain.Position{X: body.X, Y: body.Y}, body.Type, diagram.ResetOptions{
			Render: true,
			Fields: body.Fields,
			Mode:   diagram.Mode(body.Mode),
		})
		return err
	})
}

// RemoveSlot handles DELETE /diagrams/{id}/slots/{slot}.
func (s *Server) RemoveSlot(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")
	s.edit(w, r, http.StatusOK, func(d *diagram.Diagram) error {
		return d.RemoveSlot(slot)
	})
}

// ResetRequest is the body of POST /diagrams/{id}/slots/{slot}/reset.
type ResetRequest struct {
	Type   string         `json:"type"`
	Mode   string         `json:"mode"`
	Fields map[string]any `json:"fields"`
}

// ResetSlot handles POST /diagrams/{id}/slots/{slot}/reset.
func (s *Server) ResetSlot(w http.ResponseWriter, r *http.Request) {
	var body ResetRequest
	if !s.decode(w, r, &body) {
		return
	}
	slot := chi.URLParam(r, "slot")
	s.edit(w, r, http.StatusOK, func(d *diagram.Diagram) error {
		_, err := d.ResetSlot(slot, body.Type, diagram.ResetOptions{
			Render: true,
			Fields: body.Fields,
			Mode:   diagram.Mode(body.Mode),
		})
		return err
	})
}

// ModeRequest is the body of POST /diagrams/{id}/slots/{slot}/mode.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// SetMode handles POST /diagrams/{id}/slots/{slot}/mode.
func (s *Server) SetMode(w http.ResponseWriter, r *http.Request) {
	var body ModeRequest
	if !s.decode(w, r, &body) {
		return
	}
	mode, err := diagram.ParseMode(body.Mode)
	if err != nil {
		s.writeError(w, err)
		return
	}
	slot := chi.URLParam(r, "slot")
	s.edit(w, r, http.StatusOK, func(d *diagram.Diagram) error {
		n, err := d.SlotNode(slot)
		if err != nil {
			return err
		}
		return n.SetMode(mode)
	})
}

// ChangeFields handles POST /diagrams/{id}/slots/{slot}/fields with a
// field-to-value object. Values are sanitized, then applied in name order;
// the first failure stops the rest.
func (s *Server) ChangeFields(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if !s.decode(w, r, &body) {
		return
	}
	fields := make([]string, 0, len(body))
	for f, v := range body {
		clean, err := schema.Sanitize(v)
		if err != nil {
			s.badRequest(w, "Invalid value for "+f, err)
			return
		}
		body[f] = clean
		fields = append(fields, f)
	}
	sort.Strings(fields)

	slot := chi.URLParam(r, "slot")
	s.edit(w, r, http.StatusOK, func(d *diagram.Diagram) error {
		n, err := d.SlotNode(slot)
		if err != nil {
			return err
		}
		for _, f := range fields {
			if err := n.Change(f, body[f]); err != nil {
				return err
			}
		}
		return n.Render()
	})
}

// ConnectRequest is the body of POST /diagrams/{id}/connections. Source
// and Target are endpoint IDs.
type ConnectRequest struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Group  string `json:"group"`
}

// Connect handles POST /diagrams/{id}/connections.
func (s *Server) Connect(w http.ResponseWriter, r *http.Request) {
	var body ConnectRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.edit(w, r, http.StatusCreated, func(d *diagram.Diagram) error {
		_, err := d.Connect(body.Source, body.Target, plumbing.ConnectOptions{
			ID:     body.ID,
			Group:  body.Group,
			Render: true,
		})
		return err
	})
}

// Disconnect handles DELETE /diagrams/{id}/connections/{conn}.
func (s *Server) Disconnect(w http.ResponseWriter, r *http.Request) {
	conn := chi.URLParam(r, "conn")
	s.edit(w, r, http.StatusOK, func(d *diagram.Diagram) error {
		if !d.Disconnect(conn) {
			return fmt.Errorf("connection %s: %w", conn, errConnectionNotFound)
		}
		return nil
	})
}

var errConnectionNotFound = errors.New("connection not found")

// -- Helpers --

func (s *Server) view(w http.ResponseWriter, r *http.Request, fn func(*diagram.Diagram)) {
	err := s.Manager.View(r.Context(), chi.URLParam(r, "id"), func(d *diagram.Diagram) error {
		fn(d)
		return nil
	})
	if err != nil {
		s.writeError(w, err)
	}
}

// edit applies fn and answers with the resulting snapshot, broadcasting it
// to subscribers.
func (s *Server) edit(w http.ResponseWriter, r *http.Request, status int, fn func(*diagram.Diagram) error) {
	var snap *domain.Snapshot
	err := s.Manager.Edit(r.Context(), chi.URLParam(r, "id"), func(d *diagram.Diagram) error {
		err := fn(d)
		snap = d.Snapshot()
		return err
	})
	if snap != nil {
		s.broadcast(snap)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, status, snap)
}

func (s *Server) publish(d *diagram.Diagram) {
	s.broadcast(d.Snapshot())
}

func (s *Server) broadcast(snap *domain.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		s.logger.Error("Snapshot encode failed", "diagram_id", snap.ID, "err", err)
		return
	}
	s.Streams.Broadcast(snap.ID, string(data))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.badRequest(w, "Invalid request body", err)
		return false
	}
	return true
}

func (s *Server) badRequest(w http.ResponseWriter, msg string, err error) {
	s.logger.Warn(msg, "err", err)
	http.Error(w, fmt.Sprintf("%s: %v", msg, err), http.StatusBadRequest)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "err", err)
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	var (
		resErr    *domain.ResolutionError
		staleErr  *domain.StaleReferenceError
		schemaErr *schema.ValidationError
		aggrErr   *schema.AggregateError
	)
	switch {
	case errors.Is(err, domain.ErrDiagramNotFound),
		errors.Is(err, domain.ErrSlotNotFound),
		errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, errConnectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateSlot),
		errors.Is(err, domain.ErrDuplicateConnection),
		errors.Is(err, domain.ErrEndpointInUse),
		errors.Is(err, domain.ErrNotAccepted),
		errors.Is(err, domain.ErrReadOnly),
		errors.As(err, &staleErr):
		return http.StatusConflict
	case errors.As(err, &resErr), errors.As(err, &schemaErr), errors.As(err, &aggrErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
