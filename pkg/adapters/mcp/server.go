// Package mcp exposes a diagram workspace to Model Context Protocol clients.
// Every editing tool answers with the resulting snapshot.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/internal/presentation/graph"
	"github.com/aretw0/espalier/pkg/diagram"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/plumbing"
	"github.com/aretw0/espalier/pkg/schema"
	"github.com/aretw0/espalier/pkg/session"
)

const diagramURIPrefix = "espalier://diagrams/"

// ListResponse is the result of list_diagrams.
type ListResponse struct {
	Diagrams []string `json:"diagrams" jsonschema_description:"IDs of every known diagram"`
}

// TypesResponse is the result of list_types.
type TypesResponse struct {
	Types []TypeInfo `json:"types"`
}

// TypeInfo describes a registered node type.
type TypeInfo struct {
	Name      string   `json:"name"`
	Fields    []string `json:"fields" jsonschema_description:"Field names the type stores"`
	Endpoints []string `json:"endpoints" jsonschema_description:"Endpoint attributes the type exposes"`
}

// DiagramArgs names a diagram.
type DiagramArgs struct {
	ID string `json:"id"`
}

// SlotArgs names a slot of a diagram.
type SlotArgs struct {
	ID   string `json:"id"`
	Slot string `json:"slot"`
}

// AddSlotArgs are the arguments of add_slot.
type AddSlotArgs struct {
	ID   string `json:"id"`
	Slot string `json:"slot"`
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// ResetArgs are the arguments of reset_slot.
type ResetArgs struct {
	ID   string `json:"id"`
	Slot string `json:"slot"`
	Type string `json:"type"`
	Mode string `json:"mode"`
}

// ModeArgs are the arguments of set_mode.
type ModeArgs struct {
	ID   string `json:"id"`
	Slot string `json:"slot"`
	Mode string `json:"mode"`
}

// FieldArgs are the arguments of change_field.
type FieldArgs struct {
	ID    string `json:"id"`
	Slot  string `json:"slot"`
	Field string `json:"field"`
	Value string `json:"value"`
}

// ConnectArgs are the arguments of connect.
type ConnectArgs struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Group  string `json:"group"`
}

// DisconnectArgs are the arguments of disconnect.
type DisconnectArgs struct {
	ID         string `json:"id"`
	Connection string `json:"connection"`
}

// Server wraps a workspace and exposes it as an MCP server.
type Server struct {
	manager   *session.Manager
	mcpServer *server.MCPServer
	tools     []string
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a new MCP server for mgr.
func NewServer(mgr *session.Manager, opts ...Option) *Server {
	s := &Server{
		manager:   mgr,
		mcpServer: server.NewMCPServer("espalier-mcp", strings.TrimSpace(espalier.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// Tools returns the names of the registered tools in registration order.
func (s *Server) Tools() []string { return s.tools }

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sse.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sse.MessageHandler()))
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, handler)
	s.tools = append(s.tools, tool.Name)
}

func diagramID() mcp.ToolOption {
	return mcp.WithString("id", mcp.Required(), mcp.Description("Diagram ID"))
}

func slotID() mcp.ToolOption {
	return mcp.WithString("slot", mcp.Required(), mcp.Description("Slot ID"))
}

func (s *Server) registerTools() {
	s.addTool(mcp.NewTool("list_diagrams",
		mcp.WithDescription("List the IDs of every diagram in the workspace."),
		mcp.WithOutputSchema[ListResponse](),
	), mcp.NewStructuredToolHandler(s.handleList))

	s.addTool(mcp.NewTool("list_types",
		mcp.WithDescription("List the node types a slot can be reset to."),
		mcp.WithOutputSchema[TypesResponse](),
	), mcp.NewStructuredToolHandler(s.handleTypes))

	s.addTool(mcp.NewTool("get_diagram",
		mcp.WithDescription("Get the snapshot of a diagram: its slots, nodes, endpoints and connections."),
		diagramID(),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleGet))

	s.addTool(mcp.NewTool("graph",
		mcp.WithDescription("Render a diagram as a Mermaid flowchart."),
		diagramID(),
		mcp.WithString("selected", mcp.Description("Slot to highlight")),
	), s.handleGraph)

	s.addTool(mcp.NewTool("add_slot",
		mcp.WithDescription("Add a slot to a diagram and create its node."),
		diagramID(), slotID(),
		mcp.WithString("type", mcp.Description("Node type; the diagram default when omitted")),
		mcp.WithNumber("x", mcp.Description("Grid column")),
		mcp.WithNumber("y", mcp.Description("Grid row")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleAddSlot))

	s.addTool(mcp.NewTool("remove_slot",
		mcp.WithDescription("Remove a slot and destroy its node."),
		diagramID(), slotID(),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleRemoveSlot))

	s.addTool(mcp.NewTool("reset_slot",
		mcp.WithDescription("Replace the node in a slot with a fresh node of the given type."),
		diagramID(), slotID(),
		mcp.WithString("type", mcp.Required(), mcp.Description("Node type")),
		mcp.WithString("mode", mcp.Enum("edit", "preview"), mcp.Description("Initial mode")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleReset))

	s.addTool(mcp.NewTool("set_mode",
		mcp.WithDescription("Switch a node between edit and preview mode."),
		diagramID(), slotID(),
		mcp.WithString("mode", mcp.Required(), mcp.Enum("edit", "preview")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleSetMode))

	s.addTool(mcp.NewTool("change_field",
		mcp.WithDescription("Apply an edit to one field of a node in edit mode."),
		diagramID(), slotID(),
		mcp.WithString("field", mcp.Required(), mcp.Description("Field name")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Raw value as typed in the editor")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleChangeField))

	s.addTool(mcp.NewTool("connect",
		mcp.WithDescription("Connect two endpoints. The group is resolved from the endpoints when omitted."),
		diagramID(),
		mcp.WithString("source", mcp.Required(), mcp.Description("Source endpoint ID")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target endpoint ID")),
		mcp.WithString("group", mcp.Description("Connection group")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleConnect))

	s.addTool(mcp.NewTool("disconnect",
		mcp.WithDescription("Remove a connection."),
		diagramID(),
		mcp.WithString("connection", mcp.Required(), mcp.Description("Connection ID")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleDisconnect))
}

func (s *Server) handleList(ctx context.Context, _ mcp.CallToolRequest, _ map[string]any) (ListResponse, error) {
	ids, err := s.manager.List(ctx)
	if err != nil {
		return ListResponse{}, err
	}
	return ListResponse{Diagrams: ids}, nil
}

func (s *Server) handleTypes(ctx context.Context, _ mcp.CallToolRequest, _ map[string]any) (TypesResponse, error) {
	reg := s.manager.Registry()
	resp := TypesResponse{Types: []TypeInfo{}}
	for _, name := range reg.Names() {
		t, err := reg.Resolve(name)
		if err != nil {
			continue
		}
		info := TypeInfo{Name: name, Fields: []string{}, Endpoints: []string{}}
		for f := range t.Fields {
			info.Fields = append(info.Fields, f)
		}
		sort.Strings(info.Fields)
		for _, ep := range t.Endpoints {
			info.Endpoints = append(info.Endpoints, ep.Attr)
		}
		resp.Types = append(resp.Types, info)
	}
	return resp, nil
}

func (s *Server) handleGet(ctx context.Context, _ mcp.CallToolRequest, args DiagramArgs) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.manager.View(ctx, args.ID, func(d *diagram.Diagram) error {
		snap = *d.Snapshot()
		return nil
	})
	return snap, err
}

func (s *Server) handleGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var overlay *graph.GraphOverlay
	if selected := req.GetString("selected", ""); selected != "" {
		overlay = &graph.GraphOverlay{Selected: selected}
	}
	var out string
	err = s.manager.View(ctx, id, func(d *diagram.Diagram) error {
		out = graph.GenerateMermaid(d.Snapshot(), overlay)
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) handleAddSlot(ctx context.Context, _ mcp.CallToolRequest, args AddSlotArgs) (domain.Snapshot, error) {
	return s.edit(ctx, args.ID, func(d *diagram.Diagram) error {
		_, err := d.AddSlot(args.Slot, domain.Position{X: args.X, Y: args.Y}, args.Type, diagram.ResetOptions{Render: true})
		return err
	})
}

func (s *Server) handleRemoveSlot(ctx context.Context, _ mcp.CallToolRequest, args SlotArgs) (domain.Snapshot, error) {
	return s.edit(ctx, args.ID, func(d *diagram.Diagram) error {
		return d.RemoveSlot(args.Slot)
	})
}

func (s *Server) handleReset(ctx context.Context, _ mcp.CallToolRequest, args ResetArgs) (domain.Snapshot, error) {
	return s.edit(ctx, args.ID, func(d *diagram.Diagram) error {
		_, err := d.ResetSlot(args.Slot, args.Type, diagram.ResetOptions{
			Render: true,
			Mode:   diagram.Mode(args.Mode),
		})
		return err
	})
}

func (s *Server) handleSetMode(ctx context.Context, _ mcp.CallToolRequest, args ModeArgs) (domain.Snapshot, error) {
	mode, err := diagram.ParseMode(args.Mode)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return s.edit(ctx, args.ID, func(d *diagram.Diagram) error {
		n, err := d.SlotNode(args.Slot)
		if err != nil {
			return err
		}
		return n.SetMode(mode)
	})
}

func (s *Server) handleChangeField(ctx context.Context, _ mcp.CallToolRequest, args FieldArgs) (domain.Snapshot, error) {
	value, err := schema.Sanitize(args.Value)
	if err != nil {
		s.logger.Warn("change_field: value rejected", "err", err, "size", len(args.Value))
		return domain.Snapshot{}, fmt.Errorf("value rejected: %w", err)
	}
	return s.edit(ctx, args.ID, func(d *diagram.Diagram) error {
		n, err := d.SlotNode(args.Slot)
		if err != nil {
			return err
		}
		if err := n.Change(args.Field, value); err != nil {
			return err
		}
		return n.Render()
	})
}

func (s *Server) handleConnect(ctx context.Context, _ mcp.CallToolRequest, args ConnectArgs) (domain.Snapshot, error) {
	return s.edit(ctx, args.ID, func(d *diagram.Diagram) error {
		_, err := d.Connect(args.Source, args.Target, plumbing.ConnectOptions{Group: args.Group, Render: true})
		return err
	})
}

func (s *Server) handleDisconnect(ctx context.Context, _ mcp.CallToolRequest, args DisconnectArgs) (domain.Snapshot, error) {
	return s.edit(ctx, args.ID, func(d *diagram.Diagram) error {
		if !d.Disconnect(args.Connection) {
			return fmt.Errorf("connection %s not found", args.Connection)
		}
		return nil
	})
}

// edit applies fn and returns the snapshot after it. A failed edit still
// leaves its partial result saved, so the error is all the caller gets.
func (s *Server) edit(ctx context.Context, id string, fn func(*diagram.Diagram) error) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.manager.Edit(ctx, id, func(d *diagram.Diagram) error {
		if err := fn(d); err != nil {
			return err
		}
		snap = *d.Snapshot()
		return nil
	})
	if err != nil {
		s.logger.Debug("MCP edit failed", "diagram", id, "err", err)
		return domain.Snapshot{}, err
	}
	return snap, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("espalier://diagrams", "Diagram IDs",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.manager.List(ctx)
		if err != nil {
			return nil, err
		}
		return jsonContents("espalier://diagrams", ids)
	})

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(diagramURIPrefix+"{id}", "Diagram snapshot",
		mcp.WithTemplateMIMEType("application/json"),
	), s.readDiagram)
}

func (s *Server) readDiagram(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id := strings.TrimPrefix(uri, diagramURIPrefix)
	if id == uri || id == "" {
		return nil, fmt.Errorf("unexpected resource %q", uri)
	}
	var snap *domain.Snapshot
	err := s.manager.View(ctx, id, func(d *diagram.Diagram) error {
		snap = d.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jsonContents(uri, snap)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(data)},
	}, nil
}
