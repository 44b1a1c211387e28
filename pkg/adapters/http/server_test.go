package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/dsl"
	"github.com/aretw0/espalier/pkg/session"
	"github.com/aretw0/espalier/pkg/states"
)

func newTestHandler(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	b := dsl.New("support")
	b.Add("ask").Choice("Did that help?", "yes", "no").To("details")
	b.Add("details").At(1, 0).Freetext("Tell us more").To("bye")
	b.Add("bye").At(2, 0).End("Thanks!").Preview()

	loader, err := memory.NewFromDefinitions(b.Definition())
	require.NoError(t, err)
	mgr := session.NewManager(memory.NewStore(), states.NewRegistry(), session.WithLoader(loader))
	return NewHandler(mgr, opts...)
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) *domain.Snapshot {
	t.Helper()
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap), w.Body.String())
	return &snap
}

func endpoint(t *testing.T, snap *domain.Snapshot, slot, attr string) string {
	t.Helper()
	n, ok := snap.Node(slot)
	require.True(t, ok, "slot %s", slot)
	for _, ep := range n.Endpoints {
		if ep.Attr == attr {
			return ep.ID
		}
	}
	t.Fatalf("slot %s has no endpoint %s", slot, attr)
	return ""
}

func TestServer_Health(t *testing.T) {
	h := newTestHandler(t)

	w := do(t, h, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, "GET", "/info", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "espalier-http")
}

func TestServer_Diagrams(t *testing.T) {
	h := newTestHandler(t)

	t.Run("List", func(t *testing.T) {
		w := do(t, h, "GET", "/diagrams", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `["support"]`, w.Body.String())
	})

	t.Run("Get", func(t *testing.T) {
		w := do(t, h, "GET", "/diagrams/support", nil)
		require.Equal(t, http.StatusOK, w.Code)
		snap := decodeSnapshot(t, w)
		assert.Len(t, snap.Nodes, 3)
		assert.Len(t, snap.Connections, 2)
	})

	t.Run("Not Found", func(t *testing.T) {
		w := do(t, h, "GET", "/diagrams/missing", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("HTML", func(t *testing.T) {
		w := do(t, h, "GET", "/diagrams/support/html", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "slot-ask")
	})

	t.Run("Graph", func(t *testing.T) {
		w := do(t, h, "GET", "/diagrams/support/graph?selected=ask", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "graph LR")
		assert.Contains(t, w.Body.String(), "ask --> details")
		assert.Contains(t, w.Body.String(), "class ask selected;")
	})
}

func TestServer_CreateAndDelete(t *testing.T) {
	h := newTestHandler(t)

	yaml := `
id: survey
slots:
  - id: q1
    type: freetext
    fields: {text: "Name?"}
  - id: done
    type: end
    x: 1
connections:
  - from: q1
    to: done
`
	w := do(t, h, "POST", "/diagrams", yaml)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	snap := decodeSnapshot(t, w)
	assert.Equal(t, "survey", snap.ID)

	w = do(t, h, "GET", "/diagrams", nil)
	assert.JSONEq(t, `["support","survey"]`, w.Body.String())

	t.Run("Invalid Definition", func(t *testing.T) {
		w := do(t, h, "POST", "/diagrams", `{"id": "bad", "slots": [{"id": "a", "type": "nope"}]}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = do(t, h, "POST", "/diagrams", `{"slots": []}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	w = do(t, h, "DELETE", "/diagrams/survey", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, "GET", "/diagrams/survey", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Slots(t *testing.T) {
	h := newTestHandler(t)

	t.Run("Reset", func(t *testing.T) {
		w := do(t, h, "POST", "/diagrams/support/slots/details/reset", ResetRequest{
			Type:   states.TypeHTTPJSON,
			Fields: map[string]any{"method": map[string]any{"model": "GET"}},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		n, ok := decodeSnapshot(t, w).Node("details")
		require.True(t, ok)
		assert.Equal(t, states.TypeHTTPJSON, n.Type)

		w = do(t, h, "GET", "/diagrams/support/graph", nil)
		assert.Contains(t, w.Body.String(), "details[[")
	})

	t.Run("Reset Errors", func(t *testing.T) {
		w := do(t, h, "POST", "/diagrams/support/slots/details/reset", ResetRequest{Type: "nope"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = do(t, h, "POST", "/diagrams/support/slots/ghost/reset", ResetRequest{Type: states.TypeEnd})
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = do(t, h, "POST", "/diagrams/support/slots/details/reset", ResetRequest{
			Type:   states.TypeFreetext,
			Fields: map[string]any{"text": 42},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Fields", func(t *testing.T) {
		w := do(t, h, "POST", "/diagrams/support/slots/ask/fields", map[string]string{"text": "Better now?"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		n, _ := decodeSnapshot(t, w).Node("ask")
		assert.Equal(t, "Better now?", n.Fields["text"])

		w = do(t, h, "POST", "/diagrams/support/slots/ask/fields", map[string]string{"colour": "red"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = do(t, h, "POST", "/diagrams/support/slots/ask/fields", map[string]string{"text": "\x1b[2JAll good?"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		n, _ = decodeSnapshot(t, w).Node("ask")
		assert.Equal(t, "[2JAll good?", n.Fields["text"])

		w = do(t, h, "POST", "/diagrams/support/slots/ask/fields", map[string]string{"text": strings.Repeat("x", 5000)})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Mode", func(t *testing.T) {
		w := do(t, h, "POST", "/diagrams/support/slots/ask/mode", ModeRequest{Mode: "preview"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		n, _ := decodeSnapshot(t, w).Node("ask")
		assert.Equal(t, "preview", n.Mode)

		w = do(t, h, "POST", "/diagrams/support/slots/ask/fields", map[string]string{"text": "Nope"})
		assert.Equal(t, http.StatusConflict, w.Code)

		w = do(t, h, "POST", "/diagrams/support/slots/ask/mode", ModeRequest{Mode: "sideways"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Add And Remove", func(t *testing.T) {
		w := do(t, h, "POST", "/diagrams/support/slots", AddSlotRequest{ID: "extra", Type: states.TypeEnd, X: 4})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = do(t, h, "POST", "/diagrams/support/slots", AddSlotRequest{ID: "extra", Type: states.TypeEnd})
		assert.Equal(t, http.StatusConflict, w.Code)

		w = do(t, h, "DELETE", "/diagrams/support/slots/extra", nil)
		require.Equal(t, http.StatusOK, w.Code)
		_, ok := decodeSnapshot(t, w).Node("extra")
		assert.False(t, ok)
	})
}

func TestServer_Connections(t *testing.T) {
	h := newTestHandler(t)

	snap := decodeSnapshot(t, do(t, h, "GET", "/diagrams/support", nil))
	require.NotEmpty(t, snap.Connections)
	first := snap.Connections[0].ID

	w := do(t, h, "DELETE", "/diagrams/support/connections/"+first, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeSnapshot(t, w).Connections, 1)

	w = do(t, h, "DELETE", "/diagrams/support/connections/"+first, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	t.Run("Wrong Direction", func(t *testing.T) {
		w := do(t, h, "POST", "/diagrams/support/connections", ConnectRequest{
			Source: endpoint(t, snap, "details", states.EntryEndpoint),
			Target: endpoint(t, snap, "ask", states.ExitEndpoint),
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Reconnect", func(t *testing.T) {
		w := do(t, h, "POST", "/diagrams/support/connections", ConnectRequest{
			ID:     "again",
			Source: endpoint(t, snap, "ask", states.ExitEndpoint),
			Target: endpoint(t, snap, "details", states.EntryEndpoint),
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Len(t, decodeSnapshot(t, w).Connections, 2)
	})

	t.Run("Duplicate ID", func(t *testing.T) {
		w := do(t, h, "POST", "/diagrams/support/connections", ConnectRequest{
			ID:     "again",
			Source: endpoint(t, snap, "ask", states.ExitEndpoint),
			Target: endpoint(t, snap, "details", states.EntryEndpoint),
		})
		assert.Equal(t, http.StatusConflict, w.Code)

		w = do(t, h, "GET", "/diagrams/support", nil)
		assert.Len(t, decodeSnapshot(t, w).Connections, 2)
	})
}

func TestServer_Types(t *testing.T) {
	h := newTestHandler(t)
	w := do(t, h, "GET", "/types", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var types []TypeInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &types))
	require.Len(t, types, 4)
	assert.Equal(t, states.TypeChoice, types[0].Name)
	assert.Equal(t, []string{states.EntryEndpoint, states.ExitEndpoint}, types[0].Endpoints)
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "espalier_test_total"}))

	w := do(t, newTestHandler(t, WithMetrics(reg)), "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "espalier_test_total")

	w = do(t, newTestHandler(t), "GET", "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscribeEvents(t *testing.T) {
	h := newTestHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/diagrams/support/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	lines.Buffer(make([]byte, 0, 64*1024), 1<<20)
	readEvent := func() (string, string) {
		var event, data string
		for lines.Scan() {
			line := lines.Text()
			switch {
			case line == "":
				return event, data
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
		return event, data
	}

	event, data := readEvent()
	require.Equal(t, "ping", event)
	assert.Equal(t, "connected", data)

	w := do(t, h, "POST", "/diagrams/support/slots/ask/mode", ModeRequest{Mode: "preview"})
	require.Equal(t, http.StatusOK, w.Code)

	event, data = readEvent()
	require.Equal(t, "snapshot", event)
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal([]byte(data), &snap))
	n, ok := snap.Node("ask")
	require.True(t, ok)
	assert.Equal(t, "preview", n.Mode)
}

func TestSubscribeEvents_Diff(t *testing.T) {
	h := newTestHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/diagrams/support/events?format=diff", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	readEvent := func() (string, string) {
		var event, data string
		for lines.Scan() {
			line := lines.Text()
			switch {
			case line == "":
				return event, data
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
		return event, data
	}

	event, _ := readEvent()
	require.Equal(t, "ping", event)

	w := do(t, h, "POST", "/diagrams/support/slots/ask/mode", ModeRequest{Mode: "preview"})
	require.Equal(t, http.StatusOK, w.Code)

	event, data := readEvent()
	require.Equal(t, "diff", event)
	var diff domain.SnapshotDiff
	require.NoError(t, json.Unmarshal([]byte(data), &diff))
	assert.Equal(t, "support", diff.DiagramID)
	require.Len(t, diff.Nodes, 1)
	assert.Equal(t, "ask", diff.Nodes[0].SlotID)
	assert.Equal(t, "preview", diff.Nodes[0].Mode)
	assert.Empty(t, diff.RemovedNodes)

	t.Run("Unknown Diagram", func(t *testing.T) {
		w := do(t, h, "GET", "/diagrams/ghost/events?format=diff", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestStreamManager(t *testing.T) {
	sm := NewStreamManager()
	ch, cancel := sm.Subscribe("d1")
	assert.Equal(t, 1, sm.Subscribers("d1"))

	sm.Broadcast("d1", "hello")
	sm.Broadcast("d2", "ignored")
	assert.Equal(t, "hello", <-ch)

	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers("d1"))
	_, open := <-ch
	assert.False(t, open)
}
