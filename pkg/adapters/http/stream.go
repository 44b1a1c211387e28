package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/diagram"
	"github.com/aretw0/espalier/pkg/domain"
)

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // DiagramID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a listener for diagramID. The returned function
// unregisters it and closes the channel.
func (sm *StreamManager) Subscribe(diagramID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[diagramID]; !ok {
		sm.subscribers[diagramID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[diagramID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[diagramID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, diagramID)
				}
			}
		})
	}
}

// Subscribers returns how many listeners diagramID has.
func (sm *StreamManager) Subscribers(diagramID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[diagramID])
}

// Broadcast sends msg to every listener of diagramID. Slow listeners miss it.
func (sm *StreamManager) Broadcast(diagramID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[diagramID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "diagram_id", diagramID)
		}
	}
}

// SubscribeEvents handles GET /diagrams/{id}/events (SSE). Each event is the
// diagram snapshot after an edit. With ?format=diff each event is instead
// the change since the previous event, starting from the diagram as it was
// on subscription; edits that change nothing are not sent.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	id := chi.URLParam(r, "id")
	diffs := r.URL.Query().Get("format") == "diff"

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	var prev *domain.Snapshot
	if diffs {
		err := s.Manager.View(r.Context(), id, func(d *diagram.Diagram) error {
			prev = d.Snapshot()
			return nil
		})
		if err != nil {
			s.writeError(w, err)
			return
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Info("SSE: Subscribed to diagram", "diagram_id", id, "diff", diffs)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: Client disconnected", "diagram_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !diffs {
				fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", msg)
				flusher.Flush()
				continue
			}
			var cur domain.Snapshot
			if err := json.Unmarshal([]byte(msg), &cur); err != nil {
				s.logger.Error("SSE: Snapshot decode failed", "diagram_id", id, "err", err)
				continue
			}
			diff := domain.Diff(prev, &cur)
			prev = &cur
			if diff == nil {
				continue
			}
			data, err := json.Marshal(diff)
			if err != nil {
				s.logger.Error("SSE: Diff encode failed", "diagram_id", id, "err", err)
				continue
			}
			fmt.Fprintf(w, "event: diff\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
