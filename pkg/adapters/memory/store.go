package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/espalier/pkg/domain"
)

// Store implements ports.DiagramStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Save persists the snapshot in memory. Snapshots are kept serialised, so
// later changes to snap do not leak into the store.
func (s *Store) Save(ctx context.Context, diagramID string, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[diagramID] = data
	return nil
}

// Load retrieves a fresh copy of the snapshot.
func (s *Store) Load(ctx context.Context, diagramID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	data, ok := s.data[diagramID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrDiagramNotFound
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, diagramID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, diagramID)
	return nil
}

// List returns the stored diagram IDs in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
