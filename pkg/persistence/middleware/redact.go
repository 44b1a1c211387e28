package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// Mask replaces redacted field values.
const Mask = "***"

type redactMiddleware struct {
	next     ports.DiagramStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware masks node field values whose key matches one of
// patterns before the snapshot is saved. Nested maps are walked. The
// caller's snapshot is left untouched.
func NewRedactMiddleware(patterns []string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return func(next ports.DiagramStore) ports.DiagramStore {
		return &redactMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *redactMiddleware) Save(ctx context.Context, diagramID string, snap *domain.Snapshot) error {
	cloned := *snap
	cloned.Nodes = make([]domain.NodeSnapshot, len(snap.Nodes))
	for i, n := range snap.Nodes {
		n.Fields = m.mask(n.Fields)
		cloned.Nodes[i] = n
	}
	return m.next.Save(ctx, diagramID, &cloned)
}

func (m *redactMiddleware) Load(ctx context.Context, diagramID string) (*domain.Snapshot, error) {
	return m.next.Load(ctx, diagramID)
}

func (m *redactMiddleware) Delete(ctx context.Context, diagramID string) error {
	return m.next.Delete(ctx, diagramID)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// mask returns a copy of fields with matching keys masked.
func (m *redactMiddleware) mask(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if m.matches(k) {
			out[k] = Mask
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			v = m.mask(sub)
		}
		out[k] = v
	}
	return out
}

func (m *redactMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
