// Package loam reads diagram definitions through a Loam document repository.
// Besides plain YAML and JSON files this accepts Markdown documents whose
// front matter holds the definition, so a diagram can live next to its prose.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.DefinitionLoader over a Loam repository.
type Loader struct {
	Repo *loam.TypedRepository[map[string]any]
}

// New wraps an existing repository.
func New(repo *loam.TypedRepository[map[string]any]) *Loader {
	return &Loader{Repo: repo}
}

// Open initializes a read-only repository rooted at dir.
func Open(dir string) (*Loader, error) {
	repo, err := loam.Init(dir,
		loam.WithVersioning(false),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[map[string]any](repo)), nil
}

// GetDefinition returns the definition document for id re-encoded as YAML,
// with its id normalized to id.
func (l *Loader) GetDefinition(id string) ([]byte, error) {
	doc, err := l.Repo.Get(context.Background(), id)
	if err != nil {
		return nil, fmt.Errorf("loam get failed for %s: %w", id, err)
	}
	data := doc.Data
	if !isDefinition(data) {
		return nil, fmt.Errorf("document %s has no slots", id)
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	out["id"] = id
	return yaml.Marshal(out)
}

// ListDefinitions returns the IDs of the documents that declare slots.
// Documents under hidden directories are skipped.
func (l *Loader) ListDefinitions() ([]string, error) {
	docs, err := l.Repo.List(context.Background())
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	var ids []string
	for _, doc := range docs {
		if hidden(doc.ID) || !isDefinition(doc.Data) {
			continue
		}
		rawID, _ := doc.Data["id"].(string)
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)
		if path, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, path, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func isDefinition(data map[string]any) bool {
	_, ok := data["slots"]
	return ok
}

func hidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

func trimExtension(id string) string {
	return filepath.ToSlash(strings.TrimSuffix(id, filepath.Ext(id)))
}
