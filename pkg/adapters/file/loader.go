// Package file reads diagram definitions from, and stores snapshots in, local directories.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var extensions = []string{".yaml", ".yml", ".json"}

// Loader implements ports.DefinitionLoader over a directory. A definition's
// ID is its file name without extension.
type Loader struct {
	dir string
}

// New creates a loader reading from dir.
func New(dir string) *Loader {
	return &Loader{dir: dir}
}

// GetDefinition reads the file for id, trying each supported extension.
func (l *Loader) GetDefinition(id string) ([]byte, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return nil, fmt.Errorf("invalid definition id %q", id)
	}
	for _, ext := range extensions {
		data, err := os.ReadFile(filepath.Join(l.dir, id+ext))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read definition %s: %w", id, err)
		}
	}
	return nil, fmt.Errorf("definition not found: %s", id)
}

// ListDefinitions returns the IDs of the definition files in the directory.
func (l *Loader) ListDefinitions() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !supported(ext) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ext)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func supported(ext string) bool {
	for _, e := range extensions {
		if e == ext {
			return true
		}
	}
	return false
}
