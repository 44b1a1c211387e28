package loam_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loamAdapter "github.com/aretw0/espalier/pkg/adapters/loam"
	"github.com/aretw0/espalier/pkg/config"
)

func seed(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func TestLoader_ListDefinitions(t *testing.T) {
	dir := seed(t, map[string]string{
		"tiny.yaml": "slots:\n  - id: a\n    type: end\n",
		"api.json":  `{"id": "api.json", "slots": [{"id": "call", "type": "http_json"}]}`,
		"guide.md":  "---\nslots:\n  - id: ask\n    type: freetext\n---\nThe onboarding flow.\n",
		"README.md": "---\ntitle: notes\n---\nNot a diagram.\n",
	})

	loader, err := loamAdapter.Open(dir)
	require.NoError(t, err)

	ids, err := loader.ListDefinitions()
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "guide", "tiny"}, ids)
}

func TestLoader_GetDefinition(t *testing.T) {
	dir := seed(t, map[string]string{
		"guide.md": "---\nid: guide.md\nslots:\n  - id: ask\n    type: freetext\n    fields:\n      text: Name?\n---\nThe onboarding flow.\n",
	})
	loader, err := loamAdapter.Open(dir)
	require.NoError(t, err)

	data, err := loader.GetDefinition("guide")
	require.NoError(t, err)

	def, err := config.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "guide", def.ID)
	require.Len(t, def.Slots, 1)
	assert.Equal(t, "ask", def.Slots[0].ID)
	assert.Equal(t, "Name?", def.Slots[0].Fields["text"])

	_, err = loader.GetDefinition("missing")
	assert.Error(t, err)
}
