package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/internal/presentation/graph"
	"github.com/aretw0/espalier/pkg/diagram"
	"github.com/aretw0/espalier/pkg/states"
)

const tinyYAML = `
slots:
  - id: ask
    type: freetext
    fields: {text: "Name?"}
  - id: bye
    type: end
    x: 1
connections:
  - from: ask
    to: bye
`

func workspaceDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestRunValidate(t *testing.T) {
	t.Run("All Valid", func(t *testing.T) {
		dir := workspaceDir(t, map[string]string{"tiny.yaml": tinyYAML})
		var out bytes.Buffer
		require.NoError(t, RunValidate(&out, dir, nil))
		assert.Contains(t, out.String(), "✓ tiny")
	})

	t.Run("Reports Invalid", func(t *testing.T) {
		dir := workspaceDir(t, map[string]string{
			"tiny.yaml":   tinyYAML,
			"broken.yaml": "slots:\n  - id: a\n    type: nope\n",
			"liar.yaml":   "id: someone-else\nslots: []\n",
		})
		var out bytes.Buffer
		err := RunValidate(&out, dir, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 of 3")
		assert.Contains(t, out.String(), "✗ broken")
		assert.Contains(t, out.String(), "✗ liar")
		assert.Contains(t, out.String(), "✓ tiny")
	})

	t.Run("Empty Dir", func(t *testing.T) {
		assert.Error(t, RunValidate(&bytes.Buffer{}, t.TempDir(), nil))
	})
}

func TestWorkspace_FileStore(t *testing.T) {
	dir := workspaceDir(t, map[string]string{"tiny.yaml": tinyYAML})
	ctx := context.Background()
	opts := Options{Dir: dir}

	ws, err := OpenWorkspace(ctx, opts)
	require.NoError(t, err)
	err = ws.Edit(ctx, "tiny", func(d *diagram.Diagram) error {
		_, err := d.ResetSlot("ask", states.TypeChoice, diagram.ResetOptions{Render: true})
		return err
	})
	require.NoError(t, err)
	require.NoError(t, ws.Close())

	_, err = os.Stat(filepath.Join(dir, ".espalier", "diagrams", "tiny.json"))
	require.NoError(t, err, "snapshot persisted next to definitions")

	var out bytes.Buffer
	require.NoError(t, RunGraph(ctx, &out, opts, "tiny", &graph.GraphOverlay{Selected: "ask"}))
	assert.Contains(t, out.String(), `ask{"ask <br/> choice"}`)

	out.Reset()
	require.NoError(t, RunRemove(ctx, &out, opts, []string{"tiny"}))
	assert.Contains(t, out.String(), "Removed diagram 'tiny'")

	out.Reset()
	require.NoError(t, RunGraph(ctx, &out, opts, "tiny", nil))
	assert.Contains(t, out.String(), `ask[/"ask <br/> freetext <br/> Name?"/]`, "reverted to definition")
}

func TestWorkspace_Metrics(t *testing.T) {
	dir := workspaceDir(t, map[string]string{"tiny.yaml": tinyYAML})
	ws, err := OpenWorkspace(context.Background(), Options{Dir: dir, Memory: true, Metrics: true})
	require.NoError(t, err)
	defer ws.Close()
	require.NotNil(t, ws.Metrics)

	require.NoError(t, ws.View(context.Background(), "tiny", func(*diagram.Diagram) error { return nil }))
	families, err := ws.Metrics.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["espalier_nodes_events_total"])
	assert.True(t, names["go_goroutines"])
}

func TestRunListAndInspect(t *testing.T) {
	dir := workspaceDir(t, map[string]string{"tiny.yaml": tinyYAML})
	opts := Options{Dir: dir, Memory: true}
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, RunList(ctx, &out, opts))
	assert.Equal(t, "- tiny\n", out.String())

	out.Reset()
	require.NoError(t, RunInspect(ctx, &out, opts, "tiny"))
	assert.Contains(t, out.String(), `"slot_id": "ask"`)

	assert.Error(t, RunInspect(ctx, &out, opts, "missing"))
}

func TestWorkspace_RedisUnavailable(t *testing.T) {
	_, err := OpenWorkspace(context.Background(), Options{Dir: t.TempDir(), RedisAddr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestWorkspace_EncryptedStore(t *testing.T) {
	dir := workspaceDir(t, map[string]string{"tiny.yaml": tinyYAML})
	ctx := context.Background()
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	opts := Options{Dir: dir, EncryptionKey: key, Redact: []string{"^text$"}}

	ws, err := OpenWorkspace(ctx, opts)
	require.NoError(t, err)
	err = ws.Edit(ctx, "tiny", func(d *diagram.Diagram) error {
		n, err := d.SlotNode("ask")
		if err != nil {
			return err
		}
		return n.Change("text", "Secret question?")
	})
	require.NoError(t, err)
	require.NoError(t, ws.Close())

	raw, err := os.ReadFile(filepath.Join(dir, ".espalier", "diagrams", "tiny.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Secret question?")
	assert.Contains(t, string(raw), "__encrypted__")

	var out bytes.Buffer
	require.NoError(t, RunInspect(ctx, &out, opts, "tiny"))
	assert.Contains(t, out.String(), `"text": "***"`)

	t.Run("Bad Key", func(t *testing.T) {
		_, err := OpenWorkspace(ctx, Options{Dir: dir, Memory: true, EncryptionKey: "not base64!"})
		assert.Error(t, err)
		_, err = OpenWorkspace(ctx, Options{Dir: dir, Memory: true, EncryptionKey: base64.StdEncoding.EncodeToString([]byte("short"))})
		assert.Error(t, err)
		_, err = OpenWorkspace(ctx, Options{Dir: dir, Memory: true, Redact: []string{"("}})
		assert.Error(t, err)
	})
}

func TestRunMCP_UnknownTransport(t *testing.T) {
	err := RunMCP(context.Background(), Options{Dir: t.TempDir(), Memory: true}, "carrier-pigeon", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport")
}

func TestWorkspace_LoamLoader(t *testing.T) {
	dir := workspaceDir(t, map[string]string{
		"tiny.yaml": tinyYAML,
		"guide.md":  "---\nslots:\n  - id: intro\n    type: end\n---\nWelcome flow.\n",
	})
	ctx := context.Background()
	opts := Options{Dir: dir, Memory: true, Loader: LoaderLoam}

	var out bytes.Buffer
	require.NoError(t, RunList(ctx, &out, opts))
	assert.Equal(t, "- guide\n- tiny\n", out.String())

	out.Reset()
	require.NoError(t, RunInspect(ctx, &out, opts, "guide"))
	assert.Contains(t, out.String(), `"slot_id": "intro"`)

	_, err := OpenWorkspace(ctx, Options{Dir: dir, Loader: "ftp"})
	assert.Error(t, err)
}
