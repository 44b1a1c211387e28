package espalier_test

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/diagram"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/observability"
	"github.com/aretw0/espalier/pkg/states"
)

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, strings.TrimSpace(espalier.Version))
}

func TestNew_RequiresDir(t *testing.T) {
	_, err := espalier.New("")
	assert.Error(t, err)

	_, err = espalier.New("./does-not-exist")
	assert.Error(t, err)
}

func TestNew_Directory(t *testing.T) {
	ws, err := espalier.New("pkg/config/testdata")
	require.NoError(t, err)

	ctx := context.Background()
	ids, err := ws.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "support")

	err = ws.View(ctx, "support", func(d *diagram.Diagram) error {
		assert.Len(t, d.Slots(), 4)
		return nil
	})
	require.NoError(t, err)
}

func TestNew_HooksAndMetrics(t *testing.T) {
	loader := memory.NewLoader(map[string]string{
		"tiny": `
slots:
  - id: a
    type: freetext
  - id: b
    type: end
    x: 1
connections:
  - from: a
    to: b
`,
	})
	reg := prometheus.NewRegistry()
	recorder, err := observability.NewRecorder(reg)
	require.NoError(t, err)

	var resets []string
	ws, err := espalier.New("",
		espalier.WithLoader(loader),
		espalier.WithRecorder(recorder),
		espalier.WithLifecycleHooks(domain.LifecycleHooks{
			OnSlotReset: func(e *domain.NodeEvent) { resets = append(resets, e.SlotID) },
		}),
	)
	require.NoError(t, err)

	err = ws.Edit(context.Background(), "tiny", func(d *diagram.Diagram) error {
		_, err := d.ResetSlot("a", states.TypeChoice, diagram.ResetOptions{Render: true})
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, resets)
	count, err := testutil.GatherAndCount(reg, "espalier_nodes_events_total")
	require.NoError(t, err)
	assert.Positive(t, count)
}
