package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObservePhase("columns", 20*time.Millisecond)
	m.MeshBuilt("terrain", 12)
	m.MeshBuilt("terrain", 3)
	m.Interaction("hit", "destroyed")
	m.Persistence("save", nil)
	m.Persistence("load", errors.New("boom"))
	m.SetDirtyChunks(4)
	m.SetWorldStats(100, 7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.meshesBuilt.WithLabelValues("terrain")))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.meshFaces.WithLabelValues("terrain")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.interactions.WithLabelValues("hit", "destroyed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.saves.WithLabelValues("load", "error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.dirtyChunks))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.trees))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObservePhase("water", time.Second)
	m.MeshBuilt("water", 1)
	m.Interaction("build", "ok")
	m.Persistence("save", nil)
	m.SetDirtyChunks(1)
	m.SetWorldStats(1, 1)
}

func TestUnregisteredMetrics(t *testing.T) {
	a := NewMetrics(nil)
	b := NewMetrics(nil)
	a.Interaction("hit", "ok")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.interactions.WithLabelValues("hit", "ok")))
}
