package nlist

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	d := newTestData(t, 10, 1, 2, [][3]float64{{1, 1, 1}, {2, 1, 1}}, nil)
	e, _ := newTestEngine(t, d, 1, 0.4)
	require.NoError(t, e.Compute(0))

	c := NewCollector("test")
	assert.Equal(t, 0, testutil.CollectAndCount(c))

	c.Observe(e)
	assert.Equal(t, 8, testutil.CollectAndCount(c))

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	exp := `
# HELP test_nlist_forced_updates_total Forced neighbor list rebuilds.
# TYPE test_nlist_forced_updates_total counter
test_nlist_forced_updates_total{rank="0"} 1
# HELP test_nlist_neighbors_max Largest number of neighbors of any local particle.
# TYPE test_nlist_neighbors_max gauge
test_nlist_neighbors_max{rank="0"} 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(exp),
		"test_nlist_forced_updates_total", "test_nlist_neighbors_max")
	assert.NoError(t, err)
}

func TestSnapshot(t *testing.T) {
	d := newTestData(t, 10, 1, 3, [][3]float64{{1, 1, 1}, {1.5, 1, 1}, {5, 5, 5}}, nil)
	e, _ := newTestEngine(t, d, 1, 0.4)

	snap := e.Snapshot()
	assert.Equal(t, []uint32{0, 0, 0}, snap.Counts, "unbuilt lists should be empty")

	require.NoError(t, e.Compute(0))
	require.NoError(t, d.Reorder([]int{2, 1, 0}))
	require.NoError(t, e.Compute(1))

	snap = e.Snapshot()
	assert.Equal(t, uint64(1), snap.Timestep)
	assert.Equal(t, []uint32{2, 1, 0}, snap.Tags)
	assert.Equal(t, 0.4, snap.RBuff)
	assert.Equal(t, 2, snap.NPairs())

	byTag := snap.ByTag()
	assert.Equal(t, []uint32{1}, byTag[0])
	assert.Equal(t, []uint32{0}, byTag[1])
	assert.Empty(t, byTag[2])
}

func TestMergeSnapshots(t *testing.T) {
	a := &Snapshot{Timestep: 4, NTypes: 2, RBuff: 0.3,
		Tags: []uint32{0, 2}, Counts: []uint32{1, 1}, Neighbors: []uint32{2, 0}}
	b := &Snapshot{Timestep: 4, NTypes: 2, RBuff: 0.3,
		Tags: []uint32{1}, Counts: []uint32{0}}

	m := MergeSnapshots(a, b)
	assert.Equal(t, uint64(4), m.Timestep)
	assert.Equal(t, []uint32{0, 2, 1}, m.Tags)
	assert.Equal(t, 2, m.NPairs())
	assert.Equal(t, []uint32{0}, m.ByTag()[2])
	assert.Empty(t, m.ByTag()[1])
}
