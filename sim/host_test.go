package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCluster() *Cluster {
	c := NewCluster()
	c.AddHost(NewHost("h1", 2, 3e9, 1_000_000, 1_000_000, 1_000_000, 1_000_000))
	c.AddHost(NewHost("h2", 2, 3e9, 1_000_000, 1_000_000, 1_000_000, 1_000_000))
	c.AddHost(NewHost("h3", 2, 3e9, 1_000_000, 1_000_000, 1_000_000, 1_000_000))
	c.AddLink(NewLink("l12", "h1", "h2", 100, 1_000_000_000))
	c.AddLink(NewLink("l23", "h2", "h3", 100, 1_000_000_000))
	return c
}

func TestCluster_Route_SameHost_NoPathNeeded(t *testing.T) {
	c := newTestCluster()
	links, latency, ok := c.Route("h1", "h1")
	require.True(t, ok)
	assert.Empty(t, links)
	assert.Equal(t, float64(0), latency)
}

func TestCluster_Route_MultiHop_FindsShortestPath(t *testing.T) {
	c := newTestCluster()
	links, latency, ok := c.Route("h1", "h3")
	require.True(t, ok)
	require.Len(t, links, 2)
	assert.Equal(t, "l12", links[0].ID)
	assert.Equal(t, "l23", links[1].ID)
	assert.Equal(t, float64(200), latency)
}

func TestCluster_Route_NoPath_ReturnsNotOk(t *testing.T) {
	c := NewCluster()
	c.AddHost(NewHost("a", 1, 3e9, 100, 100, 100, 100))
	c.AddHost(NewHost("b", 1, 3e9, 100, 100, 100, 100))
	_, _, ok := c.Route("a", "b")
	assert.False(t, ok)
}

func TestHost_CoreZero_AlwaysReturnsFirstCore(t *testing.T) {
	h := NewHost("h1", 2, 3e9, 100, 100, 100, 100)
	busy := newTestThread("busy", 500, 500)
	busy.Load = 0.9
	h.CPU.Cores[1].RunQueue.Enqueue(busy, h.CPU.Cores[1])

	// New threads always join core 0, even when another core is idler,
	// so that the THREAD-GEN → RUN-THREADS load-balance pass has
	// something to spread out (spec §2, §4.8).
	got := h.CoreZero()

	assert.Equal(t, h.CPU.Cores[0], got)
}
