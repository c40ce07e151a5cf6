package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortestPath_PicksLowerWeightAmongParallelEdges(t *testing.T) {
	gr := New()
	gr.AddNode("a")
	gr.AddNode("b")
	gr.AddEdge("slow", "a", "b", 100)
	gr.AddEdge("fast", "a", "b", 10)

	nodes, weight, ok := gr.ShortestPath("a", "b")

	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, nodes)
	assert.Equal(t, float64(10), weight)
}

func TestShortestPath_MultiHop_SumsWeights(t *testing.T) {
	gr := New()
	for _, n := range []string{"a", "b", "c"} {
		gr.AddNode(n)
	}
	gr.AddEdge("ab", "a", "b", 5)
	gr.AddEdge("bc", "b", "c", 7)

	nodes, weight, ok := gr.ShortestPath("a", "c")

	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, nodes)
	assert.Equal(t, float64(12), weight)
}

func TestShortestPath_UnknownNode_ReturnsNotOk(t *testing.T) {
	gr := New()
	gr.AddNode("a")

	_, _, ok := gr.ShortestPath("a", "ghost")

	assert.False(t, ok)
}

func TestEdges_ReturnsAllParallelEdgesNotJustTheBest(t *testing.T) {
	gr := New()
	gr.AddNode("a")
	gr.AddNode("b")
	gr.AddEdge("slow", "a", "b", 100)
	gr.AddEdge("fast", "a", "b", 10)

	edges := gr.Edges("a", "b")

	assert.Equal(t, map[string]float64{"slow": 100, "fast": 10}, edges)
}
