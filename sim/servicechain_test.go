package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAlternativeGraph_LinearChain_NoCopies(t *testing.T) {
	sc := NewServiceChain("linear")
	sc.AddNode("a.in")
	sc.AddNode("b.proc")
	sc.AddNode("c.out")
	sc.AddEdge(ChainEdge{ID: "e1", From: "a.in", To: "b.proc", PayloadBytes: 100})
	sc.AddEdge(ChainEdge{ID: "e2", From: "b.proc", To: "c.out", PayloadBytes: 200})

	ag := BuildAlternativeGraph(sc)

	assert.Equal(t, AltNode{Copy: 0, Function: "a.in"}, ag.Root)
	succ := ag.Successors(AltNode{Copy: 0, Function: "a.in"})
	require.Len(t, succ, 1)
	assert.Equal(t, AltNode{Copy: 0, Function: "b.proc"}, succ[0].to)
}

func TestBuildAlternativeGraph_FanIn_CreatesOneCopyPerIncomingEdge(t *testing.T) {
	sc := NewServiceChain("fanin")
	sc.AddNode("a.in")
	sc.AddNode("b.left")
	sc.AddNode("c.right")
	sc.AddNode("d.join")
	sc.AddEdge(ChainEdge{ID: "e1", From: "a.in", To: "b.left", PayloadBytes: 10})
	sc.AddEdge(ChainEdge{ID: "e2", From: "a.in", To: "c.right", PayloadBytes: 10})
	sc.AddEdge(ChainEdge{ID: "e3", From: "b.left", To: "d.join", PayloadBytes: 10})
	sc.AddEdge(ChainEdge{ID: "e4", From: "c.right", To: "d.join", PayloadBytes: 10})

	ag := BuildAlternativeGraph(sc)

	// d.join has in-degree 2, so it must exist as both copy 0 and copy 1.
	assert.True(t, ag.nodes[AltNode{Copy: 0, Function: "d.join"}])
	assert.True(t, ag.nodes[AltNode{Copy: 1, Function: "d.join"}])

	fork := ag.Successors(AltNode{Copy: 0, Function: "a.in"})
	require.Len(t, fork, 2)
}

func TestExtractSubchains_LinearChain_ProducesOneSubchain(t *testing.T) {
	sc := NewServiceChain("linear")
	sc.AddNode("a.in")
	sc.AddNode("b.out")
	sc.AddEdge(ChainEdge{ID: "e1", From: "a.in", To: "b.out", PayloadBytes: 10})
	ag := BuildAlternativeGraph(sc)

	subchains := ExtractSubchains(ag)

	require.Len(t, subchains, 1)
	assert.Equal(t, []AltNode{
		{Copy: 0, Function: "a.in"},
		{Copy: 0, Function: "b.out"},
	}, subchains[0].Nodes)
}

func TestExtractSubchains_Fork_ProducesOneSubchainPerBranch(t *testing.T) {
	sc := NewServiceChain("fork")
	sc.AddNode("a.in")
	sc.AddNode("b.left")
	sc.AddNode("c.right")
	sc.AddEdge(ChainEdge{ID: "e1", From: "a.in", To: "b.left", PayloadBytes: 10})
	sc.AddEdge(ChainEdge{ID: "e2", From: "a.in", To: "c.right", PayloadBytes: 10})
	ag := BuildAlternativeGraph(sc)

	subchains := ExtractSubchains(ag)

	require.Len(t, subchains, 3)
	assert.Equal(t, []AltNode{{Copy: 0, Function: "a.in"}}, subchains[0].Nodes)
	assert.ElementsMatch(t, []AltNode{
		{Copy: 0, Function: "b.left"},
	}, subchains[1].Nodes)
	assert.ElementsMatch(t, []AltNode{
		{Copy: 0, Function: "c.right"},
	}, subchains[2].Nodes)
}
