package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAlternativeGraph() (*ServiceChain, *AlternativeGraph) {
	sc := NewServiceChain("chain")
	sc.AddNode("a.in")
	sc.AddNode("b.out")
	sc.AddEdge(ChainEdge{ID: "e1", From: "a.in", To: "b.out", PayloadBytes: 10})
	ag := BuildAlternativeGraph(sc)
	return sc, ag
}

func TestNewRequest_StartsAtRootWithSingleSubchain(t *testing.T) {
	sc, ag := testAlternativeGraph()
	req := NewRequest("r1", sc, ag, 1000)

	assert.Equal(t, 1, req.NumSubchains())
	assert.Equal(t, ag.Root, req.CurrentNode[0])
	assert.Equal(t, StatusCreated, req.Status[0])
	assert.False(t, req.AllConcluded())
}

func TestRequest_EnsureSubchain_GrowsArraysInLockstep(t *testing.T) {
	sc, ag := testAlternativeGraph()
	req := NewRequest("r1", sc, ag, 0)

	req.EnsureSubchain(2)

	assert.Equal(t, 3, req.NumSubchains())
	assert.Len(t, req.CurrentReplica, 3)
	assert.Len(t, req.Transmission, 3)
	assert.Len(t, req.ActiveThreads, 3)
	assert.Len(t, req.PendingPayload, 3)
}

func TestRequest_AllConcluded_RequiresEverySubchainConcluded(t *testing.T) {
	sc, ag := testAlternativeGraph()
	req := NewRequest("r1", sc, ag, 0)
	req.EnsureSubchain(1)

	req.Status[0] = StatusConcluded
	assert.False(t, req.AllConcluded())

	req.Status[1] = StatusConcluded
	assert.True(t, req.AllConcluded())
}

func TestRequest_Conclude_SetsLatencyAndConcludedFlag(t *testing.T) {
	sc, ag := testAlternativeGraph()
	req := NewRequest("r1", sc, ag, 1000)

	req.Conclude(2500)

	require.True(t, req.Concluded())
	assert.Equal(t, float64(1500), req.LatencyNs())
}

func TestRequest_Conclude_Twice_Panics(t *testing.T) {
	sc, ag := testAlternativeGraph()
	req := NewRequest("r1", sc, ag, 0)
	req.Conclude(100)

	assert.Panics(t, func() { req.Conclude(200) })
}

func TestRequest_LatencyNs_BeforeConclusion_Panics(t *testing.T) {
	sc, ag := testAlternativeGraph()
	req := NewRequest("r1", sc, ag, 0)

	assert.Panics(t, func() { req.LatencyNs() })
}
