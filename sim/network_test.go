package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLink_AllocateBandwidth_SplitsEvenlyWhenNoRequestCeiling(t *testing.T) {
	l := NewLink("l1", "h1", "h2", 0, 1000)
	a := NewTransmission("a", nil, []*Link{l}, 1000, nil, nil)
	b := NewTransmission("b", nil, []*Link{l}, 1000, nil, nil)
	l.Attach(a)
	l.Attach(b)

	l.AllocateBandwidth()

	assert.InDelta(t, 500, l.active[a], 0.001)
	assert.InDelta(t, 500, l.active[b], 0.001)
}

func TestLink_AllocateBandwidth_SatisfiesLowRequestFirstThenSplitsRest(t *testing.T) {
	l := NewLink("l1", "h1", "h2", 0, 1000)
	small := NewTransmission("small", nil, []*Link{l}, 1000, nil, nil)
	small.RequestedBps = 100 // well under fair share
	big := NewTransmission("big", nil, []*Link{l}, 1000, nil, nil) // unconstrained
	l.Attach(small)
	l.Attach(big)

	l.AllocateBandwidth()

	assert.InDelta(t, 100, l.active[small], 0.001)
	assert.InDelta(t, 900, l.active[big], 0.001)
}

func TestTransmission_Step_DrainsLatencyBeforeConsumingBytes(t *testing.T) {
	l := NewLink("l1", "h1", "h2", 100, 1_000_000_000) // 100ns latency, 1GB/s
	tr := NewTransmission("tr", nil, []*Link{l}, 1000, nil, nil)
	l.Attach(tr)
	l.AllocateBandwidth()

	tr.Step(50) // only latency drains this tick
	assert.Equal(t, float64(50), tr.ResidualLatencyNs)
	assert.Equal(t, float64(1000), tr.BytesRemaining)

	tr.Step(50) // drains remaining latency, no time left for bytes
	assert.Equal(t, float64(0), tr.ResidualLatencyNs)
	assert.Equal(t, float64(1000), tr.BytesRemaining)

	tr.Step(1000) // now bytes flow at the bottleneck bandwidth
	assert.Less(t, tr.BytesRemaining, float64(1000))
}

func TestTransmission_Done_RequiresBothLatencyAndBytesDrained(t *testing.T) {
	l := NewLink("l1", "h1", "h2", 0, 1_000_000_000)
	tr := NewTransmission("tr", nil, []*Link{l}, 10, nil, nil)
	l.Attach(tr)
	l.AllocateBandwidth()

	require.False(t, tr.Done())
	tr.Step(10) // 1GB/s is 1 byte/ns, so 10ns drains all 10 bytes
	assert.True(t, tr.Done())
}

func TestTransmission_BottleneckBps_TakesMinimumAcrossPath(t *testing.T) {
	slow := NewLink("slow", "h1", "h2", 0, 100)
	fast := NewLink("fast", "h2", "h3", 0, 1_000_000)
	tr := NewTransmission("tr", nil, []*Link{slow, fast}, 1000, nil, nil)
	slow.Attach(tr)
	fast.Attach(tr)
	slow.AllocateBandwidth()
	fast.AllocateBandwidth()

	assert.Equal(t, float64(100), tr.bottleneckBps())
}

func TestCluster_AllocateBandwidth_CapsRequestByReplicaEgressDividedByFlowCount(t *testing.T) {
	c := NewCluster()
	c.AddHost(NewHost("h1", 1, 3e9, 1000, 1000, 1_000_000, 1_000_000))
	c.AddHost(NewHost("h2", 1, 3e9, 1000, 1000, 1_000_000, 1_000_000))
	c.AddLink(NewLink("l1", "h1", "h2", 0, 1_000_000_000))

	src := NewReplica("src", "svc", -1, -1, 0, 0, 0, 200) // 200 bytes/s egress budget
	require.NoError(t, src.Place(c.Hosts["h1"]))
	dst := NewReplica("dst", "svc", -1, -1, 0, 0, 1_000_000, 0)
	require.NoError(t, dst.Place(c.Hosts["h2"]))

	links, _, ok := c.Route("h1", "h2")
	require.True(t, ok)

	tr1 := NewTransmission("tr1", nil, links, 1_000_000, src, dst)
	tr2 := NewTransmission("tr2", nil, links, 1_000_000, src, dst)
	for _, tr := range []*Transmission{tr1, tr2} {
		links[0].Attach(tr)
		src.AddOutgoing(tr)
		dst.AddIncoming(tr)
	}

	c.AllocateBandwidth()

	// src's 200 bytes/s egress budget is split across its 2 active flows.
	assert.InDelta(t, 100, tr1.RequestedBps, 0.001)
	assert.InDelta(t, 100, tr2.RequestedBps, 0.001)
	assert.InDelta(t, 100, links[0].active[tr1], 0.001)
	assert.InDelta(t, 100, links[0].active[tr2], 0.001)
}

func TestCluster_AllocateBandwidth_OnlyRecomputesFlowsOnDirtyLinks(t *testing.T) {
	c := NewCluster()
	c.AddHost(NewHost("h1", 1, 3e9, 1000, 1000, 1_000_000, 1_000_000))
	c.AddHost(NewHost("h2", 1, 3e9, 1000, 1000, 1_000_000, 1_000_000))
	l := NewLink("l1", "h1", "h2", 0, 1000)
	c.AddLink(l)

	tr := NewTransmission("tr", nil, []*Link{l}, 1000, nil, nil)
	l.Attach(tr)

	c.AllocateBandwidth()
	assert.False(t, l.Dirty) // cleared after the pass

	// Second pass with no change in flow count: the link's portion is
	// unchanged, so it's not marked dirty and RequestedBps isn't recomputed.
	tr.RequestedBps = 42
	c.AllocateBandwidth()
	assert.Equal(t, int64(42), tr.RequestedBps)
}
