package sim

import "sort"

// Link is one directed network edge between two hosts: a fixed
// propagation latency and a shared bandwidth capacity that active
// Transmissions split max-min fairly (spec §4.5).
type Link struct {
	ID        string
	From, To  string // host IDs
	LatencyNs float64
	Bandwidth *Resource // capacity in bytes/s; "reserved" is unused, bandwidth is allocated per-tick instead

	active map[*Transmission]float64 // current allocated bytes/s per flow

	// Portion is this link's last-computed equal share (capacity divided
	// among its active flows, spec §4.5 step 1). Dirty is set whenever
	// Portion changes so Cluster.AllocateBandwidth knows which flows need
	// their requested bandwidth recomputed (spec §4.5 step 4).
	Portion float64
	Dirty   bool
}

// NewLink creates a Link with the given propagation latency and total
// bandwidth capacity.
func NewLink(id, from, to string, latencyNs float64, bandwidthBps int64) *Link {
	return &Link{
		ID:        id,
		From:      from,
		To:        to,
		LatencyNs: latencyNs,
		Bandwidth: NewResource(bandwidthBps),
		active:    make(map[*Transmission]float64),
	}
}

// Transmission is an in-flight payload transfer for one request subchain
// hop, moving across an ordered sequence of Links (spec §3, §4.5).
type Transmission struct {
	ID         string
	Request    *Request
	SubchainID int

	Path []*Link

	// SrcReplica/DstReplica are the endpoints this transmission moves
	// payload between, consulted for the NIC and replica egress/ingress
	// caps in the requested-bandwidth computation (spec §4.5 step 2).
	SrcReplica *Replica
	DstReplica *Replica

	PayloadBytes   float64
	BytesRemaining float64

	// ResidualLatencyNs is the propagation delay still owed before payload
	// bytes start flowing, summed across the whole path (spec §4.5: a
	// transmission must pay latency before bandwidth contention applies).
	ResidualLatencyNs float64

	RequestedBps int64
	CurrentBps   float64 // this tick's bottleneck rate: the smallest max-min fair allocation along the path
}

// NewTransmission creates a Transmission over a path of links between two
// replicas with the given payload size. RequestedBps starts at zero and
// is computed before the first bandwidth allocation pass that sees this
// transmission (spec §4.5 step 2).
func NewTransmission(id string, req *Request, path []*Link, payloadBytes float64, src, dst *Replica) *Transmission {
	var latency float64
	for _, l := range path {
		latency += l.LatencyNs
	}
	return &Transmission{
		ID:                id,
		Request:           req,
		Path:              path,
		SrcReplica:        src,
		DstReplica:        dst,
		PayloadBytes:      payloadBytes,
		BytesRemaining:    payloadBytes,
		ResidualLatencyNs: latency,
	}
}

// computeRequestedBps implements spec §4.5 step 2: a flow's requested
// bandwidth is the minimum of every per-link portion along its path, the
// source/destination NIC bandwidth, and the source/destination replica's
// egress/ingress bandwidth split evenly across its active transmissions
// (this one included),
// each reduced by the corresponding network error-rate multiplier.
func (tr *Transmission) computeRequestedBps(egressErr, ingressErr float64) int64 {
	min := -1.0
	consider := func(v float64) {
		if v < 0 {
			return
		}
		if min < 0 || v < min {
			min = v
		}
	}

	for _, l := range tr.Path {
		consider(l.Portion)
	}

	if tr.SrcReplica != nil && tr.SrcReplica.Host != nil {
		consider(float64(tr.SrcReplica.Host.Resources.Egress.Capacity()))
		if tr.SrcReplica.EgressBps > 0 {
			n := float64(max(tr.SrcReplica.ActiveOutgoing(), 1))
			consider(float64(tr.SrcReplica.EgressBps) / n * (1 - egressErr))
		}
	}
	if tr.DstReplica != nil && tr.DstReplica.Host != nil {
		consider(float64(tr.DstReplica.Host.Resources.Ingress.Capacity()))
		if tr.DstReplica.IngressBps > 0 {
			n := float64(max(tr.DstReplica.ActiveIncoming(), 1))
			consider(float64(tr.DstReplica.IngressBps) / n * (1 - ingressErr))
		}
	}

	if min < 0 {
		return 0
	}
	return int64(min)
}

// Done reports whether this transmission has delivered its full payload.
func (tr *Transmission) Done() bool {
	return tr.ResidualLatencyNs <= 0 && tr.BytesRemaining <= 0
}

// AllocateBandwidth runs max-min fair sharing (spec §4.5) across every
// link's active transmissions: each flow gets min(its request, an equal
// share of whatever capacity remains once already-satisfied flows are
// removed), iterated until no flow's allocation is capped by its request
// below the per-flow fair share.
func (l *Link) AllocateBandwidth() {
	if len(l.active) == 0 {
		return
	}
	flows := make([]*Transmission, 0, len(l.active))
	for tr := range l.active {
		flows = append(flows, tr)
	}
	sort.Slice(flows, func(i, j int) bool { return flows[i].ID < flows[j].ID })

	remainingCapacity := float64(l.Bandwidth.Capacity())
	unresolved := flows
	alloc := make(map[*Transmission]float64, len(flows))

	for len(unresolved) > 0 {
		fairShare := remainingCapacity / float64(len(unresolved))
		var stillUnresolved []*Transmission
		satisfiedAny := false
		for _, tr := range unresolved {
			request := float64(tr.RequestedBps)
			if request <= 0 || request > fairShare {
				stillUnresolved = append(stillUnresolved, tr)
				continue
			}
			alloc[tr] = request
			remainingCapacity -= request
			satisfiedAny = true
		}
		if !satisfiedAny {
			for _, tr := range unresolved {
				alloc[tr] = fairShare
			}
			break
		}
		unresolved = stillUnresolved
	}

	for tr, bps := range alloc {
		l.active[tr] = bps
	}
}

// Attach registers a transmission as an active flow on this link.
func (l *Link) Attach(tr *Transmission) { l.active[tr] = 0 }

// Detach removes a transmission from this link's active flows.
func (l *Link) Detach(tr *Transmission) { delete(l.active, tr) }

// recomputePortion recalculates this link's equal per-flow share (spec
// §4.5 step 1: capacity divided by the active flow count) and marks the
// link Dirty when that share changed, so every flow crossing it gets its
// requested bandwidth recomputed before the next allocation (spec §4.5
// step 4: "mark the link dirty; recompute requested_bw for every flow on
// any dirty link").
func (l *Link) recomputePortion() {
	n := len(l.active)
	portion := float64(l.Bandwidth.Capacity())
	if n > 0 {
		portion = float64(l.Bandwidth.Capacity()) / float64(n)
	}
	if portion != l.Portion {
		l.Portion = portion
		l.Dirty = true
	}
}

// Step advances a transmission by durationNs: the residual latency drains
// first, then payload bytes are consumed at the bottleneck bandwidth
// (the minimum of this tick's per-link allocations along its path),
// following spec §4.5's transmit step.
func (tr *Transmission) Step(durationNs float64) {
	if tr.ResidualLatencyNs > 0 {
		consumed := durationNs
		if consumed > tr.ResidualLatencyNs {
			consumed = tr.ResidualLatencyNs
		}
		tr.ResidualLatencyNs -= consumed
		durationNs -= consumed
		if durationNs <= 0 {
			return
		}
	}

	bottleneck := tr.bottleneckBps()
	if bottleneck <= 0 {
		return
	}
	bytesPerNs := bottleneck / 1e9
	consumedBytes := durationNs * bytesPerNs
	if consumedBytes > tr.BytesRemaining {
		consumedBytes = tr.BytesRemaining
	}
	tr.BytesRemaining -= consumedBytes
	tr.CurrentBps = bottleneck
}

// bottleneckBps is the minimum current allocation across every link on
// the transmission's path (the slowest hop gates the whole transfer).
func (tr *Transmission) bottleneckBps() float64 {
	min := -1.0
	for _, l := range tr.Path {
		bps, ok := l.active[tr]
		if !ok {
			continue
		}
		if min < 0 || bps < min {
			min = bps
		}
	}
	if min < 0 {
		return 0
	}
	return min
}
