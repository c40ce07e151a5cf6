package sim

import "github.com/svcsim/svcsim/sim/topology"

// Host is one cluster machine: a CPU with some number of cores, the
// resource dimensions replicas consume, and the set of replicas placed
// on it (spec §3).
type Host struct {
	ID        string
	CPU       *CPU
	Resources *HostResources
	Replicas  []*Replica
}

// NewHost creates an empty Host with n cores at clockRateHz.
func NewHost(id string, n int, clockRateHz float64, ramBytes, storageBytes, ingressBps, egressBps int64) *Host {
	return &Host{
		ID:        id,
		CPU:       NewCPU(n, clockRateHz),
		Resources: NewHostResources(ramBytes, storageBytes, ingressBps, egressBps),
	}
}

// Cluster owns every Host and the network topology connecting them
// (spec §3). It is the non-owning root that breaks the Host <-> Cluster
// reference cycle: hosts are looked up by ID rather than holding a
// pointer back to their Cluster.
type Cluster struct {
	Hosts    map[string]*Host
	Links    map[string]*Link
	topology *topology.Graph

	// EgressErr/IngressErr are network-wide error-rate multipliers applied
	// when computing a transmission's requested bandwidth from a replica's
	// egress/ingress capacity (spec §4.5 step 2).
	EgressErr  float64
	IngressErr float64
}

// NewCluster creates an empty Cluster.
func NewCluster() *Cluster {
	return &Cluster{
		Hosts:    make(map[string]*Host),
		Links:    make(map[string]*Link),
		topology: topology.New(),
	}
}

// AddHost registers a host and its node in the network topology.
func (c *Cluster) AddHost(h *Host) {
	c.Hosts[h.ID] = h
	c.topology.AddNode(h.ID)
}

// AddLink registers a directed network link between two already-added
// hosts, keeping the parallel-edge with lowest latency as the one the
// shortest-path search considers (spec §4.5).
func (c *Cluster) AddLink(l *Link) {
	c.Links[l.ID] = l
	c.topology.AddEdge(l.ID, l.From, l.To, l.LatencyNs)
}

// Route finds the lowest-latency path of Links from one host to another,
// following the topology's shortest-path search (spec §4.5). ok is false
// if no path exists.
func (c *Cluster) Route(fromHost, toHost string) (links []*Link, totalLatencyNs float64, ok bool) {
	if fromHost == toHost {
		return nil, 0, true
	}
	nodes, weight, found := c.topology.ShortestPath(fromHost, toHost)
	if !found {
		return nil, 0, false
	}
	links = make([]*Link, 0, len(nodes)-1)
	for i := 0; i+1 < len(nodes); i++ {
		from, to := nodes[i], nodes[i+1]
		best := c.bestLinkBetween(from, to)
		if best == nil {
			return nil, 0, false
		}
		links = append(links, best)
	}
	return links, weight, true
}

func (c *Cluster) bestLinkBetween(from, to string) *Link {
	var best *Link
	for _, l := range c.Links {
		if l.From != from || l.To != to {
			continue
		}
		if best == nil || l.LatencyNs < best.LatencyNs {
			best = l
		}
	}
	return best
}

// CoreZero returns the host's first core, where every newly spawned thread
// is enqueued before the next load-balance pass spreads it out (spec §2,
// §4.8 THREAD-GEN: "enqueue on core 0 and load-balance the host once at
// the end").
func (h *Host) CoreZero() *Core {
	return h.CPU.Cores[0]
}

// AllocateBandwidth implements spec §4.5 steps 1-4: recompute every
// link's per-flow portion, recompute the requested bandwidth of any flow
// crossing a link whose portion changed, then run max-min fair sharing on
// every link carrying at least one active transmission. Called once per
// RUN-THREADS tick before transmissions are stepped.
func (c *Cluster) AllocateBandwidth() {
	for _, l := range c.Links {
		l.recomputePortion()
	}

	dirty := make(map[*Transmission]struct{})
	for _, l := range c.Links {
		if !l.Dirty {
			continue
		}
		for tr := range l.active {
			dirty[tr] = struct{}{}
		}
	}
	for tr := range dirty {
		tr.RequestedBps = tr.computeRequestedBps(c.EgressErr, c.IngressErr)
	}

	for _, l := range c.Links {
		l.AllocateBandwidth()
		l.Dirty = false
	}
}
