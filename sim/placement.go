package sim

import "math"

// HostSnapshot is a lightweight, read-only view of one host's resource
// state for placement decisions (spec §4.7).
type HostSnapshot struct {
	ID string

	CPUCapacityMil  float64
	CPUAvailableMil float64

	RAMCapacity  float64
	RAMAvailable float64

	IngressCapacity  float64
	IngressAvailable float64

	EgressCapacity  float64
	EgressAvailable float64

	ReplicaCount  int
	Microservices []string // distinct microservices already placed on this host
}

// hostSnapshot builds a HostSnapshot from a live Host. CPU availability is
// approximated as the host's total shares (cores × MaxCPUShares) minus the
// sum of guaranteed+burstable
// requests already running on any of its cores, since CPU itself has no
// single reservation counter (it's tracked per-core via RunQueue shares).
func hostSnapshot(h *Host) HostSnapshot {
	var cpuUsed float64
	for _, c := range h.CPU.Cores {
		cpuUsed += float64(c.RunQueue.GuaranteedRequestSum() + c.RunQueue.BurstableRequestSum())
	}
	cpuCapacity := float64(len(h.CPU.Cores) * MaxCPUShares)

	seen := make(map[string]struct{}, len(h.Replicas))
	microservices := make([]string, 0, len(h.Replicas))
	for _, r := range h.Replicas {
		if _, ok := seen[r.Microservice]; ok {
			continue
		}
		seen[r.Microservice] = struct{}{}
		microservices = append(microservices, r.Microservice)
	}

	return HostSnapshot{
		ID:               h.ID,
		CPUCapacityMil:   cpuCapacity,
		CPUAvailableMil:  cpuCapacity - cpuUsed,
		RAMCapacity:      float64(h.Resources.RAM.Capacity()),
		RAMAvailable:     float64(h.Resources.RAM.Available()),
		IngressCapacity:  float64(h.Resources.Ingress.Capacity()),
		IngressAvailable: float64(h.Resources.Ingress.Available()),
		EgressCapacity:   float64(h.Resources.Egress.Capacity()),
		EgressAvailable:  float64(h.Resources.Egress.Available()),
		ReplicaCount:     len(h.Replicas),
		Microservices:    microservices,
	}
}

// PlacementDecision is the outcome of a PlacementPolicy's Place call.
type PlacementDecision struct {
	HostID string
	Reason string
}

// PlacementPolicy decides which host should receive a new replica, given
// read-only snapshots of every candidate host (already affinity- and
// anti-affinity-filtered by the caller) (spec §4.7).
type PlacementPolicy interface {
	Place(replica *Replica, candidates []HostSnapshot) (PlacementDecision, error)
}

// PlaceReplica filters cluster hosts by affinity, builds their
// snapshots, asks policy to choose one, then reserves the replica's
// resources on the chosen host (spec §4.7).
func PlaceReplica(c *Cluster, policy PlacementPolicy, replica *Replica, affinity *AffinityRuleset) error {
	var candidates []HostSnapshot
	var hostByID = make(map[string]*Host)
	for id, h := range c.Hosts {
		snap := hostSnapshot(h)
		if !affinity.Allows(replica.Microservice, snap) {
			continue
		}
		candidates = append(candidates, snap)
		hostByID[id] = h
	}
	if len(candidates) == 0 {
		return NewResourceUnavailable("host", "no affinity-eligible host for replica "+replica.ID)
	}
	decision, err := policy.Place(replica, candidates)
	if err != nil {
		return err
	}
	host, ok := hostByID[decision.HostID]
	if !ok {
		Violatef("placement.place", "policy chose unknown host %q", decision.HostID)
	}
	return replica.Place(host)
}

// LeastFitWeights weights each resource dimension's contribution to the
// LeastFit score (spec §4.7, grounded on LeastFit's w_cpu/w_mem/
// w_ingress/w_egress options).
type LeastFitWeights struct {
	CPU, RAM, Ingress, Egress float64
}

// DefaultLeastFitWeights weighs every dimension equally.
func DefaultLeastFitWeights() LeastFitWeights {
	return LeastFitWeights{CPU: 1, RAM: 1, Ingress: 1, Egress: 1}
}

// LeastFit scores each candidate host by how little of its capacity the
// replica would consume, preferring the host with spare capacity left
// over (spec §4.7 default placement scorer).
type LeastFit struct {
	Weights LeastFitWeights
}

// NewLeastFit creates a LeastFit policy with the given weights.
func NewLeastFit(weights LeastFitWeights) *LeastFit { return &LeastFit{Weights: weights} }

func leastFitScore(available, capacity, requested, weight float64) float64 {
	if capacity <= 0 {
		return 0
	}
	if requested > capacity {
		requested = capacity
	}
	return (100 - (available-requested)*(100/capacity)) * weight
}

// Place implements PlacementPolicy: it chooses the host with the lowest
// composite least-fit score, tie-broken by fewest existing replicas.
func (p *LeastFit) Place(replica *Replica, candidates []HostSnapshot) (PlacementDecision, error) {
	w := p.Weights
	sumWeights := w.CPU + w.RAM + w.Ingress + w.Egress
	if sumWeights <= 0 {
		sumWeights = 1
	}

	var best *HostSnapshot
	bestScore := math.Inf(1)
	for i := range candidates {
		h := &candidates[i]
		if !fits(replica, h) {
			continue
		}
		score := (leastFitScore(h.CPUAvailableMil, h.CPUCapacityMil, float64(max64(replica.CPURequestMil, 0)), w.CPU) +
			leastFitScore(h.RAMAvailable, h.RAMCapacity, float64(replica.RAMBytes), w.RAM) +
			leastFitScore(h.IngressAvailable, h.IngressCapacity, float64(replica.IngressBps), w.Ingress) +
			leastFitScore(h.EgressAvailable, h.EgressCapacity, float64(replica.EgressBps), w.Egress)) / sumWeights

		if score < bestScore || (score == bestScore && best != nil && h.ReplicaCount < best.ReplicaCount) {
			bestScore = score
			best = h
		}
	}
	if best == nil {
		return PlacementDecision{}, NewResourceUnavailable("host", "no host has enough available resources for replica "+replica.ID)
	}
	return PlacementDecision{HostID: best.ID, Reason: "least-fit"}, nil
}

// FirstFit places a replica on the first candidate (in input order) with
// enough available resources (spec §4.11 supplemented feature).
type FirstFit struct{}

// Place implements PlacementPolicy for FirstFit.
func (FirstFit) Place(replica *Replica, candidates []HostSnapshot) (PlacementDecision, error) {
	for i := range candidates {
		if fits(replica, &candidates[i]) {
			return PlacementDecision{HostID: candidates[i].ID, Reason: "first-fit"}, nil
		}
	}
	return PlacementDecision{}, NewResourceUnavailable("host", "no host has enough available resources for replica "+replica.ID)
}

// FirstFitDecreasing places a replica on the candidate with the largest
// available CPU capacity that still fits it, approximating the classic
// decreasing bin-packing heuristic when replicas are placed largest-first
// by the caller (spec §4.11 supplemented feature).
type FirstFitDecreasing struct{}

// Place implements PlacementPolicy for FirstFitDecreasing.
func (FirstFitDecreasing) Place(replica *Replica, candidates []HostSnapshot) (PlacementDecision, error) {
	var best *HostSnapshot
	for i := range candidates {
		h := &candidates[i]
		if !fits(replica, h) {
			continue
		}
		if best == nil || h.CPUAvailableMil > best.CPUAvailableMil {
			best = h
		}
	}
	if best == nil {
		return PlacementDecision{}, NewResourceUnavailable("host", "no host has enough available resources for replica "+replica.ID)
	}
	return PlacementDecision{HostID: best.ID, Reason: "first-fit-decreasing"}, nil
}

func fits(replica *Replica, h *HostSnapshot) bool {
	if float64(replica.RAMBytes) > h.RAMAvailable {
		return false
	}
	if float64(replica.IngressBps) > h.IngressAvailable {
		return false
	}
	if float64(replica.EgressBps) > h.EgressAvailable {
		return false
	}
	if replica.CPURequestMil > 0 && float64(replica.CPURequestMil) > h.CPUAvailableMil {
		return false
	}
	return true
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// NewPlacementPolicy builds a PlacementPolicy by name, per ClusterBundle's
// "placement.policy" field (spec §4.10).
func NewPlacementPolicy(cfg PlacementConfig) (PlacementPolicy, error) {
	weights := DefaultLeastFitWeights()
	if cfg.CPUWeight != nil {
		weights.CPU = *cfg.CPUWeight
	}
	if cfg.RAMWeight != nil {
		weights.RAM = *cfg.RAMWeight
	}
	if cfg.BandwidthWeight != nil {
		weights.Ingress = *cfg.BandwidthWeight
		weights.Egress = *cfg.BandwidthWeight
	}
	switch cfg.Policy {
	case "", "least-fit":
		return NewLeastFit(weights), nil
	case "first-fit":
		return FirstFit{}, nil
	case "first-fit-decreasing":
		return FirstFitDecreasing{}, nil
	default:
		return nil, NewConfigError("placement.policy", "unknown policy "+cfg.Policy)
	}
}
