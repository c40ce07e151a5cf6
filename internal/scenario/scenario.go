// Package scenario decodes the JSON scenario documents external tooling
// feeds the simulator (spec §6) and builds the sim package's Cluster and
// ServiceChain objects, plus each chain's arrival rate, from them.
package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/svcsim/svcsim/sim"
)

// HostSpec describes one cluster host (spec §6).
type HostSpec struct {
	ID           string  `json:"id"`
	Cores        int     `json:"cores"`
	ClockRateHz  float64 `json:"clock_rate_hz"`
	RAMBytes     int64   `json:"ram_bytes"`
	StorageBytes int64   `json:"storage_bytes"`
	IngressBps   int64   `json:"ingress_bps"`
	EgressBps    int64   `json:"egress_bps"`
}

// LinkSpec describes one directed network link between two hosts
// (spec §6).
type LinkSpec struct {
	ID           string  `json:"id"`
	From         string  `json:"from"`
	To           string  `json:"to"`
	LatencyNs    float64 `json:"latency_ns"`
	BandwidthBps int64   `json:"bandwidth_bps"`
}

// FunctionSpec is one node of a service chain plus the workload profile
// instantiated for threads spawned at that function (spec §3, §6).
type FunctionSpec struct {
	Name                 string  `json:"name"` // "<microservice>.<endpoint>"
	Instructions         float64 `json:"instructions"`
	CPI                  float64 `json:"cpi"`
	MemAccesses          int64   `json:"mem_accesses"`
	CacheRefs            int64   `json:"cache_refs"`
	CacheMisses          int64   `json:"cache_misses"`
	AvgMissPenaltyCycles float64 `json:"avg_miss_penalty_cycles"`
	CPURequestMil        int64   `json:"cpu_request_millicores"`
	CPULimitMil          int64   `json:"cpu_limit_millicores"`
}

// EdgeSpec is one directed hop in a service chain (spec §6).
type EdgeSpec struct {
	ID           string `json:"id"`
	From         string `json:"from"`
	To           string `json:"to"`
	PayloadBytes int64  `json:"payload_bytes"`
}

// ServiceChainSpec describes one service chain: its functions, edges, and
// arrival rate (spec §6).
type ServiceChainSpec struct {
	Name        string         `json:"name"`
	Functions   []FunctionSpec `json:"functions"`
	Edges       []EdgeSpec     `json:"edges"`
	ArrivalRate float64        `json:"arrival_rate_hz"`
}

// ReplicaSpec is one deployed instance of a microservice to place on the
// cluster before the simulation starts (spec §3, §6).
type ReplicaSpec struct {
	ID            string `json:"id"`
	Microservice  string `json:"microservice"`
	CPURequestMil int64  `json:"cpu_request_millicores"`
	CPULimitMil   int64  `json:"cpu_limit_millicores"`
	RAMBytes      int64  `json:"ram_bytes"`
	StorageBytes  int64  `json:"storage_bytes"`
	IngressBps    int64  `json:"ingress_bps"`
	EgressBps     int64  `json:"egress_bps"`
}

// AffinitySpec describes one microservice's placement constraints (spec
// §4.7, §4.11): an allow-list of hosts, an allow-list of microservices it
// must co-locate with, and a deny-list of hosts it must never land on.
type AffinitySpec struct {
	Microservice          string   `json:"microservice"`
	Hosts                 []string `json:"hosts"`
	AffinityMicroservices []string `json:"affinity_microservices"`
	AntiAffinityHosts     []string `json:"anti_affinity_hosts"`
}

// Document is the top-level scenario document (spec §6).
type Document struct {
	Name          string             `json:"name"`
	Hosts         []HostSpec         `json:"hosts"`
	Links         []LinkSpec         `json:"links"`
	ServiceChains []ServiceChainSpec `json:"service_chains"`
	Replicas      []ReplicaSpec      `json:"replicas"`
	Affinity      []AffinitySpec     `json:"affinity"`
	Seed          int64              `json:"seed"`

	// EgressErr/IngressErr are network-wide error-rate multipliers applied
	// to replica egress/ingress bandwidth caps (spec §4.5 step 2).
	EgressErr  float64 `json:"egress_err"`
	IngressErr float64 `json:"ingress_err"`
}

// Load reads and strictly decodes a scenario document from path.
// Unrecognized fields are rejected to catch scenario authoring typos.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &doc, nil
}

// Built is everything Build derives from a Document, ready to hand to a
// sim.Simulator.
type Built struct {
	Cluster  *sim.Cluster
	Affinity *sim.AffinityRuleset
	Chains   []*sim.ServiceChain
	Profiles map[string]sim.WorkloadProfile
	Replicas []*sim.Replica
	Rates    map[string]float64 // service chain name -> arrival rate Hz
}

// Build validates and converts a Document into the sim package's runtime
// objects: a populated Cluster, every ServiceChain, the workload profile
// for each function, and unplaced Replica objects ready for
// sim.Simulator.RegisterReplica.
func Build(doc *Document) (*Built, error) {
	if len(doc.Hosts) == 0 {
		return nil, sim.NewConfigError("hosts", "scenario must declare at least one host")
	}

	cluster := sim.NewCluster()
	for _, h := range doc.Hosts {
		if h.Cores <= 0 {
			return nil, sim.NewConfigError("hosts["+h.ID+"].cores", "must be positive")
		}
		cluster.AddHost(sim.NewHost(h.ID, h.Cores, h.ClockRateHz, h.RAMBytes, h.StorageBytes, h.IngressBps, h.EgressBps))
	}
	for _, l := range doc.Links {
		if _, ok := cluster.Hosts[l.From]; !ok {
			return nil, sim.NewConfigError("links["+l.ID+"].from", "unknown host "+l.From)
		}
		if _, ok := cluster.Hosts[l.To]; !ok {
			return nil, sim.NewConfigError("links["+l.ID+"].to", "unknown host "+l.To)
		}
		cluster.AddLink(sim.NewLink(l.ID, l.From, l.To, l.LatencyNs, l.BandwidthBps))
	}
	cluster.EgressErr = doc.EgressErr
	cluster.IngressErr = doc.IngressErr

	profiles := make(map[string]sim.WorkloadProfile)
	var chains []*sim.ServiceChain
	rates := make(map[string]float64)
	for _, scSpec := range doc.ServiceChains {
		sc := sim.NewServiceChain(scSpec.Name)
		for _, f := range scSpec.Functions {
			sc.AddNode(f.Name)
			profiles[f.Name] = sim.WorkloadProfile{
				Instructions:         f.Instructions,
				CPI:                  f.CPI,
				MemAccesses:          f.MemAccesses,
				CacheRefs:            f.CacheRefs,
				CacheMisses:          f.CacheMisses,
				AvgMissPenaltyCycles: f.AvgMissPenaltyCycles,
				CPURequestMil:        f.CPURequestMil,
				CPULimitMil:          f.CPULimitMil,
			}
		}
		for _, e := range scSpec.Edges {
			sc.AddEdge(sim.ChainEdge{ID: e.ID, From: e.From, To: e.To, PayloadBytes: e.PayloadBytes})
		}
		chains = append(chains, sc)
		rates[scSpec.Name] = scSpec.ArrivalRate
	}

	var replicas []*sim.Replica
	for _, r := range doc.Replicas {
		replicas = append(replicas, sim.NewReplica(r.ID, r.Microservice, r.CPURequestMil, r.CPULimitMil,
			r.RAMBytes, r.StorageBytes, r.IngressBps, r.EgressBps))
	}

	affinity := &sim.AffinityRuleset{
		AffinityHosts:         make(map[string][]string),
		AffinityMicroservices: make(map[string][]string),
		AntiAffinityHosts:     make(map[string][]string),
	}
	for _, a := range doc.Affinity {
		if len(a.Hosts) > 0 {
			affinity.AffinityHosts[a.Microservice] = a.Hosts
		}
		if len(a.AffinityMicroservices) > 0 {
			affinity.AffinityMicroservices[a.Microservice] = a.AffinityMicroservices
		}
		if len(a.AntiAffinityHosts) > 0 {
			affinity.AntiAffinityHosts[a.Microservice] = a.AntiAffinityHosts
		}
	}

	return &Built{
		Cluster:  cluster,
		Affinity: affinity,
		Chains:   chains,
		Profiles: profiles,
		Replicas: replicas,
		Rates:    rates,
	}, nil
}
