package sim

import "sort"

// ThroughputBucketNs is the width of one Throughput histogram bucket
// (spec §6: "1-second buckets").
const ThroughputBucketNs = 1e9

// ServiceChainResult is the simulator's output document for one service
// chain's run, matching the schema external tooling (results persistence,
// plotting) expects (spec §6, grounded on ServiceChainResultDict). The
// per-request series are parallel slices in arrival order, not maps, so
// RequestIDs[i]/ArrivalTimesNs[i]/LatenciesNs[i]/CompletionTimesNs[i]/
// TrafficTypes[i] all describe the same request.
type ServiceChainResult struct {
	SimulationName string `json:"simulation_name"`

	// EstimatedCost is always zero: cost accounting is out of scope for
	// this simulator (spec §9 Open Question decision, recorded in DESIGN.md).
	EstimatedCost float64 `json:"estimated_cost"`

	TotalRequests      int `json:"total_requests"`
	SuccessfulRequests int `json:"successful_requests"`

	// TimeoutRequests is always zero: this simulator never enforces
	// request timeouts (spec §9 Open Question decision).
	TimeoutRequests int `json:"timeout_requests"`

	AvgLatencyNs float64 `json:"avg_latency_ns"`

	RequestIDs        []string  `json:"request_ids"`
	ArrivalTimesNs    []float64 `json:"arrival_times_ns"`
	LatenciesNs       []float64 `json:"latencies_ns"`
	CompletionTimesNs []float64 `json:"completion_times_ns"`
	TrafficTypes      []string  `json:"traffic_types"`

	// Throughput is a histogram of completions per ThroughputBucketNs-wide
	// bucket of simulated time, indexed from bucket 0 at t=0 (spec §6).
	Throughput []int64 `json:"throughput"`
}

// Metrics accumulates per-request outcomes during a simulation run and
// renders a ServiceChainResult at the end (spec §6).
type Metrics struct {
	SimulationName string

	completed      int
	totalLatencyNs float64

	requestIDs     []string
	trafficTypes   []string
	arrivalTimesNs []float64
	latenciesNs    []float64
	completionNs   []float64
	done           []bool
	index          map[string]int // request ID -> slice position, for out-of-arrival-order completion

	throughput []int64
}

// NewMetrics creates an empty Metrics accumulator for the named simulation.
func NewMetrics(simulationName string) *Metrics {
	return &Metrics{
		SimulationName: simulationName,
		index:          make(map[string]int),
	}
}

// RecordArrival records a request's arrival time and traffic type
// (its service chain's name), in arrival order.
func (m *Metrics) RecordArrival(req *Request) {
	m.index[req.ID] = len(m.requestIDs)
	m.requestIDs = append(m.requestIDs, req.ID)
	m.arrivalTimesNs = append(m.arrivalTimesNs, req.ArrivalTimeNs)
	m.latenciesNs = append(m.latenciesNs, 0)
	m.completionNs = append(m.completionNs, 0)
	m.done = append(m.done, false)
	trafficType := ""
	if req.ServiceChain != nil {
		trafficType = req.ServiceChain.Name
	}
	m.trafficTypes = append(m.trafficTypes, trafficType)
}

// RecordCompletion records a concluded request's latency and completion
// time at its arrival-order position, rolls it into the running totals,
// and buckets it into the Throughput histogram.
func (m *Metrics) RecordCompletion(req *Request) {
	i, ok := m.index[req.ID]
	if !ok {
		Violatef("metrics.record_completion", "request %q completed without a recorded arrival", req.ID)
	}
	m.completed++
	latency := req.LatencyNs()
	m.totalLatencyNs += latency
	m.latenciesNs[i] = latency
	m.completionNs[i] = req.ConcludedAtNs
	m.done[i] = true

	bucket := int(req.ConcludedAtNs / ThroughputBucketNs)
	if bucket < 0 {
		bucket = 0
	}
	for len(m.throughput) <= bucket {
		m.throughput = append(m.throughput, 0)
	}
	m.throughput[bucket]++
}

// Result renders the accumulated metrics as a ServiceChainResult.
func (m *Metrics) Result() ServiceChainResult {
	avg := 0.0
	if m.completed > 0 {
		avg = m.totalLatencyNs / float64(m.completed)
	}
	return ServiceChainResult{
		SimulationName:     m.SimulationName,
		EstimatedCost:      0,
		TotalRequests:      len(m.requestIDs),
		SuccessfulRequests: m.completed,
		TimeoutRequests:    0,
		AvgLatencyNs:       avg,
		RequestIDs:         m.requestIDs,
		ArrivalTimesNs:     m.arrivalTimesNs,
		LatenciesNs:        m.latenciesNs,
		CompletionTimesNs:  m.completionNs,
		TrafficTypes:       m.trafficTypes,
		Throughput:         m.throughput,
	}
}

// RequestIDsByLatency returns completed request IDs sorted by latency
// descending, useful for reporting the slowest requests in a run.
func (m *Metrics) RequestIDsByLatency() []string {
	ids := make([]string, 0, m.completed)
	for i, id := range m.requestIDs {
		if m.done[i] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.latenciesNs[m.index[ids[i]]] > m.latenciesNs[m.index[ids[j]]]
	})
	return ids
}
