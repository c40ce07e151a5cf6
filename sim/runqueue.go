package sim

import "sort"

// qosPartition tracks the set of threads in one QoS class together with
// the cached sum of their CPU requests (spec §4.2).
type qosPartition struct {
	threads         map[*Thread]struct{}
	sumCPURequests  int64
}

func newQoSPartition() *qosPartition {
	return &qosPartition{threads: make(map[*Thread]struct{})}
}

func (p *qosPartition) add(t *Thread) {
	p.threads[t] = struct{}{}
	if t.CPURequestMil > 0 {
		p.sumCPURequests += t.CPURequestMil
	}
}

func (p *qosPartition) remove(t *Thread) {
	if _, ok := p.threads[t]; !ok {
		return
	}
	delete(p.threads, t)
	if t.CPURequestMil > 0 {
		p.sumCPURequests -= t.CPURequestMil
	}
}

// RunQueue is a core's ordered set of threads, partitioned by QoS class,
// with a lightest-thread index used by the cross-core load balancer
// (spec §4.2).
type RunQueue struct {
	rq            []*Thread          // insertion order
	activeThreads map[*Thread]int    // O(1) membership -> index in rq

	bestEffort         *qosPartition
	guaranteed         *qosPartition
	burstable          *qosPartition // unused directly; kept for symmetry with spec naming
	burstableUnlimited *qosPartition
	burstableLimited   *qosPartition

	// lightest is rq sorted by (Load, VRuntime) ascending. Maintained by
	// insertion-sort on enqueue/dequeue. Spec §4.2 calls for an ordered
	// map of load -> ordered map of vruntime -> set of threads for O(log n)
	// lookups; at the per-core thread counts this simulator targets, a
	// sorted slice with binary-search insertion gives the same observable
	// behavior (lightest-first, ties broken by insertion order) at a
	// simpler implementation cost.
	lightest []*Thread
}

// NewRunQueue creates an empty RunQueue.
func NewRunQueue() *RunQueue {
	return &RunQueue{
		activeThreads:      make(map[*Thread]int),
		bestEffort:         newQoSPartition(),
		guaranteed:         newQoSPartition(),
		burstable:          newQoSPartition(),
		burstableUnlimited: newQoSPartition(),
		burstableLimited:   newQoSPartition(),
	}
}

func (rq *RunQueue) partitionFor(t *Thread) *qosPartition {
	switch t.QoS {
	case QoSGuaranteed:
		return rq.guaranteed
	case QoSBurstableUnlimited:
		return rq.burstableUnlimited
	case QoSBurstableLimited:
		return rq.burstableLimited
	default:
		return rq.bestEffort
	}
}

// Len returns the number of threads currently enqueued.
func (rq *RunQueue) Len() int { return len(rq.rq) }

// Threads returns the run queue's threads in insertion order. Callers must
// not mutate the returned slice.
func (rq *RunQueue) Threads() []*Thread { return rq.rq }

// Contains reports whether t is enqueued on this RunQueue.
func (rq *RunQueue) Contains(t *Thread) bool {
	_, ok := rq.activeThreads[t]
	return ok
}

// Enqueue adds thread t to this run queue. Asserts the thread has no
// owning core and positive instructions remaining (spec §4.2);
// violations panic with InvariantViolation.
func (rq *RunQueue) Enqueue(t *Thread, core *Core) {
	if t.Core != nil {
		Violatef("runqueue.enqueue", "thread %s already owns a core", t.ID)
	}
	if t.InstructionsLeft <= 0 {
		Violatef("runqueue.enqueue", "thread %s has no instructions left", t.ID)
	}
	t.Core = core
	rq.activeThreads[t] = len(rq.rq)
	rq.rq = append(rq.rq, t)
	rq.partitionFor(t).add(t)
	rq.insertLightest(t)
}

// Dequeue removes thread t from this run queue, the inverse of Enqueue.
func (rq *RunQueue) Dequeue(t *Thread) {
	idx, ok := rq.activeThreads[t]
	if !ok {
		return
	}
	rq.rq = append(rq.rq[:idx], rq.rq[idx+1:]...)
	delete(rq.activeThreads, t)
	for i := idx; i < len(rq.rq); i++ {
		rq.activeThreads[rq.rq[i]] = i
	}
	rq.partitionFor(t).remove(t)
	rq.removeLightest(t)
	t.Core = nil
}

func (rq *RunQueue) insertLightest(t *Thread) {
	i := sort.Search(len(rq.lightest), func(i int) bool {
		return lightestLess(t, rq.lightest[i])
	})
	rq.lightest = append(rq.lightest, nil)
	copy(rq.lightest[i+1:], rq.lightest[i:])
	rq.lightest[i] = t
}

func (rq *RunQueue) removeLightest(t *Thread) {
	for i, v := range rq.lightest {
		if v == t {
			rq.lightest = append(rq.lightest[:i], rq.lightest[i+1:]...)
			return
		}
	}
}

// lightestLess orders two threads by (Load, VRuntime) ascending, which is
// the tie-break rule spec §4.2 describes for the lightest-thread index.
func lightestLess(a, b *Thread) bool {
	if a.Load != b.Load {
		return a.Load < b.Load
	}
	return a.VRuntime < b.VRuntime
}

// Lightest returns the lightest movable thread (by Load, tie-broken by
// VRuntime), or nil if the queue is empty.
func (rq *RunQueue) Lightest() *Thread {
	if len(rq.lightest) == 0 {
		return nil
	}
	return rq.lightest[0]
}

// Heaviest returns the heaviest thread by Load, or nil if the queue is
// empty. Used by emergency idle-core theft (spec §4.3).
func (rq *RunQueue) Heaviest() *Thread {
	if len(rq.lightest) == 0 {
		return nil
	}
	return rq.lightest[len(rq.lightest)-1]
}

// Resort re-establishes the lightest-thread index's ordering after
// in-place mutation of Load/VRuntime on its members (e.g. after Exec).
// Called once per RUN-THREADS step rather than per mutated thread.
func (rq *RunQueue) Resort() {
	sort.SliceStable(rq.lightest, func(i, j int) bool {
		return lightestLess(rq.lightest[i], rq.lightest[j])
	})
}

// Load computes Σ thread.AverageLoad * thread.Load across the run queue
// (spec §4.2 invariant).
func (rq *RunQueue) Load() float64 {
	total := 0.0
	for _, t := range rq.rq {
		total += t.AverageLoad * t.Load
	}
	return total
}

// GuaranteedRequestSum returns S_G, the sum of CPU requests across
// guaranteed threads (used by share recomputation, spec §4.2 step 1).
func (rq *RunQueue) GuaranteedRequestSum() int64 { return rq.guaranteed.sumCPURequests }

// BurstableRequestSum returns S_B, the sum of CPU requests across all
// burstable threads (limited + unlimited).
func (rq *RunQueue) BurstableRequestSum() int64 {
	return rq.burstableUnlimited.sumCPURequests + rq.burstableLimited.sumCPURequests
}

// ThreadsByQoS returns the threads in a given QoS partition.
func (rq *RunQueue) ThreadsByQoS(class QoSClass) []*Thread {
	var p *qosPartition
	switch class {
	case QoSGuaranteed:
		p = rq.guaranteed
	case QoSBurstableUnlimited:
		p = rq.burstableUnlimited
	case QoSBurstableLimited:
		p = rq.burstableLimited
	default:
		p = rq.bestEffort
	}
	out := make([]*Thread, 0, len(p.threads))
	for t := range p.threads {
		out = append(out, t)
	}
	return out
}

