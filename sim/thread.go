package sim

import "math"

// QoSClass classifies a thread's CPU scheduling class (spec GLOSSARY).
// Guaranteed: request == limit != -1. Burstable-Unlimited: request != -1,
// limit == -1. Burstable-Limited: request != -1, limit > request.
// BestEffort: request == limit == -1.
type QoSClass int

const (
	QoSGuaranteed QoSClass = iota
	QoSBurstableUnlimited
	QoSBurstableLimited
	QoSBestEffort
)

func (q QoSClass) String() string {
	switch q {
	case QoSGuaranteed:
		return "guaranteed"
	case QoSBurstableUnlimited:
		return "burstable-unlimited"
	case QoSBurstableLimited:
		return "burstable-limited"
	case QoSBestEffort:
		return "best-effort"
	default:
		return "unknown"
	}
}

// ClassifyQoS derives a QoSClass from a millicore request/limit pair,
// following the GLOSSARY definition. -1 means "unset" for both fields.
func ClassifyQoS(requestMillis, limitMillis int64) QoSClass {
	switch {
	case requestMillis == -1 && limitMillis == -1:
		return QoSBestEffort
	case limitMillis == -1:
		return QoSBurstableUnlimited
	case limitMillis == requestMillis:
		return QoSGuaranteed
	default:
		return QoSBurstableLimited
	}
}

// Thread is the unit of compute: a ReplicaThread as described in spec §3.
// It models remaining instructions, CPI, cache-miss penalty, and
// vruntime, and is enqueued on exactly one core's RunQueue for its
// lifetime.
type Thread struct {
	ID string

	InstructionsLeft float64 // remaining instructions; killed when <= 0
	CPI              float64 // cycles per instruction (no contention, no cache miss)
	ClockRateHz      float64 // owning core's clock rate, cached for prediction

	MemAccesses          int64   // memory-access count over the thread's total work
	OriginalInstructions float64 // instruction count at creation, for cache-penalty ratio
	IsolatedCacheMisses  int64
	IsolatedCacheRefs    int64
	AvgMissPenaltyCycles float64 // average cache-miss penalty, in cycles

	QoS           QoSClass
	CPURequestMil int64 // requested millicores, -1 if unset
	CPULimitMil   int64 // limit millicores, -1 if unlimited

	Share float64 // current computed share, in millicores (see cpu.go recompute)

	VRuntime    float64 // monotonic tie-break counter (ns-weighted)
	Load        float64 // last tick's effective share (cache- and contention-adjusted), set by Exec
	AverageLoad float64 // EMA of Load since creation; starts at 1.0

	Replica *Replica
	Core    *Core // nil while not enqueued

	Request    *Request
	SubchainID int
	Node       AltNode // (copy_id, function) node in the alternative graph
}

// NewThread creates a Thread ready for enqueue. instructions and cpi must
// be positive; requestMillis/limitMillis determine its scheduling class.
func NewThread(id string, instructions, cpi float64, requestMillis, limitMillis int64, memAccesses, cacheRefs, cacheMisses int64, avgMissPenaltyCycles float64) *Thread {
	return &Thread{
		ID:                   id,
		InstructionsLeft:     instructions,
		OriginalInstructions: instructions,
		CPI:                  cpi,
		MemAccesses:          memAccesses,
		IsolatedCacheRefs:    cacheRefs,
		IsolatedCacheMisses:  cacheMisses,
		AvgMissPenaltyCycles: avgMissPenaltyCycles,
		QoS:                  ClassifyQoS(requestMillis, limitMillis),
		CPURequestMil:        requestMillis,
		CPULimitMil:          limitMillis,
		AverageLoad:          1.0,
	}
}

// Dead reports whether the thread has run out of instructions (a zombie
// candidate, reaped at the top of the next load-balance pass per spec §4.3).
// Instructions going slightly negative by rounding is snapped to zero
// within ±0.001 by Exec, so Dead is a plain <= 0 check.
func (t *Thread) Dead() bool { return t.InstructionsLeft <= 0 }

// effectiveShare computes the cache-penalty-adjusted share fraction used by
// Exec and PredictedFinish, following spec §4.4 exactly.
//
// simultaneous gates the contention_penalty term: a thread executing in
// true isolation (simultaneous=false) pays only the size penalty, matching
// the "isolated cache misses/refs" naming in spec §3 (these are measured
// assuming no contention; the contention term is layered on only when the
// thread actually shares a core this tick).
func (t *Thread) effectiveShare(activeThreadsOnCore int, coreMax float64, simultaneous bool) float64 {
	if t.OriginalInstructions <= 0 || t.IsolatedCacheRefs == 0 {
		return t.shareFraction(coreMax)
	}

	missRate := float64(t.IsolatedCacheMisses) / float64(t.IsolatedCacheRefs)

	contentionPenalty := 0.0
	if simultaneous && activeThreadsOnCore > 1 {
		contentionPenalty = 0.033420389*math.Log(float64(activeThreadsOnCore)) + 0.003341528
	}

	shareMillicores := t.Share
	if shareMillicores <= 0 {
		shareMillicores = t.shareFraction(coreMax) * coreMax
	}
	sizePenalty := -0.02509033*math.Log(shareMillicores) + 0.17859156

	effectiveMissRate := missRate * (1 + sizePenalty) * (1 + contentionPenalty)

	cachePenaltyCycles := 0.0
	if t.OriginalInstructions > 0 {
		cachePenaltyCycles = (float64(t.MemAccesses) / t.OriginalInstructions) * effectiveMissRate * t.AvgMissPenaltyCycles
	}

	shareEffective1024 := t.Share / coreMax * 1024
	denom := t.CPI + cachePenaltyCycles
	if denom <= 0 {
		return t.shareFraction(coreMax)
	}
	shareEffective := (t.CPI * shareEffective1024) / denom
	return shareEffective / 1024
}

// shareFraction returns Share/coreMax with no cache-penalty adjustment,
// used as a fallback when there isn't enough information for the full
// cache-penalty model (e.g. a just-created thread with no cache stats).
func (t *Thread) shareFraction(coreMax float64) float64 {
	if coreMax <= 0 {
		return 0
	}
	return t.Share / coreMax
}

// Exec advances the thread by duration nanoseconds, consuming
// instructions, advancing vruntime, and updating the load EMA, following
// spec §4.4. activeThreadsOnCore is the current run-queue size on the
// thread's core (used for the contention penalty).
func (t *Thread) Exec(durationNs float64, activeThreadsOnCore int, coreMax float64) {
	shareEffective := t.effectiveShare(activeThreadsOnCore, coreMax, true)

	t.VRuntime += durationNs * shareEffective

	if t.ClockRateHz <= 0 || t.CPI <= 0 {
		return
	}
	cycleTimeNs := (t.CPI / t.ClockRateHz) * 1e9
	if cycleTimeNs <= 0 {
		return
	}
	instructionsConsumed := (durationNs * shareEffective) / cycleTimeNs
	t.InstructionsLeft -= instructionsConsumed

	// Snap a rounding epsilon to zero rather than letting it go meaningfully
	// negative (spec §4.4: "Instructions go negative only by a rounding
	// epsilon; snap to zero within ±0.001").
	if t.InstructionsLeft < 0 && t.InstructionsLeft > -0.001 {
		t.InstructionsLeft = 0
	}

	t.Load = shareEffective
	const emaWeight = 0.2
	t.AverageLoad = t.AverageLoad*(1-emaWeight) + t.Load*emaWeight
}

// PredictedFinish estimates the duration (ns) needed to exhaust the
// thread's remaining instructions at its current share, with no further
// scheduling changes, per spec §4.4.
func (t *Thread) PredictedFinish(activeThreadsOnCore int, coreMax float64) float64 {
	if t.ClockRateHz <= 0 || t.CPI <= 0 {
		return 0
	}
	shareEffective := t.effectiveShare(activeThreadsOnCore, coreMax, true)
	if shareEffective <= 0 {
		return math.Inf(1)
	}
	clockRateNanoHz := t.ClockRateHz / 1e9
	return (t.InstructionsLeft * t.CPI) / (clockRateNanoHz * shareEffective)
}
