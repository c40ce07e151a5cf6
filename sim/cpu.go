package sim

import "math"

// Core is a single physical CPU core: a clock rate and one RunQueue of
// threads competing for its MaxCPUShares (spec §3, §4.2).
type Core struct {
	ID          int
	PairID      int // i / 2, the core-pair this core belongs to (spec §4.3)
	ClockRateHz float64
	RunQueue    *RunQueue
}

// NewCore creates a Core with an empty RunQueue.
func NewCore(id int, clockRateHz float64) *Core {
	return &Core{
		ID:          id,
		PairID:      id / 2,
		ClockRateHz: clockRateHz,
		RunQueue:    NewRunQueue(),
	}
}

// Idle reports whether this core currently has no enqueued threads.
func (c *Core) Idle() bool { return c.RunQueue.Len() == 0 }

// Load returns this core's current aggregate load (spec §4.2).
func (c *Core) Load() float64 { return c.RunQueue.Load() }

// CPU is a Host's collection of cores, grouped into pairs (spec §4.3:
// "core i belongs to pair floor(i/2)"), and the home of the load
// balancer and zombie reaper.
type CPU struct {
	Cores []*Core
}

// NewCPU creates a CPU with n cores, each clocked at clockRateHz.
func NewCPU(n int, clockRateHz float64) *CPU {
	cpu := &CPU{Cores: make([]*Core, n)}
	for i := 0; i < n; i++ {
		cpu.Cores[i] = NewCore(i, clockRateHz)
	}
	return cpu
}

// Pairs groups this CPU's cores by PairID, in core-index order.
func (cpu *CPU) Pairs() [][]*Core {
	byPair := make(map[int][]*Core)
	var order []int
	for _, c := range cpu.Cores {
		if _, ok := byPair[c.PairID]; !ok {
			order = append(order, c.PairID)
		}
		byPair[c.PairID] = append(byPair[c.PairID], c)
	}
	out := make([][]*Core, len(order))
	for i, p := range order {
		out[i] = byPair[p]
	}
	return out
}

// IdleCores returns cores with an empty run queue, in core-index order.
func (cpu *CPU) IdleCores() []*Core {
	var idle []*Core
	for _, c := range cpu.Cores {
		if c.Idle() {
			idle = append(idle, c)
		}
	}
	return idle
}

// RecomputeShares runs the spec §4.2 share-recomputation algorithm
// against a single core's run queue:
//  1. Guaranteed threads each receive their own CPU request divided by
//     their replica's active thread count (per_thread_request), capped
//     at core.max.
//  2. The remainder of MaxCPUShares is split among burstable threads in
//     proportion to their per_thread_request, capped at their limit for
//     burstable-limited threads; unused remainder from capped threads is
//     redistributed once, pro-rata, among the threads still below their cap.
//  3. Whatever remains after guaranteed + burstable is split evenly among
//     best-effort threads.
func RecomputeShares(rq *RunQueue) {
	const coreMax = float64(MaxCPUShares)

	guaranteed := rq.ThreadsByQoS(QoSGuaranteed)
	usedByGuaranteed := 0.0
	for _, t := range guaranteed {
		share := perThreadRequest(t)
		if share > coreMax {
			share = coreMax
		}
		t.Share = share
		usedByGuaranteed += share
	}

	burstable := append(rq.ThreadsByQoS(QoSBurstableUnlimited), rq.ThreadsByQoS(QoSBurstableLimited)...)
	remaining := coreMax - usedByGuaranteed
	if remaining < 0 {
		remaining = 0
	}

	sumRequests := 0.0
	for _, t := range burstable {
		sumRequests += perThreadRequest(t)
	}
	if sumRequests > 0 && len(burstable) > 0 {
		distributeBurstableShares(burstable, remaining, sumRequests)
		for _, t := range burstable {
			remaining -= t.Share
		}
		if remaining < 0 {
			remaining = 0
		}
	}

	bestEffort := rq.ThreadsByQoS(QoSBestEffort)
	if len(bestEffort) > 0 {
		per := remaining / float64(len(bestEffort))
		for _, t := range bestEffort {
			t.Share = per
		}
	}
}

// perThreadRequest divides a thread's CPU request by the number of active
// threads its replica currently owns across the whole host, matching spec
// §4.2 step 2's per_thread_request = cpu_request/active_threads_in_process
// (two threads spawned from the same replica split its one request, even
// when the load balancer has scattered them across different cores).
func perThreadRequest(t *Thread) float64 {
	n := 1
	if t.Replica != nil {
		if active := t.Replica.ActiveThreads(); active > 0 {
			n = active
		}
	}
	return float64(t.CPURequestMil) / float64(n)
}

// distributeBurstableShares gives each burstable thread a pro-rata share
// of budget weighted by its request, capped at its limit for
// burstable-limited threads, redistributing any capped surplus once
// among threads still below their cap.
func distributeBurstableShares(threads []*Thread, budget, sumRequests float64) {
	uncapped := budget
	capped := make(map[*Thread]bool, len(threads))
	for pass := 0; pass < 2; pass++ {
		var openSum float64
		var open []*Thread
		for _, t := range threads {
			if capped[t] {
				continue
			}
			open = append(open, t)
			openSum += perThreadRequest(t)
		}
		if openSum <= 0 || len(open) == 0 {
			return
		}
		anyNewlyCapped := false
		for _, t := range open {
			proposed := uncapped * (perThreadRequest(t) / openSum)
			if t.CPULimitMil > 0 && proposed > float64(t.CPULimitMil) {
				t.Share = float64(t.CPULimitMil)
				capped[t] = true
				anyNewlyCapped = true
			} else {
				t.Share = proposed
			}
		}
		if !anyNewlyCapped {
			return
		}
		var spent float64
		for _, t := range threads {
			if capped[t] {
				spent += t.Share
			}
		}
		uncapped = budget - spent
		if uncapped < 0 {
			uncapped = 0
		}
	}
}

// BalancePairs walks each idle core and, within its own pair, pulls the
// sibling's lightest movable thread across — but only if the sibling has
// more than one runnable thread and the move still leaves the sibling at
// least as loaded as the (newly non-idle) receiving core, per spec §4.3's
// pair-domain balancing pass.
func (cpu *CPU) BalancePairs() {
	for _, pair := range cpu.Pairs() {
		if len(pair) != 2 {
			continue
		}
		for _, idle := range pair {
			if !idle.Idle() {
				continue
			}
			var sibling *Core
			for _, c := range pair {
				if c != idle {
					sibling = c
				}
			}
			if sibling != nil {
				migrateIfIdleBalances(sibling, idle)
			}
		}
	}
}

// BalanceNode walks each core still idle after BalancePairs, in core index
// order, and pulls the lightest movable thread across from the busiest of
// the two cores in the CPU's
// globally busiest pair, under the same postcondition as BalancePairs, per
// spec §4.3's node-domain balancing pass (run after BalancePairs).
func (cpu *CPU) BalanceNode() {
	pairs := cpu.Pairs()
	if len(pairs) == 0 {
		return
	}
	for _, idle := range cpu.IdleCores() {
		var busiestPair []*Core
		busiestLoad := -1.0
		for _, p := range pairs {
			total := 0.0
			for _, c := range p {
				total += c.Load()
			}
			if total > busiestLoad {
				busiestLoad = total
				busiestPair = p
			}
		}
		if len(busiestPair) == 0 {
			continue
		}
		donor := busiestPair[0]
		for _, c := range busiestPair {
			if c.Load() > donor.Load() {
				donor = c
			}
		}
		if donor == idle {
			continue
		}
		migrateIfIdleBalances(donor, idle)
	}
}

// migrateIfIdleBalances moves donor's lightest movable thread onto idle
// iff (i) donor has more than one runnable thread and (ii) after the move
// donor's new load is still >= idle's new load, rounded to 5 decimal
// places (spec §4.3's balancing postcondition).
func migrateIfIdleBalances(donor, idle *Core) {
	if donor.RunQueue.Len() <= 1 {
		return
	}
	t := donor.RunQueue.Lightest()
	if t == nil {
		return
	}
	movedLoad := t.AverageLoad * t.Load
	donorNewLoad := round5(donor.Load() - movedLoad)
	idleNewLoad := round5(idle.Load() + movedLoad)
	if donorNewLoad < idleNewLoad {
		return
	}
	donor.RunQueue.Dequeue(t)
	t.ClockRateHz = idle.ClockRateHz
	idle.RunQueue.Enqueue(t, idle)
}

// round5 rounds v to 5 decimal places, the precision spec §4.3 requires
// for the balancing postcondition comparison.
func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// StealIdle is the emergency idle-core theft pass: any core with an empty
// run queue steals the heaviest thread from the most loaded core that has
// more than one runnable thread, so a newly-available core never sits idle
// while another is overloaded, and a donor is never raided down to zero
// threads by this pass (spec §4.3).
func (cpu *CPU) StealIdle() {
	for _, idle := range cpu.IdleCores() {
		var donor *Core
		for _, c := range cpu.Cores {
			if c == idle || c.RunQueue.Len() <= 1 {
				continue
			}
			if donor == nil || c.Load() > donor.Load() {
				donor = c
			}
		}
		if donor == nil {
			continue
		}
		t := donor.RunQueue.Heaviest()
		if t == nil {
			continue
		}
		donor.RunQueue.Dequeue(t)
		t.ClockRateHz = idle.ClockRateHz
		idle.RunQueue.Enqueue(t, idle)
	}
}

// ReapZombies removes dead threads (InstructionsLeft <= 0) from every
// core's run queue and from their owning replica's bookkeeping, returning
// the reaped threads for the caller to fold into request-completion
// logic (spec §4.3).
func (cpu *CPU) ReapZombies() []*Thread {
	var zombies []*Thread
	for _, c := range cpu.Cores {
		for _, t := range append([]*Thread(nil), c.RunQueue.Threads()...) {
			if !t.Dead() {
				continue
			}
			c.RunQueue.Dequeue(t)
			if t.Replica != nil {
				t.Replica.RemoveThread(t)
			}
			zombies = append(zombies, t)
		}
	}
	return zombies
}

// Balance runs one full load-balancing pass: pair-domain, then
// node-domain, then emergency idle-core theft, then zombie reaping,
// matching the ordering described in spec §4.3.
func (cpu *CPU) Balance() []*Thread {
	cpu.BalancePairs()
	cpu.BalanceNode()
	cpu.StealIdle()
	return cpu.ReapZombies()
}
