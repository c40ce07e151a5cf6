package sim

// SimulatorConfig groups the driver-loop tunables that aren't part of the
// scenario topology itself (spec §4.8, §6).
type SimulatorConfig struct {
	// Seed is the master SimulationKey seed; two runs with the same Seed
	// and scenario must produce identical output (spec §8 Determinism law).
	Seed int64

	// BalanceIntervalNs is the length of one RUN-THREADS tick: each tick
	// advances cores and transmissions by this long, then runs one CPU
	// load-balance pass (pair, node, idle-theft, zombie-reap).
	BalanceIntervalNs float64

	// MaxSimTimeNs stops the driver loop once simulated time would exceed
	// this bound, guarding against a misconfigured scenario that never
	// drains (e.g. an unbounded arrival stream). Zero means unbounded.
	MaxSimTimeNs float64
}

// DefaultSimulatorConfig returns the tunables used when a scenario doesn't
// override them.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Seed:               1,
		BalanceIntervalNs:  1_000_000, // 1ms
		MaxSimTimeNs:       0,
	}
}

// AffinityRuleset constrains which hosts a replica may be placed on (spec
// §4.7, §4.11: "exclude the union of anti-affinity hosts" from the
// least-fit scorer's candidate set). Three independent rules feed the
// exclusion:
//
//   - AffinityHosts: a microservice with an entry here may ONLY be placed
//     on one of the listed hosts (an allow-list).
//   - AffinityMicroservices: a microservice with an entry here may only be
//     placed on a host that already runs at least one replica of one of
//     the listed co-located microservices (once that host has any
//     replicas at all).
//   - AntiAffinityHosts: a microservice with an entry here is never placed
//     on any of the listed hosts, regardless of the other two rules.
type AffinityRuleset struct {
	AffinityHosts         map[string][]string
	AffinityMicroservices map[string][]string
	AntiAffinityHosts     map[string][]string
}

// Allows reports whether microservice may be placed on the host described
// by snapshot, given the replicas already placed on it.
func (a *AffinityRuleset) Allows(microservice string, snapshot HostSnapshot) bool {
	if a == nil {
		return true
	}
	for _, h := range a.AntiAffinityHosts[microservice] {
		if h == snapshot.ID {
			return false
		}
	}
	if allowed, ok := a.AffinityHosts[microservice]; ok {
		found := false
		for _, h := range allowed {
			if h == snapshot.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if wanted, ok := a.AffinityMicroservices[microservice]; ok && len(snapshot.Microservices) > 0 {
		found := false
		for _, want := range wanted {
			for _, present := range snapshot.Microservices {
				if want == present {
					found = true
					break
				}
			}
		}
		if !found {
			return false
		}
	}
	return true
}
