// Package sim implements the core discrete-event simulation engine for
// svcsim, a predictor of end-to-end request latency for chains of
// communicating microservices deployed on a packet-switched cluster.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - resource.go, runqueue.go, cpu.go: the per-host CPU scheduler
//   - thread.go: the replica thread execution model (CPI, cache penalty, vruntime)
//   - request.go, servicechain.go: the request state machine (fork/join over subchains)
//   - event.go, simulator.go: the driver loop (REQUEST → THREAD-GEN → fixed-interval RUN-THREADS ticks)
//
// # Architecture
//
// sim/topology holds the leaf graph/shortest-path concern (no dependency on
// Host/Replica/Request) so the core package can wrap it without an import
// cycle. Placement policies (placement.go) stay in this package as a
// read-only snapshot type plus a small interface, not a separate package.
//
// # Key Interfaces
//
//   - PlacementPolicy (placement.go): assign replicas to hosts given affinity
//   - Observer (observer.go): attach/notify hooks for logging and telemetry
package sim
