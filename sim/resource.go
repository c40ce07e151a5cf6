package sim

// Resource tracks capacity/reservation accounting for a single dimension
// (CPU shares, RAM bytes, storage bytes, NIC bandwidth bytes/s). Reserving
// more than Available fails with ResourceUnavailableError; releasing more
// than currently reserved is a fatal bug, not a recoverable error (spec
// §4.1).
type Resource struct {
	capacity int64
	reserved int64
}

// NewResource creates a Resource with the given capacity and zero reserved.
func NewResource(capacity int64) *Resource {
	return &Resource{capacity: capacity}
}

// Capacity returns the total capacity of this dimension.
func (r *Resource) Capacity() int64 { return r.capacity }

// Reserved returns the amount currently reserved.
func (r *Resource) Reserved() int64 { return r.reserved }

// Available returns capacity minus reserved.
func (r *Resource) Available() int64 { return r.capacity - r.reserved }

// Reserve reserves n units, failing with ResourceUnavailableError if n
// exceeds Available.
func (r *Resource) Reserve(n int64) error {
	if n > r.Available() {
		return NewResourceUnavailable("resource", "requested more than available")
	}
	r.reserved += n
	return nil
}

// Release releases n units. Releasing more than reserved is a programmer
// error: it panics with an InvariantViolation rather than returning an
// error, matching the fatal/recoverable split in spec §7.
func (r *Resource) Release(n int64) {
	if n > r.reserved {
		Violatef("resource.release", "releasing %d exceeds reserved %d", n, r.reserved)
	}
	r.reserved -= n
}

// MaxCPUShares is the number of CPU shares (millicores) represented by one
// physical core (spec §4.1).
const MaxCPUShares = 1000

// HostResources bundles the four resource dimensions a Host exposes: CPU
// shares are tracked per-core in the CPU's run queues (see cpu.go), so
// HostResources tracks RAM, storage, and the two NIC counters. NIC also
// carries a running BandwidthRequestsTotal counter distinct from per-flow
// bandwidth allocation (spec §4.1).
type HostResources struct {
	RAM     *Resource
	Storage *Resource
	Ingress *Resource // NIC ingress bandwidth, bytes/s
	Egress  *Resource // NIC egress bandwidth, bytes/s

	// BandwidthRequestsTotal is a running counter of the ingress+egress
	// bytes/s requested by placed replicas that have a positive CPU
	// request. No placement policy in this package reads it. It is
	// distinct from per-flow bandwidth allocation computed by the
	// transmission engine.
	BandwidthRequestsTotal int64
}

// NewHostResources constructs HostResources with the given capacities.
func NewHostResources(ramBytes, storageBytes, ingressBps, egressBps int64) *HostResources {
	return &HostResources{
		RAM:     NewResource(ramBytes),
		Storage: NewResource(storageBytes),
		Ingress: NewResource(ingressBps),
		Egress:  NewResource(egressBps),
	}
}
