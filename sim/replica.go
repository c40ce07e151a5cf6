package sim

// Replica is one deployed instance of a microservice's function,
// co-located with a Host and consuming RAM/storage/NIC bandwidth for its
// lifetime, and CPU shares only while it owns live threads (spec §3).
type Replica struct {
	ID            string
	Microservice  string
	Host          *Host
	CPURequestMil int64 // -1 if unset
	CPULimitMil   int64 // -1 if unlimited
	RAMBytes      int64
	StorageBytes  int64
	IngressBps    int64
	EgressBps     int64

	threads  map[*Thread]struct{}
	outgoing map[*Transmission]struct{}
	incoming map[*Transmission]struct{}
}

// NewReplica creates a Replica that has not yet been placed on a Host.
func NewReplica(id, microservice string, cpuRequestMil, cpuLimitMil, ramBytes, storageBytes, ingressBps, egressBps int64) *Replica {
	return &Replica{
		ID:            id,
		Microservice:  microservice,
		CPURequestMil: cpuRequestMil,
		CPULimitMil:   cpuLimitMil,
		RAMBytes:      ramBytes,
		StorageBytes:  storageBytes,
		IngressBps:    ingressBps,
		EgressBps:     egressBps,
		threads:       make(map[*Thread]struct{}),
		outgoing:      make(map[*Transmission]struct{}),
		incoming:      make(map[*Transmission]struct{}),
	}
}

// QoS classifies this replica's CPU request/limit pair for new threads.
func (r *Replica) QoS() QoSClass { return ClassifyQoS(r.CPURequestMil, r.CPULimitMil) }

// AddThread records t as belonging to this replica, for ActiveThreads'
// per_thread_request division (spec §4.2).
func (r *Replica) AddThread(t *Thread) {
	r.threads[t] = struct{}{}
	t.Replica = r
}

// RemoveThread drops t from this replica's bookkeeping, e.g. once dead
// and reaped.
func (r *Replica) RemoveThread(t *Thread) {
	delete(r.threads, t)
}

// ActiveThreads returns the number of live threads currently attributed
// to this replica.
func (r *Replica) ActiveThreads() int { return len(r.threads) }

// AddOutgoing/AddIncoming/RemoveOutgoing/RemoveIncoming track this
// replica's in-flight transmissions, for the egress/ingress ÷
// active-flow-count bandwidth cap of spec §4.5 step 2.
func (r *Replica) AddOutgoing(tr *Transmission)    { r.outgoing[tr] = struct{}{} }
func (r *Replica) AddIncoming(tr *Transmission)    { r.incoming[tr] = struct{}{} }
func (r *Replica) RemoveOutgoing(tr *Transmission) { delete(r.outgoing, tr) }
func (r *Replica) RemoveIncoming(tr *Transmission) { delete(r.incoming, tr) }

// ActiveOutgoing returns the number of transmissions currently egressing
// from this replica.
func (r *Replica) ActiveOutgoing() int { return len(r.outgoing) }

// ActiveIncoming returns the number of transmissions currently ingressing
// into this replica.
func (r *Replica) ActiveIncoming() int { return len(r.incoming) }

// Place reserves this replica's RAM/storage/NIC requests against host h
// and records the ownership link. Returns ResourceUnavailableError if any
// dimension can't accommodate the request.
func (r *Replica) Place(h *Host) error {
	if err := h.Resources.RAM.Reserve(r.RAMBytes); err != nil {
		return err
	}
	if err := h.Resources.Storage.Reserve(r.StorageBytes); err != nil {
		h.Resources.RAM.Release(r.RAMBytes)
		return err
	}
	if err := h.Resources.Ingress.Reserve(r.IngressBps); err != nil {
		h.Resources.RAM.Release(r.RAMBytes)
		h.Resources.Storage.Release(r.StorageBytes)
		return err
	}
	if err := h.Resources.Egress.Reserve(r.EgressBps); err != nil {
		h.Resources.RAM.Release(r.RAMBytes)
		h.Resources.Storage.Release(r.StorageBytes)
		h.Resources.Ingress.Release(r.IngressBps)
		return err
	}
	if r.CPURequestMil > 0 {
		h.Resources.BandwidthRequestsTotal += r.IngressBps + r.EgressBps
	}
	r.Host = h
	h.Replicas = append(h.Replicas, r)
	return nil
}
