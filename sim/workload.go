package sim

// WorkloadProfile parameterizes the threads spawned for one microservice
// endpoint function: how much work they do and what they cost in cache
// misses (spec §3, §6 scenario schema).
type WorkloadProfile struct {
	Instructions         float64
	CPI                  float64
	MemAccesses          int64
	CacheRefs            int64
	CacheMisses          int64
	AvgMissPenaltyCycles float64
	CPURequestMil        int64
	CPULimitMil          int64
}
