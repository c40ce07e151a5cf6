package sim

import (
	"math"
	"math/rand"
	"strconv"
)

// ArrivalStream generates a Poisson arrival process for one service
// chain: exponentially distributed inter-arrival times at a fixed mean
// rate (spec §4.8 REQUEST event, §6 "arrival_rate" scenario field).
type ArrivalStream struct {
	ServiceChain *ServiceChain
	Alternative  *AlternativeGraph
	MeanRateHz   float64 // requests per second
	nextID       int
}

// NewArrivalStream creates an ArrivalStream for sc at the given mean rate.
func NewArrivalStream(sc *ServiceChain, meanRateHz float64) *ArrivalStream {
	return &ArrivalStream{
		ServiceChain: sc,
		Alternative:  BuildAlternativeGraph(sc),
		MeanRateHz:   meanRateHz,
	}
}

// Next draws the next inter-arrival gap in nanoseconds from the
// exponential distribution with rate MeanRateHz, using rng from the
// arrivals RNG subsystem so replaying a scenario with the same seed
// reproduces the identical arrival sequence (spec §8 Determinism law).
func (s *ArrivalStream) Next(rng *rand.Rand) float64 {
	if s.MeanRateHz <= 0 {
		return 0
	}
	// -ln(U)/rate, in seconds, converted to nanoseconds.
	u := rng.Float64()
	for u == 0 {
		u = rng.Float64()
	}
	seconds := -math.Log(u) / s.MeanRateHz
	return seconds * 1e9
}

// NewArrivalRequest creates a fresh Request at the given arrival time,
// rooted at this stream's alternative graph, with a unique, stream-scoped ID.
func (s *ArrivalStream) NewArrivalRequest(arrivalTimeNs float64) *Request {
	s.nextID++
	id := s.ServiceChain.Name + "-" + strconv.Itoa(s.nextID)
	return NewRequest(id, s.ServiceChain, s.Alternative, arrivalTimeNs)
}
