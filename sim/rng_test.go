package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionedRNG_SameSubsystem_ReturnsCachedInstance(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(42))

	a := rng.ForSubsystem(SubsystemArrivals)
	b := rng.ForSubsystem(SubsystemArrivals)

	assert.Same(t, a, b)
}

func TestPartitionedRNG_DifferentSubsystems_DrawIndependentSequences(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(42))

	arrivals := rng.ForSubsystem(SubsystemArrivals)
	placement := rng.ForSubsystem(SubsystemPlacement)

	assert.NotEqual(t, arrivals.Int63(), placement.Int63())
}

func TestPartitionedRNG_SameSeedSameSubsystem_Reproducible(t *testing.T) {
	a := NewPartitionedRNG(NewSimulationKey(7)).ForSubsystem(SubsystemRouting)
	b := NewPartitionedRNG(NewSimulationKey(7)).ForSubsystem(SubsystemRouting)

	assert.Equal(t, a.Int63(), b.Int63())
}
