package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArrivalStream_Next_ZeroRate_ReturnsZero(t *testing.T) {
	sc, _ := testAlternativeGraph()
	stream := NewArrivalStream(sc, 0)
	rng := rand.New(rand.NewSource(1))

	assert.Equal(t, float64(0), stream.Next(rng))
}

func TestArrivalStream_Next_PositiveRate_ReturnsPositiveGap(t *testing.T) {
	sc, _ := testAlternativeGraph()
	stream := NewArrivalStream(sc, 1000)
	rng := rand.New(rand.NewSource(1))

	gap := stream.Next(rng)

	assert.Greater(t, gap, float64(0))
}

func TestArrivalStream_NewArrivalRequest_AssignsIncrementingIDs(t *testing.T) {
	sc, _ := testAlternativeGraph()
	stream := NewArrivalStream(sc, 100)

	r1 := stream.NewArrivalRequest(0)
	r2 := stream.NewArrivalRequest(100)

	assert.NotEqual(t, r1.ID, r2.ID)
	assert.Equal(t, float64(100), r2.ArrivalTimeNs)
}
