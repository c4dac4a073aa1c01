package kernel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/wreservoir/pkg/kernel"
	"github.com/calvinalkan/wreservoir/pkg/rng"
)

func TestDirect_AssignsSequentialArrivalTimes(t *testing.T) {
	src := rng.NewSource(1)
	entries := kernel.Direct(10, 3, src)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, uint64(i), e.OriginalIndex)
		assert.Equal(t, uint64(10+i), e.ArrivalTime)
		assert.GreaterOrEqual(t, e.UKey, 0.0)
		assert.Less(t, e.UKey, 1.0)
	}
}

func TestSelect_ReturnsExactlyCapacityEntries(t *testing.T) {
	src := rng.NewSource(2)
	chosenTimes := []uint64{0, 1, 2}
	chosenU := []float64{0.1, 0.2, 0.3}
	var refL uint64
	ws, _ := kernel.Select(chosenTimes, chosenU, 3, 4, 3, 5, 1.0, &refL, src, nil)
	assert.Len(t, ws, 4)
}

func TestSelect_SurvivorsCarryArrivalTimeBelowGrandTotal(t *testing.T) {
	src := rng.NewSource(3)
	chosenTimes := []uint64{0, 1, 2, 3}
	chosenU := []float64{0.1, 0.2, 0.3, 0.4}
	var refL uint64
	const grandTotal = 4
	ws, _ := kernel.Select(chosenTimes, chosenU, 4, 4, grandTotal, 2, 1.0, &refL, src, nil)
	require.Len(t, ws, 4)
	seenOld, seenNew := 0, 0
	for _, e := range ws {
		if e.ArrivalTime < grandTotal {
			seenOld++
			assert.Equal(t, chosenTimes[e.OriginalIndex], e.ArrivalTime)
		} else {
			seenNew++
			assert.Equal(t, grandTotal+e.OriginalIndex, e.ArrivalTime)
		}
	}
	assert.Equal(t, 4, seenOld+seenNew)
}

// Holding every retained item's u fixed and letting only the new
// arrivals' u vary, a higher alpha must select a larger share of new
// arrivals than a lower alpha, averaged over many trials: the power-law
// exponent is supposed to amplify recency, not dilute it.
func TestSelect_HighAlphaFavorsRecentArrivals(t *testing.T) {
	const size = 30
	const capacity = 30
	const nProvided = 30
	const grandTotal = uint64(size)

	baseTimes := make([]uint64, size)
	baseU := make([]float64, size)
	for i := range baseTimes {
		baseTimes[i] = uint64(i)
		baseU[i] = 0.5
	}

	fracNew := func(alpha float64, seed uint64) float64 {
		times := append([]uint64(nil), baseTimes...)
		us := append([]float64(nil), baseU...)
		var refL uint64
		ws, _ := kernel.Select(times, us, size, capacity, grandTotal, nProvided, alpha, &refL, rng.NewSource(seed), nil)
		newCount := 0
		for _, e := range ws {
			if e.ArrivalTime >= grandTotal {
				newCount++
			}
		}
		return float64(newCount) / float64(len(ws))
	}

	const trials = 40
	var lowSum, highSum float64
	for seed := uint64(1); seed <= trials; seed++ {
		lowSum += fracNew(0.05, seed)
		highSum += fracNew(20.0, seed+1000)
	}

	assert.Greater(t, highSum/trials, lowSum/trials,
		"high alpha should retain a larger share of new arrivals than low alpha")
}

func TestSelect_RefLUpdatedToMinOfChosenTimes(t *testing.T) {
	src := rng.NewSource(5)
	chosenTimes := []uint64{5, 2, 9}
	chosenU := []float64{0.1, 0.2, 0.3}
	refL := uint64(100)
	_, _ = kernel.Select(chosenTimes, chosenU, 3, 4, 9, 2, 1.0, &refL, src, nil)
	assert.Equal(t, uint64(2), refL)
}
