package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hollis-labs/marketscout/internal/domain"
)

func TestComputeRefs(t *testing.T) {
	records := make([]domain.MarketRecord, 0, 10)
	for i := 1; i <= 10; i++ {
		records = append(records, domain.MarketRecord{
			Liquidity: float64(i * 10),
			Volume24h: float64(i * 100),
		})
	}

	refs := ComputeRefs(records, 0.90)
	// floor(0.9 * 9) = 8, ninth element of the ascending sort.
	assert.Equal(t, 90.0, refs.LiquidityRef)
	assert.Equal(t, 900.0, refs.Volume24hRef)
	// No record carried open interest.
	assert.Zero(t, refs.OpenInterestRef)
}

func TestComputeRefsIgnoresNonPositive(t *testing.T) {
	records := []domain.MarketRecord{
		{Liquidity: 0},
		{Liquidity: -5},
		{Liquidity: 40},
		{Liquidity: 10},
	}

	refs := ComputeRefs(records, 0.5)
	// Only {10, 40} participate; floor(0.5 * 1) = 0 picks the smaller.
	assert.Equal(t, 10.0, refs.LiquidityRef)
}

func TestComputeRefsEmpty(t *testing.T) {
	refs := ComputeRefs(nil, 0.90)
	assert.Zero(t, refs.LiquidityRef)
	assert.Zero(t, refs.Volume24hRef)
	assert.Zero(t, refs.OpenInterestRef)
}

func TestPercentileValueIsObservedMember(t *testing.T) {
	values := []float64{3, 1, 2}
	for _, p := range []float64{0.01, 0.5, 0.99, 1.0} {
		got := percentileValue(append([]float64(nil), values...), p)
		assert.Contains(t, values, got, "p=%g", p)
	}
	assert.Equal(t, 3.0, percentileValue([]float64{3, 1, 2}, 1.0))
	assert.Equal(t, 1.0, percentileValue([]float64{3, 1, 2}, 0.0))
	assert.Equal(t, 7.0, percentileValue([]float64{7}, 0.9))
}
