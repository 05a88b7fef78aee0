// Package scoring computes per-run reference statistics and the explainable
// researchability score for canonical market records. Everything here is
// pure: no I/O, no clocks beyond the caller-supplied now.
package scoring

import (
	"math"
	"sort"

	"github.com/hollis-labs/marketscout/internal/domain"
)

// ComputeRefs derives the percentile reference value for each magnitude
// metric over the working set. Only strictly-positive values participate;
// an empty value set yields a reference of 0, which in turn forces that
// metric's score contribution to 0 — no data means no credit.
//
// The result is always a member of the observed value set (or 0): the
// percentile is taken at index floor(p*(n-1)) of the ascending sort, never
// interpolated.
func ComputeRefs(records []domain.MarketRecord, percentile float64) domain.ReferenceStats {
	var liquidity, volume, openInterest []float64
	for i := range records {
		if v := records[i].Liquidity; v > 0 {
			liquidity = append(liquidity, v)
		}
		if v := records[i].Volume24h; v > 0 {
			volume = append(volume, v)
		}
		if v := records[i].OpenInterest; v > 0 {
			openInterest = append(openInterest, v)
		}
	}

	return domain.ReferenceStats{
		LiquidityRef:    percentileValue(liquidity, percentile),
		Volume24hRef:    percentileValue(volume, percentile),
		OpenInterestRef: percentileValue(openInterest, percentile),
	}
}

func percentileValue(values []float64, percentile float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)

	idx := int(math.Floor(percentile * float64(len(values)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx > len(values)-1 {
		idx = len(values) - 1
	}
	return values[idx]
}
