// Package allocation turns ranked candidates into target weights and
// whole-share quantities.
package allocation

import (
	"math"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/pkg/formulas"
)

// DefaultFallbackVolatility replaces a missing or non-positive volatility
// in inverse-volatility weighting
const DefaultFallbackVolatility = 20.0

// floorTolerance absorbs float error before flooring cash amounts
const floorTolerance = 1e-6

// InverseVolatilityWeights weights each candidate by 1/volatility,
// normalized to sum to 1
func InverseVolatilityWeights(candidates []domain.Candidate, fallbackVol float64) []float64 {
	if len(candidates) == 0 {
		return nil
	}
	if fallbackVol <= 0 {
		fallbackVol = DefaultFallbackVolatility
	}

	inverse := make([]float64, len(candidates))
	total := 0.0
	for i, c := range candidates {
		vol := formulas.Or(c.Indicators.Get(domain.IndicatorVolatility), fallbackVol)
		if vol <= 0 || math.IsNaN(vol) {
			vol = fallbackVol
		}
		inverse[i] = 1 / vol
		total += inverse[i]
	}

	weights := make([]float64, len(candidates))
	for i := range inverse {
		weights[i] = inverse[i] / total
	}
	return weights
}

// CappedScoreWeights weights candidates by score share, each capped at maxWeight.
// Capped excess is left uninvested rather than redistributed, so the weights
// may sum to less than 1. A non-positive score total falls back to equal weights.
func CappedScoreWeights(candidates []domain.Candidate, maxWeight float64) []float64 {
	if len(candidates) == 0 {
		return nil
	}

	total := 0.0
	for _, c := range candidates {
		total += c.Score
	}

	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		w := 1 / float64(len(candidates))
		if total > 0 {
			w = math.Max(c.Score/total, 0)
		}
		weights[i] = math.Min(w, maxWeight)
	}
	return weights
}

// Size converts weights into whole-share allocations against cash.
// A candidate whose price is not positive, or whose allocated cash cannot buy
// one share, gets zero shares. The running total never exceeds cash.
func Size(candidates []domain.Candidate, weights []float64, cash int64) []domain.Allocation {
	allocations := make([]domain.Allocation, 0, len(candidates))
	remaining := cash
	if remaining < 0 {
		remaining = 0
	}

	for i, c := range candidates {
		w := 0.0
		if i < len(weights) {
			w = weights[i]
		}

		allocCash := int64(math.Floor(float64(cash)*w + floorTolerance))
		if allocCash < 0 {
			allocCash = 0
		}

		var shares int64
		if c.Price > 0 && allocCash >= c.Price {
			shares = allocCash / c.Price
			if shares*c.Price > remaining {
				shares = remaining / c.Price
			}
		}
		remaining -= shares * c.Price

		allocations = append(allocations, domain.Allocation{
			Candidate: c,
			Weight:    w,
			WeightPct: formulas.Round(w*100, 2),
			AllocCash: allocCash,
			Shares:    shares,
		})
	}

	return allocations
}

// TotalCost sums the cash needed by the allocations
func TotalCost(allocations []domain.Allocation) int64 {
	var total int64
	for _, a := range allocations {
		total += a.Cost()
	}
	return total
}
