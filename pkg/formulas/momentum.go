package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// CalculateMomentum calculates the percentage change over the last k periods
//
// Formula:
//   Momentum = (P[last] - P[last-k]) / P[last-k] × 100
//
// Returns nil when fewer than k+1 prices exist or the base price is zero.
func CalculateMomentum(prices []float64, k int) *float64 {
	if k < 1 || len(prices) < k+1 {
		return nil
	}
	if prices[len(prices)-k-1] == 0 {
		return nil
	}

	roc := talib.Roc(prices, k)
	last := roc[len(roc)-1]
	if math.IsNaN(last) || math.IsInf(last, 0) {
		return nil
	}
	return &last
}

// CalculateClampedMomentum is CalculateMomentum with the lookback shortened
// to the available history, so any series of two or more prices has a value.
func CalculateClampedMomentum(prices []float64, k int) *float64 {
	if k > len(prices)-1 {
		k = len(prices) - 1
	}
	return CalculateMomentum(prices, k)
}

// CalculateMovingAverage calculates the simple moving average of the last k prices
// Returns nil when fewer than k prices exist
func CalculateMovingAverage(prices []float64, k int) *float64 {
	if k < 1 || len(prices) < k {
		return nil
	}

	sma := talib.Sma(prices, k)
	last := sma[len(sma)-1]
	if math.IsNaN(last) {
		return nil
	}
	return &last
}
