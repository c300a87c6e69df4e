// Package formulas implements the pure indicator functions used by the
// strategy models. Every series is ordered oldest to newest and every
// indicator that needs more history than it was given returns nil.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization factor for daily series
const TradingDaysPerYear = 252

// DefaultRiskFreeRate is the annual risk-free rate used for Sharpe ratios
const DefaultRiskFreeRate = 0.035

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// PopStdDev calculates the population standard deviation (divisor n)
func PopStdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.PopStdDev(data, nil)
}

// CalculateReturns converts prices to simple returns
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// Tail returns the last n elements of data, or all of it when shorter
func Tail(data []float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	if len(data) <= n {
		return data
	}
	return data[len(data)-n:]
}

// Round rounds v to the given number of decimal places
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// Or dereferences v, falling back when the indicator is unavailable
func Or(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func ptr(v float64) *float64 {
	return &v
}
