package formulas

import "math"

// CalculateAnnualizedVolatility calculates annualized volatility in percent
//
// Formula:
//   Vol = PopStdDev(daily returns over the last `window` returns) × sqrt(252) × 100
//
// Uses fewer returns when the series is shorter than the window.
// Returns nil when fewer than two returns are available.
func CalculateAnnualizedVolatility(prices []float64, window int) *float64 {
	returns := Tail(CalculateReturns(prices), window)
	if len(returns) < 2 {
		return nil
	}

	return ptr(PopStdDev(returns) * math.Sqrt(TradingDaysPerYear) * 100)
}
