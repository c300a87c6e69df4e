package formulas

import "math"

// CalculateSharpeRatio calculates the annualized Sharpe ratio from prices
//
// Sharpe Ratio Formula:
//
//	excess[i] = return[i] - riskFreeRate / 252
//	Sharpe    = (mean(excess) × 252) / (PopStdDev(excess) × sqrt(252))
//
// Args:
//
//	prices: daily closes, oldest first
//	window: number of most recent returns to use (<= 0 means all)
//	riskFreeRate: annual risk-free rate as a decimal
//
// Returns:
//
//	0 when the excess returns have zero deviation, nil when fewer than
//	two returns are available
func CalculateSharpeRatio(prices []float64, window int, riskFreeRate float64) *float64 {
	returns := CalculateReturns(prices)
	if window > 0 {
		returns = Tail(returns, window)
	}
	if len(returns) < 2 {
		return nil
	}

	daily := riskFreeRate / TradingDaysPerYear
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - daily
	}

	std := PopStdDev(excess)
	if std == 0 {
		return ptr(0)
	}

	return ptr(Mean(excess) * TradingDaysPerYear / (std * math.Sqrt(TradingDaysPerYear)))
}
