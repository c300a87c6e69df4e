package formulas

// CalculateMaxDrawdown calculates the largest peak-to-trough decline in percent
//
// Drawdown Formula:
//   Drawdown = (Peak - Price) / Peak × 100, with Peak the running maximum
//
// Returns nil for an empty series. A single price has zero drawdown.
func CalculateMaxDrawdown(prices []float64) *float64 {
	if len(prices) == 0 {
		return nil
	}

	maxDrawdown := 0.0
	peak := prices[0]
	for _, price := range prices {
		if price > peak {
			peak = price
		}
		if peak > 0 {
			if dd := (peak - price) / peak * 100; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}

	return &maxDrawdown
}
