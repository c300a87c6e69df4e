package formulas

// NeutralRSI is the value used by callers that need a number when RSI is unavailable
const NeutralRSI = 50.0

// CalculateRSI calculates the Relative Strength Index from simple averages
//
// RSI Formula:
//   RS  = mean(gains) / mean(|losses|) over the last `period` price deltas
//   RSI = 100 - 100 / (1 + RS)
//
// Losses are averaged over the full period (zero-delta days count as 0).
// When the average loss is exactly zero the result is 100.
//
// Returns nil when fewer than period+1 prices exist.
func CalculateRSI(prices []float64, period int) *float64 {
	if period < 1 || len(prices) < period+1 {
		return nil
	}

	window := prices[len(prices)-period-1:]
	var gains, losses float64
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return ptr(100)
	}

	rs := avgGain / avgLoss
	return ptr(100 - 100/(1+rs))
}

// CalculateRSIOrNeutral returns RSI or NeutralRSI when history is insufficient
func CalculateRSIOrNeutral(prices []float64, period int) float64 {
	return Or(CalculateRSI(prices, period), NeutralRSI)
}
