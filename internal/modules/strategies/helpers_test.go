package strategies

import (
	"time"

	"github.com/aristath/papertrader/internal/domain"
)

var baseDay = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// series builds oldest-first daily bars from closes
func series(closes []float64) domain.PriceSeries {
	bars := make(domain.PriceSeries, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{Date: baseDay.AddDate(0, 0, i), Close: c}
	}
	return bars
}

func reversed(s domain.PriceSeries) domain.PriceSeries {
	out := make(domain.PriceSeries, len(s))
	for i := range s {
		out[len(s)-1-i] = s[i]
	}
	return out
}

func instrument(ticker, name string, bars domain.PriceSeries) domain.InstrumentData {
	return domain.InstrumentData{Instrument: domain.Instrument{Ticker: ticker, Name: name}, Bars: bars}
}

// risingWithDips: 100, 102, 104, 103, 108, ... two points a day with a dip every fourth day
func risingWithDips(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 2*float64(i)
		if i%4 == 3 {
			out[i] -= 3
		}
	}
	return out
}

func declining(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 200 - 2*float64(i)
	}
	return out
}

// steadyCompounder repeats +2%, +2%, -1% daily returns
func steadyCompounder(n int) []float64 {
	pattern := []float64{0.02, 0.02, -0.01}
	out := make([]float64, n)
	out[0] = 100
	for i := 1; i < n; i++ {
		out[i] = out[i-1] * (1 + pattern[(i-1)%3])
	}
	return out
}
