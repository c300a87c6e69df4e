package strategies

import (
	"fmt"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/modules/allocation"
	"github.com/aristath/papertrader/pkg/formulas"
)

// MACrossConfig holds the moving-average cross parameters
type MACrossConfig struct {
	TopN      int
	ShortMA   int
	LongMA    int
	MaxWeight float64
	VolWindow int
}

// DefaultMACrossConfig returns the stock parameters
func DefaultMACrossConfig() MACrossConfig {
	return MACrossConfig{
		TopN:      3,
		ShortMA:   5,
		LongMA:    20,
		MaxWeight: 0.40,
		VolWindow: 20,
	}
}

// MACrossConfigFromParams applies overrides to the defaults
func MACrossConfigFromParams(p Params) MACrossConfig {
	cfg := DefaultMACrossConfig()
	cfg.TopN = p.Int("top_n", cfg.TopN)
	cfg.ShortMA = p.Int("ma_short", cfg.ShortMA)
	cfg.LongMA = p.Int("ma_long", cfg.LongMA)
	cfg.MaxWeight = p.Float("max_weight", cfg.MaxWeight)
	cfg.VolWindow = p.Int("vol_window", cfg.VolWindow)
	return cfg
}

// MACross buys the instruments whose short moving average leads the long one
// by the widest margin.
type MACross struct {
	cfg MACrossConfig
}

// NewMACross creates the model
func NewMACross(cfg MACrossConfig) *MACross {
	return &MACross{cfg: cfg}
}

// Model implements Strategy
func (s *MACross) Model() string { return ModelMACross }

// Analyze implements Strategy. Score is the short/long gap in percent.
func (s *MACross) Analyze(data *domain.MarketData) []domain.Candidate {
	if data == nil {
		return nil
	}

	candidates := make([]domain.Candidate, 0, len(data.Instruments))
	for _, inst := range data.Instruments {
		prices := inst.Bars.Normalized().Closes()
		maShort := formulas.CalculateMovingAverage(prices, s.cfg.ShortMA)
		maLong := formulas.CalculateMovingAverage(prices, s.cfg.LongMA)
		if maShort == nil || maLong == nil || *maLong == 0 {
			continue
		}

		gap := (*maShort - *maLong) / *maLong * 100
		trendOK := *maShort > *maLong
		reason := fmt.Sprintf("MA%d %.0f vs MA%d %.0f (gap %+.2f%%)", s.cfg.ShortMA, *maShort, s.cfg.LongMA, *maLong, gap)
		if trendOK {
			reason = "golden cross: " + reason
		}

		candidates = append(candidates, domain.Candidate{
			Ticker:  inst.Ticker,
			Name:    inst.Name,
			Price:   int64(prices[len(prices)-1]),
			Score:   formulas.Round(gap, 2),
			TrendOK: trendOK,
			Reason:  reason,
			Indicators: domain.Indicators{
				domain.IndicatorMA5:        maShort,
				domain.IndicatorMA20:       maLong,
				domain.IndicatorMAGap:      &gap,
				domain.IndicatorVolatility: formulas.CalculateAnnualizedVolatility(prices, s.cfg.VolWindow),
			},
		})
	}

	rank(candidates)
	return candidates
}

// Allocate implements Strategy
func (s *MACross) Allocate(candidates []domain.Candidate, cash int64) []domain.Allocation {
	eligible := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.TrendOK && c.Score > 0 {
			eligible = append(eligible, c)
		}
	}
	eligible = top(eligible, s.cfg.TopN)
	if len(eligible) == 0 || cash <= 0 {
		return nil
	}

	weights := allocation.CappedScoreWeights(eligible, s.cfg.MaxWeight)
	return allocation.Size(eligible, weights, cash)
}
