package strategies

import (
	"fmt"
	"strings"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/modules/allocation"
	"github.com/aristath/papertrader/pkg/formulas"
)

// DualMomentumConfig holds the Dual-Momentum parameters
type DualMomentumConfig struct {
	TopN         int
	MinHistory   int
	ShortMA      int
	LongMA       int
	Momentum1M   int
	Momentum3M   int
	RSIPeriod    int
	VolWindow    int
	WeightM1     float64
	WeightM3     float64
	WeightRSI    float64
	FallbackVol  float64
	RiskFreeRate float64
}

// DefaultDualMomentumConfig returns the stock parameters
func DefaultDualMomentumConfig() DualMomentumConfig {
	return DualMomentumConfig{
		TopN:         4,
		MinHistory:   5,
		ShortMA:      5,
		LongMA:       20,
		Momentum1M:   20,
		Momentum3M:   60,
		RSIPeriod:    14,
		VolWindow:    20,
		WeightM1:     0.5,
		WeightM3:     0.3,
		WeightRSI:    0.2,
		FallbackVol:  allocation.DefaultFallbackVolatility,
		RiskFreeRate: formulas.DefaultRiskFreeRate,
	}
}

// DualMomentumConfigFromParams applies overrides to the defaults
func DualMomentumConfigFromParams(p Params) DualMomentumConfig {
	cfg := DefaultDualMomentumConfig()
	cfg.TopN = p.Int("top_n", cfg.TopN)
	cfg.MinHistory = p.Int("min_history", cfg.MinHistory)
	cfg.ShortMA = p.Int("ma_short", cfg.ShortMA)
	cfg.LongMA = p.Int("ma_long", cfg.LongMA)
	cfg.Momentum1M = p.Int("momentum_1m_days", cfg.Momentum1M)
	cfg.Momentum3M = p.Int("momentum_3m_days", cfg.Momentum3M)
	cfg.RSIPeriod = p.Int("rsi_period", cfg.RSIPeriod)
	cfg.VolWindow = p.Int("vol_window", cfg.VolWindow)
	cfg.WeightM1 = p.Float("weight_m1", cfg.WeightM1)
	cfg.WeightM3 = p.Float("weight_m3", cfg.WeightM3)
	cfg.WeightRSI = p.Float("weight_rsi", cfg.WeightRSI)
	cfg.FallbackVol = p.Float("fallback_vol", cfg.FallbackVol)
	cfg.RiskFreeRate = p.Float("risk_free_rate", cfg.RiskFreeRate)
	return cfg
}

// DualMomentum ranks by a blend of 1M/3M momentum and RSI behind a
// short-over-long moving average trend gate, then weights by inverse volatility.
type DualMomentum struct {
	cfg DualMomentumConfig
}

// NewDualMomentum creates the model
func NewDualMomentum(cfg DualMomentumConfig) *DualMomentum {
	return &DualMomentum{cfg: cfg}
}

// Model implements Strategy
func (s *DualMomentum) Model() string { return ModelDualMomentum }

// Analyze implements Strategy
func (s *DualMomentum) Analyze(data *domain.MarketData) []domain.Candidate {
	if data == nil {
		return nil
	}

	candidates := make([]domain.Candidate, 0, len(data.Instruments))
	for _, inst := range data.Instruments {
		prices := inst.Bars.Normalized().Closes()
		if len(prices) < s.cfg.MinHistory || len(prices) < 2 {
			continue
		}
		candidates = append(candidates, s.score(inst.Instrument, prices))
	}

	rank(candidates)
	return candidates
}

func (s *DualMomentum) score(inst domain.Instrument, prices []float64) domain.Candidate {
	n := len(prices)
	maShort := formulas.CalculateMovingAverage(prices, s.cfg.ShortMA)
	maLong := formulas.CalculateMovingAverage(prices, s.cfg.LongMA)
	m1 := formulas.CalculateClampedMomentum(prices, s.cfg.Momentum1M)
	m3 := formulas.CalculateClampedMomentum(prices, s.cfg.Momentum3M)
	rsi := formulas.CalculateRSI(prices, s.cfg.RSIPeriod)
	vol := formulas.CalculateAnnualizedVolatility(prices, min(s.cfg.VolWindow, n-1))
	sharpe := formulas.CalculateSharpeRatio(prices, 0, s.cfg.RiskFreeRate)
	mdd := formulas.CalculateMaxDrawdown(prices)

	trendOK := maShort != nil && maLong != nil && *maShort > *maLong

	rsiNorm := 0.0
	if rsi != nil {
		rsiNorm = (*rsi - 50) / 50 * 100
	}
	score := formulas.Or(m1, 0)*s.cfg.WeightM1 + formulas.Or(m3, 0)*s.cfg.WeightM3 + rsiNorm*s.cfg.WeightRSI

	c := domain.Candidate{
		Ticker:  inst.Ticker,
		Name:    inst.Name,
		Price:   int64(prices[n-1]),
		Score:   formulas.Round(score, 2),
		TrendOK: trendOK,
		Indicators: domain.Indicators{
			domain.IndicatorMA5:         maShort,
			domain.IndicatorMA20:        maLong,
			domain.IndicatorMomentum1M:  m1,
			domain.IndicatorMomentum3M:  m3,
			domain.IndicatorRSI:         rsi,
			domain.IndicatorVolatility:  vol,
			domain.IndicatorSharpe:      sharpe,
			domain.IndicatorMaxDrawdown: mdd,
		},
	}
	c.Reason = dualMomentumReason(c)
	return c
}

// Allocate implements Strategy. Only trend-confirmed candidates with a
// positive score are eligible; the best TopN are weighted by inverse volatility.
func (s *DualMomentum) Allocate(candidates []domain.Candidate, cash int64) []domain.Allocation {
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

	weights := allocation.InverseVolatilityWeights(eligible, s.cfg.FallbackVol)
	return allocation.Size(eligible, weights, cash)
}

func dualMomentumReason(c domain.Candidate) string {
	var reasons []string
	if m1 := c.Indicators.Get(domain.IndicatorMomentum1M); m1 != nil && *m1 > 20 {
		reasons = append(reasons, fmt.Sprintf("1M return %+.1f%%: strong short-term momentum", *m1))
	}
	if m3 := c.Indicators.Get(domain.IndicatorMomentum3M); m3 != nil && *m3 > 20 {
		reasons = append(reasons, fmt.Sprintf("3M return %+.1f%%: sustained uptrend", *m3))
	}
	if c.TrendOK {
		ma5 := formulas.Or(c.Indicators.Get(domain.IndicatorMA5), 0)
		ma20 := formulas.Or(c.Indicators.Get(domain.IndicatorMA20), 0)
		reasons = append(reasons, fmt.Sprintf("MA5(%.0f) > MA20(%.0f): golden cross holding", ma5, ma20))
	}
	if rsi := c.Indicators.Get(domain.IndicatorRSI); rsi != nil && *rsi > 60 {
		reasons = append(reasons, fmt.Sprintf("RSI %.0f: strong but not exhausted", *rsi))
	}
	if vol := c.Indicators.Get(domain.IndicatorVolatility); vol != nil && *vol < 30 {
		reasons = append(reasons, fmt.Sprintf("annualized volatility %.1f%%: larger inverse-volatility weight", *vol))
	}
	if sharpe := c.Indicators.Get(domain.IndicatorSharpe); sharpe != nil && *sharpe > 5 {
		reasons = append(reasons, fmt.Sprintf("Sharpe %.2f: strong risk-adjusted return", *sharpe))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, fmt.Sprintf("composite score %.2f meets entry conditions", c.Score))
	}
	return strings.Join(reasons, "\n")
}
