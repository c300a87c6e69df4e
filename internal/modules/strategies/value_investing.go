package strategies

import (
	"fmt"
	"math"
	"strings"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/modules/allocation"
	"github.com/aristath/papertrader/pkg/formulas"
)

// ValueInvestingConfig holds the Value-Investing filters and scoring inputs
type ValueInvestingConfig struct {
	MaxPositions   int
	MaxWeight      float64
	MinHistory     int
	Momentum1M     int
	Momentum3M     int
	RSIPeriod      int
	RiskWindow     int // returns used for volatility and Sharpe
	MinReturn3M    float64
	RSIMin         float64
	RSIMax         float64
	MaxVolatility  float64
	MinSharpe      float64
	StableBonus    float64
	RiskFreeRate   float64
	StableTickers  []string
	StableKeywords []string
}

// DefaultValueInvestingConfig returns the stock parameters
func DefaultValueInvestingConfig() ValueInvestingConfig {
	return ValueInvestingConfig{
		MaxPositions:   3,
		MaxWeight:      0.40,
		MinHistory:     15,
		Momentum1M:     21,
		Momentum3M:     63,
		RSIPeriod:      14,
		RiskWindow:     59,
		MinReturn3M:    10,
		RSIMin:         30,
		RSIMax:         85,
		MaxVolatility:  65,
		MinSharpe:      1.5,
		StableBonus:    1.0,
		RiskFreeRate:   formulas.DefaultRiskFreeRate,
		StableTickers:  []string{"069500", "102110"},
		StableKeywords: []string{"고배당", "배당", "dividend"},
	}
}

// ValueInvestingConfigFromParams applies overrides to the defaults
func ValueInvestingConfigFromParams(p Params) ValueInvestingConfig {
	cfg := DefaultValueInvestingConfig()
	cfg.MaxPositions = p.Int("max_positions", cfg.MaxPositions)
	cfg.MaxWeight = p.Float("max_weight", cfg.MaxWeight)
	cfg.MinHistory = p.Int("min_history", cfg.MinHistory)
	cfg.Momentum1M = p.Int("momentum_1m_days", cfg.Momentum1M)
	cfg.Momentum3M = p.Int("momentum_3m_days", cfg.Momentum3M)
	cfg.RSIPeriod = p.Int("rsi_period", cfg.RSIPeriod)
	cfg.RiskWindow = p.Int("risk_window", cfg.RiskWindow)
	cfg.MinReturn3M = p.Float("min_return_3m", cfg.MinReturn3M)
	cfg.RSIMin = p.Float("rsi_min", cfg.RSIMin)
	cfg.RSIMax = p.Float("rsi_max", cfg.RSIMax)
	cfg.MaxVolatility = p.Float("max_volatility", cfg.MaxVolatility)
	cfg.MinSharpe = p.Float("min_sharpe", cfg.MinSharpe)
	cfg.StableBonus = p.Float("stable_bonus", cfg.StableBonus)
	cfg.RiskFreeRate = p.Float("risk_free_rate", cfg.RiskFreeRate)
	return cfg
}

// ValueInvesting keeps instruments that pass hard return, RSI, volatility and
// Sharpe filters, scores them with bounded sub-scores and sizes them by
// capped score share.
type ValueInvesting struct {
	cfg ValueInvestingConfig
}

// NewValueInvesting creates the model
func NewValueInvesting(cfg ValueInvestingConfig) *ValueInvesting {
	return &ValueInvesting{cfg: cfg}
}

// Model implements Strategy
func (s *ValueInvesting) Model() string { return ModelValueInvesting }

type valueMetrics struct {
	m1, m3, rsi, vol, sharpe float64
	stable                   bool
}

// Analyze implements Strategy
func (s *ValueInvesting) Analyze(data *domain.MarketData) []domain.Candidate {
	if data == nil {
		return nil
	}

	candidates := make([]domain.Candidate, 0, len(data.Instruments))
	for _, inst := range data.Instruments {
		prices := inst.Bars.Normalized().Closes()
		if len(prices) < s.cfg.MinHistory || len(prices) < 2 {
			continue
		}

		m := valueMetrics{
			m1:     formulas.Or(formulas.CalculateClampedMomentum(prices, s.cfg.Momentum1M), 0),
			m3:     formulas.Or(formulas.CalculateClampedMomentum(prices, s.cfg.Momentum3M), 0),
			rsi:    formulas.CalculateRSIOrNeutral(prices, s.cfg.RSIPeriod),
			vol:    formulas.Or(formulas.CalculateAnnualizedVolatility(prices, s.cfg.RiskWindow), 0),
			sharpe: formulas.Or(formulas.CalculateSharpeRatio(prices, s.cfg.RiskWindow, s.cfg.RiskFreeRate), 0),
			stable: s.isStable(inst.Instrument),
		}
		if !s.passes(m) {
			continue
		}

		maShort := formulas.CalculateMovingAverage(prices, 5)
		maLong := formulas.CalculateMovingAverage(prices, 20)
		candidates = append(candidates, domain.Candidate{
			Ticker:  inst.Ticker,
			Name:    inst.Name,
			Price:   int64(prices[len(prices)-1]),
			Score:   s.score(m),
			TrendOK: maShort != nil && maLong != nil && *maShort > *maLong,
			Reason:  s.reason(m),
			Indicators: domain.Indicators{
				domain.IndicatorMomentum1M: &m.m1,
				domain.IndicatorMomentum3M: &m.m3,
				domain.IndicatorRSI:        &m.rsi,
				domain.IndicatorVolatility: &m.vol,
				domain.IndicatorSharpe:     &m.sharpe,
				domain.IndicatorMA5:        maShort,
				domain.IndicatorMA20:       maLong,
			},
		})
	}

	rank(candidates)
	return candidates
}

func (s *ValueInvesting) passes(m valueMetrics) bool {
	switch {
	case m.vol >= s.cfg.MaxVolatility:
		return false
	case m.m3 < s.cfg.MinReturn3M:
		return false
	case m.rsi < s.cfg.RSIMin || m.rsi > s.cfg.RSIMax:
		return false
	case m.sharpe < s.cfg.MinSharpe:
		return false
	}
	return true
}

// score sums bounded sub-scores: 3M return (max 3), RSI near 42.5 (max 2),
// low volatility (max 2), Sharpe above the floor (max 2), 1M return (max 1)
// and the stable-instrument bonus.
func (s *ValueInvesting) score(m valueMetrics) float64 {
	m3Score := math.Min(m.m3/10, 3)
	rsiScore := math.Max(0, 2-math.Abs(m.rsi-42.5)/12.5)
	volScore := math.Max(0, 2-m.vol/15)
	sharpeScore := math.Min(math.Max(0, m.sharpe-s.cfg.MinSharpe), 2)
	m1Score := math.Min(math.Max(0, m.m1/5), 1)

	total := m3Score + rsiScore + volScore + sharpeScore + m1Score
	if m.stable {
		total += s.cfg.StableBonus
	}
	return formulas.Round(total, 2)
}

func (s *ValueInvesting) reason(m valueMetrics) string {
	var parts []string
	if m.m3 >= s.cfg.MinReturn3M {
		parts = append(parts, fmt.Sprintf("3M return %.1f%%", m.m3))
	}
	if m.rsi >= s.cfg.RSIMin && m.rsi <= s.cfg.RSIMax {
		parts = append(parts, fmt.Sprintf("RSI %.1f in value band", m.rsi))
	}
	if m.vol < s.cfg.MaxVolatility {
		parts = append(parts, fmt.Sprintf("volatility %.1f%% stable", m.vol))
	}
	if m.sharpe >= s.cfg.MinSharpe {
		parts = append(parts, fmt.Sprintf("Sharpe %.2f", m.sharpe))
	}
	if m.stable {
		parts = append(parts, "dividend/stable ETF preference")
	}
	if len(parts) == 0 {
		parts = append(parts, "composite filters passed")
	}
	return strings.Join(parts, "; ")
}

func (s *ValueInvesting) isStable(inst domain.Instrument) bool {
	for _, t := range s.cfg.StableTickers {
		if inst.Ticker == t {
			return true
		}
	}
	name := strings.ToLower(inst.Name)
	for _, kw := range s.cfg.StableKeywords {
		if strings.Contains(name, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Allocate implements Strategy. Weights are score shares capped at MaxWeight
// without renormalization.
func (s *ValueInvesting) Allocate(candidates []domain.Candidate, cash int64) []domain.Allocation {
	selected := top(candidates, s.cfg.MaxPositions)
	if len(selected) == 0 || cash <= 0 {
		return nil
	}

	weights := allocation.CappedScoreWeights(selected, s.cfg.MaxWeight)
	allocations := allocation.Size(selected, weights, cash)

	// weight_pct reports what the whole shares actually deploy
	for i := range allocations {
		allocations[i].WeightPct = formulas.Round(float64(allocations[i].Cost())/float64(cash)*100, 2)
	}
	return allocations
}
