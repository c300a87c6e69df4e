// Package strategies holds the strategy models. Each model scores a shared
// market data snapshot into ranked candidates and sizes its own allocations.
package strategies

import (
	"fmt"
	"sort"

	"github.com/aristath/papertrader/internal/domain"
)

// Strategy is the contract every model satisfies. Implementations are pure:
// the same snapshot and cash always produce the same output.
type Strategy interface {
	// Model returns the registry key of the model
	Model() string
	// Analyze scores every instrument with enough history, best first
	Analyze(data *domain.MarketData) []domain.Candidate
	// Allocate selects eligible candidates and sizes them against cash
	Allocate(candidates []domain.Candidate, cash int64) []domain.Allocation
}

// Params overrides a model's numeric defaults by key
type Params map[string]float64

// Float returns the parameter or the fallback
func (p Params) Float(key string, fallback float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return fallback
}

// Int returns the parameter truncated to int, or the fallback
func (p Params) Int(key string, fallback int) int {
	if v, ok := p[key]; ok {
		return int(v)
	}
	return fallback
}

// Factory builds a model from its parameters
type Factory func(params Params) Strategy

// Model names
const (
	ModelDualMomentum   = "dual_momentum"
	ModelValueInvesting = "value_investing"
	ModelMACross        = "ma_cross"
)

var registry = map[string]Factory{
	ModelDualMomentum:   func(p Params) Strategy { return NewDualMomentum(DualMomentumConfigFromParams(p)) },
	ModelValueInvesting: func(p Params) Strategy { return NewValueInvesting(ValueInvestingConfigFromParams(p)) },
	ModelMACross:        func(p Params) Strategy { return NewMACross(MACrossConfigFromParams(p)) },
}

// New resolves a model by name
func New(model string, params Params) (Strategy, error) {
	factory, ok := registry[model]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, model)
	}
	return factory(params), nil
}

// Models lists the registered model names in sorted order
func Models() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// rank orders candidates by score, highest first, keeping input order on ties
func rank(candidates []domain.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
}

// top returns at most n leading candidates
func top(candidates []domain.Candidate, n int) []domain.Candidate {
	if n >= 0 && len(candidates) > n {
		return candidates[:n]
	}
	return candidates
}
