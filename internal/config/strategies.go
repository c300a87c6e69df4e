package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/modules/strategies"
	"github.com/aristath/papertrader/pkg/embedded"
)

// StrategyConfig describes one competing strategy
type StrategyConfig struct {
	ID          string            `yaml:"id"`
	Model       string            `yaml:"model"`
	Name        string            `yaml:"name"`
	Seed        int64             `yaml:"seed"`
	StopLossPct float64           `yaml:"stop_loss"`
	Params      strategies.Params `yaml:"params"`
}

// Meta returns the static strategy description
func (s StrategyConfig) Meta() domain.StrategyMeta {
	name := s.Name
	if name == "" {
		name = s.ID
	}
	return domain.StrategyMeta{
		ID:          s.ID,
		Model:       s.Model,
		Name:        name,
		Seed:        s.Seed,
		StopLossPct: s.StopLossPct,
	}
}

// StrategyFile is the watchlist plus the strategies competing over it
type StrategyFile struct {
	Watchlist  []domain.Instrument `yaml:"watchlist"`
	Strategies []StrategyConfig    `yaml:"strategies"`
}

// LoadStrategies reads path, or the embedded default when path is empty
func LoadStrategies(path string) (*StrategyFile, error) {
	data := embedded.DefaultStrategies
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read strategy file: %w", err)
		}
	}
	return ParseStrategies(data)
}

// ParseStrategies decodes and validates a strategy file. Unknown keys are
// rejected.
func ParseStrategies(data []byte) (*StrategyFile, error) {
	var file StrategyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse strategy file: %w", err)
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

// Validate checks ids, models, seeds and stop-loss thresholds
func (f *StrategyFile) Validate() error {
	if len(f.Watchlist) == 0 {
		return fmt.Errorf("watchlist is empty")
	}
	tickers := make(map[string]bool, len(f.Watchlist))
	for _, inst := range f.Watchlist {
		if inst.Ticker == "" {
			return fmt.Errorf("watchlist entry %q has no ticker", inst.Name)
		}
		if tickers[inst.Ticker] {
			return fmt.Errorf("duplicate watchlist ticker %q", inst.Ticker)
		}
		tickers[inst.Ticker] = true
	}

	if len(f.Strategies) == 0 {
		return fmt.Errorf("no strategies configured")
	}
	ids := make(map[string]bool, len(f.Strategies))
	for _, s := range f.Strategies {
		if s.ID == "" {
			return fmt.Errorf("strategy with model %q has no id", s.Model)
		}
		if ids[s.ID] {
			return fmt.Errorf("duplicate strategy id %q", s.ID)
		}
		ids[s.ID] = true
		if _, err := strategies.New(s.Model, s.Params); err != nil {
			return fmt.Errorf("strategy %s: %w", s.ID, err)
		}
		if s.Seed <= 0 {
			return fmt.Errorf("strategy %s: seed must be positive", s.ID)
		}
		if s.StopLossPct >= 0 {
			return fmt.Errorf("strategy %s: stop_loss must be negative", s.ID)
		}
	}
	return nil
}

// Metas returns the strategy descriptions in file order
func (f *StrategyFile) Metas() []domain.StrategyMeta {
	out := make([]domain.StrategyMeta, 0, len(f.Strategies))
	for _, s := range f.Strategies {
		out = append(out, s.Meta())
	}
	return out
}
