package coordinator

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/modules/ledger"
)

// Plan is one strategy's analysis result, persisted between the analysis
// tick and the buy tick.
type Plan struct {
	Generated   time.Time           `json:"generated"`
	StrategyID  string              `json:"strategy_id"`
	Cash        int64               `json:"cash"`
	Candidates  []domain.Candidate  `json:"candidates"`
	Allocations []domain.Allocation `json:"allocations"`
	StopLossPct float64             `json:"stop_loss_pct"`
}

// PlannedCost returns the cash the plan's allocations would spend
func (p *Plan) PlannedCost() int64 {
	var total int64
	for _, a := range p.Allocations {
		total += a.Cost()
	}
	return total
}

// PlanStore persists plans as plan_<strategy>.json
type PlanStore struct {
	dir string
}

// NewPlanStore creates a plan store in dir
func NewPlanStore(dir string) (*PlanStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create plan directory: %w", err)
	}
	return &PlanStore{dir: dir}, nil
}

// Path returns the plan file for a strategy
func (s *PlanStore) Path(strategyID string) string {
	return filepath.Join(s.dir, "plan_"+strategyID+".json")
}

// Save writes the plan atomically
func (s *PlanStore) Save(p *Plan) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	if err := ledger.WriteFileAtomic(s.Path(p.StrategyID), data); err != nil {
		return fmt.Errorf("failed to save plan for %s: %w", p.StrategyID, err)
	}
	return nil
}

// Load reads a strategy's latest plan. A missing plan returns (nil, nil).
func (s *PlanStore) Load(strategyID string) (*Plan, error) {
	data, err := os.ReadFile(s.Path(strategyID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read plan for %s: %w", strategyID, err)
	}

	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode plan for %s: %w", strategyID, err)
	}
	return &p, nil
}
