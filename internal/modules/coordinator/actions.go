package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownAction is returned by RunAction for names outside Actions()
var ErrUnknownAction = errors.New("unknown action")

// Manual and scheduled actions
const (
	ActionRun      = "run"
	ActionAnalyze  = "analyze"
	ActionBuy      = "buy"
	ActionStopLoss = "stoploss"
	ActionReport   = "report"
)

// Actions lists every action name accepted by RunAction
func Actions() []string {
	return []string{ActionRun, ActionAnalyze, ActionBuy, ActionStopLoss, ActionReport}
}

// RunAction executes one named phase. Calls are serialized so a manual
// trigger never overlaps a scheduled one.
func (c *Coordinator) RunAction(ctx context.Context, action string) (interface{}, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	started := time.Now()
	result, err := c.runAction(ctx, action)
	c.deps.Metrics.ObserveAction(action, started, err)
	if err != nil {
		c.log.Error().Err(err).Str("action", action).Msg("Action failed")
	}
	return result, err
}

func (c *Coordinator) runAction(ctx context.Context, action string) (interface{}, error) {
	switch action {
	case ActionRun:
		if err := c.RunCycle(ctx); err != nil {
			return nil, err
		}
		return c.LoadSummary()
	case ActionAnalyze:
		return c.Analyze(ctx)
	case ActionBuy:
		return c.ExecuteBuys(ctx)
	case ActionStopLoss:
		return c.RunStopLoss(ctx), nil
	case ActionReport:
		summary, _, err := c.Report(ctx)
		return summary, err
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}
