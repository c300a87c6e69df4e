package scheduler

import (
	"context"
	"time"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/events"
	"github.com/rs/zerolog"
)

// maxActionsPerTick bounds the catch-up chain (analyze then buy, plus a
// sweep) a single tick may run.
const maxActionsPerTick = 4

// Executor runs a named coordinator action
type Executor interface {
	RunAction(ctx context.Context, action string) (interface{}, error)
}

// TradingDayJob polls the machine and runs whatever action is due
type TradingDayJob struct {
	machine      *Machine
	executor     Executor
	eventManager *events.Manager
	clock        domain.Clock
	timeout      time.Duration
	log          zerolog.Logger
}

// NewTradingDayJob creates the polling job
func NewTradingDayJob(
	machine *Machine,
	executor Executor,
	eventManager *events.Manager,
	clock domain.Clock,
	log zerolog.Logger,
) *TradingDayJob {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &TradingDayJob{
		machine:      machine,
		executor:     executor,
		eventManager: eventManager,
		clock:        clock,
		timeout:      30 * time.Minute,
		log:          log.With().Str("job", "trading_day").Logger(),
	}
}

// Name returns the job name
func (j *TradingDayJob) Name() string {
	return "trading_day"
}

// Run executes every action due at the current instant
func (j *TradingDayJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	return j.Tick(ctx)
}

// Tick advances the machine once. The first failing action ends the tick
// and is retried after the schedule's retry delay.
func (j *TradingDayJob) Tick(ctx context.Context) error {
	now := j.clock.Now()
	if prev, changed := j.machine.Observe(now); changed {
		next := j.machine.PhaseAt(now)
		j.log.Info().
			Str("from", string(prev)).
			Str("to", string(next)).
			Msg("Trading phase changed")
		j.eventManager.Emit("scheduler", &events.PhaseChangedData{From: string(prev), To: string(next)})
	}

	for i := 0; i < maxActionsPerTick; i++ {
		action, ok := j.machine.Next(now)
		if !ok {
			return nil
		}

		j.log.Info().Str("action", action).Msg("Running scheduled action")
		if _, err := j.executor.RunAction(ctx, action); err != nil {
			j.machine.Fail(action, now)
			j.eventManager.EmitError("scheduler", err)
			return err
		}
		j.machine.Complete(action, now)
	}
	return nil
}
