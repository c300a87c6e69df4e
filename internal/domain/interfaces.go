package domain

import (
	"context"
	"time"
)

// MarketDataGateway supplies prices and daily history. Implementations pace
// their own calls and return ErrDataUnavailable for missing data.
type MarketDataGateway interface {
	GetCurrentPrice(ctx context.Context, ticker string) (int64, error)
	GetDailyBars(ctx context.Context, ticker string, days int) (PriceSeries, error)
}

// AlertField is one labelled value of an alert
type AlertField struct {
	Key   string
	Value string
}

// AlertSink receives human-readable notifications. Delivery is best-effort:
// implementations log failures and never report them to the caller.
type AlertSink interface {
	Notify(ctx context.Context, event string, title string, fields ...AlertField)
}

// CommitSink durably records ledger files after a state change. Failures are
// logged by the implementation and never undo the ledger change.
type CommitSink interface {
	Commit(ctx context.Context, message string, files []string)
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

// Now calls f
func (f ClockFunc) Now() time.Time { return f() }

// NopAlertSink discards alerts
type NopAlertSink struct{}

// Notify does nothing
func (NopAlertSink) Notify(context.Context, string, string, ...AlertField) {}

// NopCommitSink discards commits
type NopCommitSink struct{}

// Commit does nothing
func (NopCommitSink) Commit(context.Context, string, []string) {}
