// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/aristath/papertrader/internal/clients/kis"
	"github.com/aristath/papertrader/internal/config"
	"github.com/aristath/papertrader/internal/database"
	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/events"
	"github.com/aristath/papertrader/internal/metrics"
	"github.com/aristath/papertrader/internal/modules/coordinator"
	"github.com/aristath/papertrader/internal/modules/journal"
	"github.com/aristath/papertrader/internal/modules/ledger"
	"github.com/aristath/papertrader/internal/modules/marketdata"
	"github.com/aristath/papertrader/internal/modules/stoploss"
	"github.com/aristath/papertrader/internal/reliability"
	"github.com/aristath/papertrader/internal/scheduler"
)

// Container holds all dependencies for the application.
// It is created by Wire() and passed to the server and CLI commands.
type Container struct {
	Config     *config.Config
	Strategies *config.StrategyFile

	// Databases
	JournalDB *database.DB // Append-only trade and daily journal

	// Clients
	Gateway *kis.Client

	// Cross-cutting
	EventManager *events.Manager
	Metrics      *metrics.Registry
	Alerts       domain.AlertSink
	Commit       domain.CommitSink
	Clock        domain.Clock

	// Services
	LedgerService     *ledger.Service
	MarketDataService *marketdata.Service
	StopLossMonitor   *stoploss.Monitor
	Journal           *journal.Journal
	Coordinator       *coordinator.Coordinator
	BackupService     *reliability.LedgerBackupService // nil when backups are not configured
}

// Close releases resources held by the container
func (c *Container) Close() error {
	if c == nil || c.JournalDB == nil {
		return nil
	}
	return c.JournalDB.Close()
}

// JobInstances holds the scheduled jobs
type JobInstances struct {
	Machine     *scheduler.Machine
	TradingDay  *scheduler.TradingDayJob
	Maintenance *reliability.DailyMaintenanceJob
}
