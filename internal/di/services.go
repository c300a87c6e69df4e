package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/clients/kis"
	"github.com/aristath/papertrader/internal/config"
	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/events"
	"github.com/aristath/papertrader/internal/metrics"
	"github.com/aristath/papertrader/internal/modules/coordinator"
	"github.com/aristath/papertrader/internal/modules/journal"
	"github.com/aristath/papertrader/internal/modules/ledger"
	"github.com/aristath/papertrader/internal/modules/marketdata"
	"github.com/aristath/papertrader/internal/modules/stoploss"
	"github.com/aristath/papertrader/internal/modules/strategies"
	"github.com/aristath/papertrader/internal/notify"
	"github.com/aristath/papertrader/internal/reliability"
)

// InitializeServices builds clients and services on top of the databases.
// Services are created in dependency order: cross-cutting sinks, then the
// gateway, then ledgers and market data, then the coordinator.
func InitializeServices(ctx context.Context, container *Container, file *config.StrategyFile, log zerolog.Logger) error {
	cfg := container.Config
	container.Strategies = file

	// ==========================================
	// STEP 1: Cross-cutting sinks
	// ==========================================

	if container.Clock == nil {
		container.Clock = domain.SystemClock{}
	}
	container.EventManager = events.NewManager(log)
	container.Metrics = metrics.NewRegistry()

	var senders []notify.Sender
	if cfg.Telegram.Enabled() {
		senders = append(senders, notify.NewTelegramSender("", cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	} else {
		log.Info().Msg("Telegram not configured, alerts are logged only")
	}
	container.Alerts = notify.NewNotifier(senders, cfg.Telegram.Events, log)

	container.Commit = domain.NopCommitSink{}
	s3cfg := reliability.S3Config{
		Endpoint:  cfg.Backup.Endpoint,
		Region:    cfg.Backup.Region,
		Bucket:    cfg.Backup.Bucket,
		AccessKey: cfg.Backup.AccessKey,
		SecretKey: cfg.Backup.SecretKey,
	}
	if s3cfg.Enabled() {
		store, err := reliability.NewS3Client(ctx, s3cfg, log)
		if err != nil {
			return fmt.Errorf("failed to create backup store: %w", err)
		}
		container.BackupService = reliability.NewLedgerBackupService(store, cfg.Backup.Prefix, log)
		container.Commit = container.BackupService
	} else {
		log.Info().Msg("Backup storage not configured, ledger commits are local only")
	}

	// ==========================================
	// STEP 2: Market data gateway
	// ==========================================

	if !cfg.KIS.Enabled() {
		log.Warn().Msg("KIS credentials missing, market data requests will fail")
	}
	container.Gateway = kis.NewClient(kis.Config{
		BaseURL:     cfg.KIS.BaseURL,
		AppKey:      cfg.KIS.AppKey,
		AppSecret:   cfg.KIS.AppSecret,
		MinInterval: cfg.KIS.MinInterval,
	}, container.Metrics, log)

	// ==========================================
	// STEP 3: Ledgers and journal
	// ==========================================

	store, err := ledger.NewFileStore(cfg.DataDir, log)
	if err != nil {
		return fmt.Errorf("failed to create ledger store: %w", err)
	}
	container.LedgerService = ledger.NewService(store, container.Clock, log)
	container.LedgerService.SetCommitSink(container.Commit)

	container.Journal = journal.New(
		journal.NewRepository(container.JournalDB.Conn(), log),
		journal.NewMarkdownWriter(cfg.JournalMarkdownPath()),
		container.Clock,
		log,
	)
	container.LedgerService.AddListener(container.Journal)
	container.LedgerService.AddListener(eventListener{events: container.EventManager})
	container.LedgerService.AddListener(metricsListener{metrics: container.Metrics})

	// ==========================================
	// STEP 4: Market data and stop-loss
	// ==========================================

	container.MarketDataService = marketdata.NewService(
		container.Gateway,
		marketdata.NewSnapshotCache(cfg.MarketDataCachePath()),
		file.Watchlist,
		cfg.MarketDataDays,
		container.Clock,
		container.EventManager,
		log,
	)
	container.StopLossMonitor = stoploss.NewMonitor(container.LedgerService, container.Gateway, container.Alerts, log)

	// ==========================================
	// STEP 5: Coordinator
	// ==========================================

	entries := make([]coordinator.Entry, 0, len(file.Strategies))
	for _, sc := range file.Strategies {
		model, err := strategies.New(sc.Model, sc.Params)
		if err != nil {
			return fmt.Errorf("strategy %s: %w", sc.ID, err)
		}
		entries = append(entries, coordinator.Entry{Meta: sc.Meta(), Strategy: model})
	}

	plans, err := coordinator.NewPlanStore(cfg.PlansDir())
	if err != nil {
		return err
	}

	container.Coordinator = coordinator.New(entries, coordinator.Deps{
		Ledgers:     container.LedgerService,
		MarketData:  container.MarketDataService,
		Prices:      container.Gateway,
		StopLoss:    container.StopLossMonitor,
		Plans:       plans,
		SummaryPath: cfg.SummaryPath(),
		Alerts:      container.Alerts,
		Commit:      container.Commit,
		Journal:     container.Journal,
		Events:      container.EventManager,
		Metrics:     container.Metrics,
		Clock:       container.Clock,
	}, log)

	log.Info().Int("strategies", len(entries)).Int("watchlist", len(file.Watchlist)).Msg("Services initialized")

	return nil
}
