package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/papertrader/internal/config"
	"github.com/aristath/papertrader/internal/scheduler"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:        t.TempDir(),
		Port:           8001,
		Timezone:       config.DefaultTimezone,
		MarketDataDays: 30,
		Backup:         config.BackupConfig{RetentionDays: 30},
	}
}

func TestWire_DefaultStrategies(t *testing.T) {
	cfg := testConfig(t)

	container, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	require.NotNil(t, container.Coordinator)
	assert.Len(t, container.Coordinator.Entries(), 3)
	assert.Nil(t, container.BackupService)

	for _, meta := range container.Strategies.Metas() {
		l, err := container.LedgerService.Get(meta.ID)
		require.NoError(t, err, meta.ID)
		assert.Equal(t, meta.Seed, l.Cash)
		assert.FileExists(t, container.LedgerService.Path(meta.ID))
	}

	assert.FileExists(t, cfg.JournalDBPath())
	require.NoError(t, container.JournalDB.HealthCheck(context.Background()))
}

func TestWire_BadStrategyFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.StrategiesFile = filepath.Join(cfg.DataDir, "strategies.yaml")
	require.NoError(t, os.WriteFile(cfg.StrategiesFile, []byte("strategies: [\n"), 0644))

	_, err := Wire(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestRegisterJobs(t *testing.T) {
	cfg := testConfig(t)
	container, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	sched := scheduler.New(cfg.Location(), zerolog.Nop())
	jobs, err := RegisterJobs(container, sched, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 2, sched.Entries())
	assert.Equal(t, "trading_day", jobs.TradingDay.Name())
	assert.NoError(t, jobs.Maintenance.Run())
}
