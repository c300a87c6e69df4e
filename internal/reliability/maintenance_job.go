package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/database"
)

// DefaultRetentionDays is how long ledger backups are kept
const DefaultRetentionDays = 30

// DailyMaintenanceJob checks the journal database and rotates old backups
type DailyMaintenanceJob struct {
	db            *database.DB
	backups       *LedgerBackupService
	retentionDays int
	log           zerolog.Logger
}

// NewDailyMaintenanceJob creates the job. Either dependency may be nil.
func NewDailyMaintenanceJob(db *database.DB, backups *LedgerBackupService, retentionDays int, log zerolog.Logger) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		db:            db,
		backups:       backups,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Name returns the job name
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

// Run executes the maintenance steps
func (j *DailyMaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	j.log.Info().Msg("Starting daily maintenance")
	started := time.Now()

	if j.db != nil {
		if err := j.db.HealthCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", j.db.Name()).Msg("Database health check failed")
			return fmt.Errorf("health check %s: %w", j.db.Name(), err)
		}
		if _, err := j.db.Conn().ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			j.log.Warn().Err(err).Str("database", j.db.Name()).Msg("WAL checkpoint failed")
		}
	}

	if j.backups != nil {
		if _, err := j.backups.RotateOldBackups(ctx, j.retentionDays); err != nil {
			j.log.Warn().Err(err).Msg("Backup rotation failed")
		}
	}

	j.log.Info().Dur("duration_ms", time.Since(started)).Msg("Daily maintenance completed")
	return nil
}
