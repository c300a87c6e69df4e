package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/reliability"
	"github.com/aristath/papertrader/internal/scheduler"
)

// Job schedules
const (
	tradingDaySchedule  = "@every 10s"
	maintenanceSchedule = "0 0 2 * * *" // 02:00 daily
)

// RegisterJobs creates the scheduled jobs and registers them with sched
func RegisterJobs(container *Container, sched *scheduler.Scheduler, log zerolog.Logger) (*JobInstances, error) {
	machine := scheduler.NewMachine(scheduler.DefaultSchedule(), container.Config.Location())

	instances := &JobInstances{
		Machine: machine,
		TradingDay: scheduler.NewTradingDayJob(
			machine,
			container.Coordinator,
			container.EventManager,
			container.Clock,
			log,
		),
		Maintenance: reliability.NewDailyMaintenanceJob(
			container.JournalDB,
			container.BackupService,
			container.Config.Backup.RetentionDays,
			log,
		),
	}

	if err := sched.AddJob(tradingDaySchedule, instances.TradingDay); err != nil {
		return nil, err
	}
	if err := sched.AddJob(maintenanceSchedule, instances.Maintenance); err != nil {
		return nil, err
	}

	log.Info().Int("jobs", sched.Entries()).Msg("Jobs registered")
	return instances, nil
}
