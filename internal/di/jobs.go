package di

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/leosinemaxx/jatour-engine/internal/config"
	"github.com/leosinemaxx/jatour-engine/internal/reliability"
	"github.com/leosinemaxx/jatour-engine/internal/scheduler"
)

// backupRetentionDays bounds how long uploaded backups are kept.
const backupRetentionDays = 30

// InitializeJobs registers the background jobs and returns the started-ready
// scheduler. Requires InitializeServices to have run.
func InitializeJobs(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) (*scheduler.Scheduler, error) {
	sched := scheduler.New(log)

	sweep := scheduler.NewCheckSweepJob(container.CheckRegistry, container.Orchestrator, 30*time.Second, log)
	if err := sched.AddJob(fmt.Sprintf("@every %s", cfg.CheckSweepInterval), sweep); err != nil {
		return nil, fmt.Errorf("failed to register check sweep job: %w", err)
	}

	maintenance := reliability.NewDailyMaintenanceJob(container.Databases(), container.ResultCache, cfg.DataDir, log)
	// 03:30 local, outside typical usage hours
	if err := sched.AddJob("0 30 3 * * *", maintenance); err != nil {
		return nil, fmt.Errorf("failed to register maintenance job: %w", err)
	}

	if cfg.Backup.Bucket != "" {
		store, err := reliability.NewObjectStore(ctx, cfg.Backup, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize backup object store: %w", err)
		}
		container.BackupService = reliability.NewBackupService(
			container.Databases(), store, container.EventBus, cfg.DataDir, log)

		backup := reliability.NewBackupJob(container.BackupService, backupRetentionDays, log)
		if err := sched.AddJob("0 0 2 * * *", backup); err != nil {
			return nil, fmt.Errorf("failed to register backup job: %w", err)
		}
	} else {
		log.Info().Msg("Backups disabled, no bucket configured")
	}

	return sched, nil
}
