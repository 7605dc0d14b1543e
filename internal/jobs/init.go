package jobs

import (
	"go.uber.org/zap"

	"yoco/stocksync/internal/config"
)

// InitializeJobs builds the sync orchestrator and the scheduler from config.
// The caller starts the scheduler with RunScheduled.
func InitializeJobs(
	cfg *config.Config,
	deps SyncJobDeps,
	queue ScheduleStore,
	logger *zap.SugaredLogger,
) (*SupplierSyncJob, *Scheduler) {
	syncJob := NewSupplierSyncJob(deps, SyncOptions{
		LeaseTTL:              cfg.Sync.LeaseTTL,
		PauseBetweenSuppliers: cfg.Sync.PauseBetweenSuppliers,
		LogHistoryLimit:       cfg.Sync.LogHistoryLimit,
		BatchHistoryLimit:     cfg.Scheduler.HistoryLimit,
	}, logger)

	scheduler := NewScheduler(syncJob, deps.Configs, queue, SchedulerOptions{
		Enabled:      cfg.Scheduler.Enabled,
		TickInterval: cfg.Scheduler.TickInterval,
		Location:     cfg.Scheduler.Location(),
		TestMode:     cfg.Scheduler.TestMode,
		TestInterval: cfg.Scheduler.TestInterval,
	}, deps.Metrics, logger)

	return syncJob, scheduler
}
