package workers

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"yoco/stocksync/internal/config"
	"yoco/stocksync/internal/metrics"
)

type WorkersContainer struct {
	Retention *LogRetentionWorker
	enabled   bool
}

func InitWorkers(
	cfg *config.Config,
	logs LogMaintainer,
	batches BatchPruner,
	metricsReg *metrics.MetricsRegistry,
	logger *zap.SugaredLogger,
) *WorkersContainer {
	retention := NewLogRetentionWorker(logs, batches, RetentionOptions{
		Interval:      cfg.Maintain.Interval,
		RetentionDays: cfg.Maintain.LogRetentionDays,
		StaleAfter:    cfg.Maintain.StaleAfter,
		KeepBatches:   cfg.Scheduler.HistoryLimit,
	}, metricsReg, logger.Named("retention"))

	return &WorkersContainer{
		Retention: retention,
		enabled:   cfg.Maintain.Enabled,
	}
}

// Run blocks until ctx is done
func (w *WorkersContainer) Run(ctx context.Context) {
	if !w.enabled {
		return
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Retention.Start(ctx)
	}()
	wg.Wait()
}
