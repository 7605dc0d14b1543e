package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"yoco/stocksync/internal/metrics"
)

// LogMaintainer is the slice of the sync log store the worker needs
type LogMaintainer interface {
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
	CountStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

type BatchPruner interface {
	Prune(ctx context.Context, keep int) (int64, error)
}

type RetentionOptions struct {
	Interval      time.Duration
	RetentionDays int // 0 keeps logs forever
	StaleAfter    time.Duration
	KeepBatches   int
}

// LogRetentionWorker purges old sync logs and reports runs that look abandoned.
// Abandoned runs are only reported; `yococtl logs reap` fails them.
type LogRetentionWorker struct {
	logs    LogMaintainer
	batches BatchPruner
	opts    RetentionOptions
	metrics *metrics.MetricsRegistry
	logger  *zap.SugaredLogger
}

func NewLogRetentionWorker(
	logs LogMaintainer,
	batches BatchPruner,
	opts RetentionOptions,
	metricsReg *metrics.MetricsRegistry,
	logger *zap.SugaredLogger,
) *LogRetentionWorker {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	return &LogRetentionWorker{
		logs:    logs,
		batches: batches,
		opts:    opts,
		metrics: metricsReg,
		logger:  logger,
	}
}

// Start runs one pass immediately and then every Interval until ctx is done
func (w *LogRetentionWorker) Start(ctx context.Context) {
	w.logger.Infow("Starting log retention",
		"interval", w.opts.Interval,
		"retention_days", w.opts.RetentionDays,
		"stale_after", w.opts.StaleAfter,
	)

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Infow("Log retention shutting down")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single maintenance pass
func (w *LogRetentionWorker) RunOnce(ctx context.Context) {
	if w.opts.RetentionDays > 0 {
		purged, err := w.logs.PurgeOlderThan(ctx, w.opts.RetentionDays)
		if err != nil {
			w.logger.Errorw("Error purging sync logs", "error", err)
		} else if purged > 0 {
			w.metrics.LogsPurgedTotal.Add(float64(purged))
			w.logger.Infow("Purged sync logs", "count", purged, "retention_days", w.opts.RetentionDays)
		}
	}

	if w.opts.KeepBatches > 0 {
		if pruned, err := w.batches.Prune(ctx, w.opts.KeepBatches); err != nil {
			w.logger.Errorw("Error pruning sync batches", "error", err)
		} else if pruned > 0 {
			w.logger.Debugw("Pruned sync batches", "count", pruned)
		}
	}

	if w.opts.StaleAfter > 0 {
		stale, err := w.logs.CountStale(ctx, w.opts.StaleAfter)
		if err != nil {
			w.logger.Errorw("Error counting stale runs", "error", err)
			return
		}
		w.metrics.StaleRuns.Set(float64(stale))
		if stale > 0 {
			w.logger.Warnw("Sync runs still marked running", "count", stale, "older_than", w.opts.StaleAfter)
		}
	}
}
