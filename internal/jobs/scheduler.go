package jobs

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"yoco/stocksync/internal/apperrors"
	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/metrics"
	"yoco/stocksync/internal/models/dtos"
	"yoco/stocksync/internal/models/gorm"
	"yoco/stocksync/internal/services"
)

// SyncRunner is what the scheduler triggers
type SyncRunner interface {
	RunSync(ctx context.Context, supplierID int64, kind constants.TriggerKind) (*dtos.SyncResult, error)
	RunAll(ctx context.Context, kind constants.TriggerKind, opts RunAllOptions) (*dtos.BatchSummary, error)
}

// ScheduleStore is the persistent due-time queue
type ScheduleStore interface {
	Get(ctx context.Context, supplierID int64) (*gorm.ScheduledSync, error)
	Schedule(ctx context.Context, supplierID int64, fingerprint string, next *time.Time) error
	MarkRun(ctx context.Context, supplierID int64, ranAt time.Time, status, logID string, next *time.Time) error
	ListDue(ctx context.Context, now time.Time) ([]gorm.ScheduledSync, error)
	RemoveExcept(ctx context.Context, supplierIDs []int64) error
}

// SchedulerOptions mirrors the scheduler config section
type SchedulerOptions struct {
	Enabled      bool
	TickInterval time.Duration
	Location     *time.Location
	TestMode     bool
	TestInterval time.Duration
}

// Scheduler fires scheduled supplier syncs from the due-time queue
type Scheduler struct {
	runner      SyncRunner
	configs     services.SupplierConfigStore
	queue       ScheduleStore
	opts        SchedulerOptions
	metrics     *metrics.MetricsRegistry
	logger      *zap.SugaredLogger
	now         func() time.Time
	lastTestRun time.Time
}

// NewScheduler creates a new scheduler. metricsReg may be nil.
func NewScheduler(
	runner SyncRunner,
	configs services.SupplierConfigStore,
	queue ScheduleStore,
	opts SchedulerOptions,
	metricsReg *metrics.MetricsRegistry,
	logger *zap.SugaredLogger,
) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Minute
	}
	return &Scheduler{
		runner:  runner,
		configs: configs,
		queue:   queue,
		opts:    opts,
		metrics: metricsReg,
		logger:  logger.Named("Scheduler"),
		now:     time.Now,
	}
}

// NextRunTime returns the first configured time strictly after now.
// frequency 7 runs on Mondays only, anything else daily. Times are "HH:MM"
// in loc; invalid entries are ignored. ok is false when no time is usable.
func NextRunTime(now time.Time, loc *time.Location, frequency int, times []string) (time.Time, bool) {
	type clock struct{ h, m int }
	var clocks []clock
	for _, t := range times {
		h, m, err := parseClock(t)
		if err != nil {
			continue
		}
		clocks = append(clocks, clock{h, m})
	}
	if len(clocks) == 0 {
		return time.Time{}, false
	}
	sort.Slice(clocks, func(i, j int) bool {
		if clocks[i].h != clocks[j].h {
			return clocks[i].h < clocks[j].h
		}
		return clocks[i].m < clocks[j].m
	})

	local := now.In(loc)
	for day := 0; day <= 7; day++ {
		date := local.AddDate(0, 0, day)
		if frequency == constants.FrequencyWeekly && date.Weekday() != time.Monday {
			continue
		}
		for _, c := range clocks {
			candidate := time.Date(date.Year(), date.Month(), date.Day(), c.h, c.m, 0, 0, loc)
			if candidate.After(now) {
				return candidate, true
			}
		}
	}
	return time.Time{}, false
}

func parseClock(s string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, errors.Newf("invalid time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, errors.Newf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, errors.Newf("invalid minute in %q", s)
	}
	return h, m, nil
}

// Refresh brings the queue in line with the supplier configs. Rows are only
// recomputed when the schedule settings changed.
func (s *Scheduler) Refresh(ctx context.Context) error {
	configs, err := s.configs.ListConfigs(ctx)
	if err != nil {
		return err
	}
	now := s.now()

	var keep []int64
	for i := range configs {
		cfg := &configs[i]
		if !cfg.IsActive || !cfg.Usable() || len(cfg.UpdateTimes) == 0 {
			continue
		}
		keep = append(keep, cfg.ID)

		fingerprint := cfg.ScheduleFingerprint()
		row, err := s.queue.Get(ctx, cfg.ID)
		if err != nil {
			return err
		}
		if row != nil && row.Schedule == fingerprint {
			continue
		}
		next := s.next(now, cfg)
		if err := s.queue.Schedule(ctx, cfg.ID, fingerprint, next); err != nil {
			return err
		}
		s.logger.Infow("Supplier scheduled", "supplier_id", cfg.ID, "next_run_at", next)
	}
	return s.queue.RemoveExcept(ctx, keep)
}

// Tick runs everything that is due. It does nothing while the scheduler is
// disabled.
func (s *Scheduler) Tick(ctx context.Context) error {
	if !s.opts.Enabled {
		return nil
	}
	if s.metrics != nil {
		s.metrics.SchedulerTicksTotal.Inc()
	}

	if s.opts.TestMode {
		return s.testTick(ctx)
	}

	if err := s.Refresh(ctx); err != nil {
		return errors.Wrap(err, "refresh schedule")
	}

	due, err := s.queue.ListDue(ctx, s.now())
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.SchedulerDueSuppliers.Set(float64(len(due)))
	}

	for _, row := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.runDue(ctx, row.SupplierID)
	}
	return nil
}

func (s *Scheduler) runDue(ctx context.Context, supplierID int64) {
	ranAt := s.now().UTC()
	status, logID := string(constants.SyncStatusFailed), ""

	res, err := s.runner.RunSync(ctx, supplierID, constants.TriggerScheduled)
	switch {
	case errors.Is(err, apperrors.ErrAlreadyRunning):
		status = string(constants.SyncStatusSkipped)
	case err != nil:
		s.logger.Errorw("Scheduled sync could not start", "supplier_id", supplierID, "error", err)
	default:
		status, logID = string(res.Status), res.LogID
	}

	var next *time.Time
	cfg, err := s.configs.GetFeedConfig(ctx, supplierID)
	if err == nil && cfg != nil {
		next = s.next(s.now(), cfg)
	}
	if err := s.queue.MarkRun(context.WithoutCancel(ctx), supplierID, ranAt, status, logID, next); err != nil {
		s.logger.Errorw("Failed to reschedule supplier", "supplier_id", supplierID, "error", err)
	}
}

func (s *Scheduler) testTick(ctx context.Context) error {
	now := s.now()
	if !s.lastTestRun.IsZero() && now.Sub(s.lastTestRun) < s.opts.TestInterval {
		return nil
	}
	s.lastTestRun = now

	_, err := s.runner.RunAll(ctx, constants.TriggerTest, RunAllOptions{})
	if errors.Is(err, apperrors.ErrAlreadyRunning) {
		s.logger.Infow("Test run skipped, batch already running")
		return nil
	}
	return err
}

func (s *Scheduler) next(now time.Time, cfg *gorm.SupplierFeedConfig) *time.Time {
	t, ok := NextRunTime(now, s.opts.Location, cfg.UpdateFrequency, cfg.UpdateTimes)
	if !ok {
		return nil
	}
	t = t.UTC()
	return &t
}

// NextRun returns when a supplier runs next, computed from its current config
func (s *Scheduler) NextRun(ctx context.Context, supplierID int64) (*time.Time, error) {
	cfg, err := s.configs.GetFeedConfig(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, &apperrors.ConfigError{SupplierID: supplierID, Code: constants.ErrCodeConfigNotFound}
	}
	if !s.opts.Enabled || !cfg.IsActive {
		return nil, nil
	}
	return s.next(s.now(), cfg), nil
}

// RunScheduled ticks until ctx is done
func (s *Scheduler) RunScheduled(ctx context.Context) {
	if !s.opts.Enabled {
		s.logger.Infow("Scheduler disabled")
		return
	}
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	s.logger.Infow("Scheduler started",
		"tick_interval", s.opts.TickInterval,
		"timezone", s.opts.Location.String(),
		"test_mode", s.opts.TestMode,
	)
	if err := s.Tick(ctx); err != nil {
		s.logger.Errorw("Error in initial tick", "error", err)
	}

	for {
		select {
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.logger.Errorw("Error in scheduled tick", "error", err)
			}
		case <-ctx.Done():
			s.logger.Infow("Shutting down scheduler")
			return
		}
	}
}
