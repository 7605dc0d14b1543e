package jobs

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"yoco/stocksync/internal/apperrors"
	"yoco/stocksync/internal/common"
	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/db/repositories"
	"yoco/stocksync/internal/feed"
	"yoco/stocksync/internal/metrics"
	"yoco/stocksync/internal/models/dtos"
	"yoco/stocksync/internal/models/entities"
	"yoco/stocksync/internal/models/gorm"
	"yoco/stocksync/internal/services"
)

// FeedFetcher is the feed download side of the orchestrator
type FeedFetcher interface {
	Fetch(ctx context.Context, cfg *gorm.SupplierFeedConfig) (*dtos.FeedDocument, error)
	Preview(ctx context.Context, cfg *gorm.SupplierFeedConfig) (*dtos.FeedPreview, error)
	InvalidateAll(ctx context.Context) (int, error)
}

// LogStore records one log per supplier run
type LogStore interface {
	CreateRunning(ctx context.Context, supplierID int64, kind constants.TriggerKind) (string, error)
	Finalize(ctx context.Context, logID string, outcome repositories.LogOutcome) error
	Prune(ctx context.Context, supplierID int64, keep int) (int64, error)
}

// BatchStore keeps sync-all summaries
type BatchStore interface {
	Save(ctx context.Context, batch *gorm.SyncBatch) error
	Prune(ctx context.Context, keep int) (int64, error)
}

// Reconciler is the backorder decision engine
type Reconciler interface {
	Reconcile(ctx context.Context, entryID int64) (bool, error)
	EnableSync(ctx context.Context, entryID int64) error
}

// SyncOptions tunes the orchestrator
type SyncOptions struct {
	LeaseTTL              time.Duration
	PauseBetweenSuppliers time.Duration
	LogHistoryLimit       int
	BatchHistoryLimit     int
}

// SyncJobDeps wires the orchestrator to its stores
type SyncJobDeps struct {
	Configs   services.SupplierConfigStore
	Catalog   services.CatalogStore
	Stock     services.StockStore
	Backorder Reconciler
	Fetcher   FeedFetcher
	Logs      LogStore
	Batches   BatchStore
	Locker    common.Locker
	Events    common.EventPublisher
	Metrics   *metrics.MetricsRegistry
}

// RunAllOptions controls a sync-all batch
type RunAllOptions struct {
	// FreshFeeds clears every cached feed before the first supplier runs
	FreshFeeds bool
}

// SupplierSyncJob runs supplier feed syncs: one supplier, all suppliers,
// a feed preview, or a single product against all of its suppliers.
type SupplierSyncJob struct {
	deps   SyncJobDeps
	opts   SyncOptions
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewSupplierSyncJob creates a new orchestrator
func NewSupplierSyncJob(deps SyncJobDeps, opts SyncOptions, logger *zap.SugaredLogger) *SupplierSyncJob {
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = 10 * time.Minute
	}
	if deps.Events == nil {
		deps.Events = common.NewLogEventPublisher(logger)
	}
	return &SupplierSyncJob{
		deps:   deps,
		opts:   opts,
		logger: logger.Named("SupplierSyncJob"),
		now:    time.Now,
	}
}

// RunSync runs one supplier pass.
//
// A run that fails on config, fetch or parse is still returned as a result
// with status failed and a nil error. The error is only set when the run could
// not start: ErrAlreadyRunning (with a skipped result) or a store failure.
func (j *SupplierSyncJob) RunSync(ctx context.Context, supplierID int64, kind constants.TriggerKind) (*dtos.SyncResult, error) {
	if !kind.Valid() {
		return nil, errors.Newf("unknown trigger kind %q", kind)
	}

	result := &dtos.SyncResult{
		SupplierID: supplierID,
		Trigger:    kind,
		Errors:     []string{},
		StartedAt:  j.now().UTC(),
	}

	key := constants.LeaseKeySupplierPrefix + strconv.FormatInt(supplierID, 10)
	token, ok, err := j.deps.Locker.Acquire(ctx, key, j.opts.LeaseTTL)
	if err != nil {
		return nil, errors.Wrap(err, "acquire supplier lease")
	}
	if !ok {
		j.logger.Infow("Supplier sync already running", "supplier_id", supplierID, "trigger", kind)
		result.Status = constants.SyncStatusSkipped
		result.Error = apperrors.ErrAlreadyRunning.Error()
		result.ErrorCode = constants.ErrCodeAlreadyRunning
		result.CompletedAt = result.StartedAt
		return result, apperrors.ErrAlreadyRunning
	}
	defer j.release(ctx, key, token)

	logID, err := j.deps.Logs.CreateRunning(ctx, supplierID, kind)
	if err != nil {
		return nil, err
	}
	result.LogID = logID

	if j.deps.Metrics != nil {
		j.deps.Metrics.SyncRunsInFlight.Inc()
		defer j.deps.Metrics.SyncRunsInFlight.Dec()
	}

	j.logger.Infow("Supplier sync started", "supplier_id", supplierID, "log_id", logID, "trigger", kind)

	var stats gorm.SyncStatistics
	runErr := j.process(ctx, result, &stats)
	j.finish(ctx, result, stats, runErr)
	return result, nil
}

func (j *SupplierSyncJob) process(ctx context.Context, result *dtos.SyncResult, stats *gorm.SyncStatistics) error {
	cfg, err := j.loadConfig(ctx, result.SupplierID)
	if err != nil {
		return err
	}
	result.SupplierName = cfg.Name
	if !cfg.ColumnsConfigured() {
		return &apperrors.ConfigError{SupplierID: cfg.ID, Code: constants.ErrCodeColumnsNotConfigured}
	}

	entries, err := j.resolveEntries(ctx, cfg.ID)
	if err != nil {
		return err
	}
	stats.Entries = len(entries)
	if len(entries) == 0 {
		j.logger.Infow("No catalog entries to sync", "supplier_id", cfg.ID)
		return nil
	}

	doc, err := j.deps.Fetcher.Fetch(ctx, cfg)
	if err != nil {
		return err
	}
	stats.Source = doc.Source
	stats.FeedRows = doc.Len()
	stats.SkippedRows = doc.Skipped
	stats.FromCache = doc.FromCache

	if missing := feed.MissingColumns(doc, cfg.MatchColumn, cfg.StockColumn); len(missing) > 0 {
		return &apperrors.ParseError{
			Code: constants.ErrCodeColumnMissing,
			Err:  errors.Newf("%s", strings.Join(missing, ", ")),
		}
	}

	for i := range entries {
		if ctx.Err() != nil {
			return errors.WithSecondaryError(apperrors.ErrCancelled, ctx.Err())
		}
		result.Processed++
		j.syncEntry(ctx, cfg, doc, &entries[i], result, stats)
	}
	return nil
}

// syncEntry matches, stores and reconciles one entry. Failures and panics are
// recorded on result and never escape.
func (j *SupplierSyncJob) syncEntry(
	ctx context.Context,
	cfg *gorm.SupplierFeedConfig,
	doc *dtos.FeedDocument,
	entry *entities.CatalogEntry,
	result *dtos.SyncResult,
	stats *gorm.SyncStatistics,
) {
	record := func(err error) {
		result.Errors = append(result.Errors, err.Error())
		j.countEntry("error")
		j.logger.Debugw("Entry failed", "supplier_id", cfg.ID, "entry_id", entry.ID, "error", err)
	}
	defer func() {
		if r := recover(); r != nil {
			record(&apperrors.EntryError{
				EntryID: entry.ID,
				Code:    constants.ErrCodeEntryFailed,
				Err:     errors.Newf("panic: %v", r),
			})
		}
	}()

	id := dtos.Identity{SKU: strings.TrimSpace(entry.SKU), EAN: strings.TrimSpace(entry.EAN)}
	if id.Empty() {
		record(&apperrors.EntryError{EntryID: entry.ID, Code: constants.ErrCodeEntryNoIdentity})
		return
	}

	stock, err := feed.FindStock(doc, id, cfg.MatchColumn, cfg.StockColumn, cfg.MatchField())
	if err != nil {
		record(&apperrors.EntryError{EntryID: entry.ID, Code: constants.ErrCodeEntryFailed, Err: err})
		return
	}

	fact := dtos.StockFact{SKU: id.SKU, EAN: id.EAN, Quantity: stock.Quantity}
	if err := j.deps.Stock.Upsert(ctx, entry.ID, cfg.ID, fact); err != nil {
		record(&apperrors.EntryError{EntryID: entry.ID, Code: constants.ErrCodeStoreFailed, Err: err})
		return
	}
	result.Updated++
	if stock.Found {
		stats.Matched++
		j.countEntry("updated")
	} else {
		stats.NotFound++
		j.countEntry("not_found")
	}

	changed, err := j.deps.Backorder.Reconcile(ctx, entry.ID)
	if err != nil {
		record(&apperrors.EntryError{EntryID: entry.ID, Code: constants.ErrCodeEntryFailed, Err: errors.Wrap(err, "reconcile")})
		return
	}
	if changed && j.deps.Metrics != nil {
		j.deps.Metrics.ReconcileChangesTotal.Inc()
	}
}

// resolveEntries returns the sync enabled entries of a supplier. Enabled
// variable parents are replaced by their variations, which get sync enabled
// to follow the parent.
func (j *SupplierSyncJob) resolveEntries(ctx context.Context, supplierID int64) ([]entities.CatalogEntry, error) {
	tagged, err := j.deps.Catalog.GetEntriesForSupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	var resolved []entities.CatalogEntry
	seen := make(map[int64]struct{}, len(tagged))
	add := func(e entities.CatalogEntry) {
		if _, dup := seen[e.ID]; dup {
			return
		}
		seen[e.ID] = struct{}{}
		resolved = append(resolved, e)
	}

	for _, e := range tagged {
		if !e.SyncEnabled {
			continue
		}
		if e.Kind != constants.EntryVariable {
			add(e)
			continue
		}
		children, err := j.deps.Catalog.GetChildren(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			if !c.SyncEnabled {
				if err := j.deps.Backorder.EnableSync(ctx, c.ID); err != nil {
					j.logger.Warnw("Could not enable sync for variation", "entry_id", c.ID, "parent_id", e.ID, "error", err)
				} else {
					c.SyncEnabled = true
				}
			}
			add(c)
		}
	}
	return resolved, nil
}

func (j *SupplierSyncJob) loadConfig(ctx context.Context, supplierID int64) (*gorm.SupplierFeedConfig, error) {
	cfg, err := j.deps.Configs.GetFeedConfig(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, &apperrors.ConfigError{SupplierID: supplierID, Code: constants.ErrCodeConfigNotFound}
	}
	if !cfg.IsActive {
		return nil, &apperrors.ConfigError{SupplierID: supplierID, Code: constants.ErrCodeConfigNotActive}
	}
	if !cfg.Usable() {
		return nil, &apperrors.ConfigError{SupplierID: supplierID, Code: constants.ErrCodeNoFeedSource}
	}
	return cfg, nil
}

// finish writes the terminal log state even when ctx was cancelled
func (j *SupplierSyncJob) finish(ctx context.Context, result *dtos.SyncResult, stats gorm.SyncStatistics, runErr error) {
	ctx = context.WithoutCancel(ctx)

	result.Status = constants.SyncStatusCompleted
	if runErr != nil {
		result.Status = constants.SyncStatusFailed
		result.Error = runErr.Error()
		result.ErrorCode = apperrors.Code(runErr)
		result.Errors = append(result.Errors, runErr.Error())
	}
	result.CompletedAt = j.now().UTC()
	result.DurationMs = result.CompletedAt.Sub(result.StartedAt).Milliseconds()
	stats.DurationMs = result.DurationMs

	err := j.deps.Logs.Finalize(ctx, result.LogID, repositories.LogOutcome{
		Status:     result.Status,
		Processed:  result.Processed,
		Updated:    result.Updated,
		Errors:     result.Errors,
		Statistics: stats,
	})
	if err != nil {
		j.logger.Errorw("Failed to finalize sync log", "log_id", result.LogID, "error", err)
	}

	if j.opts.LogHistoryLimit > 0 {
		if _, err := j.deps.Logs.Prune(ctx, result.SupplierID, j.opts.LogHistoryLimit); err != nil {
			j.logger.Warnw("Failed to prune sync logs", "supplier_id", result.SupplierID, "error", err)
		}
	}

	if err := j.deps.Events.Publish(ctx, constants.EventSyncCompleted, result); err != nil {
		j.logger.Warnw("Failed to publish event", "event", constants.EventSyncCompleted, "error", err)
	}

	if j.deps.Metrics != nil {
		j.deps.Metrics.SyncRunsTotal.WithLabelValues(string(result.Status), string(result.Trigger)).Inc()
		j.deps.Metrics.SyncRunDuration.WithLabelValues(string(result.Trigger)).Observe(float64(result.DurationMs) / 1000)
	}

	fields := []interface{}{
		"supplier_id", result.SupplierID,
		"log_id", result.LogID,
		"status", result.Status,
		"processed", result.Processed,
		"updated", result.Updated,
		"errors", len(result.Errors),
		"duration_ms", result.DurationMs,
	}
	if runErr != nil {
		j.logger.Warnw("Supplier sync failed", append(fields, "error", runErr)...)
		return
	}
	j.logger.Infow("Supplier sync completed", fields...)
}

// RunAll syncs every active, configured supplier in id order while holding
// the batch lease
func (j *SupplierSyncJob) RunAll(ctx context.Context, kind constants.TriggerKind, opts RunAllOptions) (*dtos.BatchSummary, error) {
	token, ok, err := j.deps.Locker.Acquire(ctx, constants.LeaseKeyBatch, j.opts.LeaseTTL)
	if err != nil {
		return nil, errors.Wrap(err, "acquire batch lease")
	}
	if !ok {
		return nil, apperrors.ErrAlreadyRunning
	}
	defer j.release(ctx, constants.LeaseKeyBatch, token)

	return j.runBatch(ctx, kind, opts), nil
}

// StartAll takes the batch lease and runs the batch in the background. The
// returned channel yields the summary once the batch is done.
func (j *SupplierSyncJob) StartAll(ctx context.Context, kind constants.TriggerKind, opts RunAllOptions) (<-chan *dtos.BatchSummary, error) {
	token, ok, err := j.deps.Locker.Acquire(ctx, constants.LeaseKeyBatch, j.opts.LeaseTTL)
	if err != nil {
		return nil, errors.Wrap(err, "acquire batch lease")
	}
	if !ok {
		return nil, apperrors.ErrAlreadyRunning
	}

	done := make(chan *dtos.BatchSummary, 1)
	bg := context.WithoutCancel(ctx)
	go func() {
		defer close(done)
		defer j.release(bg, constants.LeaseKeyBatch, token)
		done <- j.runBatch(bg, kind, opts)
	}()
	return done, nil
}

func (j *SupplierSyncJob) runBatch(ctx context.Context, kind constants.TriggerKind, opts RunAllOptions) *dtos.BatchSummary {
	start := time.Now()
	summary := &dtos.BatchSummary{
		BatchID:   uuid.NewString(),
		Trigger:   kind,
		Status:    constants.SyncStatusCompleted,
		Results:   []*dtos.SyncResult{},
		StartedAt: j.now().UTC(),
	}
	j.logger.Infow("Sync-all started", "batch_id", summary.BatchID, "trigger", kind)

	if opts.FreshFeeds {
		if _, err := j.deps.Fetcher.InvalidateAll(ctx); err != nil {
			j.logger.Warnw("Failed to clear feed cache", "error", err)
		}
	}

	configs, err := j.deps.Configs.ListConfigs(ctx)
	if err != nil {
		j.logger.Errorw("Failed to list suppliers", "error", err)
		summary.Status = constants.SyncStatusFailed
	}

	var names []string
	first := true
	for i := range configs {
		cfg := &configs[i]
		if !cfg.IsActive || !cfg.Usable() {
			continue
		}
		if !first {
			if err := sleepContext(ctx, j.opts.PauseBetweenSuppliers); err != nil {
				summary.Status = constants.SyncStatusFailed
				break
			}
		}
		first = false

		res, err := j.RunSync(ctx, cfg.ID, kind)
		if err != nil && res == nil {
			res = &dtos.SyncResult{
				SupplierID:   cfg.ID,
				SupplierName: cfg.Name,
				Trigger:      kind,
				Status:       constants.SyncStatusFailed,
				Errors:       []string{err.Error()},
				Error:        err.Error(),
				ErrorCode:    apperrors.Code(err),
			}
		}
		if res.SupplierName == "" {
			res.SupplierName = cfg.Name
		}
		summary.Results = append(summary.Results, res)
		names = append(names, cfg.Name)

		if res.Status == constants.SyncStatusCompleted {
			summary.SuppliersSynced++
		} else {
			summary.SuppliersFailed++
		}
		summary.TotalProcessed += res.Processed
		summary.TotalUpdated += res.Updated
	}
	summary.CompletedAt = j.now().UTC()

	j.saveBatch(ctx, summary, names)
	if j.deps.Metrics != nil {
		j.deps.Metrics.SyncBatchDuration.Observe(time.Since(start).Seconds())
	}
	j.logger.Infow("Sync-all finished",
		"batch_id", summary.BatchID,
		"status", summary.Status,
		"synced", summary.SuppliersSynced,
		"failed", summary.SuppliersFailed,
		"processed", summary.TotalProcessed,
		"updated", summary.TotalUpdated,
	)
	return summary
}

func (j *SupplierSyncJob) saveBatch(ctx context.Context, summary *dtos.BatchSummary, names []string) {
	if j.deps.Batches == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if names == nil {
		names = []string{}
	}
	completed := summary.CompletedAt
	batch := &gorm.SyncBatch{
		ID:              summary.BatchID,
		SyncType:        string(summary.Trigger),
		Status:          string(summary.Status),
		SuppliersSynced: summary.SuppliersSynced,
		SuppliersFailed: summary.SuppliersFailed,
		TotalProcessed:  summary.TotalProcessed,
		TotalUpdated:    summary.TotalUpdated,
		Suppliers:       names,
		StartedAt:       summary.StartedAt,
		CompletedAt:     &completed,
	}
	if err := j.deps.Batches.Save(ctx, batch); err != nil {
		j.logger.Errorw("Failed to save batch summary", "batch_id", summary.BatchID, "error", err)
		return
	}
	if j.opts.BatchHistoryLimit > 0 {
		if _, err := j.deps.Batches.Prune(ctx, j.opts.BatchHistoryLimit); err != nil {
			j.logger.Warnw("Failed to prune batch history", "error", err)
		}
	}
}

// TestFeed fetches and parses a supplier feed without touching any stock
func (j *SupplierSyncJob) TestFeed(ctx context.Context, supplierID int64) (*dtos.FeedPreview, error) {
	cfg, err := j.deps.Configs.GetFeedConfig(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, &apperrors.ConfigError{SupplierID: supplierID, Code: constants.ErrCodeConfigNotFound}
	}
	if !cfg.Usable() {
		return nil, &apperrors.ConfigError{SupplierID: supplierID, Code: constants.ErrCodeNoFeedSource}
	}
	return j.deps.Fetcher.Preview(ctx, cfg)
}

// CheckProduct syncs one entry against every supplier it is tagged with and
// reconciles it once at the end
func (j *SupplierSyncJob) CheckProduct(ctx context.Context, entryID int64) (*dtos.ProductCheck, error) {
	entry, err := j.deps.Catalog.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, errors.Wrapf(apperrors.ErrEntryNotFound, "entry %d", entryID)
	}
	id := dtos.Identity{SKU: strings.TrimSpace(entry.SKU), EAN: strings.TrimSpace(entry.EAN)}
	if id.Empty() {
		return nil, &apperrors.EntryError{EntryID: entryID, Code: constants.ErrCodeEntryNoIdentity}
	}

	supplierIDs, err := j.deps.Catalog.GetSuppliersForEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	check := &dtos.ProductCheck{EntryID: entryID, Results: []dtos.ProductCheckResult{}}
	for _, supplierID := range supplierIDs {
		check.Results = append(check.Results, j.checkSupplier(ctx, supplierID, entryID, id))
	}

	changed, err := j.deps.Backorder.Reconcile(ctx, entryID)
	if err != nil {
		return check, err
	}
	check.Reconciled = changed
	return check, nil
}

func (j *SupplierSyncJob) checkSupplier(ctx context.Context, supplierID, entryID int64, id dtos.Identity) dtos.ProductCheckResult {
	res := dtos.ProductCheckResult{SupplierID: supplierID}

	cfg, err := j.loadConfig(ctx, supplierID)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.SupplierName = cfg.Name
	if !cfg.ColumnsConfigured() {
		res.Error = (&apperrors.ConfigError{SupplierID: supplierID, Code: constants.ErrCodeColumnsNotConfigured}).Error()
		return res
	}

	doc, err := j.deps.Fetcher.Fetch(ctx, cfg)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	stock, err := feed.FindStock(doc, id, cfg.MatchColumn, cfg.StockColumn, cfg.MatchField())
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if err := j.deps.Stock.Upsert(ctx, entryID, supplierID, dtos.StockFact{SKU: id.SKU, EAN: id.EAN, Quantity: stock.Quantity}); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Quantity = stock.Quantity
	res.Available = stock.Available
	return res
}

func (j *SupplierSyncJob) release(ctx context.Context, key, token string) {
	if err := j.deps.Locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
		j.logger.Warnw("Failed to release lease", "key", key, "error", err)
	}
}

func (j *SupplierSyncJob) countEntry(outcome string) {
	if j.deps.Metrics != nil {
		j.deps.Metrics.EntriesProcessedTotal.WithLabelValues(outcome).Inc()
	}
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
