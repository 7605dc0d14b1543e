package repositories

import (
	"context"
	"fmt"
	"time"

	"yoco/stocksync/internal/apperrors"
	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// LogOutcome is what a finished run writes onto its log
type LogOutcome struct {
	Status     constants.SyncStatus
	Processed  int
	Updated    int
	Errors     []string
	Statistics gorm.SyncStatistics
}

// SyncLogRepo is the log store for sync runs
type SyncLogRepo struct {
	db  *gormlib.DB
	now func() time.Time
}

// NewSyncLogRepo creates a new sync log repository
func NewSyncLogRepo(db *gormlib.DB) *SyncLogRepo {
	return &SyncLogRepo{db: db, now: time.Now}
}

// WithClock overrides the timestamp source
func (r *SyncLogRepo) WithClock(now func() time.Time) *SyncLogRepo {
	r.now = now
	return r
}

// CreateRunning opens a log in the running state and returns its id
func (r *SyncLogRepo) CreateRunning(ctx context.Context, supplierID int64, kind constants.TriggerKind) (string, error) {
	entry := &gorm.SyncLog{
		SupplierID:    supplierID,
		SyncType:      string(kind),
		Status:        string(constants.SyncStatusRunning),
		ErrorMessages: []string{},
		StartedAt:     r.now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return "", &apperrors.StoreError{Op: "create sync log", Err: err}
	}
	return entry.ID, nil
}

// Finalize moves a running log to a terminal status. Logs that already left
// running are not touched and ErrInvalidTransition is returned.
func (r *SyncLogRepo) Finalize(ctx context.Context, logID string, outcome LogOutcome) error {
	if !outcome.Status.Terminal() {
		return fmt.Errorf("cannot finalize sync log with status %q", outcome.Status)
	}
	errs := outcome.Errors
	if errs == nil {
		errs = []string{}
	}
	completed := r.now().UTC()

	res := r.db.WithContext(ctx).
		Model(&gorm.SyncLog{}).
		Where("id = ? AND status = ?", logID, constants.SyncStatusRunning).
		Select("status", "products_processed", "products_updated", "errors_count", "error_messages", "sync_statistics", "completed_at").
		Updates(&gorm.SyncLog{
			Status:            string(outcome.Status),
			ProductsProcessed: outcome.Processed,
			ProductsUpdated:   outcome.Updated,
			ErrorsCount:       len(errs),
			ErrorMessages:     errs,
			Statistics:        outcome.Statistics,
			CompletedAt:       &completed,
		})
	if res.Error != nil {
		return &apperrors.StoreError{Op: "finalize sync log", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrInvalidTransition
	}
	return nil
}

// Get returns one log, or nil when it does not exist
func (r *SyncLogRepo) Get(ctx context.Context, logID string) (*gorm.SyncLog, error) {
	var entry gorm.SyncLog
	err := r.db.WithContext(ctx).Where("id = ?", logID).First(&entry).Error
	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// List returns the newest logs, optionally for one supplier
func (r *SyncLogRepo) List(ctx context.Context, supplierID *int64, limit int) ([]gorm.SyncLog, error) {
	var logs []gorm.SyncLog

	q := r.db.WithContext(ctx).Order("started_at DESC, id DESC")
	if supplierID != nil {
		q = q.Where("supplier_id = ?", *supplierID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list sync logs: %w", err)
	}
	return logs, nil
}

// PurgeOlderThan deletes logs started more than days ago
func (r *SyncLogRepo) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := r.now().UTC().AddDate(0, 0, -days)
	res := r.db.WithContext(ctx).
		Where("started_at < ?", cutoff).
		Delete(&gorm.SyncLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge sync logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// TruncateAll deletes every log
func (r *SyncLogRepo) TruncateAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Session(&gormlib.Session{AllowGlobalUpdate: true}).
		Delete(&gorm.SyncLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to truncate sync logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Prune keeps the newest keep finished logs of a supplier and deletes the rest
func (r *SyncLogRepo) Prune(ctx context.Context, supplierID int64, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	newest := r.db.WithContext(ctx).
		Model(&gorm.SyncLog{}).
		Select("id").
		Where("supplier_id = ?", supplierID).
		Order("started_at DESC, id DESC").
		Limit(keep)

	res := r.db.WithContext(ctx).
		Where("supplier_id = ? AND status <> ? AND id NOT IN (?)", supplierID, constants.SyncStatusRunning, newest).
		Delete(&gorm.SyncLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune sync logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// CountStale counts runs still running after olderThan
func (r *SyncLogRepo) CountStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&gorm.SyncLog{}).
		Where("status = ? AND started_at < ?", constants.SyncStatusRunning, r.now().UTC().Add(-olderThan)).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count stale sync logs: %w", err)
	}
	return n, nil
}

// ReapStale fails runs that have been running longer than olderThan.
// Only invoked by an operator; a crashed run is otherwise left running.
func (r *SyncLogRepo) ReapStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	now := r.now().UTC()
	res := r.db.WithContext(ctx).
		Model(&gorm.SyncLog{}).
		Where("status = ? AND started_at < ?", constants.SyncStatusRunning, now.Add(-olderThan)).
		Select("status", "errors_count", "error_messages", "completed_at").
		Updates(&gorm.SyncLog{
			Status:        string(constants.SyncStatusFailed),
			ErrorsCount:   1,
			ErrorMessages: []string{"run abandoned: never completed"},
			CompletedAt:   &now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to reap stale sync logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}
