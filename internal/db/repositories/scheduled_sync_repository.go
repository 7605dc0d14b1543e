package repositories

import (
	"context"
	"fmt"
	"time"

	"yoco/stocksync/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScheduledSyncRepo persists the due-time queue of scheduled supplier syncs
type ScheduledSyncRepo struct {
	db *gormlib.DB
}

// NewScheduledSyncRepo creates a new scheduled sync repository
func NewScheduledSyncRepo(db *gormlib.DB) *ScheduledSyncRepo {
	return &ScheduledSyncRepo{db: db}
}

// Get returns the queue row of a supplier, or nil
func (r *ScheduledSyncRepo) Get(ctx context.Context, supplierID int64) (*gorm.ScheduledSync, error) {
	var row gorm.ScheduledSync
	err := r.db.WithContext(ctx).Where("supplier_id = ?", supplierID).First(&row).Error
	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get scheduled sync: %w", err)
	}
	return &row, nil
}

// Schedule sets the next run of a supplier and the schedule it was computed from
// ON CONFLICT (supplier_id) DO UPDATE
func (r *ScheduledSyncRepo) Schedule(ctx context.Context, supplierID int64, fingerprint string, next *time.Time) error {
	row := &gorm.ScheduledSync{
		SupplierID: supplierID,
		Schedule:   fingerprint,
		NextRunAt:  next,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "supplier_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"schedule", "next_run_at", "updated_at"}),
		}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to schedule supplier %d: %w", supplierID, err)
	}
	return nil
}

// MarkRun records a finished run and the next due time
func (r *ScheduledSyncRepo) MarkRun(ctx context.Context, supplierID int64, ranAt time.Time, status, logID string, next *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&gorm.ScheduledSync{}).
		Where("supplier_id = ?", supplierID).
		Select("last_run_at", "last_status", "last_log_id", "next_run_at").
		Updates(&gorm.ScheduledSync{
			LastRunAt:  &ranAt,
			LastStatus: status,
			LastLogID:  logID,
			NextRunAt:  next,
		}).Error
}

// ListDue returns rows whose next run is at or before now, oldest first
func (r *ScheduledSyncRepo) ListDue(ctx context.Context, now time.Time) ([]gorm.ScheduledSync, error) {
	var rows []gorm.ScheduledSync
	err := r.db.WithContext(ctx).
		Where("next_run_at IS NOT NULL AND next_run_at <= ?", now.UTC()).
		Order("next_run_at ASC, supplier_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due syncs: %w", err)
	}
	return rows, nil
}

// RemoveExcept drops rows of suppliers that are no longer scheduled
func (r *ScheduledSyncRepo) RemoveExcept(ctx context.Context, supplierIDs []int64) error {
	q := r.db.WithContext(ctx)
	if len(supplierIDs) == 0 {
		return q.Session(&gormlib.Session{AllowGlobalUpdate: true}).Delete(&gorm.ScheduledSync{}).Error
	}
	return q.Where("supplier_id NOT IN ?", supplierIDs).Delete(&gorm.ScheduledSync{}).Error
}
