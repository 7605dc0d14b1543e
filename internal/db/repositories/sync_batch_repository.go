package repositories

import (
	"context"
	"fmt"

	"yoco/stocksync/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// SyncBatchRepo keeps the bounded history of sync-all passes
type SyncBatchRepo struct {
	db *gormlib.DB
}

// NewSyncBatchRepo creates a new sync batch repository
func NewSyncBatchRepo(db *gormlib.DB) *SyncBatchRepo {
	return &SyncBatchRepo{db: db}
}

// Save inserts or updates a batch summary
func (r *SyncBatchRepo) Save(ctx context.Context, batch *gorm.SyncBatch) error {
	if err := r.db.WithContext(ctx).Save(batch).Error; err != nil {
		return fmt.Errorf("failed to save sync batch: %w", err)
	}
	return nil
}

// List returns the newest batches first
func (r *SyncBatchRepo) List(ctx context.Context, limit int) ([]gorm.SyncBatch, error) {
	var batches []gorm.SyncBatch
	q := r.db.WithContext(ctx).Order("started_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&batches).Error; err != nil {
		return nil, fmt.Errorf("failed to list sync batches: %w", err)
	}
	return batches, nil
}

// Prune keeps only the newest keep batches
func (r *SyncBatchRepo) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	newest := r.db.
		Model(&gorm.SyncBatch{}).
		Select("id").
		Order("started_at DESC, id DESC").
		Limit(keep)

	res := r.db.WithContext(ctx).
		Where("id NOT IN (?)", newest).
		Delete(&gorm.SyncBatch{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune sync batches: %w", res.Error)
	}
	return res.RowsAffected, nil
}
