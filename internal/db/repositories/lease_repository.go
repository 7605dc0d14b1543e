package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"yoco/stocksync/internal/common"
	"yoco/stocksync/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaseRepo implements common.Locker on the sync_leases table.
// The primary key on lease_key makes acquisition atomic.
type LeaseRepo struct {
	db  *gormlib.DB
	now func() time.Time
}

var _ common.Locker = (*LeaseRepo)(nil)

// NewLeaseRepo creates a new lease repository
func NewLeaseRepo(db *gormlib.DB) *LeaseRepo {
	return &LeaseRepo{db: db, now: time.Now}
}

// WithClock overrides the timestamp source
func (r *LeaseRepo) WithClock(now func() time.Time) *LeaseRepo {
	r.now = now
	return r
}

// Acquire clears an expired lease on key, then inserts a fresh one.
// ON CONFLICT (lease_key) DO NOTHING
func (r *LeaseRepo) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	now := r.now().UTC()
	lease := &gorm.SyncLease{
		Key:        key,
		Holder:     uuid.New().String(),
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	acquired := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gormlib.DB) error {
		if err := tx.Where("lease_key = ? AND expires_at <= ?", key, now).Delete(&gorm.SyncLease{}).Error; err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(lease)
		if res.Error != nil {
			return res.Error
		}
		acquired = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lease %s: %w", key, err)
	}
	if !acquired {
		return "", false, nil
	}
	return lease.Holder, true, nil
}

// Release deletes the lease only while token still holds it
func (r *LeaseRepo) Release(ctx context.Context, key, token string) error {
	err := r.db.WithContext(ctx).
		Where("lease_key = ? AND holder = ?", key, token).
		Delete(&gorm.SyncLease{}).Error
	if err != nil {
		return fmt.Errorf("failed to release lease %s: %w", key, err)
	}
	return nil
}

// Held reports whether key currently has an unexpired lease
func (r *LeaseRepo) Held(ctx context.Context, key string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&gorm.SyncLease{}).
		Where("lease_key = ? AND expires_at > ?", key, r.now().UTC()).
		Count(&count).Error
	return count > 0, err
}
