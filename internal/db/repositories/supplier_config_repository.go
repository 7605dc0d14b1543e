package repositories

import (
	"context"
	"errors"
	"fmt"

	"yoco/stocksync/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SupplierConfigRepo is the config store for supplier feed settings
type SupplierConfigRepo struct {
	db *gormlib.DB
}

// NewSupplierConfigRepo creates a new supplier config repository
func NewSupplierConfigRepo(db *gormlib.DB) *SupplierConfigRepo {
	return &SupplierConfigRepo{db: db}
}

// GetFeedConfig returns the config of one supplier, or nil when none exists
func (r *SupplierConfigRepo) GetFeedConfig(ctx context.Context, supplierID int64) (*gorm.SupplierFeedConfig, error) {
	var cfg gorm.SupplierFeedConfig

	err := r.db.WithContext(ctx).
		Where("id = ?", supplierID).
		First(&cfg).Error

	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil // No config found
		}
		return nil, fmt.Errorf("failed to get feed config: %w", err)
	}

	return &cfg, nil
}

// ListSuppliers returns every supplier id with a config, in id order
func (r *SupplierConfigRepo) ListSuppliers(ctx context.Context) ([]int64, error) {
	var ids []int64

	err := r.db.WithContext(ctx).
		Model(&gorm.SupplierFeedConfig{}).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}

	return ids, nil
}

// ListConfigs returns all configs in id order
func (r *SupplierConfigRepo) ListConfigs(ctx context.Context) ([]gorm.SupplierFeedConfig, error) {
	var configs []gorm.SupplierFeedConfig

	err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&configs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list feed configs: %w", err)
	}

	return configs, nil
}

// Save inserts or fully replaces a config
// ON CONFLICT (id) DO UPDATE
func (r *SupplierConfigRepo) Save(ctx context.Context, cfg *gorm.SupplierFeedConfig) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(cfg).Error
	if err != nil {
		return fmt.Errorf("failed to save feed config %d: %w", cfg.ID, err)
	}
	return nil
}

// Delete removes a supplier config
func (r *SupplierConfigRepo) Delete(ctx context.Context, supplierID int64) error {
	return r.db.WithContext(ctx).
		Where("id = ?", supplierID).
		Delete(&gorm.SupplierFeedConfig{}).Error
}
