package repositories

import (
	"context"
	"time"

	"yoco/stocksync/internal/apperrors"
	"yoco/stocksync/internal/models/dtos"
	"yoco/stocksync/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SupplierStockRepo is the stock store: one fact per (product, supplier)
type SupplierStockRepo struct {
	db  *gormlib.DB
	now func() time.Time
}

// NewSupplierStockRepo creates a new supplier stock repository
func NewSupplierStockRepo(db *gormlib.DB) *SupplierStockRepo {
	return &SupplierStockRepo{db: db, now: time.Now}
}

// WithClock overrides the timestamp source
func (r *SupplierStockRepo) WithClock(now func() time.Time) *SupplierStockRepo {
	r.now = now
	return r
}

// Upsert replaces the fact for (entryID, supplierID). Quantity is clamped to
// zero and availability is always derived from it.
// ON CONFLICT (product_id, supplier_id) DO UPDATE
func (r *SupplierStockRepo) Upsert(ctx context.Context, entryID, supplierID int64, fact dtos.StockFact) error {
	qty := fact.Quantity
	if qty < 0 {
		qty = 0
	}
	row := &gorm.SupplierStock{
		ProductID:     entryID,
		SupplierID:    supplierID,
		SKU:           fact.SKU,
		EAN:           fact.EAN,
		StockQuantity: qty,
		IsAvailable:   qty > 0,
		LastUpdated:   r.now().UTC(),
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "product_id"},
				{Name: "supplier_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"sku", "ean", "stock_quantity", "is_available", "last_updated"}),
		}).
		Create(row).Error
	if err != nil {
		return &apperrors.StoreError{Op: "upsert supplier stock", Err: err}
	}
	return nil
}

// FactsFor returns every supplier fact of an entry, most recently updated first
func (r *SupplierStockRepo) FactsFor(ctx context.Context, entryID int64) ([]gorm.SupplierStock, error) {
	var facts []gorm.SupplierStock

	err := r.db.WithContext(ctx).
		Where("product_id = ?", entryID).
		Order("last_updated DESC, id DESC").
		Find(&facts).Error
	if err != nil {
		return nil, &apperrors.StoreError{Op: "read supplier stock", Err: err}
	}

	return facts, nil
}

// CountBySupplier returns how many facts a supplier has and how many are available
func (r *SupplierStockRepo) CountBySupplier(ctx context.Context, supplierID int64) (total int64, available int64, err error) {
	q := r.db.WithContext(ctx).Model(&gorm.SupplierStock{}).Where("supplier_id = ?", supplierID)
	if err = q.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.WithContext(ctx).
		Model(&gorm.SupplierStock{}).
		Where("supplier_id = ? AND is_available = ?", supplierID, true).
		Count(&available).Error
	return total, available, err
}
