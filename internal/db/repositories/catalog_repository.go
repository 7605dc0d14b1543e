package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"yoco/stocksync/internal/apperrors"
	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/models/entities"
)

// CatalogRepository adapts the commerce catalog tables to the catalog store.
// Stock state writes go straight to the rows; no catalog side events fire.
type CatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetEntry returns one entry, or nil when it does not exist
func (r *CatalogRepository) GetEntry(ctx context.Context, id int64) (*entities.CatalogEntry, error) {
	var entry entities.CatalogEntry
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(constants.GetCatalogEntry), id).StructScan(&entry)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, &apperrors.StoreError{Op: "get catalog entry", Err: err}
	}
	return &entry, nil
}

// GetEntriesForSupplier returns the entries tagged with supplierID in id order.
// Parents are returned as tagged; the orchestrator expands them.
func (r *CatalogRepository) GetEntriesForSupplier(ctx context.Context, supplierID int64) ([]entities.CatalogEntry, error) {
	var entries []entities.CatalogEntry
	if err := r.db.SelectContext(ctx, &entries, r.db.Rebind(constants.ListSupplierEntries), supplierID); err != nil {
		return nil, &apperrors.StoreError{Op: "list supplier entries", Err: err}
	}
	return entries, nil
}

// GetChildren returns the variations of a parent in id order
func (r *CatalogRepository) GetChildren(ctx context.Context, parentID int64) ([]entities.CatalogEntry, error) {
	var entries []entities.CatalogEntry
	if err := r.db.SelectContext(ctx, &entries, r.db.Rebind(constants.ListChildEntries), parentID); err != nil {
		return nil, &apperrors.StoreError{Op: "list child entries", Err: err}
	}
	return entries, nil
}

// GetSuppliersForEntry returns the supplier tags of an entry. Variations
// without their own tags inherit the parent's.
func (r *CatalogRepository) GetSuppliersForEntry(ctx context.Context, id int64) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(constants.ListEntrySuppliers), id); err != nil {
		return nil, &apperrors.StoreError{Op: "list entry suppliers", Err: err}
	}
	if len(ids) > 0 {
		return ids, nil
	}

	entry, err := r.GetEntry(ctx, id)
	if err != nil || entry == nil || entry.ParentID == 0 {
		return ids, err
	}
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(constants.ListEntrySuppliers), entry.ParentID); err != nil {
		return nil, &apperrors.StoreError{Op: "list parent suppliers", Err: err}
	}
	return ids, nil
}

// SetSyncEnabled flips the sync flag of an entry
func (r *CatalogRepository) SetSyncEnabled(ctx context.Context, id int64, enabled bool) error {
	return r.exec(ctx, "set sync enabled", constants.UpdateSyncEnabled, enabled, id)
}

// SetStockState writes backorders, stock status and delivery text in one statement
func (r *CatalogRepository) SetStockState(ctx context.Context, id int64, state entities.StockState) error {
	return r.exec(ctx, "set stock state", constants.UpdateStockState, state.Backorders, state.StockStatus, state.DeliveryText, id)
}

// GetOwnStock returns the entry's own managed stock
func (r *CatalogRepository) GetOwnStock(ctx context.Context, id int64) (entities.OwnStock, error) {
	var row struct {
		ManageStock   bool          `db:"manage_stock"`
		StockQuantity sql.NullInt64 `db:"stock_quantity"`
	}
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(constants.GetOwnStock), id).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.OwnStock{}, apperrors.ErrEntryNotFound
		}
		return entities.OwnStock{}, &apperrors.StoreError{Op: "get own stock", Err: err}
	}

	own := entities.OwnStock{Managed: row.ManageStock}
	if row.StockQuantity.Valid {
		q := row.StockQuantity.Int64
		own.Quantity = &q
	}
	return own, nil
}

// CaptureDefaultDelivery stores text as the default delivery text unless one
// was captured before. It reports whether a value was written.
func (r *CatalogRepository) CaptureDefaultDelivery(ctx context.Context, id int64, text string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(constants.CaptureDefaultDelivery), text, id)
	if err != nil {
		return false, &apperrors.StoreError{Op: "capture default delivery", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &apperrors.StoreError{Op: "capture default delivery", Err: err}
	}
	return n > 0, nil
}

func (r *CatalogRepository) exec(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return &apperrors.StoreError{Op: op, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &apperrors.StoreError{Op: op, Err: err}
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, apperrors.ErrEntryNotFound)
	}
	return nil
}
