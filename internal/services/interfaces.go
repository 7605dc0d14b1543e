package services

import (
	"context"

	"yoco/stocksync/internal/models/dtos"
	"yoco/stocksync/internal/models/entities"
	"yoco/stocksync/internal/models/gorm"
)

// CatalogStore is the commerce catalog as seen by the sync engine
type CatalogStore interface {
	GetEntry(ctx context.Context, id int64) (*entities.CatalogEntry, error)
	GetEntriesForSupplier(ctx context.Context, supplierID int64) ([]entities.CatalogEntry, error)
	GetChildren(ctx context.Context, parentID int64) ([]entities.CatalogEntry, error)
	GetSuppliersForEntry(ctx context.Context, id int64) ([]int64, error)
	SetSyncEnabled(ctx context.Context, id int64, enabled bool) error
	SetStockState(ctx context.Context, id int64, state entities.StockState) error
	GetOwnStock(ctx context.Context, id int64) (entities.OwnStock, error)
	CaptureDefaultDelivery(ctx context.Context, id int64, text string) (bool, error)
}

// StockStore keeps one supplier stock fact per (entry, supplier)
type StockStore interface {
	Upsert(ctx context.Context, entryID, supplierID int64, fact dtos.StockFact) error
	FactsFor(ctx context.Context, entryID int64) ([]gorm.SupplierStock, error)
}

// SupplierConfigStore reads supplier feed settings
type SupplierConfigStore interface {
	GetFeedConfig(ctx context.Context, supplierID int64) (*gorm.SupplierFeedConfig, error)
	ListSuppliers(ctx context.Context) ([]int64, error)
	ListConfigs(ctx context.Context) ([]gorm.SupplierFeedConfig, error)
}
