// Package testutil provides in-memory databases for tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"yoco/stocksync/internal/constants"
	models "yoco/stocksync/internal/models/gorm"
)

func memoryDSN() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
}

// CreateTestORM creates a migrated in-memory SQLite database for gorm repositories.
// Automatically registers cleanup via t.Cleanup().
func CreateTestORM(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(memoryDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// CreateTestCatalog creates an in-memory SQLite catalog with the catalog schema
func CreateTestCatalog(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite3", memoryDSN())
	if err != nil {
		t.Fatalf("Failed to create test catalog: %v", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range constants.CatalogSchema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to create catalog schema: %v", err)
		}
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// CatalogRow describes a catalog entry to seed
type CatalogRow struct {
	ID           int64
	ParentID     int64
	Kind         constants.EntryKind
	SKU          string
	EAN          string
	SyncEnabled  bool
	ManageStock  bool
	Quantity     *int64
	StockStatus  constants.StockStatus
	Backorders   constants.BackorderMode
	DeliveryText string
	Suppliers    []int64
}

// SeedCatalog inserts rows and their supplier tags
func SeedCatalog(t *testing.T, db *sqlx.DB, rows ...CatalogRow) {
	t.Helper()
	ctx := context.Background()

	for _, r := range rows {
		kind := r.Kind
		if kind == "" {
			kind = constants.EntrySimple
		}
		status := r.StockStatus
		if status == "" {
			status = constants.StockInStock
		}
		backorders := r.Backorders
		if backorders == "" {
			backorders = constants.BackordersNo
		}
		_, err := db.ExecContext(ctx, db.Rebind(`
			INSERT INTO catalog_entries
				(id, parent_id, kind, name, sku, ean, sync_enabled, manage_stock, stock_quantity, backorders, stock_status, delivery_text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			r.ID, r.ParentID, kind, fmt.Sprintf("Product %d", r.ID), r.SKU, r.EAN, r.SyncEnabled, r.ManageStock,
			r.Quantity, backorders, status, r.DeliveryText)
		if err != nil {
			t.Fatalf("Failed to seed catalog entry %d: %v", r.ID, err)
		}
		for _, supplierID := range r.Suppliers {
			if _, err := db.ExecContext(ctx, db.Rebind(`INSERT INTO catalog_entry_suppliers (entry_id, supplier_id) VALUES (?, ?)`), r.ID, supplierID); err != nil {
				t.Fatalf("Failed to tag entry %d: %v", r.ID, err)
			}
		}
	}
}

// Int64 returns a pointer to v
func Int64(v int64) *int64 {
	return &v
}
