package constants

// Catalog queries use '?' placeholders and are rebound per driver by sqlx.

const catalogEntryColumns = `
	id, parent_id, kind, name, sku, ean, sync_enabled, manage_stock, stock_quantity,
	backorders, stock_status, delivery_text, COALESCE(default_delivery_text, '') AS default_delivery_text`

const (
	GetCatalogEntry = `
	SELECT` + catalogEntryColumns + `
	FROM catalog_entries WHERE id = ?
	`

	ListSupplierEntries = `
	SELECT` + catalogEntryColumns + `
	FROM catalog_entries
	WHERE id IN (SELECT entry_id FROM catalog_entry_suppliers WHERE supplier_id = ?)
	ORDER BY id
	`

	ListChildEntries = `
	SELECT` + catalogEntryColumns + `
	FROM catalog_entries WHERE parent_id = ? ORDER BY id
	`

	ListEntrySuppliers = `
	SELECT supplier_id FROM catalog_entry_suppliers WHERE entry_id = ? ORDER BY supplier_id
	`

	GetOwnStock = `
	SELECT manage_stock, stock_quantity FROM catalog_entries WHERE id = ?
	`

	UpdateSyncEnabled = `
	UPDATE catalog_entries SET sync_enabled = ? WHERE id = ?
	`

	UpdateStockState = `
	UPDATE catalog_entries SET backorders = ?, stock_status = ?, delivery_text = ? WHERE id = ?
	`

	CaptureDefaultDelivery = `
	UPDATE catalog_entries SET default_delivery_text = ?
	WHERE id = ? AND (default_delivery_text IS NULL OR default_delivery_text = '')
	`
)

// CatalogSchema creates the catalog tables for development databases and tests.
// Production catalogs are owned by the commerce backend.
var CatalogSchema = []string{
	`CREATE TABLE IF NOT EXISTS catalog_entries (
		id BIGINT PRIMARY KEY,
		parent_id BIGINT NOT NULL DEFAULT 0,
		kind VARCHAR(20) NOT NULL DEFAULT 'simple',
		name TEXT NOT NULL DEFAULT '',
		sku VARCHAR(100) NOT NULL DEFAULT '',
		ean VARCHAR(64) NOT NULL DEFAULT '',
		sync_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		manage_stock BOOLEAN NOT NULL DEFAULT FALSE,
		stock_quantity INTEGER,
		backorders VARCHAR(10) NOT NULL DEFAULT 'no',
		stock_status VARCHAR(20) NOT NULL DEFAULT 'instock',
		delivery_text TEXT NOT NULL DEFAULT '',
		default_delivery_text TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_catalog_entries_parent ON catalog_entries (parent_id)`,
	`CREATE TABLE IF NOT EXISTS catalog_entry_suppliers (
		entry_id BIGINT NOT NULL,
		supplier_id BIGINT NOT NULL,
		PRIMARY KEY (entry_id, supplier_id)
	)`,
}
