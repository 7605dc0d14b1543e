package gorm

import "time"

// SupplierStock is the stock fact of one catalog entry at one supplier
type SupplierStock struct {
	ID            uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ProductID     int64     `gorm:"column:product_id;not null;uniqueIndex:idx_supplier_stock_product_supplier" json:"product_id"`
	SupplierID    int64     `gorm:"column:supplier_id;not null;uniqueIndex:idx_supplier_stock_product_supplier;index" json:"supplier_id"`
	SKU           string    `gorm:"column:sku;type:varchar(100)" json:"sku"`
	EAN           string    `gorm:"column:ean;type:varchar(64)" json:"ean"`
	StockQuantity int       `gorm:"column:stock_quantity;not null" json:"stock_quantity"`
	IsAvailable   bool      `gorm:"column:is_available;not null" json:"is_available"`
	LastUpdated   time.Time `gorm:"column:last_updated;not null;index" json:"last_updated"`
}

// TableName specifies the table name for GORM
func (SupplierStock) TableName() string {
	return "supplier_stock"
}
