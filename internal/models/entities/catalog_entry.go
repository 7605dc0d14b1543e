package entities

import (
	"database/sql"

	"yoco/stocksync/internal/constants"
)

// CatalogEntry is a product or variation row of the commerce catalog
type CatalogEntry struct {
	ID                  int64                   `db:"id" json:"id"`
	ParentID            int64                   `db:"parent_id" json:"parent_id,omitempty"` // 0 when top level
	Kind                constants.EntryKind     `db:"kind" json:"kind"`
	Name                string                  `db:"name" json:"name"`
	SKU                 string                  `db:"sku" json:"sku"`
	EAN                 string                  `db:"ean" json:"ean"`
	SyncEnabled         bool                    `db:"sync_enabled" json:"sync_enabled"`
	ManageStock         bool                    `db:"manage_stock" json:"manage_stock"`
	StockQuantity       sql.NullInt64           `db:"stock_quantity" json:"-"` // nullable
	Backorders          constants.BackorderMode `db:"backorders" json:"backorders"`
	StockStatus         constants.StockStatus   `db:"stock_status" json:"stock_status"`
	DeliveryText        string                  `db:"delivery_text" json:"delivery_text"`
	DefaultDeliveryText string                  `db:"default_delivery_text" json:"default_delivery_text"` // captured once
}

// IsVariation reports whether the entry belongs to a parent grouping
func (e *CatalogEntry) IsVariation() bool {
	return e.ParentID != 0 || e.Kind == constants.EntryVariation
}

// OwnStock is the entry's own inventory as seen by the decision engine
type OwnStock struct {
	Managed  bool
	Quantity *int64 // nil when unset
}

// Sellable reports whether own stock alone makes the entry sellable
func (s OwnStock) Sellable() bool {
	if !s.Managed {
		return true
	}
	return s.Quantity != nil && *s.Quantity > 0
}

// StockState is the triple the decision engine writes back
type StockState struct {
	Backorders   constants.BackorderMode `json:"backorders"`
	StockStatus  constants.StockStatus   `json:"stock_status"`
	DeliveryText string                  `json:"delivery_text"`
}

// State returns the entry's current stock state
func (e *CatalogEntry) State() StockState {
	return StockState{
		Backorders:   e.Backorders,
		StockStatus:  e.StockStatus,
		DeliveryText: e.DeliveryText,
	}
}
