package gorm

import (
	"time"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// SyncBatch is the summary of one "sync all" pass, kept separate from supplier logs
type SyncBatch struct {
	ID              string     `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	SyncType        string     `gorm:"column:sync_type;type:varchar(20);not null" json:"sync_type"`
	Status          string     `gorm:"column:status;type:varchar(20);not null" json:"status"`
	SuppliersSynced int        `gorm:"column:suppliers_synced;not null" json:"suppliers_synced"`
	SuppliersFailed int        `gorm:"column:suppliers_failed;not null" json:"suppliers_failed"`
	TotalProcessed  int        `gorm:"column:total_processed;not null" json:"total_processed"`
	TotalUpdated    int        `gorm:"column:total_updated;not null" json:"total_updated"`
	Suppliers       []string   `gorm:"column:suppliers;serializer:json" json:"suppliers"`
	StartedAt       time.Time  `gorm:"column:started_at;not null;index" json:"started_at"`
	CompletedAt     *time.Time `gorm:"column:completed_at" json:"completed_at"`
}

// TableName specifies the table name for GORM
func (SyncBatch) TableName() string {
	return "sync_batches"
}

func (b *SyncBatch) BeforeCreate(tx *gormlib.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}
