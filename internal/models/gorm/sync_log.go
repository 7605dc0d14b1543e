package gorm

import (
	"time"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// SyncStatistics is stored alongside each sync log
type SyncStatistics struct {
	Source      string `json:"source,omitempty"`
	FeedRows    int    `json:"feed_rows"`
	SkippedRows int    `json:"skipped_rows"`
	Entries     int    `json:"entries"`
	Matched     int    `json:"matched"`
	NotFound    int    `json:"not_found"`
	DurationMs  int64  `json:"duration_ms"`
	FromCache   bool   `json:"from_cache"`
}

// SyncLog tracks one orchestration run for a supplier
type SyncLog struct {
	ID                string         `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	SupplierID        int64          `gorm:"column:supplier_id;not null;index" json:"supplier_id"`
	SyncType          string         `gorm:"column:sync_type;type:varchar(20);not null" json:"sync_type"`
	Status            string         `gorm:"column:status;type:varchar(20);not null;index" json:"status"`
	ProductsProcessed int            `gorm:"column:products_processed;not null" json:"products_processed"`
	ProductsUpdated   int            `gorm:"column:products_updated;not null" json:"products_updated"`
	ErrorsCount       int            `gorm:"column:errors_count;not null" json:"errors_count"`
	ErrorMessages     []string       `gorm:"column:error_messages;serializer:json" json:"error_messages"`
	Statistics        SyncStatistics `gorm:"column:sync_statistics;serializer:json" json:"sync_statistics"`
	StartedAt         time.Time      `gorm:"column:started_at;not null;index" json:"started_at"`
	CompletedAt       *time.Time     `gorm:"column:completed_at" json:"completed_at"`
}

// TableName specifies the table name for GORM
func (SyncLog) TableName() string {
	return "sync_logs"
}

// BeforeCreate assigns a UUID when none was set
func (l *SyncLog) BeforeCreate(tx *gormlib.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}
