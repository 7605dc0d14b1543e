package gorm

import "time"

// SyncLease is a TTL bounded mutex record
type SyncLease struct {
	Key        string    `gorm:"column:lease_key;primaryKey;type:varchar(100)"`
	Holder     string    `gorm:"column:holder;type:varchar(36);not null"`
	AcquiredAt time.Time `gorm:"column:acquired_at;not null"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null;index"`
}

// TableName specifies the table name for GORM
func (SyncLease) TableName() string {
	return "sync_leases"
}
