package gorm

import "time"

// ScheduledSync is the due-time queue row of one supplier
type ScheduledSync struct {
	SupplierID int64      `gorm:"column:supplier_id;primaryKey;autoIncrement:false" json:"supplier_id"`
	Schedule   string     `gorm:"column:schedule;type:varchar(255);not null" json:"schedule"`
	NextRunAt  *time.Time `gorm:"column:next_run_at;index" json:"next_run_at"`
	LastRunAt  *time.Time `gorm:"column:last_run_at" json:"last_run_at"`
	LastStatus string     `gorm:"column:last_status;type:varchar(20)" json:"last_status"`
	LastLogID  string     `gorm:"column:last_log_id;type:varchar(36)" json:"last_log_id"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (ScheduledSync) TableName() string {
	return "scheduled_syncs"
}
