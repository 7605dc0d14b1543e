package responses

import (
	"time"

	"yoco/stocksync/internal/constants"
)

// SupplierSummary is a supplier config without credentials, plus stock counts
type SupplierSummary struct {
	ID                int64                    `json:"id"`
	Name              string                   `json:"name"`
	Mode              constants.ConnectionMode `json:"mode"`
	Source            string                   `json:"source"`
	Active            bool                     `json:"active"`
	Usable            bool                     `json:"usable"`
	MatchOn           string                   `json:"match_on"`
	UpdateFrequency   int                      `json:"update_frequency"`
	UpdateTimes       []string                 `json:"update_times"`
	NextRunAt         *time.Time               `json:"next_run_at,omitempty"`
	TotalProducts     int64                    `json:"total_products"`
	AvailableProducts int64                    `json:"available_products"`
}

// ScheduleStatus reports the queue row of a supplier
type ScheduleStatus struct {
	SupplierID       int64      `json:"supplier_id"`
	SchedulerEnabled bool       `json:"scheduler_enabled"`
	NextRunAt        *time.Time `json:"next_run_at,omitempty"`
	LastRunAt        *time.Time `json:"last_run_at,omitempty"`
	LastStatus       string     `json:"last_status,omitempty"`
	LastLogID        string     `json:"last_log_id,omitempty"`
}

// Message is a bare acknowledgement
type Message struct {
	Message string `json:"message"`
	BatchID string `json:"batch_id,omitempty"`
}

// ReconcileResult tells whether the stored stock state changed
type ReconcileResult struct {
	EntryID int64 `json:"entry_id"`
	Changed bool  `json:"changed"`
}

// PurgeResult counts removed rows
type PurgeResult struct {
	Deleted int64 `json:"deleted"`
}

// CacheBustResult counts removed cache keys
type CacheBustResult struct {
	Cleared int `json:"cleared"`
}
