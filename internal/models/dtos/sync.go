package dtos

import (
	"time"

	"yoco/stocksync/internal/constants"
)

// SyncResult is returned by one supplier run
type SyncResult struct {
	LogID        string                `json:"log_id,omitempty"`
	SupplierID   int64                 `json:"supplier_id"`
	SupplierName string                `json:"supplier_name,omitempty"`
	Trigger      constants.TriggerKind `json:"trigger"`
	Status       constants.SyncStatus  `json:"status"`
	Processed    int                   `json:"processed"`
	Updated      int                   `json:"updated"`
	Errors       []string              `json:"errors"`
	Error        string                `json:"error,omitempty"` // run level cause
	ErrorCode    string                `json:"error_code,omitempty"`
	StartedAt    time.Time             `json:"started_at"`
	CompletedAt  time.Time             `json:"completed_at"`
	DurationMs   int64                 `json:"duration_ms"`
}

// Failed reports whether the run ended in failure or was skipped
func (r *SyncResult) Failed() bool {
	return r.Status != constants.SyncStatusCompleted
}

// BatchSummary aggregates a sync-all pass
type BatchSummary struct {
	BatchID         string                `json:"batch_id"`
	Trigger         constants.TriggerKind `json:"trigger"`
	Status          constants.SyncStatus  `json:"status"`
	SuppliersSynced int                   `json:"suppliers_synced"`
	SuppliersFailed int                   `json:"suppliers_failed"`
	TotalProcessed  int                   `json:"total_processed"`
	TotalUpdated    int                   `json:"total_updated"`
	Results         []*SyncResult         `json:"results"`
	StartedAt       time.Time             `json:"started_at"`
	CompletedAt     time.Time             `json:"completed_at"`
}

// ProductCheckResult is one supplier's answer for a single product check
type ProductCheckResult struct {
	SupplierID   int64  `json:"supplier_id"`
	SupplierName string `json:"supplier_name"`
	Quantity     int    `json:"quantity"`
	Available    bool   `json:"available"`
	Error        string `json:"error,omitempty"`
}

// ProductCheck is the outcome of syncing one product against all its suppliers
type ProductCheck struct {
	EntryID    int64                `json:"entry_id"`
	Results    []ProductCheckResult `json:"results"`
	Reconciled bool                 `json:"reconciled"`
}
