package constants

// TriggerKind identifies what started a sync run
type TriggerKind string

const (
	TriggerManual    TriggerKind = "manual"
	TriggerScheduled TriggerKind = "scheduled"
	TriggerTest      TriggerKind = "test"
)

// Valid reports whether k is one of the known trigger kinds
func (k TriggerKind) Valid() bool {
	switch k {
	case TriggerManual, TriggerScheduled, TriggerTest:
		return true
	}
	return false
}

// SyncStatus is the lifecycle state of a sync log record or batch.
// Transitions only move forward: running -> completed | failed.
type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
	// SyncStatusSkipped is only ever returned to callers, never stored.
	SyncStatusSkipped SyncStatus = "skipped"
)

// Terminal reports whether s ends a run
func (s SyncStatus) Terminal() bool {
	return s == SyncStatusCompleted || s == SyncStatusFailed
}

// Published event names
const (
	EventSyncCompleted   = "sync.completed"
	EventStockReconciled = "stock.reconciled"
)
