package constants

const (
	StatusBatchStarted = "OK"
	StatusSyncAll      = "Sync-all started"
	StatusForbidden    = "Forbidden"
)

const (
	MsgInvalidSupplierID = "Invalid supplier id"
	MsgInvalidEntryID    = "Invalid product id"
	MsgInvalidBody       = "Body must be {\"enabled\": true|false}"
)
