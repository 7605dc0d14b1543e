package gorm

// All lists every table owned by the sync engine, in migration order
func All() []interface{} {
	return []interface{}{
		&SupplierFeedConfig{},
		&SupplierStock{},
		&SyncLog{},
		&SyncBatch{},
		&ScheduledSync{},
		&SyncLease{},
	}
}
