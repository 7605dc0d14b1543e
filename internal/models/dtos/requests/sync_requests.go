package requests

// SyncEnabledRequest toggles stock sync for a catalog entry
type SyncEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}
