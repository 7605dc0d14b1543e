package providers

import (
	"context"

	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/models/gorm"
)

// FeedSource downloads the raw bytes of a supplier feed.
// Failures are returned as *apperrors.FetchError.
type FeedSource interface {
	Download(ctx context.Context, cfg *gorm.SupplierFeedConfig) ([]byte, error)

	// Mode returns the connection mode the source serves
	Mode() constants.ConnectionMode
}

// FileSizer is implemented by sources that can report the remote file size
// without downloading it
type FileSizer interface {
	FileSize(ctx context.Context, cfg *gorm.SupplierFeedConfig) (int64, error)
}
