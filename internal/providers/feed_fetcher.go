package providers

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"yoco/stocksync/internal/apperrors"
	"yoco/stocksync/internal/common"
	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/feed"
	"yoco/stocksync/internal/metrics"
	"yoco/stocksync/internal/models/dtos"
	"yoco/stocksync/internal/models/gorm"
)

// FetcherOptions configures the feed fetcher
type FetcherOptions struct {
	HTTPTimeout time.Duration
	FTPTimeout  time.Duration
	UserAgent   string
	URLTTL      time.Duration
	FTPTTL      time.Duration
}

// FeedFetcher downloads, parses and caches supplier feeds
type FeedFetcher struct {
	sources map[constants.ConnectionMode]FeedSource
	cache   common.CacheInterface
	urlTTL  time.Duration
	ftpTTL  time.Duration
	group   singleflight.Group
	metrics *metrics.MetricsRegistry
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// NewFeedFetcher creates a fetcher with HTTP and FTP sources. metricsReg may be nil.
func NewFeedFetcher(
	cache common.CacheInterface,
	opts FetcherOptions,
	metricsReg *metrics.MetricsRegistry,
	logger *zap.SugaredLogger,
) *FeedFetcher {
	f := &FeedFetcher{
		cache:   cache,
		urlTTL:  opts.URLTTL,
		ftpTTL:  opts.FTPTTL,
		metrics: metricsReg,
		logger:  logger.Named("FeedFetcher"),
		now:     time.Now,
	}
	f.sources = map[constants.ConnectionMode]FeedSource{
		constants.ConnectionURL: NewHTTPSource(opts.HTTPTimeout, opts.UserAgent),
		constants.ConnectionFTP: NewFTPSource(opts.FTPTimeout, logger),
	}
	return f
}

// WithSource replaces the source for one connection mode
func (f *FeedFetcher) WithSource(src FeedSource) *FeedFetcher {
	f.sources[src.Mode()] = src
	return f
}

// Fetch returns the parsed feed of cfg, from cache when a document parsed with
// the same options is still fresh. Concurrent fetches of one feed share a
// single download.
func (f *FeedFetcher) Fetch(ctx context.Context, cfg *gorm.SupplierFeedConfig) (*dtos.FeedDocument, error) {
	opts, err := parseOptions(cfg)
	if err != nil {
		return nil, err
	}
	mode := cfg.Mode()
	key := cfg.CacheKey()

	if doc, ok := f.cached(ctx, key, opts); ok {
		f.countCache(mode, true)
		f.logger.Debugw("Feed served from cache", "supplier_id", cfg.ID, "key", key)
		return doc, nil
	}
	f.countCache(mode, false)

	flightKey := key + "|" + optionsFingerprint(opts)
	results := f.group.DoChan(flightKey, func() (interface{}, error) {
		// shared downloads outlive the caller that started them; sources
		// bound them with their own timeout
		dctx := context.WithoutCancel(ctx)
		doc, err := f.download(dctx, cfg, opts)
		if err != nil {
			return nil, err
		}
		f.store(dctx, key, mode, doc)
		return doc, nil
	})

	select {
	case <-ctx.Done():
		return nil, errors.WithSecondaryError(apperrors.ErrCancelled, ctx.Err())
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			f.logger.Debugw("Feed download shared", "supplier_id", cfg.ID)
		}
		return res.Val.(*dtos.FeedDocument), nil
	}
}

// Preview downloads the feed fresh, bypassing the cache, and reports its
// columns and first sample rows
func (f *FeedFetcher) Preview(ctx context.Context, cfg *gorm.SupplierFeedConfig) (*dtos.FeedPreview, error) {
	opts, err := parseOptions(cfg)
	if err != nil {
		return nil, err
	}
	src, err := f.source(cfg)
	if err != nil {
		return nil, err
	}

	raw, err := src.Download(ctx, cfg)
	if err != nil {
		return nil, err
	}
	doc, err := feed.Parse(raw, opts)
	if err != nil {
		return nil, err
	}

	preview := &dtos.FeedPreview{
		SupplierID:          cfg.ID,
		Source:              cfg.Source(),
		Columns:             columns(doc),
		SampleRows:          sampleRows(doc, constants.SampleRowCount),
		RowCount:            doc.Len(),
		Skipped:             doc.Skipped,
		ConfiguredDelimiter: feed.DelimiterName(opts.Delimiter),
		DetectedDelimiter:   feed.DelimiterName(feed.DetectDelimiter(raw)),
	}

	if sizer, ok := src.(FileSizer); ok {
		size, err := sizer.FileSize(ctx, cfg)
		if err != nil {
			f.logger.Warnw("Could not read remote file size", "supplier_id", cfg.ID, "error", err)
		} else {
			preview.FileSize = size
		}
	}
	return preview, nil
}

// Invalidate drops the cached document of one supplier feed
func (f *FeedFetcher) Invalidate(ctx context.Context, cfg *gorm.SupplierFeedConfig) error {
	return f.cache.Delete(ctx, cfg.CacheKey())
}

// InvalidateAll drops every cached feed document
func (f *FeedFetcher) InvalidateAll(ctx context.Context) (int, error) {
	n, err := f.cache.DeletePrefix(ctx, string(constants.CachePrefixAll))
	if err == nil {
		f.logger.Infow("Feed cache cleared", "keys", n)
	}
	return n, err
}

func (f *FeedFetcher) download(ctx context.Context, cfg *gorm.SupplierFeedConfig, opts feed.ParseOptions) (*dtos.FeedDocument, error) {
	src, err := f.source(cfg)
	if err != nil {
		return nil, err
	}
	mode := string(src.Mode())

	start := time.Now()
	raw, err := src.Download(ctx, cfg)
	if err != nil {
		f.countFetch(mode, "error", start)
		f.logger.Warnw("Feed download failed", "supplier_id", cfg.ID, "source", cfg.Source(), "error", err)
		return nil, err
	}

	doc, err := feed.Parse(raw, opts)
	if err != nil {
		f.countFetch(mode, "parse_error", start)
		return nil, err
	}
	f.countFetch(mode, "ok", start)
	if f.metrics != nil {
		f.metrics.FeedRowsParsed.WithLabelValues(mode).Observe(float64(doc.Len()))
	}

	doc.Source = cfg.Source()
	doc.FetchedAt = f.now().UTC()
	f.logger.Infow("Feed downloaded",
		"supplier_id", cfg.ID,
		"bytes", len(raw),
		"rows", doc.Len(),
		"skipped", doc.Skipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

func (f *FeedFetcher) source(cfg *gorm.SupplierFeedConfig) (FeedSource, error) {
	src, ok := f.sources[cfg.Mode()]
	if !ok || !cfg.Usable() {
		return nil, &apperrors.ConfigError{SupplierID: cfg.ID, Code: constants.ErrCodeNoFeedSource}
	}
	return src, nil
}

// cached returns a fresh document parsed with the same options as opts
func (f *FeedFetcher) cached(ctx context.Context, key string, opts feed.ParseOptions) (*dtos.FeedDocument, bool) {
	data, ok := f.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var doc dtos.FeedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		f.logger.Warnw("Dropping unreadable cached feed", "key", key, "error", err)
		return nil, false
	}
	if doc.Delimiter != string(opts.Delimiter) || doc.HasHeader != opts.HasHeader || doc.Encoding != opts.Encoding {
		return nil, false
	}
	doc.FromCache = true
	return &doc, true
}

func (f *FeedFetcher) store(ctx context.Context, key string, mode constants.ConnectionMode, doc *dtos.FeedDocument) {
	ttl := f.urlTTL
	if mode == constants.ConnectionFTP {
		ttl = f.ftpTTL
	}
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(doc)
	if err != nil {
		f.logger.Warnw("Failed to encode feed for cache", "key", key, "error", err)
		return
	}
	if err := f.cache.Set(ctx, key, data, ttl); err != nil {
		f.logger.Warnw("Failed to cache feed", "key", key, "error", err)
	}
}

func (f *FeedFetcher) countCache(mode constants.ConnectionMode, hit bool) {
	if f.metrics == nil {
		return
	}
	if hit {
		f.metrics.FeedCacheHitsTotal.WithLabelValues(string(mode)).Inc()
	} else {
		f.metrics.FeedCacheMisses.WithLabelValues(string(mode)).Inc()
	}
}

func (f *FeedFetcher) countFetch(mode, outcome string, start time.Time) {
	if f.metrics == nil {
		return
	}
	f.metrics.FeedFetchesTotal.WithLabelValues(mode, outcome).Inc()
	f.metrics.FeedFetchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

func parseOptions(cfg *gorm.SupplierFeedConfig) (feed.ParseOptions, error) {
	delim, err := cfg.DelimiterRune()
	if err != nil {
		return feed.ParseOptions{}, &apperrors.ConfigError{SupplierID: cfg.ID, Code: constants.ErrCodeInvalidDelimiter}
	}
	if !feed.SupportedEncoding(cfg.Encoding) {
		return feed.ParseOptions{}, &apperrors.ConfigError{SupplierID: cfg.ID, Code: constants.ErrCodeUnsupportedEncoding}
	}
	return feed.ParseOptions{
		Delimiter: delim,
		HasHeader: cfg.HasHeader,
		Encoding:  cfg.Encoding,
	}, nil
}

func optionsFingerprint(opts feed.ParseOptions) string {
	return string(opts.Delimiter) + "|" + strconv.FormatBool(opts.HasHeader) + "|" + opts.Encoding
}

// columns returns the header, or positional indexes for header-less feeds
func columns(doc *dtos.FeedDocument) []string {
	if doc.HasHeader {
		return doc.Header
	}
	width := 0
	for _, rec := range doc.Records {
		if len(rec) > width {
			width = len(rec)
		}
	}
	cols := make([]string, width)
	for i := range cols {
		cols[i] = strconv.Itoa(i)
	}
	return cols
}

func sampleRows(doc *dtos.FeedDocument, n int) [][]string {
	samples := make([][]string, 0, n)
	if !doc.HasHeader {
		for i := 0; i < len(doc.Records) && i < n; i++ {
			samples = append(samples, doc.Records[i])
		}
		return samples
	}
	for i := 0; i < len(doc.Rows) && i < n; i++ {
		row := make([]string, len(doc.Header))
		for j, col := range doc.Header {
			row[j] = doc.Rows[i][col]
		}
		samples = append(samples, row)
	}
	return samples
}
