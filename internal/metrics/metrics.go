package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the sync service
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Feed Metrics
	FeedFetchesTotal   *prometheus.CounterVec
	FeedFetchDuration  *prometheus.HistogramVec
	FeedRowsParsed     *prometheus.HistogramVec
	FeedCacheHitsTotal *prometheus.CounterVec
	FeedCacheMisses    *prometheus.CounterVec

	// Sync Metrics
	SyncRunsTotal         *prometheus.CounterVec
	SyncRunDuration       *prometheus.HistogramVec
	SyncRunsInFlight      prometheus.Gauge
	EntriesProcessedTotal *prometheus.CounterVec
	ReconcileChangesTotal prometheus.Counter
	SyncBatchDuration     prometheus.Histogram
	SchedulerTicksTotal   prometheus.Counter
	SchedulerDueSuppliers prometheus.Gauge

	// Maintenance Metrics
	StaleRuns       prometheus.Gauge
	LogsPurgedTotal prometheus.Counter
}

// NewMetricsRegistry registers every metric on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yoco_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "yoco_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "yoco_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		// Feed Metrics
		FeedFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yoco_feed_fetches_total",
				Help: "Feed downloads by connection mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		FeedFetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "yoco_feed_fetch_duration_seconds",
				Help:    "Feed download and parse time in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"mode"},
		),
		FeedRowsParsed: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "yoco_feed_rows",
				Help:    "Accepted rows per parsed feed",
				Buckets: prometheus.ExponentialBuckets(10, 4, 8),
			},
			[]string{"mode"},
		),
		FeedCacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yoco_feed_cache_hits_total",
				Help: "Feed cache hits by connection mode",
			},
			[]string{"mode"},
		),
		FeedCacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yoco_feed_cache_misses_total",
				Help: "Feed cache misses by connection mode",
			},
			[]string{"mode"},
		),

		// Sync Metrics
		SyncRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yoco_sync_runs_total",
				Help: "Supplier sync runs by final status and trigger",
			},
			[]string{"status", "trigger"},
		),
		SyncRunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "yoco_sync_run_duration_seconds",
				Help:    "Supplier sync run time in seconds",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"trigger"},
		),
		SyncRunsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "yoco_sync_runs_in_flight",
				Help: "Supplier sync runs currently executing",
			},
		),
		EntriesProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yoco_sync_entries_total",
				Help: "Catalog entries processed by outcome (updated, not_found, error)",
			},
			[]string{"outcome"},
		),
		ReconcileChangesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "yoco_reconcile_changes_total",
				Help: "Reconcile calls that changed an entry's stock state",
			},
		),
		SyncBatchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "yoco_sync_batch_duration_seconds",
				Help:    "Sync-all batch time in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
			},
		),
		SchedulerTicksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "yoco_scheduler_ticks_total",
				Help: "Scheduler ticks evaluated",
			},
		),
		SchedulerDueSuppliers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "yoco_scheduler_due_suppliers",
				Help: "Suppliers found due on the last scheduler tick",
			},
		),

		StaleRuns: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "yoco_sync_runs_stale",
				Help: "Sync logs still running past the stale threshold",
			},
		),
		LogsPurgedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "yoco_sync_logs_purged_total",
				Help: "Sync logs removed by the retention worker",
			},
		),
	}
}
