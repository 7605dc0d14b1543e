package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"yoco/stocksync/internal/apperrors"
	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/db/repositories"
	"yoco/stocksync/internal/feed"
	"yoco/stocksync/internal/metrics"
	"yoco/stocksync/internal/models/dtos"
	"yoco/stocksync/internal/models/gorm"
	"yoco/stocksync/internal/services"
	"yoco/stocksync/internal/testutil"
)

const scenarioFeed = "code,qty\nA1,10\nA2,0\nA3,abc\n"

type stubFetcher struct {
	mu          sync.Mutex
	bodies      map[int64]string
	errs        map[int64]error
	calls       int
	invalidated int
}

func (f *stubFetcher) Fetch(_ context.Context, cfg *gorm.SupplierFeedConfig) (*dtos.FeedDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[cfg.ID]; err != nil {
		return nil, err
	}
	delim, err := cfg.DelimiterRune()
	if err != nil {
		return nil, err
	}
	doc, err := feed.Parse([]byte(f.bodies[cfg.ID]), feed.ParseOptions{Delimiter: delim, HasHeader: cfg.HasHeader})
	if err != nil {
		return nil, err
	}
	doc.Source = cfg.Source()
	return doc, nil
}

func (f *stubFetcher) Preview(_ context.Context, cfg *gorm.SupplierFeedConfig) (*dtos.FeedPreview, error) {
	return &dtos.FeedPreview{SupplierID: cfg.ID, Source: cfg.Source()}, nil
}

func (f *stubFetcher) InvalidateAll(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
	return 0, nil
}

type syncFixture struct {
	job       *SupplierSyncJob
	backorder *services.BackorderService
	catalog   *repositories.CatalogRepository
	stock     *repositories.SupplierStockRepo
	configs   *repositories.SupplierConfigRepo
	logs      *repositories.SyncLogRepo
	batches   *repositories.SyncBatchRepo
	leases    *repositories.LeaseRepo
	fetcher   *stubFetcher
	metrics   *metrics.MetricsRegistry
	deps      SyncJobDeps
}

func newSyncFixture(t *testing.T, rows ...testutil.CatalogRow) *syncFixture {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()
	orm := testutil.CreateTestORM(t)
	catalogDB := testutil.CreateTestCatalog(t)
	testutil.SeedCatalog(t, catalogDB, rows...)

	f := &syncFixture{
		catalog: repositories.NewCatalogRepository(catalogDB),
		stock:   repositories.NewSupplierStockRepo(orm),
		configs: repositories.NewSupplierConfigRepo(orm),
		logs:    repositories.NewSyncLogRepo(orm),
		batches: repositories.NewSyncBatchRepo(orm),
		leases:  repositories.NewLeaseRepo(orm),
		fetcher: &stubFetcher{bodies: map[int64]string{}, errs: map[int64]error{}},
		metrics: metrics.NewMetricsRegistry(prometheus.NewRegistry()),
	}
	f.backorder = services.NewBackorderService(f.catalog, f.stock, f.configs, nil, "", logger)
	f.deps = SyncJobDeps{
		Configs:   f.configs,
		Catalog:   f.catalog,
		Stock:     f.stock,
		Backorder: f.backorder,
		Fetcher:   f.fetcher,
		Logs:      f.logs,
		Batches:   f.batches,
		Locker:    f.leases,
		Metrics:   f.metrics,
	}
	f.job = NewSupplierSyncJob(f.deps, SyncOptions{LogHistoryLimit: 50, BatchHistoryLimit: 20}, logger)
	return f
}

func (f *syncFixture) supplier(t *testing.T, id int64, body string) *gorm.SupplierFeedConfig {
	t.Helper()
	cfg := gorm.NewSupplierFeedConfig(id, "Supplier")
	cfg.Name = "Supplier " + string(rune('A'+id-1))
	cfg.FeedURL = "https://feeds.example.com/stock.csv"
	cfg.MatchColumn = "code"
	cfg.StockColumn = "qty"
	cfg.DefaultDeliveryTime = "3-5 werkdagen"
	require.NoError(t, f.configs.Save(context.Background(), cfg))
	f.fetcher.bodies[id] = body
	return cfg
}

func scenarioRows() []testutil.CatalogRow {
	managedEmpty := func(id int64, sku string) testutil.CatalogRow {
		return testutil.CatalogRow{ID: id, SKU: sku, SyncEnabled: true, ManageStock: true,
			Quantity: testutil.Int64(0), DeliveryText: "1-2 dagen", Suppliers: []int64{1}}
	}
	return []testutil.CatalogRow{
		managedEmpty(1, "A1"),
		managedEmpty(2, "A2"),
		managedEmpty(3, "Z9"),
		{ID: 4, SyncEnabled: true, Suppliers: []int64{1}},
		{ID: 5, SKU: "A1", SyncEnabled: false, Suppliers: []int64{1}},
	}
}

func TestRunSync_Scenario(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, scenarioRows()...)
	f.supplier(t, 1, scenarioFeed)

	res, err := f.job.RunSync(ctx, 1, constants.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, constants.SyncStatusCompleted, res.Status)
	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 3, res.Updated)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Entry 4: No SKU or EAN for matching", res.Errors[0])
	assert.Equal(t, "Supplier A", res.SupplierName)

	facts, err := f.stock.FactsFor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, 10, facts[0].StockQuantity)
	assert.True(t, facts[0].IsAvailable)

	for _, id := range []int64{2, 3} {
		facts, err := f.stock.FactsFor(ctx, id)
		require.NoError(t, err)
		require.Len(t, facts, 1)
		assert.Zero(t, facts[0].StockQuantity)
		assert.False(t, facts[0].IsAvailable)
	}
	disabled, err := f.stock.FactsFor(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, disabled)

	entry, err := f.catalog.GetEntry(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, constants.StockOnBackorder, entry.StockStatus)
	assert.Equal(t, "3-5 werkdagen", entry.DeliveryText)

	entry, err = f.catalog.GetEntry(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, constants.StockOutOfStock, entry.StockStatus)

	log, err := f.logs.Get(ctx, res.LogID)
	require.NoError(t, err)
	assert.Equal(t, string(constants.SyncStatusCompleted), log.Status)
	assert.Equal(t, 4, log.ProductsProcessed)
	assert.Equal(t, 3, log.ProductsUpdated)
	assert.Equal(t, 1, log.ErrorsCount)
	assert.Equal(t, 3, log.Statistics.FeedRows)
	assert.Equal(t, 2, log.Statistics.Matched)
	assert.Equal(t, 1, log.Statistics.NotFound)
	assert.NotNil(t, log.CompletedAt)

	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.SyncRunsTotal.WithLabelValues("completed", "manual")))
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.EntriesProcessedTotal.WithLabelValues("error")))
}

func TestRunSync_FetchTimeoutFailsRun(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, scenarioRows()...)
	f.supplier(t, 1, scenarioFeed)
	f.fetcher.errs[1] = &apperrors.FetchError{
		Source: "https://feeds.example.com/stock.csv",
		Mode:   constants.ConnectionURL,
		Reason: constants.FetchReasonTimeout,
		Code:   constants.ErrCodeFetchTimeout,
	}

	res, err := f.job.RunSync(ctx, 1, constants.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, constants.SyncStatusFailed, res.Status)
	assert.Zero(t, res.Processed)
	assert.Zero(t, res.Updated)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "timeout")
	assert.Equal(t, constants.ErrCodeFetchTimeout, res.ErrorCode)

	log, err := f.logs.Get(ctx, res.LogID)
	require.NoError(t, err)
	assert.Equal(t, string(constants.SyncStatusFailed), log.Status)
	assert.Equal(t, 1, log.ErrorsCount)

	entry, err := f.catalog.GetEntry(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, constants.StockInStock, entry.StockStatus, "nothing is touched on a failed fetch")
}

func TestRunSync_ConfigErrors(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, scenarioRows()...)

	res, err := f.job.RunSync(ctx, 1, constants.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, constants.SyncStatusFailed, res.Status)
	assert.Equal(t, constants.ErrCodeConfigNotFound, res.ErrorCode)

	cfg := f.supplier(t, 1, scenarioFeed)
	cfg.IsActive = false
	require.NoError(t, f.configs.Save(ctx, cfg))
	res, err = f.job.RunSync(ctx, 1, constants.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, constants.ErrCodeConfigNotActive, res.ErrorCode)

	cfg.IsActive = true
	cfg.StockColumn = ""
	require.NoError(t, f.configs.Save(ctx, cfg))
	res, err = f.job.RunSync(ctx, 1, constants.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, constants.ErrCodeColumnsNotConfigured, res.ErrorCode)
	assert.Zero(t, f.fetcher.calls)

	logs, err := f.logs.List(ctx, nil, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}

func TestRunSync_MissingColumnFailsRun(t *testing.T) {
	f := newSyncFixture(t, scenarioRows()...)
	f.supplier(t, 1, "sku,stock\nA1,10\n")

	res, err := f.job.RunSync(context.Background(), 1, constants.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, constants.SyncStatusFailed, res.Status)
	assert.Equal(t, constants.ErrCodeColumnMissing, res.ErrorCode)
	assert.Contains(t, res.Error, "code, qty")
	assert.Zero(t, res.Processed)
}

func TestRunSync_LeaseContentionSkips(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, scenarioRows()...)
	f.supplier(t, 1, scenarioFeed)

	_, ok, err := f.leases.Acquire(ctx, "yoco:sync:supplier:1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := f.job.RunSync(ctx, 1, constants.TriggerManual)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyRunning))
	require.NotNil(t, res)
	assert.Equal(t, constants.SyncStatusSkipped, res.Status)
	assert.Equal(t, constants.ErrCodeAlreadyRunning, res.ErrorCode)

	logs, err := f.logs.List(ctx, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, logs, "a skipped run writes no log")
}

func TestRunSync_ReleasesLease(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, scenarioRows()...)
	f.supplier(t, 1, scenarioFeed)

	_, err := f.job.RunSync(ctx, 1, constants.TriggerManual)
	require.NoError(t, err)

	held, err := f.leases.Held(ctx, "yoco:sync:supplier:1")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestRunSync_NoEntriesSkipsFetch(t *testing.T) {
	f := newSyncFixture(t)
	f.supplier(t, 1, scenarioFeed)

	res, err := f.job.RunSync(context.Background(), 1, constants.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, constants.SyncStatusCompleted, res.Status)
	assert.Zero(t, res.Processed)
	assert.Zero(t, f.fetcher.calls)
}

func TestRunSync_ExpandsVariableParent(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t,
		testutil.CatalogRow{ID: 10, Kind: constants.EntryVariable, SyncEnabled: true,
			StockStatus: constants.StockOutOfStock, Suppliers: []int64{1}},
		testutil.CatalogRow{ID: 11, ParentID: 10, Kind: constants.EntryVariation, SKU: "A1",
			ManageStock: true, Quantity: testutil.Int64(0), StockStatus: constants.StockOutOfStock, DeliveryText: "2 dagen"},
		testutil.CatalogRow{ID: 12, ParentID: 10, Kind: constants.EntryVariation, SKU: "A2",
			ManageStock: true, Quantity: testutil.Int64(0), StockStatus: constants.StockOutOfStock},
	)
	f.supplier(t, 1, scenarioFeed)

	res, err := f.job.RunSync(ctx, 1, constants.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed, "the parent itself is not processed")
	assert.Equal(t, 2, res.Updated)

	child, err := f.catalog.GetEntry(ctx, 11)
	require.NoError(t, err)
	assert.True(t, child.SyncEnabled)
	assert.Equal(t, "2 dagen", child.DefaultDeliveryText)
	assert.Equal(t, constants.StockOnBackorder, child.StockStatus)

	parent, err := f.catalog.GetEntry(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, constants.StockOnBackorder, parent.StockStatus)

	parentFacts, err := f.stock.FactsFor(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, parentFacts)
}

type cancellingReconciler struct {
	Reconciler
	cancel context.CancelFunc
}

func (r *cancellingReconciler) Reconcile(ctx context.Context, id int64) (bool, error) {
	defer r.cancel()
	return r.Reconciler.Reconcile(ctx, id)
}

func TestRunSync_CancelBetweenEntries(t *testing.T) {
	f := newSyncFixture(t, scenarioRows()...)
	f.supplier(t, 1, scenarioFeed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	deps := f.deps
	deps.Backorder = &cancellingReconciler{Reconciler: f.backorder, cancel: cancel}
	job := NewSupplierSyncJob(deps, SyncOptions{}, zaptest.NewLogger(t).Sugar())

	res, err := job.RunSync(ctx, 1, constants.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, constants.SyncStatusFailed, res.Status)
	assert.Equal(t, constants.ErrCodeCancelled, res.ErrorCode)
	assert.Equal(t, 1, res.Processed)

	log, err := f.logs.Get(context.Background(), res.LogID)
	require.NoError(t, err)
	assert.Equal(t, string(constants.SyncStatusFailed), log.Status)

	held, err := f.leases.Held(context.Background(), "yoco:sync:supplier:1")
	require.NoError(t, err)
	assert.False(t, held)
}

type panickingReconciler struct {
	Reconciler
}

func (panickingReconciler) Reconcile(context.Context, int64) (bool, error) {
	panic("boom")
}

func TestRunSync_EntryPanicIsRecorded(t *testing.T) {
	f := newSyncFixture(t, scenarioRows()[:2]...)
	f.supplier(t, 1, scenarioFeed)

	deps := f.deps
	deps.Backorder = panickingReconciler{Reconciler: f.backorder}
	job := NewSupplierSyncJob(deps, SyncOptions{}, zaptest.NewLogger(t).Sugar())

	res, err := job.RunSync(context.Background(), 1, constants.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, constants.SyncStatusCompleted, res.Status)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 2, res.Updated)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "panic: boom")
}

func TestRunAll_SequentialWithSummary(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t,
		testutil.CatalogRow{ID: 1, SKU: "A1", SyncEnabled: true, Suppliers: []int64{1}},
		testutil.CatalogRow{ID: 2, SKU: "A2", SyncEnabled: true, Suppliers: []int64{2}},
	)
	f.supplier(t, 1, scenarioFeed)
	f.supplier(t, 2, scenarioFeed)
	inactive := f.supplier(t, 3, scenarioFeed)
	inactive.IsActive = false
	require.NoError(t, f.configs.Save(ctx, inactive))
	f.fetcher.errs[2] = &apperrors.FetchError{Reason: constants.FetchReasonNetwork, Code: constants.ErrCodeFetchNetwork}

	summary, err := f.job.RunAll(ctx, constants.TriggerManual, RunAllOptions{FreshFeeds: true})
	require.NoError(t, err)
	assert.Equal(t, 1, f.fetcher.invalidated)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, 1, summary.SuppliersSynced)
	assert.Equal(t, 1, summary.SuppliersFailed)
	assert.Equal(t, 1, summary.TotalProcessed)
	assert.Equal(t, 1, summary.TotalUpdated)
	assert.Equal(t, constants.SyncStatusCompleted, summary.Status)

	batches, err := f.batches.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, summary.BatchID, batches[0].ID)
	assert.Equal(t, []string{"Supplier A", "Supplier B"}, batches[0].Suppliers)
}

func TestRunAll_BatchLeaseIsExclusive(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)

	_, ok, err := f.leases.Acquire(ctx, constants.LeaseKeyBatch, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.job.RunAll(ctx, constants.TriggerManual, RunAllOptions{})
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyRunning))

	_, err = f.job.StartAll(ctx, constants.TriggerScheduled, RunAllOptions{})
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyRunning))
}

func TestStartAll_RunsInBackground(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, testutil.CatalogRow{ID: 1, SKU: "A1", SyncEnabled: true, Suppliers: []int64{1}})
	f.supplier(t, 1, scenarioFeed)

	done, err := f.job.StartAll(ctx, constants.TriggerScheduled, RunAllOptions{})
	require.NoError(t, err)

	select {
	case summary := <-done:
		require.NotNil(t, summary)
		assert.Equal(t, 1, summary.SuppliersSynced)
		assert.Equal(t, constants.TriggerScheduled, summary.Trigger)
	case <-time.After(10 * time.Second):
		t.Fatal("batch did not finish")
	}

	require.Eventually(t, func() bool {
		held, err := f.leases.Held(ctx, constants.LeaseKeyBatch)
		return err == nil && !held
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCheckProduct_UsesParentSuppliers(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t,
		testutil.CatalogRow{ID: 10, Kind: constants.EntryVariable, SyncEnabled: true, Suppliers: []int64{1, 2, 3}},
		testutil.CatalogRow{ID: 11, ParentID: 10, Kind: constants.EntryVariation, SKU: "A1", SyncEnabled: true,
			ManageStock: true, Quantity: testutil.Int64(0)},
	)
	f.supplier(t, 1, scenarioFeed)
	f.supplier(t, 2, "code,qty\nA1,0\n")

	check, err := f.job.CheckProduct(ctx, 11)
	require.NoError(t, err)
	require.Len(t, check.Results, 3)

	assert.Equal(t, 10, check.Results[0].Quantity)
	assert.True(t, check.Results[0].Available)
	assert.False(t, check.Results[1].Available)
	assert.Contains(t, check.Results[2].Error, "not found")
	assert.True(t, check.Reconciled)

	entry, err := f.catalog.GetEntry(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, constants.StockOnBackorder, entry.StockStatus)

	_, err = f.job.CheckProduct(ctx, 404)
	assert.True(t, errors.Is(err, apperrors.ErrEntryNotFound))
}

func TestTestFeed(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	f.supplier(t, 1, scenarioFeed)

	preview, err := f.job.TestFeed(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), preview.SupplierID)

	_, err = f.job.TestFeed(ctx, 9)
	assert.Equal(t, constants.ErrCodeConfigNotFound, apperrors.Code(err))
}
