package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"yoco/stocksync/internal/api"
	"yoco/stocksync/internal/config"
	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/metrics"
	"yoco/stocksync/internal/models/gorm"
	"yoco/stocksync/internal/testutil"
)

const feedBody = "code,qty\nA1,10\nA2,0\n"

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

type routerFixture struct {
	handler  http.Handler
	deps     *api.Dependencies
	operator string
	admin    string
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()

	feedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, feedBody)
	}))
	t.Cleanup(feedServer.Close)

	cfg := &config.Config{
		Cache:     config.CacheConfig{Backend: "memory", URLTTL: 5 * time.Minute, FTPTTL: 10 * time.Minute},
		Sync:      config.SyncConfig{HTTPTimeout: 5 * time.Second, FTPTimeout: 5 * time.Second, UserAgent: "test", LockBackend: "sql"},
		Scheduler: config.SchedulerConfig{Enabled: true, Timezone: "UTC", TickInterval: time.Minute, HistoryLimit: 20},
		Events:    config.EventsConfig{Backend: "log"},
		API: config.APIConfig{
			JWTSecret:      "router-secret",
			WebhookSecret:  "hook-secret",
			AllowedOrigins: []string{"*"},
			WebhookRPS:     100,
			WebhookBurst:   100,
		},
	}

	orm := testutil.CreateTestORM(t)
	catalog := testutil.CreateTestCatalog(t)
	testutil.SeedCatalog(t, catalog,
		testutil.CatalogRow{ID: 1, SKU: "A1", SyncEnabled: true, ManageStock: true, Quantity: testutil.Int64(0),
			DeliveryText: "1-2 dagen", Suppliers: []int64{1}},
		testutil.CatalogRow{ID: 2, SKU: "A2", DeliveryText: "1-2 dagen", Suppliers: []int64{1}},
	)

	reg := prometheus.NewRegistry()
	deps := api.NewDependencies(cfg, orm, catalog, nil, metrics.NewMetricsRegistry(reg), logger)

	supplier := gorm.NewSupplierFeedConfig(1, "Groothandel Noord")
	supplier.FeedURL = feedServer.URL + "/stock.csv"
	supplier.MatchColumn = "code"
	supplier.StockColumn = "qty"
	supplier.DefaultDeliveryTime = "3-5 werkdagen"
	supplier.UpdateTimes = []string{"06:00"}
	require.NoError(t, deps.Repo.Configs.Save(context.Background(), supplier))

	operator, err := deps.Services.Tokens.Issue("ops@example.com", constants.RoleOperator, time.Hour)
	require.NoError(t, err)
	admin, err := deps.Services.Tokens.Issue("root@example.com", constants.RoleAdmin, time.Hour)
	require.NoError(t, err)

	return &routerFixture{
		handler:  RegisterRoutes(deps, reg, time.Now(), logger),
		deps:     deps,
		operator: operator,
		admin:    admin,
	}
}

func (f *routerFixture) do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func TestHealthCheck(t *testing.T) {
	f := newRouterFixture(t)
	rec, _ := f.do(t, http.MethodGet, "/healthCheck", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health struct {
		Status   string                     `json:"status"`
		Services map[string]json.RawMessage `json:"services"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Contains(t, health.Services, "database")
	assert.Contains(t, health.Services, "catalog")
}

func TestAPI_RequiresToken(t *testing.T) {
	f := newRouterFixture(t)
	rec, _ := f.do(t, http.MethodGet, "/api/v1/suppliers", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_SyncSupplier(t *testing.T) {
	f := newRouterFixture(t)

	rec, env := f.do(t, http.MethodPost, "/api/v1/suppliers/1/sync", f.operator, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "success", env.Status)

	var result struct {
		Status    string   `json:"status"`
		Processed int      `json:"processed"`
		Updated   int      `json:"updated"`
		Errors    []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "completed", result.Status)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Updated)
	assert.Empty(t, result.Errors)

	rec, env = f.do(t, http.MethodGet, "/api/v1/products/1/supplier-stock", f.operator, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var facts []struct {
		SupplierID    int64 `json:"supplier_id"`
		StockQuantity int   `json:"stock_quantity"`
		IsAvailable   bool  `json:"is_available"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &facts))
	require.Len(t, facts, 1)
	assert.Equal(t, 10, facts[0].StockQuantity)
	assert.True(t, facts[0].IsAvailable)

	rec, env = f.do(t, http.MethodGet, "/api/v1/sync-logs?supplier_id=1", f.operator, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []struct {
		Status   string `json:"status"`
		SyncType string `json:"sync_type"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "completed", logs[0].Status)
	assert.Equal(t, "manual", logs[0].SyncType)
}

func TestAPI_SyncUnknownSupplierReportsFailure(t *testing.T) {
	f := newRouterFixture(t)

	rec, env := f.do(t, http.MethodPost, "/api/v1/suppliers/99/sync", f.operator, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Status    string `json:"status"`
		ErrorCode string `json:"error_code"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "failed", result.Status)
	assert.Equal(t, constants.ErrCodeConfigNotFound, result.ErrorCode)

	rec, _ = f.do(t, http.MethodPost, "/api/v1/suppliers/abc/sync", f.operator, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_TestFeed(t *testing.T) {
	f := newRouterFixture(t)

	rec, env := f.do(t, http.MethodPost, "/api/v1/suppliers/1/test-feed", f.operator, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var preview struct {
		Columns    []string   `json:"columns"`
		SampleRows [][]string `json:"sample_rows"`
		RowCount   int        `json:"row_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &preview))
	assert.Equal(t, []string{"code", "qty"}, preview.Columns)
	assert.Equal(t, 2, preview.RowCount)
	assert.Len(t, preview.SampleRows, 2)

	rec, env = f.do(t, http.MethodPost, "/api/v1/suppliers/7/test-feed", f.operator, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", env.Status)
}

func TestAPI_ListSuppliersAndSchedule(t *testing.T) {
	f := newRouterFixture(t)

	rec, env := f.do(t, http.MethodGet, "/api/v1/suppliers", f.operator, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var suppliers []struct {
		ID        int64      `json:"id"`
		Name      string     `json:"name"`
		Source    string     `json:"source"`
		Usable    bool       `json:"usable"`
		NextRunAt *time.Time `json:"next_run_at"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &suppliers))
	require.Len(t, suppliers, 1)
	assert.Equal(t, "Groothandel Noord", suppliers[0].Name)
	assert.True(t, suppliers[0].Usable)
	assert.NotNil(t, suppliers[0].NextRunAt)

	rec, env = f.do(t, http.MethodGet, "/api/v1/suppliers/1/schedule", f.operator, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var schedule struct {
		SchedulerEnabled bool       `json:"scheduler_enabled"`
		NextRunAt        *time.Time `json:"next_run_at"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &schedule))
	assert.True(t, schedule.SchedulerEnabled)
	require.NotNil(t, schedule.NextRunAt)
	assert.Equal(t, 6, schedule.NextRunAt.UTC().Hour())

	rec, _ = f.do(t, http.MethodDelete, "/api/v1/suppliers/1/feed-cache", f.operator, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_SyncEnabledNeedsAdmin(t *testing.T) {
	f := newRouterFixture(t)

	rec, _ := f.do(t, http.MethodPut, "/api/v1/products/2/sync-enabled", f.operator, `{"enabled":true}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = f.do(t, http.MethodPut, "/api/v1/products/2/sync-enabled", f.admin, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env := f.do(t, http.MethodPut, "/api/v1/products/2/sync-enabled", f.admin, `{"enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var entry struct {
		SyncEnabled         bool   `json:"sync_enabled"`
		DefaultDeliveryText string `json:"default_delivery_text"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &entry))
	assert.True(t, entry.SyncEnabled)
	assert.Equal(t, "1-2 dagen", entry.DefaultDeliveryText)
}

func TestAPI_ReconcileAndCheckStock(t *testing.T) {
	f := newRouterFixture(t)

	rec, _ := f.do(t, http.MethodPost, "/api/v1/products/404/reconcile", f.operator, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env := f.do(t, http.MethodPost, "/api/v1/products/1/check-stock", f.operator, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var check struct {
		Results []struct {
			SupplierID int64 `json:"supplier_id"`
			Quantity   int   `json:"quantity"`
			Available  bool  `json:"available"`
		} `json:"results"`
		Reconciled bool `json:"reconciled"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &check))
	require.Len(t, check.Results, 1)
	assert.Equal(t, 10, check.Results[0].Quantity)
	assert.True(t, check.Reconciled)

	rec, env = f.do(t, http.MethodPost, "/api/v1/products/1/reconcile", f.operator, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entry_id":1,"changed":false}`, string(env.Data))
}

func TestWebhook_SyncAll(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	rec, _ := f.do(t, http.MethodGet, "/hooks/sync-all?secret=wrong", "", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	token, ok, err := f.deps.Repo.Leases.Acquire(ctx, constants.LeaseKeyBatch, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	rec, env := f.do(t, http.MethodGet, "/hooks/sync-all?secret=hook-secret", "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Already running", env.Error)
	require.NoError(t, f.deps.Repo.Leases.Release(ctx, constants.LeaseKeyBatch, token))

	rec, env = f.do(t, http.MethodPost, "/hooks/sync-all?secret=hook-secret", "", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"message":"OK"}`, string(env.Data))

	require.Eventually(t, func() bool {
		batches, err := f.deps.Repo.Batches.List(ctx, 10)
		if err != nil || len(batches) != 1 {
			return false
		}
		held, err := f.deps.Repo.Leases.Held(ctx, constants.LeaseKeyBatch)
		return err == nil && !held
	}, 10*time.Second, 20*time.Millisecond)

	rec, env = f.do(t, http.MethodGet, "/api/v1/sync-batches", f.operator, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var batches []struct {
		SyncType        string `json:"sync_type"`
		SuppliersSynced int    `json:"suppliers_synced"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &batches))
	require.Len(t, batches, 1)
	assert.Equal(t, "scheduled", batches[0].SyncType)
	assert.Equal(t, 1, batches[0].SuppliersSynced)
}

func TestAPI_PurgeLogsAndMetrics(t *testing.T) {
	f := newRouterFixture(t)

	rec, _ := f.do(t, http.MethodPost, "/api/v1/suppliers/1/sync", f.operator, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodDelete, "/api/v1/sync-logs?all=true", f.operator, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := f.do(t, http.MethodDelete, "/api/v1/sync-logs?all=true", f.admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":1}`, string(env.Data))

	rec, _ = f.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "yoco_sync_runs_total")
	assert.Contains(t, rec.Body.String(), "yoco_http_requests_total")
}
