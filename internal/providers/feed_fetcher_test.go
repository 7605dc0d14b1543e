package providers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"yoco/stocksync/internal/apperrors"
	"yoco/stocksync/internal/common"
	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/metrics"
	"yoco/stocksync/internal/models/gorm"
)

const scenarioFeed = "code,qty\nA1,10\nA2,0\nA3,abc\n"

func newTestFetcher(t *testing.T, timeout time.Duration) (*FeedFetcher, *metrics.MetricsRegistry) {
	t.Helper()
	reg := metrics.NewMetricsRegistry(prometheus.NewRegistry())
	f := NewFeedFetcher(
		common.NewCacheService(time.Minute, time.Minute),
		FetcherOptions{
			HTTPTimeout: timeout,
			FTPTimeout:  time.Second,
			URLTTL:      5 * time.Minute,
			FTPTTL:      10 * time.Minute,
		},
		reg,
		zaptest.NewLogger(t).Sugar(),
	)
	return f, reg
}

func urlConfig(url string) *gorm.SupplierFeedConfig {
	cfg := gorm.NewSupplierFeedConfig(1, "Acme")
	cfg.FeedURL = url
	cfg.MatchColumn = "code"
	cfg.StockColumn = "qty"
	return cfg
}

func TestFetch_HTTPAndCache(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, constants.DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Write([]byte(scenarioFeed))
	}))
	defer server.Close()

	f, reg := newTestFetcher(t, 5*time.Second)
	cfg := urlConfig(server.URL)
	ctx := context.Background()

	doc, err := f.Fetch(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"code", "qty"}, doc.Header)
	assert.Equal(t, 3, doc.Len())
	assert.False(t, doc.FromCache)
	assert.Equal(t, server.URL, doc.Source)

	doc, err = f.Fetch(ctx, cfg)
	require.NoError(t, err)
	assert.True(t, doc.FromCache)
	assert.Equal(t, 3, doc.Len())
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second fetch must not touch the network")
	assert.Equal(t, 1.0, promtest.ToFloat64(reg.FeedCacheHitsTotal.WithLabelValues("url")))

	// different parse options invalidate the cached document
	cfg.Delimiter = ";"
	_, err = f.Fetch(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

	require.NoError(t, f.Invalidate(ctx, cfg))
	_, err = f.Fetch(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))

	n, err := f.InvalidateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFetch_CancelledCallerDoesNotFailSharedDownload(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		w.Write([]byte(scenarioFeed))
	}))
	defer server.Close()

	f, _ := newTestFetcher(t, 5*time.Second)
	cfg := urlConfig(server.URL)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.Fetch(firstCtx, cfg)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&hits) == 1 }, time.Second, 5*time.Millisecond)

	type outcome struct {
		rows int
		err  error
	}
	second := make(chan outcome, 1)
	go func() {
		doc, err := f.Fetch(context.Background(), cfg)
		if err != nil {
			second <- outcome{err: err}
			return
		}
		second <- outcome{rows: doc.Len()}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case err := <-firstErr:
		assert.True(t, errors.Is(err, apperrors.ErrCancelled))
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case got := <-second:
		require.NoError(t, got.err)
		assert.Equal(t, 3, got.rows)
	case <-time.After(5 * time.Second):
		t.Fatal("second caller did not return")
	}

	doc, err := f.Fetch(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, doc.FromCache, "the shared download is cached after its first caller left")
}

func TestFetch_HTTPFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		reason  string
		code    string
	}{
		{
			name:    "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("  \n")) },
			reason:  constants.FetchReasonEmpty,
			code:    constants.ErrCodeFetchEmpty,
		},
		{
			name:    "error status",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
			reason:  constants.FetchReasonStatus,
			code:    constants.ErrCodeFetchStatus,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			reason: constants.FetchReasonTimeout,
			code:   constants.ErrCodeFetchTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			f, _ := newTestFetcher(t, 200*time.Millisecond)
			_, err := f.Fetch(context.Background(), urlConfig(server.URL))

			var fetchErr *apperrors.FetchError
			require.True(t, errors.As(err, &fetchErr), "got %v", err)
			assert.Equal(t, tt.reason, fetchErr.Reason)
			assert.Equal(t, tt.code, fetchErr.Code)
			assert.True(t, apperrors.IsRunLevel(err))
		})
	}
}

func TestFetch_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	f, _ := newTestFetcher(t, time.Second)
	_, err := f.Fetch(context.Background(), urlConfig(url))

	var fetchErr *apperrors.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, constants.FetchReasonNetwork, fetchErr.Reason)
}

func TestFetch_ConfigErrors(t *testing.T) {
	f, _ := newTestFetcher(t, time.Second)

	cfg := urlConfig("")
	_, err := f.Fetch(context.Background(), cfg)
	assert.Equal(t, constants.ErrCodeNoFeedSource, apperrors.Code(err))

	cfg = urlConfig("https://feeds.example.com/x.csv")
	cfg.Delimiter = "::"
	_, err = f.Fetch(context.Background(), cfg)
	assert.Equal(t, constants.ErrCodeInvalidDelimiter, apperrors.Code(err))

	cfg.Delimiter = ","
	cfg.Encoding = "ebcdic"
	_, err = f.Fetch(context.Background(), cfg)
	assert.Equal(t, constants.ErrCodeUnsupportedEncoding, apperrors.Code(err))
}

type fakeFTP struct {
	files    map[string]string
	loginErr error
	quits    int
}

func (c *fakeFTP) Login(user, password string) error { return c.loginErr }

func (c *fakeFTP) Retr(path string) (io.ReadCloser, error) {
	body, ok := c.files[path]
	if !ok {
		return nil, &textproto.Error{Code: 550, Msg: "No such file"}
	}
	return io.NopCloser(bytes.NewReader([]byte(body))), nil
}

func (c *fakeFTP) FileSize(path string) (int64, error) {
	body, ok := c.files[path]
	if !ok {
		return 0, &textproto.Error{Code: 550, Msg: "No such file"}
	}
	return int64(len(body)), nil
}

func (c *fakeFTP) Quit() error {
	c.quits++
	return nil
}

func ftpConfig(path string) *gorm.SupplierFeedConfig {
	cfg := gorm.NewSupplierFeedConfig(2, "FTP supplier")
	cfg.ConnectionType = string(constants.ConnectionFTP)
	cfg.FTPHost = "ftp.example.com"
	cfg.FTPUser = "user"
	cfg.FTPPassword = "secret"
	cfg.FTPPath = path
	cfg.MatchColumn = "code"
	cfg.StockColumn = "qty"
	return cfg
}

func newFTPSource(t *testing.T, conn *fakeFTP, dialErr error) *FTPSource {
	src := NewFTPSource(time.Second, zaptest.NewLogger(t).Sugar())
	src.tempDir = t.TempDir()
	src.dial = func(ctx context.Context, addr string, timeout time.Duration) (ftpConn, error) {
		assert.Equal(t, "ftp.example.com:21", addr)
		if dialErr != nil {
			return nil, dialErr
		}
		return conn, nil
	}
	return src
}

func TestFTPSource_Download(t *testing.T) {
	conn := &fakeFTP{files: map[string]string{"/stock.csv": scenarioFeed}}
	src := newFTPSource(t, conn, nil)

	raw, err := src.Download(context.Background(), ftpConfig("/stock.csv"))
	require.NoError(t, err)
	assert.Equal(t, scenarioFeed, string(raw))
	assert.Equal(t, 1, conn.quits)
}

func TestFTPSource_Failures(t *testing.T) {
	ctx := context.Background()

	src := newFTPSource(t, nil, errors.New("connection refused"))
	_, err := src.Download(ctx, ftpConfig("/stock.csv"))
	var fetchErr *apperrors.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, constants.FTPStepConnect, fetchErr.Step)
	assert.Equal(t, constants.ErrCodeFTPConnect, fetchErr.Code)

	conn := &fakeFTP{loginErr: errors.New("530 Login incorrect")}
	src = newFTPSource(t, conn, nil)
	_, err = src.Download(ctx, ftpConfig("/stock.csv"))
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, constants.FTPStepLogin, fetchErr.Step)
	assert.Equal(t, 1, conn.quits)

	conn = &fakeFTP{files: map[string]string{}}
	src = newFTPSource(t, conn, nil)
	_, err = src.Download(ctx, ftpConfig("/missing.csv"))
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, constants.FTPStepDownload, fetchErr.Step)
	assert.Equal(t, constants.ErrCodeFTPFileNotFound, fetchErr.Code)
	assert.Contains(t, err.Error(), "File not found")

	conn = &fakeFTP{files: map[string]string{"/empty.csv": ""}}
	src = newFTPSource(t, conn, nil)
	_, err = src.Download(ctx, ftpConfig("/empty.csv"))
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, constants.FetchReasonEmpty, fetchErr.Reason)
}

func TestPreview_FTPReportsSizeAndSamples(t *testing.T) {
	body := "code;qty;\nA1;10;\nA2;0;\nA3;4;\nA4;7;\n"
	conn := &fakeFTP{files: map[string]string{"/stock.csv": body}}

	f, _ := newTestFetcher(t, time.Second)
	f.WithSource(newFTPSource(t, conn, nil))

	cfg := ftpConfig("/stock.csv")
	preview, err := f.Preview(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"code;qty;"}, preview.Columns, "configured comma does not split")
	assert.Equal(t, ",", preview.ConfiguredDelimiter)
	assert.Equal(t, ";", preview.DetectedDelimiter)

	cfg.Delimiter = ";"
	preview, err = f.Preview(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"code", "qty"}, preview.Columns)
	assert.Equal(t, [][]string{{"A1", "10"}, {"A2", "0"}, {"A3", "4"}}, preview.SampleRows)
	assert.Equal(t, 4, preview.RowCount)
	assert.Equal(t, int64(len(body)), preview.FileSize)
	assert.Equal(t, "ftp://ftp.example.com:21/stock.csv", preview.Source)
}

func TestPreview_HeaderlessColumnsArePositional(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("A1\t10\nA2\t3\n"))
	}))
	defer server.Close()

	f, _ := newTestFetcher(t, time.Second)
	cfg := urlConfig(server.URL)
	cfg.Delimiter = `\t`
	cfg.HasHeader = false

	preview, err := f.Preview(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1"}, preview.Columns)
	assert.Equal(t, `\t`, preview.ConfiguredDelimiter)
	assert.Zero(t, preview.FileSize)
}
