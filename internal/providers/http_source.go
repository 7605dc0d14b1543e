package providers

import (
	"bytes"
	"context"
	"net"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"

	"yoco/stocksync/internal/apperrors"
	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/models/gorm"
)

// HTTPSource downloads URL feeds
type HTTPSource struct {
	client *resty.Client
}

// NewHTTPSource creates a source with one overall request timeout
func NewHTTPSource(timeout time.Duration, userAgent string) *HTTPSource {
	if userAgent == "" {
		userAgent = constants.DefaultUserAgent
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "text/csv, text/plain, */*")

	return &HTTPSource{client: client}
}

func (s *HTTPSource) Mode() constants.ConnectionMode {
	return constants.ConnectionURL
}

// Download GETs the feed URL. Transport failures, error statuses and empty
// bodies all become a FetchError.
func (s *HTTPSource) Download(ctx context.Context, cfg *gorm.SupplierFeedConfig) ([]byte, error) {
	fail := func(reason, code string, status int, err error) error {
		return &apperrors.FetchError{
			Source:     cfg.FeedURL,
			Mode:       constants.ConnectionURL,
			Reason:     reason,
			StatusCode: status,
			Code:       code,
			Err:        err,
		}
	}

	resp, err := s.client.R().
		SetContext(ctx).
		Get(cfg.FeedURL)
	if err != nil {
		if isTimeout(err) {
			return nil, fail(constants.FetchReasonTimeout, constants.ErrCodeFetchTimeout, 0, err)
		}
		return nil, fail(constants.FetchReasonNetwork, constants.ErrCodeFetchNetwork, 0, err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fail(constants.FetchReasonStatus, constants.ErrCodeFetchStatus, resp.StatusCode(), nil)
	}

	body := resp.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fail(constants.FetchReasonEmpty, constants.ErrCodeFetchEmpty, resp.StatusCode(), nil)
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
