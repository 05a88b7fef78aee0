// Package polymarket is the REST client for the Polymarket Gamma API, which
// provides catalog discovery and market metadata.
package polymarket

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hollis-labs/marketscout/internal/domain"
)

const (
	// defaultPageSize matches the Gamma API's maximum page size.
	defaultPageSize = 100

	// maxRetries is the number of retry attempts per page request after the
	// initial attempt fails with a non-2xx status.
	maxRetries = 3

	// retryBaseDelay is doubled on every retry attempt.
	retryBaseDelay = 400 * time.Millisecond

	// pageDelay throttles the request rate between consecutive pages
	// regardless of success.
	pageDelay = 200 * time.Millisecond
)

// GammaClient fetches the paginated event catalog from the Gamma API.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
	pageSize   int
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
// pageSize values below 1 fall back to the default page size.
func NewGammaClient(baseURL string, pageSize int) *GammaClient {
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	return &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		pageSize: pageSize,
	}
}

// GetEvents returns one page of raw parent records.
func (g *GammaClient) GetEvents(ctx context.Context, limit, offset int) ([]RawEvent, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	body, err := g.doGetWithRetry(ctx, "/events?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get events at offset %d: %w", offset, err)
	}

	page, err := decodeRecordPage(body)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// FetchAllEvents paginates through the entire event catalog. Pagination
// continues while pages come back full-sized; a short or empty page
// terminates the sequence. A page failure after retries aborts the whole
// fetch: there is no partial-catalog fallback.
func (g *GammaClient) FetchAllEvents(ctx context.Context) ([]RawEvent, error) {
	var all []RawEvent
	offset := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("polymarket/gamma: fetch cancelled: %w", err)
		}

		page, err := g.GetEvents(ctx, g.pageSize, offset)
		if err != nil {
			return nil, err
		}

		all = append(all, page...)
		if len(page) < g.pageSize {
			break
		}
		offset += g.pageSize

		if err := sleepCtx(ctx, pageDelay); err != nil {
			return nil, fmt.Errorf("polymarket/gamma: fetch cancelled: %w", err)
		}
	}

	return all, nil
}

// doGetWithRetry issues a GET request, retrying non-2xx responses with
// exponential backoff. The returned error names the failing URL and the last
// observed status.
func (g *GammaClient) doGetWithRetry(ctx context.Context, path string) ([]byte, error) {
	fullURL := g.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(1<<(attempt-1))
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
		}

		body, status, err := g.doGet(ctx, fullURL)
		if err != nil {
			lastErr = err
			continue
		}
		if status >= 200 && status < 300 {
			return body, nil
		}

		lastErr = httpStatusError(fullURL, status, body)
	}

	return nil, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// doGet sends a single unauthenticated GET request.
func (g *GammaClient) doGet(ctx context.Context, fullURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request %s: %w", fullURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response %s: %w", fullURL, err)
	}

	return body, resp.StatusCode, nil
}

// httpStatusError maps a non-2xx response to an error, wrapping domain
// sentinels for the statuses callers distinguish.
func httpStatusError(fullURL string, status int, body []byte) error {
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("GET %s: %w: %s", fullURL, domain.ErrNotFound, body)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("GET %s: %w: %s", fullURL, domain.ErrUnauthorized, body)
	case http.StatusTooManyRequests:
		return fmt.Errorf("GET %s: %w: %s", fullURL, domain.ErrRateLimited, body)
	default:
		return fmt.Errorf("GET %s: HTTP %d: %s", fullURL, status, body)
	}
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
