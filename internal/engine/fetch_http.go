package engine

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// maxPageBytes caps HTML pages read by FetchPage. Watch pages run to a few MB.
const maxPageBytes = 6 * 1024 * 1024

// StatusError is a non-200 answer from a remote endpoint.
type StatusError struct {
	Code int
	Body string // first bytes of the body, for diagnostics
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// PageBackOff is the retry schedule for HTML page fetches.
func PageBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	return bo
}

// FetchPage GETs an HTML page with browser-like headers, retrying transient
// failures with exponential backoff. Status codes other than 200 and the
// retryable ones fail at once.
func FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", RandomUserAgent())
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", cfg.YouTubeHL+";q=0.9,en;q=0.8")
		req.Header.Set("Accept-Encoding", "gzip")

		resp, err := cfg.HTTPClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			serr := &StatusError{Code: resp.StatusCode, Body: string(snippet)}
			if IsRetryableStatus(resp.StatusCode) {
				return nil, serr
			}
			return nil, backoff.Permanent(serr)
		}
		return readResponseBody(resp, maxPageBytes)
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(PageBackOff()),
		backoff.WithMaxTries(3),
		backoff.WithMaxElapsedTime(cfg.FetchTimeout))
}

// readResponseBody reads at most limit bytes of the response body, handling gzip
// decompression if needed.
func readResponseBody(resp *http.Response, limit int64) ([]byte, error) {
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		return io.ReadAll(io.LimitReader(gz, limit))
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}
