package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/username/custody-schedule/pkg/random"
)

const (
	defaultRetries = 3
	defaultBackoff = time.Second
	backoffJitter  = 20 // percent
	maxBodySize    = 8 << 20
)

// StatusError is returned when an API answers with a non-2xx status
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API returned status %d", e.Code)
	}
	return fmt.Sprintf("API returned status %d: %s", e.Code, e.Body)
}

// httpFetcher performs GET requests, retrying transport errors and 5xx/429 answers
type httpFetcher struct {
	client  *http.Client
	retries int
	backoff time.Duration
	logger  *zap.Logger
}

func newHTTPFetcher(logger *zap.Logger) *httpFetcher {
	return &httpFetcher{
		client: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		retries: defaultRetries,
		backoff: defaultBackoff,
		logger:  logger,
	}
}

// get returns the response body of url
func (f *httpFetcher) get(ctx context.Context, url string) ([]byte, error) {
	retries := f.retries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		body, err := f.getOnce(ctx, url)
		if err == nil {
			return body, nil
		}

		lastErr = err
		if !retryable(ctx, err) || attempt == retries {
			break
		}

		wait := random.Backoff(f.backoff, attempt, backoffJitter)
		f.logger.Warn("Request failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", retries),
			zap.Duration("wait", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	return nil, lastErr
}

func (f *httpFetcher) getOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/calendar;q=0.9, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: snippet}
	}

	return body, nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return true
}
