// Package transport provides an HTTP GET client with bounded retry on
// transient failures.
package transport

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/opendatanl/verdragenbank-crawler/internal/metrics"
)

// ErrRetriesExhausted wraps the last failure once the attempt budget is spent.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Config controls timeout and retry behavior.
type Config struct {
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Client issues GET requests and retries transient failures with jittered
// exponential backoff. Status codes 429/500/502/503/504 and connection-level
// errors are retried; every other non-200 status fails immediately.
type Client struct {
	http   *http.Client
	cfg    Config
	logger *zap.Logger
}

// New builds a Client, filling in sane defaults for unset knobs.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:   &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger,
	}
}

// Get fetches rawURL with the given query parameters and returns the response
// body. A nil params is allowed. The error after the attempt budget is spent
// wraps ErrRetriesExhausted so callers can branch on transport failure.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			metrics.ObserveHTTPRetry()
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("awaiting retry: %w", ctx.Err())
			case <-time.After(c.backoff(attempt - 1)):
			}
		}

		body, retryable, err := c.do(ctx, rawURL, params)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
		c.logger.Warn("transient fetch failure",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, c.cfg.MaxAttempts, lastErr)
}

// do performs a single request. retryable reports whether the failure is
// worth another attempt.
func (c *Client) do(ctx context.Context, rawURL string, params url.Values) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	if len(params) > 0 {
		req.URL.RawQuery = params.Encode()
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, false, fmt.Errorf("request canceled: %w", err)
		}
		return nil, true, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	metrics.ObserveHTTPRequest(resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return nil, retryStatus(resp.StatusCode), fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Redacted())
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	return body, false, nil
}

// retryStatus reports whether the status code indicates a transient failure.
func retryStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// backoff returns the jittered wait before the next attempt.
func (c *Client) backoff(attempt int) time.Duration {
	delay := float64(c.cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(c.cfg.MaxDelay) {
		delay = float64(c.cfg.MaxDelay)
	}
	half := time.Duration(delay / 2)
	return half + randomJitter(half)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
