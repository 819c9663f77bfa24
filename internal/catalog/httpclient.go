package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/helixir/catalog-search-service/internal/domain"
	"github.com/helixir/catalog-search-service/internal/observability"
)

const (
	// maxErrorBodySize caps how much of an error response is kept.
	maxErrorBodySize = 1 << 20

	// maxResponseBodySize caps decoded catalog responses.
	maxResponseBodySize = 10 << 20
)

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Source is the catalog name used in errors and metric labels.
	Source string

	// Timeout is the request timeout for HTTP operations.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int

	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// APIKey is an optional API key for authentication.
	APIKey string

	// APIKeyHeader is the header name for the API key.
	APIKeyHeader string

	// Metrics records request counts and latencies. Optional.
	Metrics *observability.Metrics
}

// HTTPClient wraps http.Client with rate limiting and retries.
// It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
}

// NewHTTPClient creates a new HTTP client with rate limiting.
// The client applies rate limiting before each request and automatically
// retries on 429 (Too Many Requests) and 5xx server errors.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Source == "" {
		cfg.Source = "catalog"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = int(cfg.RateLimit)
		if cfg.BurstSize < 1 {
			cfg.BurstSize = 1
		}
	}
	// A negative MaxRetries disables retries.
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	} else if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Helixir-CatalogSearch/1.0"
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
	}
}

type endpointKey struct{}

// WithEndpoint labels requests made with ctx for metrics, e.g. "search" or "get".
func WithEndpoint(ctx context.Context, endpoint string) context.Context {
	return context.WithValue(ctx, endpointKey{}, endpoint)
}

func endpointFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(endpointKey{}).(string); ok && v != "" {
		return v
	}
	return "other"
}

// Do executes an HTTP request with rate limiting and retries.
// It waits for the rate limiter before each request attempt,
// sets the User-Agent and optional API key headers,
// and retries on 429 (Too Many Requests) with Retry-After support
// and on 5xx server errors.
//
// The request body is not preserved across retries; callers must provide
// requests with GetBody set if the body needs to be resent on retry.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	endpoint := endpointFromContext(req.Context())
	start := time.Now()

	resp, err := c.do(req)
	c.config.Metrics.RecordSourceRequest(c.config.Source, endpoint, time.Since(start).Seconds())
	if err != nil {
		c.config.Metrics.RecordSourceRequestFailed(c.config.Source, endpoint, classifyError(err))
	}
	return resp, err
}

func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
				return nil, err
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt < c.config.MaxRetries {
				if err := c.waitForRetry(req.Context(), c.config.RetryDelay); err != nil {
					return nil, err
				}
				if err := c.resetRequestBody(req); err != nil {
					return nil, fmt.Errorf("cannot retry request: %w", err)
				}
				continue
			}
			return nil, lastErr
		}

		if c.shouldRetry(resp.StatusCode) {
			retryDelay := c.getRetryDelay(resp)
			if resp.StatusCode == http.StatusTooManyRequests {
				c.config.Metrics.RecordSourceRateLimited(c.config.Source)
			}

			if resp.Body != nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}

			if attempt < c.config.MaxRetries {
				lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
				if err := c.waitForRetry(req.Context(), retryDelay); err != nil {
					return nil, err
				}
				if err := c.resetRequestBody(req); err != nil {
					return nil, fmt.Errorf("cannot retry request: %w", err)
				}
				continue
			}

			if resp.StatusCode == http.StatusTooManyRequests {
				return nil, fmt.Errorf("max retries exhausted after %d attempts: %w",
					c.config.MaxRetries+1, domain.NewRateLimitError(c.config.Source, retryDelay))
			}
			return nil, domain.NewExternalAPIError(c.config.Source, resp.StatusCode,
				fmt.Sprintf("max retries exhausted after %d attempts", c.config.MaxRetries+1), nil)
		}

		return resp, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("unexpected error: no response received")
}

// FallbackRequest builds the request for one attempt of DoWithFallback.
// fallback is false for the primary attempt and true for the retry.
type FallbackRequest func(ctx context.Context, fallback bool) (*http.Request, error)

// DoWithFallback runs the request built by build under a primary timeout.
// If that attempt times out while ctx is still live, it builds the request
// again with fallback set and runs it once more under fallbackTimeout.
// Any other failure is returned without a retry. The returned bool reports
// whether the response came from the fallback attempt.
//
// The response body stays readable until it is closed; closing it releases
// the attempt's timeout.
func (c *HTTPClient) DoWithFallback(ctx context.Context, timeout, fallbackTimeout time.Duration, build FallbackRequest) (*http.Response, bool, error) {
	resp, err := c.attempt(ctx, timeout, false, build)
	if err == nil {
		return resp, false, nil
	}
	if ctx.Err() != nil || !isTimeout(err) {
		return nil, false, err
	}

	c.config.Metrics.RecordSourceFallback(c.config.Source)

	resp, err = c.attempt(ctx, fallbackTimeout, true, build)
	if err != nil {
		return nil, true, fmt.Errorf("fallback request: %w", err)
	}
	return resp, true, nil
}

func (c *HTTPClient) attempt(ctx context.Context, timeout time.Duration, fallback bool, build FallbackRequest) (*http.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)

	req, err := build(attemptCtx, fallback)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose releases a request context once the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// CheckResponse returns nil for 200 responses. 404 maps to a NotFoundError
// for entity/id; any other status becomes an ExternalAPIError carrying a
// bounded prefix of the body.
func (c *HTTPClient) CheckResponse(resp *http.Response, entity, id string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode == http.StatusNotFound && entity != "" {
		return domain.NewNotFoundError(entity, id)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	return domain.NewExternalAPIError(c.config.Source, resp.StatusCode, string(body), nil)
}

// DecodeJSON decodes a JSON response body into out, reading at most
// maxResponseBodySize bytes.
func DecodeJSON(r io.Reader, out interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r, maxResponseBodySize)).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// shouldRetry returns true if the status code indicates we should retry.
func (c *HTTPClient) shouldRetry(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode >= 500 && statusCode < 600
}

// getRetryDelay determines how long to wait before retrying.
// It respects the Retry-After header if present, otherwise uses the configured retry delay.
func (c *HTTPClient) getRetryDelay(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return c.config.RetryDelay
	}

	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return c.config.RetryDelay
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		delay := time.Until(t)
		if delay > 0 {
			return delay
		}
	}

	return c.config.RetryDelay
}

// waitForRetry waits for the specified duration, respecting context cancellation.
func (c *HTTPClient) waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// resetRequestBody resets the request body for retry if possible.
func (c *HTTPClient) resetRequestBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to get request body for retry: %w", err)
	}
	req.Body = body
	return nil
}

// isTimeout reports whether err is a deadline or network timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classifyError maps a request error to a metric label.
func classifyError(err error) string {
	var rateErr *domain.RateLimitError
	var apiErr *domain.ExternalAPIError
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case isTimeout(err):
		return "timeout"
	case errors.As(err, &rateErr):
		return "rate_limited"
	case errors.As(err, &apiErr):
		return "status"
	default:
		return "network"
	}
}
