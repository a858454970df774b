package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultUserAgent identifies this client
	DefaultUserAgent = "srp/1.0"
	// DefaultTimeout for HTTP requests
	DefaultTimeout = 30 * time.Second
	// DefaultRateLimit is 2 requests per second
	DefaultRateLimit = rate.Limit(2.0)
	// MaxRetries for transient errors
	MaxRetries = 2
	// RetryBaseDelay is the initial backoff delay
	RetryBaseDelay = 1 * time.Second
)

var errNotFound = errors.New("not found")

// transport holds the HTTP settings shared by the lookup clients.
type transport struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string
	limiter    *rate.Limiter
	retryDelay time.Duration
	timeout    time.Duration
}

func newTransport(endpoint string) *transport {
	return &transport{
		endpoint:   endpoint,
		userAgent:  DefaultUserAgent,
		limiter:    rate.NewLimiter(DefaultRateLimit, 1),
		retryDelay: RetryBaseDelay,
		timeout:    DefaultTimeout,
	}
}

// Option configures a lookup client.
type Option func(*transport)

// WithHTTPClient sets a custom HTTP client. For WorldCat it replaces the
// OAuth client, so the caller is responsible for authorization.
func WithHTTPClient(client *http.Client) Option {
	return func(t *transport) {
		t.httpClient = client
	}
}

// WithEndpoint overrides the service base URL.
func WithEndpoint(endpoint string) Option {
	return func(t *transport) {
		if endpoint != "" {
			t.endpoint = endpoint
		}
	}
}

// WithRateLimit sets a custom rate limit (requests per second).
func WithRateLimit(rps float64) Option {
	return func(t *transport) {
		if rps > 0 {
			t.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithRetryDelay sets the initial backoff delay.
func WithRetryDelay(d time.Duration) Option {
	return func(t *transport) {
		t.retryDelay = d
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(t *transport) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(t *transport) {
		if ua != "" {
			t.userAgent = ua
		}
	}
}

// backoff waits before retry attempt n (n >= 1): base, 2*base, 4*base, ...
func backoff(ctx context.Context, base time.Duration, n int) error {
	delay := base * time.Duration(1<<uint(n-1))
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// get performs a GET with rate limiting and exponential backoff retry on
// network errors, 429 and 5xx. A 404 returns errNotFound.
func (t *transport) get(ctx context.Context, reqURL, accept string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			if err := backoff(ctx, t.retryDelay, attempt); err != nil {
				return nil, err
			}
		}

		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", t.userAgent)
		if accept != "" {
			req.Header.Set("Accept", accept)
		}

		resp, err := t.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, errNotFound
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))
			continue
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
		}

		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
