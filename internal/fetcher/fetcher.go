// Package fetcher performs the HTTP GETs the archiver needs, with rate
// limiting, a per-request timeout and bounded retries.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/corpix/uarand"
	"github.com/davidroman0O/nairaland-archiver/internal/logger"
	"golang.org/x/time/rate"
)

// Default configuration values
const (
	DefaultTimeout     = 15 * time.Second
	DefaultRateLimitMs = 1000
	DefaultMaxRetries  = 3
	DefaultRetryWait   = time.Second
)

// ErrStatus is matched by every *StatusError.
var ErrStatus = errors.New("unexpected HTTP status")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.Code)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// Fetcher returns the body of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Config holds configuration for the HTTP fetcher
type Config struct {
	Timeout     time.Duration
	RateLimitMs int
	MaxRetries  int
	// RetryWait is the first backoff interval between attempts.
	RetryWait time.Duration
	// UserAgent is sent verbatim; empty picks a random browser agent per request.
	UserAgent string
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryWait <= 0 {
		c.RetryWait = DefaultRetryWait
	}
	return c
}

// HTTPFetcher is a Fetcher backed by net/http.
type HTTPFetcher struct {
	config  Config
	client  *http.Client
	limiter *rate.Limiter
	log     logger.Logger
}

// New creates an HTTP fetcher. A non-positive RateLimitMs disables rate limiting.
func New(config Config, log logger.Logger) *HTTPFetcher {
	config = config.withDefaults()

	limit := rate.Inf
	if config.RateLimitMs > 0 {
		// Convert ms between requests to requests per second
		limit = rate.Limit(1000.0 / float64(config.RateLimitMs))
	}

	return &HTTPFetcher{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// Fetch GETs url and returns its body. Transport failures, timeouts and
// 5xx/429 responses are retried up to MaxRetries attempts; other non-2xx
// statuses fail immediately with a *StatusError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	var body string
	attempt := 0

	operation := func() error {
		attempt++
		if err := f.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		b, err := f.get(ctx, url)
		if err == nil {
			body = b
			return nil
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !retryable(statusErr.Code) {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}

		f.log.Debug("Fetch attempt failed",
			logger.String("url", url),
			logger.Int("attempt", attempt),
			logger.Error(err))
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = f.config.RetryWait
	policy.MaxElapsedTime = 0

	retries := uint64(f.config.MaxRetries - 1)
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx)); err != nil {
		return "", err
	}
	return body, nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", backoff.Permanent(err)
	}

	userAgent := f.config.UserAgent
	if userAgent == "" {
		userAgent = uarand.GetRandom()
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			f.log.Debug("Failed to drain response body", logger.String("url", url), logger.Error(err))
		}
		return "", &StatusError{URL: url, Code: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
