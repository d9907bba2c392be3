package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultUserAgent = "pkgdiff (+https://github.com/aweris/pkgdiff)"
	defaultAttempts  = 3
	defaultBackoff   = 500 * time.Millisecond
)

// HTTPOption configures the HTTP-backed sources.
type HTTPOption func(*httpClient)

type httpClient struct {
	client    *http.Client
	userAgent string
	attempts  int
	backoff   time.Duration
}

func newHTTPClient(opts []HTTPOption) *httpClient {
	c := &httpClient{
		client:    http.DefaultClient,
		userAgent: DefaultUserAgent,
		attempts:  defaultAttempts,
		backoff:   defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = http.DefaultClient
	}
	return c
}

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *httpClient) { c.client = client }
}

// WithTimeout sets a per-request timeout on a fresh client.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *httpClient) {
		if d > 0 {
			c.client = &http.Client{Timeout: d}
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(c *httpClient) { c.userAgent = ua }
}

// WithRetry sets the number of attempts and the initial backoff.
func WithRetry(attempts int, backoff time.Duration) HTTPOption {
	return func(c *httpClient) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

func (c *httpClient) get(ctx context.Context, url string) ([]byte, error) {
	return retry(ctx, c.attempts, c.backoff, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, permanent(err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusNotFound:
			return nil, permanent(fmt.Errorf("%w: GET %s", ErrNotFound, url))
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return nil, permanent(fmt.Errorf("GET %s: %s", url, resp.Status))
		default:
			return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", url, err)
		}
		return body, nil
	})
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// permanent marks an error that retry must not repeat.
func permanent(err error) error {
	return &permanentError{err: err}
}

func retry[T any](ctx context.Context, maxAttempts int, backoff time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := range maxAttempts {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		lastErr = err
		if i < maxAttempts-1 {
			delay := time.Duration(1<<i) * backoff
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return zero, lastErr
}
