// Package gitlab provides a read-only GitLab REST v4 client.
package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/ratelimit"

	"github.com/codeGROOVE-dev/review-reminder/pkg/cache"
	"github.com/codeGROOVE-dev/review-reminder/pkg/types"
)

// Client handles all GitLab API interactions for a single run.
type Client struct {
	httpClient  HTTPDoer
	limiter     ratelimit.Limiter
	projects    cache.Store[int]
	users       cache.Store[*types.UserProfile]
	baseURL     string
	token       string
	maxAttempts uint
	retryDelay  time.Duration
}

// Config holds configuration for creating a new GitLab client.
type Config struct {
	HTTPClient        HTTPDoer                        // Optional; defaults to an http.Client with HTTPTimeout
	ProjectCache      cache.Store[int]                // Optional; defaults to an in-memory TTL cache
	ProfileCache      cache.Store[*types.UserProfile] // Optional; defaults to an in-memory TTL cache
	BaseURL           string                          // API root, e.g. https://gitlab.example.com/api/v4
	Token             string                          // Private or personal access token
	HTTPTimeout       time.Duration
	CacheTTL          time.Duration
	RetryDelay        time.Duration
	MaxAttempts       int
	RequestsPerSecond int // 0 disables client-side pacing
}

// Client defaults.
const (
	defaultHTTPTimeout = 30 * time.Second
	defaultCacheTTL    = time.Hour
	defaultRetryDelay  = time.Second
	maxRetryDelay      = 30 * time.Second
)

// errRetryable marks responses worth another attempt when MaxAttempts allows it.
var errRetryable = errors.New("retryable")

// StatusError reports a non-success HTTP status from the GitLab API.
type StatusError struct {
	Method string
	URL    string
	Body   string
	Status int
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// New creates a new GitLab API client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("gitlab base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid gitlab base URL %q", cfg.BaseURL)
	}
	if err := validateToken(cfg.Token); err != nil {
		return nil, err
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	attempts := max(cfg.MaxAttempts, 1)

	var doer HTTPDoer = cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: timeout}
	}

	limiter := ratelimit.NewUnlimited()
	if cfg.RequestsPerSecond > 0 {
		limiter = ratelimit.New(cfg.RequestsPerSecond)
	}

	projects := cfg.ProjectCache
	if projects == nil {
		projects = cache.New[int](ttl)
	}
	users := cfg.ProfileCache
	if users == nil {
		users = cache.New[*types.UserProfile](ttl)
	}

	return &Client{
		httpClient:  doer,
		limiter:     limiter,
		projects:    projects,
		users:       users,
		baseURL:     base,
		token:       cfg.Token,
		maxAttempts: uint(attempts), //nolint:gosec // bounded below by 1
		retryDelay:  delay,
	}, nil
}

// drainAndCloseBody drains and closes an HTTP response body to prevent resource leaks.
func drainAndCloseBody(body io.ReadCloser) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		slog.Warn("Failed to drain response body", "error", err)
	}
	if err := body.Close(); err != nil {
		slog.Warn("Failed to close response body", "error", err)
	}
}

// endpoint joins the API base URL with a path and query.
func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// getJSON performs a GET request and decodes a 200 response into v.
// It returns the response headers so callers can follow pagination.
func (c *Client) getJSON(ctx context.Context, apiURL string, v any) (http.Header, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, apiURL)
	if err != nil {
		return nil, err
	}
	defer drainAndCloseBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 512))
		if err != nil {
			body = nil
		}
		return nil, &StatusError{
			Method: http.MethodGet,
			URL:    sanitizeURLForLogging(apiURL),
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", sanitizeURLForLogging(apiURL), err)
	}
	return resp.Header, nil
}

// doRequest makes an HTTP request to the GitLab API, retrying transient failures
// up to the configured attempt count.
func (c *Client) doRequest(ctx context.Context, method, apiURL string) (*http.Response, error) {
	sanitizedURL := sanitizeURLForLogging(apiURL)
	slog.Debug("HTTP request", "component", "gitlab", "method", method, "url", sanitizedURL)

	var resp *http.Response
	err := retry.Do(
		func() error {
			c.limiter.Take()

			req, err := http.NewRequestWithContext(ctx, method, apiURL, http.NoBody)
			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}
			c.authorize(req)
			req.Header.Set("Accept", "application/json")

			localResp, err := c.httpClient.Do(req) //nolint:bodyclose // body is closed by the caller
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}

			if localResp.StatusCode == http.StatusTooManyRequests ||
				(localResp.StatusCode >= http.StatusInternalServerError && localResp.StatusCode < 600) {
				drainAndCloseBody(localResp.Body)
				return fmt.Errorf("%w: http %d", errRetryable, localResp.StatusCode)
			}

			resp = localResp
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.maxAttempts),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(c.retryDelay/4),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Info("Retry attempt", "component", "gitlab", "url", sanitizedURL, "attempt", n+1, "max_attempts", c.maxAttempts, "error", err)
		}),
		retry.RetryIf(isRetryable),
	)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, sanitizedURL, err)
	}

	slog.Debug("HTTP response", "component", "gitlab", "method", method, "url", sanitizedURL, "status", resp.StatusCode)
	return resp, nil
}

// isRetryable reports whether an error from a single attempt is transient.
func isRetryable(err error) bool {
	if errors.Is(err, errRetryable) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

// sanitizeURLForLogging strips query parameters that may carry credentials.
func sanitizeURLForLogging(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid-url]"
	}
	q := u.Query()
	for _, key := range []string{"private_token", "access_token", "token"} {
		if q.Has(key) {
			q.Set(key, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
