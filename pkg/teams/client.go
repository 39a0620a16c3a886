// Package teams delivers review reminders to a Microsoft Teams incoming webhook.
package teams

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/codeGROOVE-dev/review-reminder/pkg/reminder"
	"github.com/codeGROOVE-dev/review-reminder/pkg/types"
)

// HTTPDoer provides an interface for making HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds configuration for the webhook client.
type Config struct {
	HTTPClient  HTTPDoer
	WebhookURL  string
	HTTPTimeout time.Duration
	RetryDelay  time.Duration
	MaxAttempts int
}

// Client posts Adaptive Card messages to a Teams webhook.
type Client struct {
	httpClient  HTTPDoer
	webhookURL  string
	maxAttempts uint
	retryDelay  time.Duration
}

var _ reminder.Notifier = (*Client)(nil)

// errTransient marks failures worth another attempt when MaxAttempts allows it.
var errTransient = errors.New("transient")

// New creates a webhook client.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.WebhookURL)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, errors.New("teams webhook URL must be an absolute http(s) URL")
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	var doer HTTPDoer = cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpClient:  doer,
		webhookURL:  cfg.WebhookURL,
		maxAttempts: uint(max(cfg.MaxAttempts, 1)), //nolint:gosec // bounded below by 1
		retryDelay:  delay,
	}, nil
}

// Notify implements reminder.Notifier.
func (c *Client) Notify(ctx context.Context, to reminder.Recipient, mrs []types.MergeRequest) error {
	if to.Address == "" {
		return errors.New("recipient has no chat address")
	}
	return c.Post(ctx, BuildMessage(to, mrs))
}

// Post sends a message to the webhook. Any 2xx status counts as delivered.
func (c *Client) Post(ctx context.Context, msg Message) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // keep <at> mention tags literal
	if err := enc.Encode(msg); err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	payload := buf.Bytes()

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("webhook request failed: %w", err)
			}
			defer func() {
				if _, err := io.Copy(io.Discard, resp.Body); err != nil {
					slog.Warn("Failed to drain response body", "error", err)
				}
				if err := resp.Body.Close(); err != nil {
					slog.Warn("Failed to close response body", "error", err)
				}
			}()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
					return fmt.Errorf("%w: webhook returned status %d", errTransient, resp.StatusCode)
				}
				return fmt.Errorf("webhook returned status %d", resp.StatusCode)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.maxAttempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var urlErr *url.Error
			return errors.Is(err, errTransient) || errors.As(err, &urlErr)
		}),
		retry.OnRetry(func(n uint, err error) {
			slog.Info("Retry attempt", "component", "teams", "attempt", n+1, "max_attempts", c.maxAttempts, "error", err)
		}),
	)
}
