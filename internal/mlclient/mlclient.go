// Package mlclient wraps the optional external model service.
//
// Every call follows the same contract: a nil result with a nil error means
// the service was unreachable (connection refused, DNS failure, timeout) and
// the caller should fall back to local computation. A non-nil error means the
// service answered with a real failure, which propagates to the caller.
package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mbd888/finsights/internal/metrics"
)

// DefaultTimeout bounds a single delegation attempt. A slow service must not
// hold up the local fallback path.
const DefaultTimeout = 3 * time.Second

// Client talks to the external model service over HTTP.
// A nil *Client is valid and behaves as "service never reachable".
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpc.Timeout = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a model service client. An empty baseURL returns nil, which
// callers treat as a permanently unavailable service.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		return nil
	}
	c := &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// serviceError is the error body the model service returns on failures.
type serviceError struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// post sends a JSON request and decodes the response into out.
// Returns (false, nil) when the service is unreachable, (false, err) on a
// real service error, and (true, nil) when out was populated.
func (c *Client) post(ctx context.Context, path string, body any, out any) (bool, error) {
	if c == nil {
		return false, nil
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return false, fmt.Errorf("marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		// Transport-level failure: connection refused, timeout, DNS. Callers
		// fall back to local computation.
		metrics.MLDelegationsTotal.WithLabelValues(path, "unavailable").Inc()
		c.logger.Warn("model service unreachable, using fallback", "path", path, "error", err)
		return false, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.MLDelegationsTotal.WithLabelValues(path, "error").Inc()
		var se serviceError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&se); decodeErr == nil && (se.Detail != "" || se.Error != "") {
			msg := se.Detail
			if msg == "" {
				msg = se.Error
			}
			return false, fmt.Errorf("model service %s: %s", path, msg)
		}
		return false, fmt.Errorf("model service %s: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.MLDelegationsTotal.WithLabelValues(path, "error").Inc()
		return false, fmt.Errorf("decode %s response: %w", path, err)
	}

	metrics.MLDelegationsTotal.WithLabelValues(path, "ok").Inc()
	return true, nil
}

// Available probes the /health endpoint.
func (c *Client) Available(ctx context.Context) bool {
	if c == nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	var status struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false
	}
	return status.Status == "healthy"
}
