package bato

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
	"strings"
	"time"

	"github.com/picatz/bato/internal/cache"
)

// DefaultBaseURL is the address of a locally running backend.
const DefaultBaseURL = "http://localhost:4000"

const (
	// DefaultRetries is the number of additional attempts made for a failed request.
	DefaultRetries = 2

	// DefaultBackoff is the delay before the first retry. It doubles on each attempt.
	DefaultBackoff = time.Second
)

// Client is a client for the learning-roadmap backend.
//
// A Client is safe for concurrent use.
type Client struct {
	// BaseURL is the backend address, without a trailing slash.
	BaseURL string

	// Token, when set, is sent as a bearer token with every request.
	Token string

	// HTTPClient is the HTTP client to use for requests.
	HTTPClient *http.Client

	// Retries is the number of additional attempts made after a network error or a
	// server error. Client errors are never retried.
	Retries int

	// Backoff is the delay before the first retry. The n-th retry waits Backoff * 2^n.
	Backoff time.Duration

	// RateLimits, when set, are waited on before each request.
	RateLimits *RateLimiters

	cacheTTL time.Duration
	noCache  bool
	cache    *cache.Cache[json.RawMessage]
	logger   *slog.Logger
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithHTTPClient is a ClientOption that sets the HTTP client to use for requests.
//
// If the client is nil, then http.DefaultClient is used
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		if c == nil {
			c = http.DefaultClient
		}
		client.HTTPClient = c
	}
}

// WithToken is a ClientOption that sets the bearer token sent with every request.
func WithToken(token string) ClientOption {
	return func(client *Client) {
		client.Token = token
	}
}

// WithLogger is a ClientOption that sets the logger for request tracing. Streams
// opened by the client log through it too, unless given their own logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithCacheTTL is a ClientOption that sets how long GET responses stay cached.
func WithCacheTTL(ttl time.Duration) ClientOption {
	return func(client *Client) {
		client.cacheTTL = ttl
	}
}

// WithCache is a ClientOption that turns the GET response cache on or off. It is on
// by default.
func WithCache(enabled bool) ClientOption {
	return func(client *Client) {
		client.noCache = !enabled
	}
}

// WithRetries is a ClientOption that sets the number of retries for failed requests.
func WithRetries(n int) ClientOption {
	return func(client *Client) {
		if n >= 0 {
			client.Retries = n
		}
	}
}

// WithBackoff is a ClientOption that sets the delay before the first retry.
func WithBackoff(d time.Duration) ClientOption {
	return func(client *Client) {
		if d >= 0 {
			client.Backoff = d
		}
	}
}

// WithRateLimiters is a ClientOption that makes the client wait on rl before each
// request.
func WithRateLimiters(rl *RateLimiters) ClientOption {
	return func(client *Client) {
		client.RateLimits = rl
	}
}

// NewClient returns a new Client for the backend at baseURL. An empty baseURL selects
// DefaultBaseURL.
//
// # Example
//
//	c := bato.NewClient(os.Getenv("BATO_API_URL"), bato.WithToken(os.Getenv("BATO_TOKEN")))
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: http.DefaultClient,
		Retries:    DefaultRetries,
		Backoff:    DefaultBackoff,
		cacheTTL:   cache.DefaultTTL,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if !c.noCache {
		c.cache = cache.New(c.cacheTTL, cache.WithLogger[json.RawMessage](c.logger))
	}

	return c
}

// InvalidateCache drops cached responses whose key contains pattern. An empty pattern
// drops everything.
func (c *Client) InvalidateCache(ctx context.Context, pattern string) {
	if c.cache == nil {
		return
	}
	c.cache.Invalidate(ctx, pattern)
}

// request describes one call made through Client.do.
type request struct {
	method string
	path   string
	query  url.Values
	body   any

	// cached GET responses are served from and stored in the response cache.
	cached bool

	// invalidate lists cache key patterns dropped after a successful call.
	invalidate []string
}

func (r request) url(base string) string {
	u := base + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	return u
}

// newRequest builds an HTTP request with the client's headers.
func (c *Client) newRequest(ctx context.Context, method, target string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	return req, nil
}

// do sends r, retrying failures that may be transient, and decodes the response
// payload into out when out is non-nil.
func (c *Client) do(ctx context.Context, r request, out any) error {
	target := r.url(c.BaseURL)

	if r.cached && c.cache != nil {
		if payload, ok := c.cache.Get(ctx, target); ok {
			c.logger.Debug("cache hit", "url", target)
			return decodePayload(payload, out)
		}
	}

	payload, err := c.send(ctx, r.method, target, r.body)
	if err != nil {
		return err
	}

	if r.cached && c.cache != nil {
		c.cache.Set(ctx, target, payload)
	}
	for _, pattern := range r.invalidate {
		c.InvalidateCache(ctx, pattern)
	}

	return decodePayload(payload, out)
}

// send performs the request with retries and returns the unwrapped payload.
func (c *Client) send(ctx context.Context, method, target string, body any) (json.RawMessage, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := c.RateLimits.wait(ctx, c.RateLimits.rest()); err != nil {
			return nil, err
		}

		req, err := c.newRequest(ctx, method, target, body)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		payload, err := c.roundTrip(req)
		c.logger.Debug("request",
			"method", method,
			"url", target,
			"attempt", attempt,
			"duration", time.Since(start),
			"error", err,
		)
		if err == nil {
			return payload, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("failed to send request: %w", ctx.Err())
		}
		if !retryable(err) || attempt >= c.Retries {
			return nil, lastErr
		}

		delay := c.Backoff << attempt
		c.logger.Warn("retrying request", "method", method, "url", target, "attempt", attempt+1, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("failed to send request: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

func (c *Client) roundTrip(req *http.Request) (json.RawMessage, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp, b)
	}

	return unwrap(b), nil
}

// retryable reports whether err may go away on a later attempt: network failures and
// server errors, but not client errors.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return true
}

// unwrap returns the payload of a {"success": ..., "data": ...} envelope, or the body
// itself when it isn't wrapped.
func unwrap(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return trimmed
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return trimmed
	}
	return envelope.Data
}

func decodePayload(payload json.RawMessage, out any) error {
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
