// Package transport provides the quota-aware, retrying HTTP client shared
// by both remote services. Policy is uniform: the daily quota is consulted
// before every call, every attempt (including the single retry) spends one
// unit of budget, transport and server errors are retried exactly once
// after a fixed delay, and client errors are terminal immediately.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/catalogops/oclcrecon/pkg/errors"
	"github.com/catalogops/oclcrecon/pkg/logging"
	"github.com/catalogops/oclcrecon/pkg/quota"
)

// DefaultHTTPTimeout bounds a single request attempt.
const DefaultHTTPTimeout = 90 * time.Second

// Client performs one logical remote operation at a time against a single
// service, enforcing quota, retry, and credential policy uniformly.
type Client struct {
	service     string
	http        *http.Client
	auth        Authenticator
	tracker     *quota.Tracker
	retryWait   time.Duration
	quotaHeader string
	sleep       func(time.Duration)
	logger      *zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithQuotaHeader names a response header carrying the service's own count
// of remaining daily requests; when present, its value is adopted by the
// quota tracker.
func WithQuotaHeader(name string) Option {
	return func(c *Client) { c.quotaHeader = name }
}

// WithSleep replaces the retry delay function (used by tests).
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for one service. Every request spends budget from
// tracker; retryWait is the fixed delay before the single retry.
func New(service string, auth Authenticator, tracker *quota.Tracker, retryWait time.Duration, opts ...Option) *Client {
	c := &Client{
		service:   service,
		http:      &http.Client{Timeout: DefaultHTTPTimeout},
		auth:      auth,
		tracker:   tracker,
		retryWait: retryWait,
		sleep:     time.Sleep,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs one logical operation: quota gate, authenticated request,
// and at most one retry on a transport or server error. On success it
// returns the response payload; the payload and error are never both set.
func (c *Client) Do(ctx context.Context, method, url string, header http.Header, body []byte) ([]byte, error) {
	if !c.tracker.CanSpend(1) {
		err := errors.NewQuotaError(c.tracker.Remaining(), c.tracker.Floor())
		c.logger.Error().
			Str("service", c.service).
			Int("remaining", c.tracker.Remaining()).
			Int("floor", c.tracker.Floor()).
			Msg("refusing request: daily quota floor reached")
		return nil, err
	}

	payload, err := c.attempt(ctx, method, url, header, body)
	if err == nil {
		return payload, nil
	}

	var apiErr *errors.APIError
	if !errors.As(err, &apiErr) || !apiErr.Retriable() {
		return nil, err
	}

	c.logger.Warn().
		Str("service", c.service).
		Str("url", url).
		Err(err).
		Dur("wait", c.retryWait).
		Msg("request failed, retrying once")
	c.sleep(c.retryWait)

	payload, retryErr := c.attempt(ctx, method, url, header, body)
	if retryErr != nil {
		return nil, &errors.RetryError{Service: c.service, Attempts: 2, Err: retryErr}
	}
	return payload, nil
}

// Get performs a GET operation.
func (c *Client) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, url, header, nil)
}

// attempt makes exactly one request attempt, spending one unit of budget.
func (c *Client) attempt(ctx context.Context, method, url string, header http.Header, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errors.NewValidationError("request", method+" "+url, err.Error())
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	if err := c.auth.Apply(ctx, req); err != nil {
		return nil, &errors.AuthenticationError{Service: c.service, Message: "failed to apply credentials", Err: err}
	}

	c.tracker.Spend(1)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &errors.APIError{Service: c.service, Endpoint: url, Message: "transport error", Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	c.observeQuota(resp)

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.APIError{Service: c.service, Endpoint: url, Message: "failed to read response body", Err: err}
	}

	c.logger.Debug().
		Str("service", c.service).
		Str("url", url).
		Int("status", resp.StatusCode).
		Msg("API response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewAPIError(c.service, resp.StatusCode, url, string(payload))
	}

	return payload, nil
}

func (c *Client) observeQuota(resp *http.Response) {
	if c.quotaHeader == "" {
		return
	}
	value := resp.Header.Get(c.quotaHeader)
	if value == "" {
		return
	}
	remaining, err := strconv.Atoi(value)
	if err != nil {
		c.logger.Warn().
			Str("service", c.service).
			Str("header", c.quotaHeader).
			Str("value", value).
			Msg("unparseable remaining-quota header")
		return
	}
	c.tracker.Observe(remaining)
}
