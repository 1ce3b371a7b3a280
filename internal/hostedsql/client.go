// Package hostedsql is the client for the managed HTTP SQL endpoint. The
// endpoint accepts a single flat SQL string per request and is internally
// connection-pooled, so there is nothing to check out or release on this
// side. Outbound calls go through a circuit breaker with bounded retries,
// matching the resilience rules applied to every external HTTP dependency.
package hostedsql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"invoicedash/internal/types"
)

// Config holds the endpoint location and resilience settings.
type Config struct {
	// URL is the full query endpoint, e.g. https://sql.example.com/v1/query.
	URL string
	// Token is the bearer token sent with every request.
	Token string
	// MaxRetries bounds retry attempts after the first try.
	MaxRetries int
	// RetryWait is the fixed delay between attempts.
	RetryWait time.Duration
	// UserAgent identifies this service to the endpoint.
	UserAgent string
}

// DefaultConfig returns sensible defaults for everything but URL and Token.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 2,
		RetryWait:  500 * time.Millisecond,
		UserAgent:  "invoicedash/1.0",
	}
}

// Result is one decoded query response. Rows hold JSON-decoded values
// (string, float64, bool, nil) positionally matching Fields.
type Result struct {
	Fields   []string `json:"fields"`
	Rows     [][]any  `json:"rows"`
	RowCount int64    `json:"rowCount"`
}

// Client executes flat SQL strings against the hosted endpoint.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	cfg        Config
	sleepFn    func(time.Duration) // injected for tests
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithSleepFunc overrides the sleep between retries. Testing only.
func WithSleepFunc(fn func(time.Duration)) Option {
	return func(c *Client) { c.sleepFn = fn }
}

// New creates a Client with a circuit breaker that opens after a run of
// consecutive failures, so a dead endpoint fails fast instead of queueing
// dashboard renders behind timeouts.
func New(httpClient *http.Client, cfg Config, opts ...Option) *Client {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "hosted-sql",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	c := &Client{
		httpClient: httpClient,
		breaker:    cb,
		cfg:        cfg,
		sleepFn:    time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// queryRequest is the wire format of a query call.
type queryRequest struct {
	Query string `json:"query"`
}

// errorResponse is the endpoint's error envelope.
type errorResponse struct {
	Message string `json:"message"`
}

// Query executes sql and decodes the result. sql must be a fully-inlined
// string (the endpoint has no parameter binding); callers obtain it from
// sqlt.Query.Inline, never by concatenating user input.
func (c *Client) Query(ctx context.Context, sql string) (*Result, error) {
	body, err := json.Marshal(queryRequest{Query: sql})
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode query request", err)
	}

	var lastErr error
	maxAttempts := 1 + c.cfg.MaxRetries
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
			if reqErr != nil {
				return nil, reqErr
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
			if c.cfg.UserAgent != "" {
				req.Header.Set("User-Agent", c.cfg.UserAgent)
			}

			r, doErr := c.httpClient.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			// 5xx counts as a breaker failure; 4xx is a caller problem
			// and must not trip the breaker.
			if r.StatusCode >= 500 {
				return r, fmt.Errorf("endpoint returned %d", r.StatusCode)
			}
			return r, nil
		})

		if err == nil {
			return decodeResult(resp)
		}
		lastErr = err
		if resp != nil {
			resp.Body.Close()
		}

		// An open breaker will not recover within this request.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}

		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, types.NewAppError(types.ErrCodeUpstreamSQL, "query cancelled", ctx.Err())
			default:
			}
			c.sleepFn(c.cfg.RetryWait)
		}
	}

	return nil, types.NewAppError(types.ErrCodeUpstreamSQL, "hosted SQL endpoint unavailable", lastErr)
}

// decodeResult reads and decodes a non-5xx response.
func decodeResult(resp *http.Response) (*Result, error) {
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamSQL, "failed to read endpoint response", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		_ = json.Unmarshal(raw, &e)
		msg := e.Message
		if msg == "" {
			msg = fmt.Sprintf("endpoint returned %d", resp.StatusCode)
		}
		return nil, types.NewAppError(types.ErrCodeUpstreamSQL, msg, nil)
	}

	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamSQL, "failed to decode endpoint response", err)
	}
	return &res, nil
}
