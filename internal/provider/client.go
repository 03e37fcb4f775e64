// Package provider talks to the hosted scraping actors that return raw
// platform content. Responses are untrusted and their schemas drift.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/creator-sync/internal/circuitbreaker"
	"github.com/creator-sync/internal/logging"
	"github.com/creator-sync/internal/retry"
	"github.com/creator-sync/internal/types"
)

// RawItem is one untrusted dataset item as returned by an actor
type RawItem = map[string]any

// Runner executes actor runs. Fetchers depend on this, not on *Client.
type Runner interface {
	Run(ctx context.Context, platform types.Platform, req Request) ([]RawItem, error)
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Budget charges a run against a shared spend budget before it starts
type Budget interface {
	Wait(ctx context.Context, platform types.Platform, limit int) error
}

// Options configures a Client
type Options struct {
	BaseURL    string
	Token      string
	RPS        int
	Timeout    time.Duration
	MaxRetries int
	Catalog    *Catalog
	HTTPClient *http.Client
	Retry      *retry.Config
	Budget     Budget // optional
}

// Client runs actors synchronously and returns their dataset items
type Client struct {
	baseURL  string
	token    string
	catalog  *Catalog
	http     *http.Client
	limiter  *rate.Limiter
	breakers *circuitbreaker.Manager
	retry    *retry.Config
	budget   Budget
}

// NewClient creates a provider client
func NewClient(opts Options) *Client {
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog()
	}
	if opts.HTTPClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 5 * time.Minute
		}
		opts.HTTPClient = &http.Client{Timeout: timeout}
	}
	rps := opts.RPS
	if rps <= 0 {
		rps = 2
	}
	retryCfg := opts.Retry
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
		if opts.MaxRetries > 0 {
			retryCfg.MaxAttempts = opts.MaxRetries + 1
		}
	}
	retryCfg.ShouldRetry = isTransient

	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		token:    opts.Token,
		catalog:  opts.Catalog,
		http:     opts.HTTPClient,
		limiter:  rate.NewLimiter(rate.Limit(rps), rps),
		breakers: circuitbreaker.NewManager(nil),
		retry:    retryCfg,
		budget:   opts.Budget,
	}
}

// Run executes the platform's actor with req and returns the dataset items
func (c *Client) Run(ctx context.Context, platform types.Platform, req Request) ([]RawItem, error) {
	actor, err := c.catalog.Actor(platform)
	if err != nil {
		return nil, err
	}
	input, err := BuildInput(platform, req)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode actor input: %w", err)
	}

	if c.budget != nil {
		limit := req.Limit
		if n := len(req.URLs); n > limit {
			limit = n
		}
		if err := c.budget.Wait(ctx, platform, limit); err != nil {
			return nil, fmt.Errorf("wait for provider budget: %w", err)
		}
	}

	breaker := c.breakers.Get(string(platform))
	var items []RawItem

	err = retry.Do(ctx, c.retry, func(ctx context.Context, attempt int) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return breaker.Execute(ctx, func() error {
			var callErr error
			items, callErr = c.call(ctx, actor, body)
			return callErr
		})
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"actor":  actor,
		"target": req.Target,
		"limit":  req.Limit,
		"items":  len(items),
	}).Debug("Actor run finished")

	return items, nil
}

func (c *Client) call(ctx context.Context, actor string, body []byte) ([]RawItem, error) {
	endpoint := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items", c.baseURL, url.PathEscape(actor))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(data)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}

	// numbers stay json.Number so 64-bit post IDs survive
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var items []RawItem
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode dataset items: %w", err)
	}
	return items, nil
}

// isTransient retries rate limits, server errors, timeouts and network failures
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode == http.StatusRequestTimeout ||
			statusErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return strings.Contains(err.Error(), "failed to make request")
}
