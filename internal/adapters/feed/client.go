// Package feed implements the client for the upstream police events API.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hedvall/vakthund/internal/domain/model"
)

// defaultRequestTimeout bounds each feed request. On timeout the caller
// logs and skips the batch; nothing is retried within a cycle.
const defaultRequestTimeout = 15 * time.Second

// Client fetches raw incidents from the upstream feed over HTTP.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRequestTimeout sets the per-request timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// New creates a Client targeting the given feed base URL, e.g.
// "https://polisen.se/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{},
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Latest returns the feed's most recent incidents (GET /events).
func (c *Client) Latest(ctx context.Context) ([]model.Incident, error) {
	return c.get(ctx, c.baseURL+"/events")
}

// Day returns the incidents reported on a specific day
// (GET /events?DateTime=YYYY-MM-DD).
func (c *Client) Day(ctx context.Context, day time.Time) ([]model.Incident, error) {
	q := url.Values{}
	q.Set("DateTime", day.Format("2006-01-02"))
	return c.get(ctx, c.baseURL+"/events?"+q.Encode())
}

func (c *Client) get(ctx context.Context, rawURL string) ([]model.Incident, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var incidents []model.Incident
	if err := json.NewDecoder(resp.Body).Decode(&incidents); err != nil {
		return nil, fmt.Errorf("%w: decoding payload: %v", ErrFetch, err)
	}
	return incidents, nil
}
