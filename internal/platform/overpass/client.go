// Package overpass fetches raw OpenStreetMap data from an Overpass API
// endpoint and decodes it into paulmach/osm structures.
package overpass

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/osm"
	"github.com/simongrossi/maptoposter-web/internal/platform/retry"
)

// DefaultEndpoint is the public Overpass interpreter.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// maxResponseSize bounds the body read from the interpreter.
const maxResponseSize = 512 << 20

// Client runs Overpass QL queries.
type Client struct {
	endpoint   string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	policy     retry.Policy
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(cl *Client) { cl.policy = p }
}

// NewClient creates a client for endpoint. timeout is both the server side
// query timeout and the HTTP client timeout.
func NewClient(endpoint, userAgent string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	c := &Client{
		endpoint:   endpoint,
		userAgent:  userAgent,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout + 10*time.Second},
		policy:     retry.DefaultPolicy(),
		logger:     logger.With("component", "overpass"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the query timeout embedded in generated queries.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Query runs q and returns the decoded answer.
func (c *Client) Query(ctx context.Context, q string) (*osm.OSM, error) {
	var result *osm.OSM
	start := time.Now()
	err := retry.Do(ctx, c.policy, c.logger, "overpass query", func(ctx context.Context) error {
		var err error
		result, err = c.query(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "overpass query finished",
		"nodes", len(result.Nodes),
		"ways", len(result.Ways),
		"relations", len(result.Relations),
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

func (c *Client) query(ctx context.Context, q string) (*osm.OSM, error) {
	form := url.Values{}
	form.Set("data", q)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("overpass returned status=%d body=%q", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, err
		}
		return nil, retry.Permanent(err)
	}

	o := &osm.OSM{}
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(o); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}
	return o, nil
}
