// Package nominatim implements geocode.Geocoder on top of the OpenStreetMap
// Nominatim search API.
package nominatim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/simongrossi/maptoposter-web/internal/domain"
	"github.com/simongrossi/maptoposter-web/internal/geocode"
	"github.com/simongrossi/maptoposter-web/internal/platform/retry"
	"github.com/tidwall/gjson"
)

// DefaultTimeout bounds a single search request.
const DefaultTimeout = 10 * time.Second

// Client queries a Nominatim instance.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	policy     retry.Policy
	logger     *slog.Logger
}

var _ geocode.Geocoder = (*Client)(nil)

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

// NewClient creates a client for the Nominatim instance at baseURL.
// Nominatim's usage policy requires an identifying user agent.
func NewClient(baseURL, userAgent string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		policy:     retry.DefaultPolicy(),
		logger:     logger.With("component", "nominatim"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode implements geocode.Geocoder.
func (c *Client) Geocode(ctx context.Context, city, country string) (domain.Coordinates, error) {
	var coords domain.Coordinates
	err := retry.Do(ctx, c.policy, c.logger, "nominatim search", func(ctx context.Context) error {
		var err error
		coords, err = c.search(ctx, city, country)
		return err
	})
	if err != nil {
		return domain.Coordinates{}, err
	}

	c.logger.DebugContext(ctx, "geocoded place", "city", city, "country", country, "lat", coords.Lat, "lon", coords.Lon)
	return coords, nil
}

func (c *Client) search(ctx context.Context, city, country string) (domain.Coordinates, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("%s, %s", city, country))
	q.Set("format", "jsonv2")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return domain.Coordinates{}, retry.Permanent(err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Coordinates{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Coordinates{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("nominatim returned status=%d body=%q", resp.StatusCode, truncate(string(body), 256))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return domain.Coordinates{}, err
		}
		return domain.Coordinates{}, retry.Permanent(err)
	}

	if !gjson.ValidBytes(body) {
		return domain.Coordinates{}, retry.Permanent(fmt.Errorf("%w: nominatim response is not JSON", domain.ErrInvalidFormat))
	}

	first := gjson.GetBytes(body, "0")
	if !first.Exists() {
		return domain.Coordinates{}, retry.Permanent(geocode.NotFound(city, country))
	}

	lat, lon := first.Get("lat"), first.Get("lon")
	if !lat.Exists() || !lon.Exists() {
		return domain.Coordinates{}, retry.Permanent(fmt.Errorf("%w: nominatim result without coordinates", domain.ErrInvalidFormat))
	}
	// Nominatim encodes coordinates as strings; Float() accepts both forms.
	return domain.Coordinates{Lat: lat.Float(), Lon: lon.Float()}, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
