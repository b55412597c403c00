// Package geocode resolves place names to coordinates through a
// Nominatim-compatible search endpoint. Lookups never fail the caller: any
// problem is logged and reported as "no coordinates".
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultEndpoint = "https://nominatim.openstreetmap.org/search"
	defaultTimeout  = 10 * time.Second
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Client looks up coordinates, caching successful answers.
type Client struct {
	client    *http.Client
	endpoint  string
	userAgent string
	cache     Cache
	group     singleflight.Group
}

// New creates a Client with the given options applied.
func New(opts ...Option) *Client {
	c := &Client{
		client:   &http.Client{Timeout: defaultTimeout},
		endpoint: DefaultEndpoint,
		cache:    NewMemoryCache(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithEndpoint overrides the search endpoint.
func WithEndpoint(ep string) Option {
	return func(c *Client) { c.endpoint = ep }
}

// WithUserAgent sets the User-Agent header. Nominatim rejects anonymous clients.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithCache replaces the default in-memory cache.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// Lookup returns the coordinates of the best match for q. It reports false
// when q is empty, nothing matched, or the lookup failed.
func (c *Client) Lookup(ctx context.Context, q string) (Point, bool) {
	key := strings.ToLower(strings.TrimSpace(q))
	if key == "" {
		return Point{}, false
	}

	if p, hit, err := c.cache.Get(ctx, key); err != nil {
		slog.Warn("geocode cache read failed", "query", q, "error", err)
	} else if hit {
		return p, true
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.fetch(ctx, q)
	})
	if err != nil {
		slog.Warn("geocode lookup failed", "query", q, "error", err)
		return Point{}, false
	}
	found, _ := v.(*Point)
	if found == nil {
		return Point{}, false
	}

	if err := c.cache.Set(ctx, key, *found); err != nil {
		slog.Warn("geocode cache write failed", "query", q, "error", err)
	}
	return *found, true
}

type place struct {
	Lat any `json:"lat"`
	Lon any `json:"lon"`
}

func (c *Client) fetch(ctx context.Context, q string) (*Point, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	res, err := c.client.Do(req) //nolint:gosec // URL from internal config
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned HTTP %d", res.StatusCode)
	}

	var places []place
	if err := json.NewDecoder(res.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("parse geocoder response: %w", err)
	}
	if len(places) == 0 {
		return nil, nil
	}

	lat, err := coordinate(places[0].Lat)
	if err != nil {
		return nil, fmt.Errorf("lat: %w", err)
	}
	lon, err := coordinate(places[0].Lon)
	if err != nil {
		return nil, fmt.Errorf("lon: %w", err)
	}
	return &Point{Lat: lat, Lon: lon}, nil
}

// coordinate accepts both the quoted numbers Nominatim sends and plain JSON
// numbers.
func coordinate(v any) (float64, error) {
	switch n := v.(type) {
	case string:
		return strconv.ParseFloat(n, 64)
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
