// Package adzuna implements a client for the Adzuna job search API. One call
// fetches one page; retries and pacing are left to the caller.
package adzuna

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// PageSize is the number of results requested per page.
	PageSize       = 50
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

// Query holds the search parameters shared by the count request and every
// page request of a run.
type Query struct {
	What     string `json:"what"`
	Where    string `json:"where"`
	Distance int    `json:"distance"` // kilometers
	Category string `json:"category,omitempty"`
}

// Validate checks the parameters before any request is made.
func (q Query) Validate() error {
	if q.Distance < 0 {
		return fmt.Errorf("distance cannot be negative")
	}
	return nil
}

// Page is one decoded search response.
type Page struct {
	Count   int
	Results []map[string]any
}

// HTTPError is returned when a page request fails, either at the transport
// level (Err is set) or because the API answered with a non-2xx status.
type HTTPError struct {
	Page       int
	StatusCode int
	Body       string
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("adzuna page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("adzuna page %d: HTTP %d: %s", e.Page, e.StatusCode, e.Body)
}

func (e *HTTPError) Unwrap() error { return e.Err }

// Client performs search requests. It reuses a single http.Client for all
// pages of a run.
type Client struct {
	client    *http.Client
	baseURL   string
	appID     string
	appKey    string
	userAgent string
}

// New creates a Client with the given options applied.
func New(opts ...Option) *Client {
	c := &Client{
		client: &http.Client{Timeout: defaultTimeout},
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

// WithBaseURL sets the API root, e.g. https://api.adzuna.com/v1/api/jobs/fr.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithCredentials sets the application id and key.
func WithCredentials(appID, appKey string) Option {
	return func(c *Client) {
		c.appID = appID
		c.appKey = appKey
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// Count returns the total number of results the API reports for q.
func (c *Client) Count(ctx context.Context, q Query) (int, error) {
	p, err := c.Fetch(ctx, q, 1)
	if err != nil {
		return 0, err
	}
	return p.Count, nil
}

// Results returns the raw results of one page.
func (c *Client) Results(ctx context.Context, q Query, page int) ([]map[string]any, error) {
	p, err := c.Fetch(ctx, q, page)
	if err != nil {
		return nil, err
	}
	return p.Results, nil
}

type searchResponse struct {
	Count   int              `json:"count"`
	Results []map[string]any `json:"results"`
}

// Fetch issues one GET {base}/search/{page}. Failures are returned as
// *HTTPError and never retried.
func (c *Client) Fetch(ctx context.Context, q Query, page int) (*Page, error) {
	reqURL := fmt.Sprintf("%s/search/%d?%s", c.baseURL, page, c.params(q).Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &HTTPError{Page: page, Err: fmt.Errorf("build request: %w", redact(err))}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	res, err := c.client.Do(req) //nolint:gosec // URL built from internal config
	if err != nil {
		return nil, &HTTPError{Page: page, Err: redact(err)}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &HTTPError{Page: page, StatusCode: res.StatusCode, Body: string(body)}
	}

	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	var sr searchResponse
	if err := dec.Decode(&sr); err != nil {
		return nil, &HTTPError{Page: page, StatusCode: res.StatusCode, Err: fmt.Errorf("parse adzuna response: %w", err)}
	}

	slog.Debug("adzuna page fetched", "page", page, "count", sr.Count, "results", len(sr.Results))

	return &Page{Count: sr.Count, Results: sr.Results}, nil
}

func (c *Client) params(q Query) url.Values {
	v := url.Values{}
	v.Set("app_id", c.appID)
	v.Set("app_key", c.appKey)
	v.Set("what", q.What)
	v.Set("where", q.Where)
	v.Set("distance", strconv.Itoa(q.Distance))
	v.Set("results_per_page", strconv.Itoa(PageSize))
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	return v
}

// redact drops the request URL from transport errors so the app key does not
// end up in logs.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
