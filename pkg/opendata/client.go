// Package opendata provides a client for Socrata open-data endpoints such as
// data.ny.gov.
package opendata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/cny-realestate-etl/internal/resilience"
)

// Dataset identifiers on data.ny.gov.
const (
	PropertyAssessmentsDataset = "7vem-aaz7"
	AssessmentRatiosDataset    = "bsmp-6um6"
)

// DefaultPageSize is the number of rows requested per page.
const DefaultPageSize = 1000

// Record is one row as returned by the SODA API. Values are strings for
// text and number columns.
type Record map[string]any

// Query describes one SoQL request.
type Query struct {
	// Where is the $where clause.
	Where string
	// Order is the $order clause. Paging needs a stable order.
	Order string
	Limit  int
	Offset int
	// Filters are simple column equality filters.
	Filters map[string]string
}

func (q Query) values() url.Values {
	v := url.Values{}
	for k, val := range q.Filters {
		v.Set(k, val)
	}
	if q.Where != "" {
		v.Set("$where", q.Where)
	}
	if q.Order != "" {
		v.Set("$order", q.Order)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	v.Set("$limit", strconv.Itoa(limit))
	v.Set("$offset", strconv.Itoa(q.Offset))
	return v
}

// Client defines the open-data operations.
type Client interface {
	// Get fetches one page of a dataset.
	Get(ctx context.Context, dataset string, q Query) ([]Record, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithLimiter replaces the default request limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

// WithRetry replaces the default retry policy.
func WithRetry(cfg resilience.Policy) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	appToken string
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	retry    resilience.Policy
}

// NewClient creates a client. The default limiter allows three calls per
// minute, matching the unauthenticated throttle on data.ny.gov.
func NewClient(appToken string, opts ...Option) Client {
	c := &httpClient{
		appToken: appToken,
		baseURL:  "https://data.ny.gov",
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(20*time.Second), 3),
		retry:   resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.LogRetries("opendata", "get")
	}
	return c
}

func (c *httpClient) Get(ctx context.Context, dataset string, q Query) ([]Record, error) {
	endpoint := c.baseURL + "/resource/" + url.PathEscape(dataset) + ".json?" + q.values().Encode()

	return resilience.Call(ctx, c.retry, func(ctx context.Context) ([]Record, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "opendata: rate limit")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, eris.Wrap(err, "opendata: build request")
		}
		req.Header.Set("Accept", "application/json")
		if c.appToken != "" {
			req.Header.Set("X-App-Token", c.appToken)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "opendata: get %s", dataset)
		}
		defer resp.Body.Close() //nolint:errcheck

		if err := resilience.CheckResponse("opendata", resp); err != nil {
			return nil, err
		}

		var rows []Record
		if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
			return nil, eris.Wrapf(err, "opendata: decode %s", dataset)
		}
		return rows, nil
	})
}
