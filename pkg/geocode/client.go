// Package geocode provides a batch client for the U.S. Census geocoder,
// used to recover postal zip codes for parcel street addresses.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/cny-realestate-etl/internal/resilience"
)

// MaxBatchSize is the largest number of addresses the Census batch endpoint
// accepts per request.
const MaxBatchSize = 10000

// MatchStatus classifies how confidently a geocoder matched an address.
type MatchStatus int

const (
	// StatusNone means the address was not matched.
	StatusNone MatchStatus = iota
	// StatusExact is a single exact match.
	StatusExact
	// StatusTied means candidates tied for best score.
	StatusTied
	// StatusPartial is a non-exact match.
	StatusPartial
	// StatusMultiple means several candidates disagree.
	StatusMultiple
)

var statusNames = map[MatchStatus]string{
	StatusNone:     "none",
	StatusExact:    "exact",
	StatusTied:     "tied",
	StatusPartial:  "partial",
	StatusMultiple: "multiple",
}

func (s MatchStatus) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// AddressInput is one address submitted for matching.
type AddressInput struct {
	// ID is echoed back on the Match. The parcel id is used here.
	ID     string
	Street string
	City   string
	State  string
	Zip    string
}

// Match is the geocoder's answer for one input address.
type Match struct {
	ID     string
	Input  string
	Status MatchStatus
	// Zip is the postal code of the matched address, empty when none.
	Zip            string
	MatchedAddress string
}

// Client defines the geocoding operations.
type Client interface {
	// BatchGeocode matches up to MaxBatchSize addresses in one request.
	// Results are in no particular order; use Match.ID to correlate.
	BatchGeocode(ctx context.Context, addrs []AddressInput) ([]Match, error)
}

// Option configures the client.
type Option func(*geocoder)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithLimiter replaces the default request limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(g *geocoder) {
		g.limiter = l
	}
}

// WithRetry replaces the default retry policy.
func WithRetry(cfg resilience.Policy) Option {
	return func(g *geocoder) {
		g.retry = cfg
	}
}

// WithBatchURL overrides the batch endpoint.
func WithBatchURL(u string) Option {
	return func(g *geocoder) {
		g.batchURL = u
	}
}

// WithBenchmark overrides the Census benchmark name.
func WithBenchmark(b string) Option {
	return func(g *geocoder) {
		g.benchmark = b
	}
}

type geocoder struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.Policy
	batchURL   string
	benchmark  string
}

// NewClient creates a Census geocoder. The default limiter allows four
// batch calls per minute.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
		limiter:   rate.NewLimiter(rate.Every(15*time.Second), 4),
		retry:     resilience.DefaultPolicy(),
		batchURL:  censusBatchURL,
		benchmark: censusBenchmark,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.retry.OnRetry == nil {
		g.retry.OnRetry = resilience.LogRetries("geocode", "census_batch")
	}
	return g
}
