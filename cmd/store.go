package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/cny-realestate-etl/internal/artifact"
	"github.com/sells-group/cny-realestate-etl/internal/model"
	"github.com/sells-group/cny-realestate-etl/internal/objstore"
	"github.com/sells-group/cny-realestate-etl/internal/resilience"
	"github.com/sells-group/cny-realestate-etl/internal/store"
	"github.com/sells-group/cny-realestate-etl/pkg/geocode"
	"github.com/sells-group/cny-realestate-etl/pkg/opendata"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.Store.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, eris.Wrap(err, "create database directory")
			}
		}
		return store.NewSQLite(cfg.Store.Path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initBucket returns nil when no artifact location is configured.
func initBucket(ctx context.Context) (objstore.Bucket, error) {
	a := cfg.Artifacts
	switch {
	case a.LocalDir != "":
		return objstore.NewLocal(a.LocalDir)
	case a.Bucket != "":
		return objstore.NewS3(ctx, objstore.S3Options{
			Bucket:   a.Bucket,
			Region:   a.Region,
			Prefix:   a.Prefix,
			Endpoint: a.Endpoint,
		})
	default:
		return nil, nil
	}
}

// initArtifacts returns nil unless the database is a SQLite file and a
// bucket is configured.
func initArtifacts(ctx context.Context) (*artifact.Artifacts, error) {
	if cfg.Store.Driver != "sqlite" || !cfg.UsesBucket() {
		return nil, nil
	}
	bucket, err := initBucket(ctx)
	if err != nil || bucket == nil {
		return nil, err
	}
	return artifact.New(bucket, cfg.Store.Path), nil
}

func retryPolicy() resilience.Policy {
	r := cfg.Retry
	return resilience.Policy{
		MaxAttempts:    r.MaxAttempts,
		InitialBackoff: time.Duration(r.InitialBackoffMs) * time.Millisecond,
		MaxBackoff:     time.Duration(r.MaxBackoffMs) * time.Millisecond,
		Multiplier:     r.Multiplier,
		JitterFraction: r.JitterFraction,
	}
}

// perMinute allows n calls per minute with a burst of n.
func perMinute(n int) *rate.Limiter {
	if n <= 0 {
		n = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
}

func initOpenData() opendata.Client {
	return opendata.NewClient(cfg.OpenData.AppToken,
		opendata.WithBaseURL(cfg.OpenData.BaseURL),
		opendata.WithLimiter(perMinute(cfg.OpenData.RateLimitPerMinute)),
		opendata.WithRetry(retryPolicy()),
	)
}

func initGeocoder() geocode.Client {
	opts := []geocode.Option{
		geocode.WithLimiter(perMinute(cfg.Geocoder.RateLimitPerMinute)),
		geocode.WithRetry(retryPolicy()),
	}
	if cfg.Geocoder.BatchURL != "" {
		opts = append(opts, geocode.WithBatchURL(cfg.Geocoder.BatchURL))
	}
	if cfg.Geocoder.Benchmark != "" {
		opts = append(opts, geocode.WithBenchmark(cfg.Geocoder.Benchmark))
	}
	if cfg.Geocoder.TimeoutSecs > 0 {
		opts = append(opts, geocode.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Geocoder.TimeoutSecs) * time.Second,
		}))
	}
	return geocode.NewClient(opts...)
}

// canonicalCounties maps county names onto model.Counties spelling. Unknown
// names are returned as an error.
func canonicalCounties(names []string) ([]string, error) {
	var out []string
	for _, raw := range names {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			found := false
			for _, c := range model.Counties {
				if strings.EqualFold(c, name) {
					out = append(out, c)
					found = true
					break
				}
			}
			if !found {
				return nil, eris.Errorf("unknown county %q", name)
			}
		}
	}
	return out, nil
}
