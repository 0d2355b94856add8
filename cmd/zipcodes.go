package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cny-realestate-etl/internal/artifact"
	"github.com/sells-group/cny-realestate-etl/internal/fetcher"
	"github.com/sells-group/cny-realestate-etl/internal/observability"
	"github.com/sells-group/cny-realestate-etl/internal/store"
	"github.com/sells-group/cny-realestate-etl/internal/zipfill"
)

// Backfill sources.
const (
	sourceCensus        = "census"
	sourceCache         = "cache"
	sourceOpenAddresses = "openaddresses"
	sourceAll           = "all"
)

var (
	zipSource    string
	zipGeoJSON   string
	zipLimit     int
	zipNoPublish bool
)

var zipcodesCmd = &cobra.Command{
	Use:   "zipcodes",
	Short: "Parcel zip code maintenance",
}

var zipcodesBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Fill unknown parcel zip codes",
	Long:  "Fills parcels with no zip code from the zip cache, the Census batch geocoder and an OpenAddresses GeoJSON extract. Known zip codes are never changed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		if err := cfg.Validate("zipcodes"); err != nil {
			return err
		}
		sources, err := backfillSources(zipSource, zipGeoJSON)
		if err != nil {
			return err
		}
		return runBackfill(ctx, sources)
	},
}

// backfillSources expands --source into the ordered list of sources to run.
func backfillSources(source, geojson string) ([]string, error) {
	switch source {
	case sourceCache, sourceCensus:
		return []string{source}, nil
	case sourceOpenAddresses:
		if geojson == "" {
			return nil, eris.New("zipcodes: --geojson is required for the openaddresses source")
		}
		return []string{source}, nil
	case sourceAll:
		out := []string{sourceCache, sourceCensus}
		if geojson != "" {
			out = append(out, sourceOpenAddresses)
		}
		return out, nil
	default:
		return nil, eris.Errorf("zipcodes: unknown source %q", source)
	}
}

func runBackfill(ctx context.Context, sources []string) error {
	log := zap.L().With(zap.String("component", "cmd.zipcodes"))
	started := time.Now()

	arts, err := initArtifacts(ctx)
	if err != nil {
		return err
	}
	if arts != nil {
		if _, err := arts.Fetch(ctx); err != nil {
			return eris.Wrap(err, "fetch published database")
		}
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	closed := false
	defer func() {
		if !closed {
			_ = st.Close()
		}
	}()
	if err := st.Migrate(ctx); err != nil {
		return eris.Wrap(err, "migrate store")
	}

	cache, err := loadZipCache(ctx, arts)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	var total zipfill.Stats
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats, err := backfillFrom(ctx, source, st, cache)
		if err != nil {
			return eris.Wrapf(err, "zipcodes: %s backfill", source)
		}
		metrics.ObserveBackfill(source, stats)
		log.Info("source complete",
			zap.String("source", source),
			zap.Int("submitted", stats.Submitted),
			zap.Int("updated", stats.Updated),
			zap.Int("untrusted", stats.Untrusted),
		)
		total.Add(stats)
	}

	if arts != nil {
		added, err := cache.Refresh(ctx, st)
		if err != nil {
			return err
		}
		log.Info("zip cache refreshed", zap.Int("added", added), zap.Int("entries", len(cache)))
		if err := arts.SaveZipCache(ctx, cache); err != nil {
			return err
		}
	}

	checkHealth(ctx, st, metrics)

	closed = true
	if err := st.Close(); err != nil {
		return eris.Wrap(err, "close store")
	}

	if err := publish(ctx, arts, total.Updated > 0, zipNoPublish); err != nil {
		return err
	}
	metrics.MarkSuccess(time.Now())
	pushMetrics(ctx, metrics)

	log.Info("backfill finished",
		zap.Int("submitted", total.Submitted),
		zap.Int("updated", total.Updated),
		zap.Int("known", total.Known),
		zap.Int("untrusted", total.Untrusted),
		zap.Int("mismatched", total.Mismatched),
		zap.Int("missing", total.Missing),
		zap.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func loadZipCache(ctx context.Context, arts *artifact.Artifacts) (zipfill.Cache, error) {
	if arts == nil {
		return zipfill.Cache{}, nil
	}
	return arts.LoadZipCache(ctx)
}

func backfillFrom(ctx context.Context, source string, st store.Store, cache zipfill.Cache) (zipfill.Stats, error) {
	switch source {
	case sourceCache:
		return cache.Apply(ctx, st)
	case sourceCensus:
		return zipfill.NewCensus(initGeocoder(), st).Run(ctx, zipLimit)
	case sourceOpenAddresses:
		oa, err := loadOpenAddresses(ctx, zipGeoJSON)
		if err != nil {
			return zipfill.Stats{}, err
		}
		return oa.Run(ctx, st, zipLimit)
	default:
		return zipfill.Stats{}, eris.Errorf("unknown source %q", source)
	}
}

// loadOpenAddresses reads a GeoJSON extract from a path or URL. Archives
// are unpacked into a scratch directory under etl.temp_dir.
func loadOpenAddresses(ctx context.Context, src string) (*zipfill.OpenAddresses, error) {
	workDir, err := os.MkdirTemp(cfg.ETL.TempDir, "cny-etl-*")
	if err != nil {
		return nil, eris.Wrap(err, "create work dir")
	}
	defer os.RemoveAll(workDir) //nolint:errcheck

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Retry: retryPolicy()})
	rc, err := fetcher.OpenSource(ctx, f, src, workDir)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	oa, err := zipfill.ReadOpenAddresses(rc)
	if err != nil {
		return nil, err
	}
	zap.L().Info("openaddresses loaded", zap.String("source", src), zap.Int("features", oa.Len()))
	return oa, nil
}

func init() {
	zipcodesBackfillCmd.Flags().StringVar(&zipSource, "source", sourceAll, "census, cache, openaddresses or all")
	zipcodesBackfillCmd.Flags().StringVar(&zipGeoJSON, "geojson", "", "OpenAddresses GeoJSON path or URL (.geojson, .gz or .zip)")
	zipcodesBackfillCmd.Flags().IntVar(&zipLimit, "limit", 0, "maximum parcels per source (0 = all)")
	zipcodesBackfillCmd.Flags().BoolVar(&zipNoPublish, "no-publish", false, "do not upload the database")
	zipcodesCmd.AddCommand(zipcodesBackfillCmd)
	rootCmd.AddCommand(zipcodesCmd)
}
