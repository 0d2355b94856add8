package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cny-realestate-etl/internal/fetcher"
	"github.com/sells-group/cny-realestate-etl/internal/homevalue"
	"github.com/sells-group/cny-realestate-etl/internal/observability"
)

var (
	homeValuesURL       string
	homeValuesNoPublish bool
)

var homeValuesCmd = &cobra.Command{
	Use:   "homevalues",
	Short: "Zillow home value index maintenance",
}

var homeValuesLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the single-family home value index",
	Long:  "Downloads the Zillow City ZHVI single-family file and upserts the monthly index for each municipality in the tracked counties.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		if homeValuesURL != "" {
			cfg.Zillow.CSVURL = homeValuesURL
		}
		if err := cfg.Validate("homevalues"); err != nil {
			return err
		}
		return runHomeValues(ctx, cfg.Zillow.CSVURL)
	},
}

func runHomeValues(ctx context.Context, src string) error {
	log := zap.L().With(zap.String("component", "cmd.homevalues"))
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

	workDir, err := os.MkdirTemp(cfg.ETL.TempDir, "cny-etl-*")
	if err != nil {
		return eris.Wrap(err, "create work dir")
	}
	defer os.RemoveAll(workDir) //nolint:errcheck

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Retry: retryPolicy()})
	open := func(ctx context.Context) (io.ReadCloser, error) {
		return fetcher.OpenFile(ctx, f, src, workDir, ".csv")
	}

	metrics := observability.NewMetrics()
	res, err := homevalue.NewLoader(st, metrics, nil).Load(ctx, open)
	if err != nil {
		return err
	}

	checkHealth(ctx, st, metrics)

	closed = true
	if err := st.Close(); err != nil {
		return eris.Wrap(err, "close store")
	}

	if err := publish(ctx, arts, res.Loaded > 0, homeValuesNoPublish); err != nil {
		return err
	}
	metrics.MarkSuccess(time.Now())
	pushMetrics(ctx, metrics)

	log.Info("home values finished",
		zap.String("source", src),
		zap.Int64("municipalities", res.Municipalities),
		zap.Int64("loaded", res.Loaded),
		zap.Int64("invalid", res.Invalid),
		zap.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func init() {
	homeValuesLoadCmd.Flags().StringVar(&homeValuesURL, "url", "", "ZHVI CSV URL or path (default: zillow.csv_url)")
	homeValuesLoadCmd.Flags().BoolVar(&homeValuesNoPublish, "no-publish", false, "do not upload the database")
	homeValuesCmd.AddCommand(homeValuesLoadCmd)
	rootCmd.AddCommand(homeValuesCmd)
}
