package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cny-realestate-etl/internal/artifact"
	"github.com/sells-group/cny-realestate-etl/internal/etl"
	"github.com/sells-group/cny-realestate-etl/internal/monitoring"
	"github.com/sells-group/cny-realestate-etl/internal/observability"
	"github.com/sells-group/cny-realestate-etl/internal/store"
)

var (
	runForce      bool
	runYear       int
	runCounties   []string
	runSkipRatios bool
	runNoPublish  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load the assessment roll and publish the database",
	Long:  "Downloads the published database, loads municipality ratios and the assessment roll for each county, then publishes the database with a new version marker.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		if err := cfg.Validate("run"); err != nil {
			return err
		}
		opts, err := runOptions(cmd)
		if err != nil {
			return err
		}
		return runETL(ctx, opts)
	},
}

// runOptions merges flags over the etl config section.
func runOptions(cmd *cobra.Command) (etl.Options, error) {
	opts := etl.Options{
		Year:       runYear,
		Force:      cfg.ETL.ForceRefresh,
		SkipRatios: runSkipRatios,
	}
	if cmd.Flags().Changed("force") {
		opts.Force = runForce
	}

	names := cfg.ETL.Counties
	if len(runCounties) > 0 {
		names = runCounties
	}
	counties, err := canonicalCounties(names)
	if err != nil {
		return opts, err
	}
	opts.Counties = counties
	return opts, nil
}

func runETL(ctx context.Context, opts etl.Options) error {
	log := zap.L().With(zap.String("component", "cmd.run"))
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

	metrics := observability.NewMetrics()
	engine := etl.NewEngine(initOpenData(), st, metrics, cfg.OpenData.PageSize)
	sum, err := engine.Run(ctx, opts)
	if err != nil {
		return eris.Wrap(err, "etl run")
	}

	checkHealth(ctx, st, metrics)

	closed = true
	if err := st.Close(); err != nil {
		return eris.Wrap(err, "close store")
	}

	if err := publish(ctx, arts, sum.Changed(), runNoPublish); err != nil {
		return err
	}

	if sum.Failed() == 0 {
		metrics.MarkSuccess(time.Now())
	}
	pushMetrics(ctx, metrics)

	log.Info("run finished",
		zap.Int("year", sum.Year),
		zap.Int("loaded", sum.Loaded()),
		zap.Int("skipped", sum.Skipped()),
		zap.Int("failed", sum.Failed()),
		zap.Duration("elapsed", time.Since(started)),
	)
	if n := sum.Failed(); n > 0 {
		return eris.Errorf("run: %d load unit(s) failed", n)
	}
	return nil
}

// publish uploads the closed database when it changed.
func publish(ctx context.Context, arts *artifact.Artifacts, changed, disabled bool) error {
	log := zap.L().With(zap.String("component", "cmd.publish"))
	switch {
	case arts == nil:
		log.Info("no artifact bucket configured, not publishing")
		return nil
	case disabled:
		log.Info("publishing disabled")
		return nil
	case !changed:
		log.Info("no new data, not publishing")
		return nil
	}
	if _, err := arts.Publish(ctx); err != nil {
		return eris.Wrap(err, "publish database")
	}
	return nil
}

// checkHealth updates the warehouse gauges and sends monitoring alerts.
func checkHealth(ctx context.Context, st store.Store, metrics *observability.Metrics) {
	rep := monitoring.NewChecker(st, cfg.Monitoring).Check(ctx)
	if rep.Snapshot != nil {
		metrics.ObserveWarehouse(rep.Snapshot.Parcels, rep.Snapshot.ParcelsWithZip)
	}
}

func pushMetrics(ctx context.Context, metrics *observability.Metrics) {
	if err := metrics.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
		zap.L().Warn("metrics push failed", zap.Error(err))
	}
}

func init() {
	runCmd.Flags().BoolVar(&runForce, "force", false, "clear and reload units that are already loaded")
	runCmd.Flags().IntVar(&runYear, "year", 0, "roll year to load (default: current roll year)")
	runCmd.Flags().StringSliceVar(&runCounties, "counties", nil, "counties to load (default: etl.counties)")
	runCmd.Flags().BoolVar(&runSkipRatios, "skip-ratios", false, "do not load municipality assessment ratios")
	runCmd.Flags().BoolVar(&runNoPublish, "no-publish", false, "do not upload the database")
	rootCmd.AddCommand(runCmd)
}
