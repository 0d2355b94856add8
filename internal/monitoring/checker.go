package monitoring

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/cny-realestate-etl/internal/config"
)

// Report is the outcome of one health check.
type Report struct {
	// Snapshot is nil when the warehouse could not be read.
	Snapshot *Snapshot
	Alerts   []Alert
	// Delivered counts alerts accepted by the webhook.
	Delivered int
}

// Healthy reports whether the check read the warehouse and raised nothing.
func (r Report) Healthy() bool {
	return r.Snapshot != nil && len(r.Alerts) == 0
}

// Checker inspects the warehouse once at the end of a command.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	lookback  int
}

// NewChecker reads load markers and stats from src.
func NewChecker(src Source, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: NewCollector(src),
		alerter:   NewAlerter(cfg),
		lookback:  cfg.LookbackWindowHours,
	}
}

// Check never fails the command. A store error yields an empty Report.
func (c *Checker) Check(ctx context.Context) Report {
	log := zap.L().With(zap.String("component", "monitoring"))

	snap, err := c.collector.Collect(ctx, c.lookback)
	if err != nil {
		log.Error("health check skipped", zap.Error(err))
		return Report{}
	}

	rep := Report{Snapshot: snap, Alerts: c.alerter.Evaluate(snap)}
	if len(rep.Alerts) > 0 {
		rep.Delivered = c.alerter.SendAlerts(ctx, rep.Alerts)
	}
	log.Info("health check",
		zap.Int64("parcels", snap.Parcels),
		zap.Float64("zip_coverage", snap.ZipCoverage),
		zap.Int("failed_loads", snap.LoadsFailed),
		zap.Int("alerts", len(rep.Alerts)),
		zap.Int("delivered", rep.Delivered),
	)
	return rep
}
