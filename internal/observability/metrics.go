// Package observability holds the Prometheus metrics for ETL runs. The CLI
// is a batch job, so metrics live in a private registry and are pushed to a
// Pushgateway when one is configured.
package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cny-realestate-etl/internal/zipfill"
)

const namespace = "cny_etl"

// Load outcomes used as the status label.
const (
	LoadComplete = "complete"
	LoadFailed   = "failed"
	LoadSkipped  = "skipped"
)

// Metrics holds the counters, histograms and gauges for one CLI invocation.
type Metrics struct {
	registry *prometheus.Registry

	RecordsLoaded  *prometheus.CounterVec   // labels: dataset, county
	RecordsSkipped *prometheus.CounterVec   // labels: dataset, county
	Loads          *prometheus.CounterVec   // labels: dataset, status
	LoadDuration   *prometheus.HistogramVec // labels: dataset
	ParcelActions  *prometheus.CounterVec   // labels: action={insert,update,unchanged}

	// Zip backfill.
	ZipBackfill *prometheus.CounterVec // labels: source, outcome

	// Warehouse state after the run.
	Parcels     *prometheus.GaugeVec // labels: zip={known,unknown}
	LastSuccess prometheus.Gauge
}

// NewMetrics creates all metrics and registers them with a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RecordsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_loaded_total",
			Help:      "Source records written to the warehouse.",
		}, []string{"dataset", "county"}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Source records rejected by validation.",
		}, []string{"dataset", "county"}),
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Load units by dataset and outcome.",
		}, []string{"dataset", "status"}),
		LoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Wall time of one (dataset, county, year) load unit.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 2400},
		}, []string{"dataset"}),
		ParcelActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parcel_actions_total",
			Help:      "Reconciler decisions by action.",
		}, []string{"action"}),
		ZipBackfill: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zip_backfill_total",
			Help:      "Zip backfill matches by source and outcome.",
		}, []string{"source", "outcome"}),
		Parcels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "parcels",
			Help:      "Parcels in the warehouse by zip availability.",
		}, []string{"zip"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}

	m.registry.MustRegister(
		m.RecordsLoaded,
		m.RecordsSkipped,
		m.Loads,
		m.LoadDuration,
		m.ParcelActions,
		m.ZipBackfill,
		m.Parcels,
		m.LastSuccess,
	)
	return m
}

// Gatherer exposes the registry.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// ObserveLoad records the outcome of one load unit. A nil receiver is a no-op.
func (m *Metrics) ObserveLoad(dataset, county, status string, loaded, skipped int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Loads.WithLabelValues(dataset, status).Inc()
	if status == LoadSkipped {
		return
	}
	m.RecordsLoaded.WithLabelValues(dataset, county).Add(float64(loaded))
	m.RecordsSkipped.WithLabelValues(dataset, county).Add(float64(skipped))
	m.LoadDuration.WithLabelValues(dataset).Observe(elapsed.Seconds())
}

// ObserveParcel counts one reconciler decision.
func (m *Metrics) ObserveParcel(action string) {
	if m == nil {
		return
	}
	m.ParcelActions.WithLabelValues(action).Inc()
}

// ObserveBackfill records the outcome counts of one backfill source.
func (m *Metrics) ObserveBackfill(source string, s zipfill.Stats) {
	if m == nil {
		return
	}
	for outcome, n := range map[string]int{
		"updated":    s.Updated,
		"known":      s.Known,
		"untrusted":  s.Untrusted,
		"mismatched": s.Mismatched,
		"missing":    s.Missing,
	} {
		m.ZipBackfill.WithLabelValues(source, outcome).Add(float64(n))
	}
}

// ObserveWarehouse sets the parcel gauges.
func (m *Metrics) ObserveWarehouse(parcels, withZip int64) {
	if m == nil {
		return
	}
	m.Parcels.WithLabelValues("known").Set(float64(withZip))
	m.Parcels.WithLabelValues("unknown").Set(float64(parcels - withZip))
}

// MarkSuccess stamps the last-success gauge.
func (m *Metrics) MarkSuccess(at time.Time) {
	if m == nil {
		return
	}
	m.LastSuccess.Set(float64(at.Unix()))
}

// Push sends every metric to the Pushgateway at url under job. An empty url
// disables pushing.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if m == nil || url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return eris.Wrapf(err, "observability: push to %s", url)
	}
	return nil
}
