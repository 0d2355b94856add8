package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cny-realestate-etl/internal/model"
	"github.com/sells-group/cny-realestate-etl/internal/store"
)

// Snapshot holds a point-in-time view of warehouse health.
type Snapshot struct {
	// Load units started within the lookback window.
	LoadsTotal    int      `json:"loads_total" yaml:"loads_total"`
	LoadsComplete int      `json:"loads_complete" yaml:"loads_complete"`
	LoadsFailed   int      `json:"loads_failed" yaml:"loads_failed"`
	LoadsRunning  int      `json:"loads_running" yaml:"loads_running"`
	FailedUnits   []string `json:"failed_units,omitempty" yaml:"failed_units,omitempty"`

	// Warehouse contents.
	Parcels        int64   `json:"parcels" yaml:"parcels"`
	ParcelsWithZip int64   `json:"parcels_with_zip" yaml:"parcels_with_zip"`
	ZipCoverage    float64 `json:"zip_coverage" yaml:"zip_coverage"`

	LookbackHours int       `json:"lookback_hours" yaml:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at" yaml:"collected_at"`
}

// Source is the part of the store the collector reads.
type Source interface {
	Stats(ctx context.Context) (*store.Stats, error)
	ListLoads(ctx context.Context) ([]model.LoadMarker, error)
}

// Collector gathers a Snapshot from the store.
type Collector struct {
	src   Source
	clock clockwork.Clock
}

// NewCollector creates a new collector.
func NewCollector(src Source) *Collector {
	return &Collector{src: src, clock: clockwork.NewRealClock()}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.clock.Now().UTC()
	snap := &Snapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	loads, err := c.src.ListLoads(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list loads")
	}
	for _, l := range loads {
		if l.StartedAt.Before(cutoff) {
			continue
		}
		snap.LoadsTotal++
		switch l.Status {
		case model.LoadStatusComplete:
			snap.LoadsComplete++
		case model.LoadStatusFailed:
			snap.LoadsFailed++
			snap.FailedUnits = append(snap.FailedUnits, fmt.Sprintf("%s/%s/%d", l.Dataset, l.CountyName, l.Year))
		case model.LoadStatusRunning:
			snap.LoadsRunning++
		}
	}

	stats, err := c.src.Stats(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: warehouse stats")
	}
	snap.Parcels = stats.Parcels
	snap.ParcelsWithZip = stats.ParcelsWithZip
	if stats.Parcels > 0 {
		snap.ZipCoverage = float64(stats.ParcelsWithZip) / float64(stats.Parcels)
	}
	return snap, nil
}
