package homevalue

import (
	"context"
	"io"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cny-realestate-etl/internal/model"
	"github.com/sells-group/cny-realestate-etl/internal/observability"
	"github.com/sells-group/cny-realestate-etl/internal/store"
)

// MarkerCounty is the county recorded on home value load markers. One file
// covers every tracked county.
const MarkerCounty = "all"

// Opener returns the ZHVI file body.
type Opener func(ctx context.Context) (io.ReadCloser, error)

// Result summarizes one home value load.
type Result struct {
	Year           int   `json:"year" yaml:"year"`
	Municipalities int64 `json:"municipalities" yaml:"municipalities"`
	Loaded         int64 `json:"loaded" yaml:"loaded"`
	Invalid        int64 `json:"invalid" yaml:"invalid"`
}

// Loader writes the ZHVI file into the warehouse under a load marker.
type Loader struct {
	store    store.Store
	metrics  *observability.Metrics
	clock    clockwork.Clock
	counties []string
}

// NewLoader creates a Loader for the tracked counties. A nil clock uses real
// time.
func NewLoader(st store.Store, metrics *observability.Metrics, clock clockwork.Clock) *Loader {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Loader{store: st, metrics: metrics, clock: clock, counties: model.Counties}
}

// Load reads the file from open and upserts every monthly value. Values are
// keyed by municipality, county, state and month, so reloading a newer file
// replaces revised months and adds new ones. The marker year is the year
// the load ran.
func (l *Loader) Load(ctx context.Context, open Opener) (*Result, error) {
	started := l.clock.Now()
	res := &Result{Year: started.Year()}
	log := zap.L().With(
		zap.String("component", "homevalue"),
		zap.String("dataset", string(model.DatasetHomeValues)),
	)

	id, err := l.store.StartLoad(ctx, model.DatasetHomeValues, MarkerCounty, res.Year)
	if err != nil {
		return nil, eris.Wrap(err, "homevalue: start load")
	}

	if err := l.load(ctx, open, res); err != nil {
		elapsed := l.clock.Since(started)
		l.metrics.ObserveLoad(string(model.DatasetHomeValues), MarkerCounty, observability.LoadFailed, res.Loaded, res.Invalid, elapsed)
		log.Error("load failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		mctx := ctx
		if ctx.Err() != nil {
			mctx = context.WithoutCancel(ctx)
		}
		if ferr := l.store.FailLoad(mctx, id, truncate(err.Error(), 500)); ferr != nil {
			log.Error("record load failure", zap.Error(ferr))
		}
		return res, err
	}

	if err := l.store.CompleteLoad(ctx, id, res.Loaded, res.Invalid); err != nil {
		return res, eris.Wrap(err, "homevalue: record load completion")
	}
	elapsed := l.clock.Since(started)
	l.metrics.ObserveLoad(string(model.DatasetHomeValues), MarkerCounty, observability.LoadComplete, res.Loaded, res.Invalid, elapsed)
	log.Info("load complete",
		zap.Int64("municipalities", res.Municipalities),
		zap.Int64("loaded", res.Loaded),
		zap.Int64("invalid", res.Invalid),
		zap.Duration("elapsed", elapsed),
	)
	return res, nil
}

func (l *Loader) load(ctx context.Context, open Opener, res *Result) error {
	rc, err := open(ctx)
	if err != nil {
		return eris.Wrap(err, "homevalue: open source")
	}
	defer rc.Close() //nolint:errcheck

	parsed, err := Parse(ctx, rc, l.counties)
	if err != nil {
		return err
	}
	res.Municipalities = parsed.Rows
	res.Invalid = parsed.Invalid

	n, err := l.store.UpsertHomeValues(ctx, parsed.Values)
	if err != nil {
		return eris.Wrap(err, "homevalue: save values")
	}
	res.Loaded = n
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}

