// Package etl loads the yearly assessment roll and municipality ratios from
// the open-data API into the warehouse store.
package etl

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cny-realestate-etl/internal/model"
	"github.com/sells-group/cny-realestate-etl/internal/normalize"
	"github.com/sells-group/cny-realestate-etl/internal/observability"
	"github.com/sells-group/cny-realestate-etl/internal/reconcile"
	"github.com/sells-group/cny-realestate-etl/internal/store"
	"github.com/sells-group/cny-realestate-etl/internal/taxonomy"
	"github.com/sells-group/cny-realestate-etl/pkg/opendata"
)

// AssessmentOrder is the stable sort used to page the assessment roll.
const AssessmentOrder = "swis_code,print_key_code ASC"

// ordinaryTaxable restricts the roll to roll section 1.
const ordinaryTaxable = "roll_section = 1"

// UnitStatus is the outcome of one (dataset, county, year) unit.
type UnitStatus string

const (
	UnitLoaded  UnitStatus = "loaded"
	UnitSkipped UnitStatus = "skipped"
	UnitFailed  UnitStatus = "failed"
)

// UnitResult reports one load unit.
type UnitResult struct {
	Dataset model.Dataset `json:"dataset" yaml:"dataset"`
	County  string        `json:"county" yaml:"county"`
	Year    int           `json:"year" yaml:"year"`
	Status  UnitStatus    `json:"status" yaml:"status"`
	Loaded  int64         `json:"loaded" yaml:"loaded"`
	Invalid int64         `json:"invalid" yaml:"invalid"`
	Error   string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Summary reports a whole run.
type Summary struct {
	Year  int          `json:"year" yaml:"year"`
	Units []UnitResult `json:"units" yaml:"units"`
}

func (s *Summary) count(status UnitStatus) int {
	n := 0
	for _, u := range s.Units {
		if u.Status == status {
			n++
		}
	}
	return n
}

// Loaded is the number of units that fetched and wrote data.
func (s *Summary) Loaded() int { return s.count(UnitLoaded) }

// Skipped is the number of units already present in the store.
func (s *Summary) Skipped() int { return s.count(UnitSkipped) }

// Failed is the number of units that aborted.
func (s *Summary) Failed() int { return s.count(UnitFailed) }

// Changed reports whether any unit wrote rows.
func (s *Summary) Changed() bool {
	for _, u := range s.Units {
		if u.Status == UnitLoaded && u.Loaded > 0 {
			return true
		}
	}
	return false
}

// Options selects what a run loads.
type Options struct {
	// Year is the roll year. Zero means CurrentRollYear.
	Year int
	// Force clears and reloads units that are already present.
	Force bool
	// Counties restricts the run. Empty means model.Counties.
	Counties []string
	// SkipRatios leaves municipality ratios alone.
	SkipRatios bool
}

// Engine runs load units against one store.
type Engine struct {
	client   opendata.Client
	store    store.Store
	metrics  *observability.Metrics
	pageSize int
}

// StorageError wraps a failed store read or write inside a unit. The unit's
// marker is set to failed and Run returns the error.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// NewEngine creates an engine. metrics may be nil.
func NewEngine(client opendata.Client, st store.Store, metrics *observability.Metrics, pageSize int) *Engine {
	if pageSize <= 0 {
		pageSize = opendata.DefaultPageSize
	}
	return &Engine{
		client:   client,
		store:    st,
		metrics:  metrics,
		pageSize: pageSize,
	}
}

// Run loads ratios and then assessments for every selected county. An
// upstream failure fails its unit and the run continues with the next one.
// Store errors and context cancellation end the run.
func (e *Engine) Run(ctx context.Context, opts Options) (*Summary, error) {
	log := zap.L().With(zap.String("component", "etl.engine"))

	year := opts.Year
	if year == 0 {
		year = CurrentRollYear()
	}
	if year < normalize.MinimumYear {
		return nil, eris.Errorf("etl: roll year %d is before %d", year, normalize.MinimumYear)
	}
	counties := opts.Counties
	if len(counties) == 0 {
		counties = model.Counties
	}

	sum := &Summary{Year: year}
	log.Info("starting run",
		zap.Int("year", year),
		zap.Strings("counties", counties),
		zap.Bool("force", opts.Force),
	)

	if !opts.SkipRatios {
		for _, county := range counties {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			res, err := e.loadRatios(ctx, county, year, opts.Force)
			if err != nil {
				if res.Status == UnitFailed {
					sum.Units = append(sum.Units, res)
				}
				return sum, err
			}
			sum.Units = append(sum.Units, res)
		}
	}

	for _, county := range counties {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res, err := e.loadAssessments(ctx, county, year, opts.Force)
		if err != nil {
			if res.Status == UnitFailed {
				sum.Units = append(sum.Units, res)
			}
			return sum, err
		}
		sum.Units = append(sum.Units, res)
	}

	log.Info("run complete",
		zap.Int("loaded", sum.Loaded()),
		zap.Int("skipped", sum.Skipped()),
		zap.Int("failed", sum.Failed()),
	)
	return sum, nil
}

// assessmentsPresent decides whether the (county, year) roll is already in
// the store. Databases written before load markers existed are recognised
// by their rows, and a complete marker is recorded for them.
func (e *Engine) assessmentsPresent(ctx context.Context, county string, year int) (bool, error) {
	marker, err := e.store.LastLoad(ctx, model.DatasetAssessments, county, year)
	if err != nil {
		return false, err
	}
	if marker != nil {
		return marker.Status == model.LoadStatusComplete, nil
	}

	n, err := e.store.CountAssessments(ctx, county, year)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	id, err := e.store.StartLoad(ctx, model.DatasetAssessments, county, year)
	if err != nil {
		return false, err
	}
	return true, e.store.CompleteLoad(ctx, id, n, 0)
}

func (e *Engine) loadAssessments(ctx context.Context, county string, year int, force bool) (UnitResult, error) {
	log := zap.L().With(
		zap.String("component", "etl.engine"),
		zap.String("dataset", string(model.DatasetAssessments)),
		zap.String("county", county),
		zap.Int("year", year),
	)
	res := UnitResult{Dataset: model.DatasetAssessments, County: county, Year: year}

	if force {
		n, err := e.store.ClearAssessments(ctx, county, year)
		if err != nil {
			return res, err
		}
		log.Info("cleared assessments for refresh", zap.Int64("rows", n))
	} else {
		present, err := e.assessmentsPresent(ctx, county, year)
		if err != nil {
			return res, eris.Wrapf(err, "etl: check assessments %s/%d", county, year)
		}
		if present {
			log.Info("assessments already loaded, skipping")
			res.Status = UnitSkipped
			e.metrics.ObserveLoad(string(res.Dataset), county, observability.LoadSkipped, 0, 0, 0)
			return res, nil
		}
	}

	id, err := e.store.StartLoad(ctx, model.DatasetAssessments, county, year)
	if err != nil {
		return res, err
	}

	log.Info("loading assessments")
	start := time.Now()
	pager := opendata.NewPager(e.client, opendata.PropertyAssessmentsDataset, opendata.Query{
		Where: ordinaryTaxable + " AND " + taxonomy.WhereFilter(taxonomy.Loaded),
		Order: AssessmentOrder,
		Limit: e.pageSize,
		Filters: map[string]string{
			"roll_year":   strconv.Itoa(year),
			"county_name": county,
		},
	})
	err = pager.Each(ctx, func(page []opendata.Record) error {
		for _, raw := range page {
			ok, err := e.saveRecord(ctx, raw, log)
			if err != nil {
				return err
			}
			if ok {
				res.Loaded++
			} else {
				res.Invalid++
			}
		}
		log.Debug("page saved", zap.Int("offset", pager.Offset()), zap.Int64("loaded", res.Loaded))
		return nil
	})
	return e.finish(ctx, id, res, err, time.Since(start), log)
}

// saveRecord normalizes, reconciles and writes one roll record. It returns
// false for a record that failed validation.
func (e *Engine) saveRecord(ctx context.Context, raw opendata.Record, log *zap.Logger) (bool, error) {
	frag, fact, err := normalize.Record(raw)
	if err != nil {
		var verr *normalize.ValidationError
		if errors.As(err, &verr) {
			log.Warn("skipping invalid record",
				zap.String("record", verr.RecordID),
				zap.Strings("fields", verr.FieldNames()),
				zap.Error(err),
			)
			return false, nil
		}
		return false, err
	}

	existing, err := e.store.GetParcel(ctx, frag.Parcel.ID)
	if err != nil {
		return false, &StorageError{Err: err}
	}
	dec := reconcile.Reconcile(existing, frag)

	if err := e.store.SaveAssessment(ctx, parcelWrite(dec.Action), dec.Parcel, fact.Assessment); err != nil {
		return false, &StorageError{Err: err}
	}
	e.metrics.ObserveParcel(dec.Action.String())
	return true, nil
}

func parcelWrite(a reconcile.Action) store.ParcelWrite {
	switch a {
	case reconcile.Insert:
		return store.ParcelInsert
	case reconcile.Update:
		return store.ParcelUpdate
	default:
		return store.ParcelKeep
	}
}

func (e *Engine) loadRatios(ctx context.Context, county string, year int, force bool) (UnitResult, error) {
	log := zap.L().With(
		zap.String("component", "etl.engine"),
		zap.String("dataset", string(model.DatasetRatios)),
		zap.String("county", county),
		zap.Int("year", year),
	)
	res := UnitResult{Dataset: model.DatasetRatios, County: county, Year: year}

	n, err := e.store.CountRatios(ctx, county, year)
	if err != nil {
		return res, eris.Wrapf(err, "etl: check ratios %s/%d", county, year)
	}
	if n > 0 && !force {
		log.Info("ratios already loaded, skipping", zap.Int64("rows", n))
		res.Status = UnitSkipped
		e.metrics.ObserveLoad(string(res.Dataset), county, observability.LoadSkipped, 0, 0, 0)
		return res, nil
	}
	if n > 0 {
		if _, err := e.store.ClearRatios(ctx, county, year); err != nil {
			return res, err
		}
	}

	id, err := e.store.StartLoad(ctx, model.DatasetRatios, county, year)
	if err != nil {
		return res, err
	}

	log.Info("loading ratios")
	start := time.Now()
	pager := opendata.NewPager(e.client, opendata.AssessmentRatiosDataset, opendata.Query{
		Limit: e.pageSize,
		Filters: map[string]string{
			"rate_year":   strconv.Itoa(year),
			"county_name": county,
		},
	})
	err = pager.Each(ctx, func(page []opendata.Record) error {
		for _, raw := range page {
			r, err := normalize.Ratio(raw)
			if err != nil {
				log.Warn("skipping invalid ratio", zap.Error(err))
				res.Invalid++
				continue
			}
			if err := e.store.UpsertRatio(ctx, r); err != nil {
				return &StorageError{Err: err}
			}
			res.Loaded++
		}
		return nil
	})
	return e.finish(ctx, id, res, err, time.Since(start), log)
}

// finish closes the unit's load marker. A unit error is recorded on the
// marker and reported in the result. A StorageError or a failure to write
// the marker is returned.
func (e *Engine) finish(ctx context.Context, id string, res UnitResult, unitErr error, elapsed time.Duration, log *zap.Logger) (UnitResult, error) {
	if unitErr != nil {
		res.Status = UnitFailed
		res.Error = unitErr.Error()
		log.Error("load failed",
			zap.Error(unitErr),
			zap.Int64("loaded", res.Loaded),
			zap.Duration("elapsed", elapsed),
		)
		e.metrics.ObserveLoad(string(res.Dataset), res.County, observability.LoadFailed, res.Loaded, res.Invalid, elapsed)
		if ctx.Err() != nil {
			ctx = context.WithoutCancel(ctx)
		}
		if err := e.store.FailLoad(ctx, id, truncate(unitErr.Error(), 500)); err != nil {
			return res, eris.Wrap(err, "etl: record load failure")
		}
		var serr *StorageError
		if errors.As(unitErr, &serr) {
			return res, eris.Wrapf(serr, "etl: %s %s/%d", res.Dataset, res.County, res.Year)
		}
		return res, nil
	}

	res.Status = UnitLoaded
	if err := e.store.CompleteLoad(ctx, id, res.Loaded, res.Invalid); err != nil {
		return res, eris.Wrap(err, "etl: record load completion")
	}
	e.metrics.ObserveLoad(string(res.Dataset), res.County, observability.LoadComplete, res.Loaded, res.Invalid, elapsed)
	log.Info("load complete",
		zap.Int64("loaded", res.Loaded),
		zap.Int64("invalid", res.Invalid),
		zap.Duration("elapsed", elapsed),
	)
	return res, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
