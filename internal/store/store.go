package store

import (
	"context"

	"github.com/sells-group/cny-realestate-etl/internal/db"
	"github.com/sells-group/cny-realestate-etl/internal/model"
)

// ParcelWrite says what SaveAssessment does to the parcel row.
type ParcelWrite int

const (
	// ParcelKeep leaves the parcel row untouched.
	ParcelKeep ParcelWrite = iota
	// ParcelInsert creates the parcel row.
	ParcelInsert
	// ParcelUpdate rewrites the mutable address fields.
	ParcelUpdate
)

// Stats summarizes warehouse contents.
type Stats struct {
	Parcels        int64 `json:"parcels" yaml:"parcels"`
	ParcelsWithZip int64 `json:"parcels_with_zip" yaml:"parcels_with_zip"`
	Assessments    int64 `json:"assessments" yaml:"assessments"`
	Ratios         int64 `json:"ratios" yaml:"ratios"`
	CompletedLoads int64 `json:"completed_loads" yaml:"completed_loads"`
	FailedLoads    int64 `json:"failed_loads" yaml:"failed_loads"`
}

// Store defines the persistence interface for the assessment warehouse.
type Store interface {
	// Parcels and assessments
	GetParcel(ctx context.Context, id string) (*model.Parcel, error)
	SaveAssessment(ctx context.Context, write ParcelWrite, parcel model.Parcel, a model.Assessment) error
	CountAssessments(ctx context.Context, county string, rollYear int) (int64, error)
	ClearAssessments(ctx context.Context, county string, rollYear int) (int64, error)

	// Ratios
	UpsertRatio(ctx context.Context, r model.AssessmentRatio) error
	CountRatios(ctx context.Context, county string, rateYear int) (int64, error)
	ClearRatios(ctx context.Context, county string, rateYear int) (int64, error)

	// Home values
	UpsertHomeValues(ctx context.Context, values []model.HomeValue) (int64, error)
	CountHomeValues(ctx context.Context, county string) (int64, error)

	// Load markers
	StartLoad(ctx context.Context, dataset model.Dataset, county string, year int) (string, error)
	CompleteLoad(ctx context.Context, id string, loaded, skipped int64) error
	FailLoad(ctx context.Context, id string, msg string) error
	LastLoad(ctx context.Context, dataset model.Dataset, county string, year int) (*model.LoadMarker, error)
	ListLoads(ctx context.Context) ([]model.LoadMarker, error)

	// Zip backfill
	ParcelsMissingZip(ctx context.Context, limit, offset int) ([]model.Parcel, error)
	SetZipIfUnknown(ctx context.Context, id, zip string) (bool, error)
	ParcelZips(ctx context.Context) (map[string]string, error)

	// Lifecycle
	Stats(ctx context.Context) (*Stats, error)
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

var assessmentUpsert = db.UpsertConfig{
	Table: "ny_property_assessments",
	Columns: []string{
		"property_id", "roll_year", "property_class", "property_class_description",
		"property_category", "front", "depth", "full_market_value",
		"assessment_land", "assessment_total",
	},
	ConflictKeys: []string{"property_id", "roll_year"},
}

var ratioUpsert = db.UpsertConfig{
	Table: "municipality_assessment_ratios",
	Columns: []string{
		"municipality_code", "rate_year", "municipality_name", "county_name",
		"residential_assessment_ratio",
	},
	ConflictKeys: []string{"municipality_code", "rate_year"},
}

var homeValueUpsert = db.UpsertConfig{
	Table: "zillow_home_value_index_sfh",
	Columns: []string{
		"municipality_name", "county_name", "state", "date", "home_value_index",
	},
	ConflictKeys: []string{"municipality_name", "county_name", "state", "date"},
}

var parcelInsert = db.UpsertConfig{
	Table: "properties",
	Columns: []string{
		"id", "swis_code", "print_key_code", "municipality_code", "municipality_name",
		"county_name", "school_district_code", "school_district_name",
		"address_street", "address_state", "address_zip",
	},
	ConflictKeys: []string{"id"},
	UpdateCols:   []string{},
}

func assessmentArgs(a model.Assessment) []any {
	return []any{
		a.PropertyID, a.RollYear, a.PropertyClass, a.PropertyClassDescription,
		a.PropertyCategory, a.Front, a.Depth, a.FullMarketValue,
		a.AssessmentLand, a.AssessmentTotal,
	}
}

func ratioArgs(r model.AssessmentRatio) []any {
	return []any{
		r.MunicipalityCode, r.RateYear, r.MunicipalityName, r.CountyName,
		r.ResidentialAssessmentRatio,
	}
}

func homeValueArgs(h model.HomeValue) []any {
	return []any{h.MunicipalityName, h.CountyName, h.State, h.Month, h.Index}
}

func parcelArgs(p model.Parcel) []any {
	var zip any
	if p.HasZip() {
		zip = p.Zip()
	}
	state := p.AddressState
	if state == "" {
		state = model.StateNY
	}
	return []any{
		p.ID, p.SwisCode, p.PrintKeyCode, p.MunicipalityCode, p.MunicipalityName,
		p.CountyName, p.SchoolDistrictCode, p.SchoolDistrictName,
		p.AddressStreet, state, zip,
	}
}

// zipArg returns nil for an absent zip so the column stays NULL.
func zipArg(p model.Parcel) any {
	if p.HasZip() {
		return p.Zip()
	}
	return nil
}
