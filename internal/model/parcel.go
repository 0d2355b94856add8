package model

import (
	"strings"
	"time"
)

// StateNY is the only state the warehouse covers.
const StateNY = "NY"

// Counties lists the counties loaded by the ETL.
var Counties = []string{"Cayuga", "Cortland", "Madison", "Onondaga", "Oswego"}

// Parcel is one physical property, keyed by "{swis_code} {print_key_code}".
type Parcel struct {
	ID                 string  `json:"id" yaml:"id"`
	SwisCode           string  `json:"swis_code" yaml:"swis_code"`
	PrintKeyCode       string  `json:"print_key_code" yaml:"print_key_code"`
	MunicipalityCode   string  `json:"municipality_code" yaml:"municipality_code"`
	MunicipalityName   string  `json:"municipality_name" yaml:"municipality_name"`
	CountyName         string  `json:"county_name" yaml:"county_name"`
	SchoolDistrictCode string  `json:"school_district_code" yaml:"school_district_code"`
	SchoolDistrictName string  `json:"school_district_name" yaml:"school_district_name"`
	AddressStreet      string  `json:"address_street" yaml:"address_street"`
	AddressState       string  `json:"address_state" yaml:"address_state"`
	AddressZip         *string `json:"address_zip,omitempty" yaml:"address_zip,omitempty"`
}

// ParcelID joins a swis code and print key into the parcel id.
func ParcelID(swisCode, printKeyCode string) string {
	return strings.TrimSpace(swisCode) + " " + strings.TrimSpace(printKeyCode)
}

// HasZip reports whether the parcel carries a trusted postal code.
func (p *Parcel) HasZip() bool {
	return p != nil && p.AddressZip != nil && *p.AddressZip != ""
}

// Zip returns the postal code or "".
func (p *Parcel) Zip() string {
	if !p.HasZip() {
		return ""
	}
	return *p.AddressZip
}

// Assessment is one roll-year fact for a parcel.
type Assessment struct {
	PropertyID               string  `json:"property_id" yaml:"property_id"`
	RollYear                 int     `json:"roll_year" yaml:"roll_year"`
	PropertyClass            int     `json:"property_class" yaml:"property_class"`
	PropertyClassDescription string  `json:"property_class_description" yaml:"property_class_description"`
	PropertyCategory         string  `json:"property_category" yaml:"property_category"`
	Front                    float64 `json:"front" yaml:"front"`
	Depth                    float64 `json:"depth" yaml:"depth"`
	FullMarketValue          int64   `json:"full_market_value" yaml:"full_market_value"`
	AssessmentLand           *int64  `json:"assessment_land,omitempty" yaml:"assessment_land,omitempty"`
	AssessmentTotal          *int64  `json:"assessment_total,omitempty" yaml:"assessment_total,omitempty"`
}

// AssessmentRatio is a municipality's residential assessment ratio for a
// rate year.
type AssessmentRatio struct {
	MunicipalityCode           string  `json:"municipality_code" yaml:"municipality_code"`
	RateYear                   int     `json:"rate_year" yaml:"rate_year"`
	MunicipalityName           string  `json:"municipality_name" yaml:"municipality_name"`
	CountyName                 string  `json:"county_name" yaml:"county_name"`
	ResidentialAssessmentRatio float64 `json:"residential_assessment_ratio" yaml:"residential_assessment_ratio"`
}

// HomeValue is one month of the typical single-family home value for a
// municipality. Month is "YYYY-MM".
type HomeValue struct {
	MunicipalityName string  `json:"municipality_name" yaml:"municipality_name"`
	CountyName       string  `json:"county_name" yaml:"county_name"`
	State            string  `json:"state" yaml:"state"`
	Month            string  `json:"date" yaml:"date"`
	Index            float64 `json:"home_value_index" yaml:"home_value_index"`
}

// Dataset names a load unit family.
type Dataset string

const (
	DatasetAssessments Dataset = "assessments"
	DatasetRatios      Dataset = "ratios"
	DatasetHomeValues  Dataset = "home_values"
)

// LoadStatus is the state of a load marker.
type LoadStatus string

const (
	LoadStatusRunning  LoadStatus = "running"
	LoadStatusComplete LoadStatus = "complete"
	LoadStatusFailed   LoadStatus = "failed"
)

// LoadMarker records one (dataset, county, year) load unit.
type LoadMarker struct {
	ID          string     `json:"id" yaml:"id"`
	Dataset     Dataset    `json:"dataset" yaml:"dataset"`
	CountyName  string     `json:"county_name" yaml:"county_name"`
	Year        int        `json:"year" yaml:"year"`
	Status      LoadStatus `json:"status" yaml:"status"`
	RowsLoaded  int64      `json:"rows_loaded" yaml:"rows_loaded"`
	RowsSkipped int64      `json:"rows_skipped" yaml:"rows_skipped"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}
