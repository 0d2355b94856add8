// Package taxonomy maps New York ORPS property class codes onto the fixed
// set of property categories used by the warehouse.
package taxonomy

import (
	"sort"
	"strconv"
	"strings"
)

// Category is a property category. The zero value is Other.
type Category int

const (
	Other Category = iota
	SingleFamily
	MultiFamily
	ApartmentCondoTownhouseRow
	Commercial
	LotsAndLand
	ManufacturedHome
)

// All lists every category in display order.
var All = []Category{
	SingleFamily,
	MultiFamily,
	ApartmentCondoTownhouseRow,
	Commercial,
	LotsAndLand,
	ManufacturedHome,
	Other,
}

// Loaded lists the categories the ETL pulls from the assessment roll.
var Loaded = []Category{
	SingleFamily,
	MultiFamily,
	ApartmentCondoTownhouseRow,
	Commercial,
	LotsAndLand,
	ManufacturedHome,
}

var categoryCodes = map[Category]string{
	SingleFamily:               "SFH",
	MultiFamily:                "MFR",
	ApartmentCondoTownhouseRow: "ATC",
	Commercial:                 "CP",
	LotsAndLand:                "LAL",
	ManufacturedHome:           "MH",
	Other:                      "OP",
}

var categoryDescriptions = map[Category]string{
	SingleFamily:               "Single Family House",
	MultiFamily:                "Multi Family Residence",
	ApartmentCondoTownhouseRow: "Apartment, Townhouse, Condo, Row House",
	Commercial:                 "Commercial Property",
	LotsAndLand:                "Lots and Land",
	ManufacturedHome:           "Manufactured Homes",
	Other:                      "Other Property Category",
}

// Code returns the short code (SFH, MFR, ...).
func (c Category) Code() string {
	if s, ok := categoryCodes[c]; ok {
		return s
	}
	return categoryCodes[Other]
}

// String returns the display description, which is also the persisted value.
func (c Category) String() string {
	if s, ok := categoryDescriptions[c]; ok {
		return s
	}
	return categoryDescriptions[Other]
}

// ParseCategory resolves a short code or a display description.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range All {
		if strings.EqualFold(s, c.Code()) || strings.EqualFold(s, c.String()) {
			return c, true
		}
	}
	return Other, false
}

type classEntry struct {
	description string
	category    Category
}

// Classify returns the category for a property class code. Codes missing
// from the table are Other.
func Classify(code int) Category {
	if e, ok := classTable[code]; ok {
		return e.category
	}
	return Other
}

// Describe returns the table description for a class code and whether the
// code is known.
func Describe(code int) (string, bool) {
	e, ok := classTable[code]
	return e.description, ok
}

// Codes returns every class code in the given categories, ascending.
func Codes(categories ...Category) []int {
	want := make(map[Category]bool, len(categories))
	for _, c := range categories {
		want[c] = true
	}
	var codes []int
	for code, e := range classTable {
		if want[e.category] {
			codes = append(codes, code)
		}
	}
	sort.Ints(codes)
	return codes
}

// WhereFilter builds the SoQL predicate selecting every property class in
// the allowed categories. An empty allow list yields an empty string.
func WhereFilter(allowed []Category) string {
	codes := Codes(allowed...)
	if len(codes) == 0 {
		return ""
	}
	quoted := make([]string, len(codes))
	for i, code := range codes {
		quoted[i] = strconv.Quote(strconv.Itoa(code))
	}
	return "property_class IN (" + strings.Join(quoted, ", ") + ")"
}
