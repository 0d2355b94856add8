// Package normalize turns raw assessment-roll and ratio records from the
// open-data API into validated warehouse rows.
package normalize

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/cny-realestate-etl/internal/address"
	"github.com/sells-group/cny-realestate-etl/internal/model"
	"github.com/sells-group/cny-realestate-etl/internal/taxonomy"
)

// MinimumYear is the earliest roll or rate year accepted.
const MinimumYear = 2024

// FieldError describes one invalid field.
type FieldError struct {
	Field  string
	Reason string
}

// ValidationError lists every invalid field of a record.
type ValidationError struct {
	RecordID string
	Fields   []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Reason
	}
	id := e.RecordID
	if id == "" {
		id = "<unknown>"
	}
	return fmt.Sprintf("normalize: invalid record %s: %s", id, strings.Join(parts, "; "))
}

// FieldNames returns the invalid field names, sorted.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	sort.Strings(names)
	return names
}

// ParcelFragment is the parcel dimension as seen on one record, plus the
// owner mailing address used for the zip heuristic.
type ParcelFragment struct {
	Parcel  model.Parcel
	Mailing address.Mailing
}

// AssessmentFragment is the roll-year fact carried by one record.
type AssessmentFragment struct {
	Assessment model.Assessment
	Category   taxonomy.Category
}

// validator collects field errors while reading a raw record.
type validator struct {
	raw    map[string]any
	errors []FieldError
}

func (v *validator) fail(field, format string, args ...any) {
	v.errors = append(v.errors, FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
}

func (v *validator) text(field string) (string, bool) {
	val, ok := v.raw[field]
	if !ok || val == nil {
		return "", false
	}
	switch t := val.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return strings.TrimSpace(fmt.Sprint(t)), true
	}
}

// requiredText reads a trimmed string with a minimum length.
func (v *validator) requiredText(field string, minLen int) string {
	s, ok := v.text(field)
	if !ok || s == "" {
		v.fail(field, "required")
		return ""
	}
	if len(s) < minLen {
		v.fail(field, "shorter than %d characters", minLen)
	}
	return s
}

func (v *validator) optionalText(field string) string {
	s, _ := v.text(field)
	return s
}

func (v *validator) number(field string) (float64, bool, error) {
	s, ok := v.text(field)
	if !ok || s == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, true, fmt.Errorf("not a number: %q", s)
	}
	return f, true, nil
}

// requiredNumber reads a non-negative number.
func (v *validator) requiredNumber(field string, min float64) float64 {
	f, present, err := v.number(field)
	switch {
	case !present:
		v.fail(field, "required")
	case err != nil:
		v.fail(field, "%s", err)
	case f < min:
		v.fail(field, "must be >= %v", min)
	}
	return f
}

func (v *validator) requiredInt(field string, min int64) int64 {
	f := v.requiredNumber(field, float64(min))
	n, _ := v.whole(field, f)
	return n
}

// optionalInt returns nil when the field is absent or blank.
func (v *validator) optionalInt(field string) *int64 {
	f, present, err := v.number(field)
	if !present {
		return nil
	}
	if err != nil {
		v.fail(field, "%s", err)
		return nil
	}
	n, ok := v.whole(field, f)
	if !ok {
		return nil
	}
	return &n
}

// whole converts f to int64, failing the field when f has a fraction or
// does not fit. float64(math.MaxInt64) rounds up to 2^63, hence >=.
func (v *validator) whole(field string, f float64) (int64, bool) {
	switch {
	case f != math.Trunc(f):
		v.fail(field, "must be a whole number")
	case f >= math.MaxInt64 || f < math.MinInt64:
		v.fail(field, "out of range")
	default:
		return int64(f), true
	}
	return 0, false
}

func (v *validator) err(recordID string) error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{RecordID: recordID, Fields: v.errors}
}
