package zipfill

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cny-realestate-etl/internal/address"
	"github.com/sells-group/cny-realestate-etl/internal/model"
	"github.com/sells-group/cny-realestate-etl/internal/store"
	"github.com/sells-group/cny-realestate-etl/pkg/geocode"
)

// Stats counts what happened to each match handed to the matcher.
type Stats struct {
	Submitted  int `json:"submitted" yaml:"submitted"`
	Updated    int `json:"updated" yaml:"updated"`
	Known      int `json:"known" yaml:"known"`
	Untrusted  int `json:"untrusted" yaml:"untrusted"`
	Mismatched int `json:"mismatched" yaml:"mismatched"`
	Missing    int `json:"missing" yaml:"missing"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Submitted += o.Submitted
	s.Updated += o.Updated
	s.Known += o.Known
	s.Untrusted += o.Untrusted
	s.Mismatched += o.Mismatched
	s.Missing += o.Missing
}

// Matcher writes trusted matches back to parcels.
type Matcher struct {
	store store.Store
	log   *zap.Logger
}

// NewMatcher creates a matcher over st.
func NewMatcher(st store.Store) *Matcher {
	return &Matcher{
		store: st,
		log:   zap.L().With(zap.String("component", "zipfill")),
	}
}

// Apply joins every match back to its parcel by id and submitted address,
// then stores the zip if the parcel has none yet.
func (m *Matcher) Apply(ctx context.Context, matches []geocode.Match) (Stats, error) {
	var st Stats
	for _, match := range matches {
		if err := ctx.Err(); err != nil {
			return st, eris.Wrap(err, "zipfill: apply")
		}
		st.Submitted++

		zip, ok := Trusted(match)
		if !ok {
			st.Untrusted++
			continue
		}

		p, err := m.store.GetParcel(ctx, match.ID)
		if err != nil {
			return st, eris.Wrapf(err, "zipfill: load parcel %s", match.ID)
		}
		if p == nil {
			st.Missing++
			continue
		}
		if !submittedFor(*p, match.Input) {
			m.log.Debug("address changed since submission",
				zap.String("parcel_id", p.ID),
				zap.String("submitted", match.Input),
				zap.String("current", p.AddressStreet),
			)
			st.Mismatched++
			continue
		}
		if p.HasZip() {
			st.Known++
			continue
		}

		updated, err := m.store.SetZipIfUnknown(ctx, p.ID, zip)
		if err != nil {
			return st, eris.Wrapf(err, "zipfill: set zip for %s", p.ID)
		}
		if updated {
			st.Updated++
		} else {
			st.Known++
		}
	}
	return st, nil
}

// submittedFor reports whether input is the parcel's sanitized street, alone
// or as the first comma-separated part of a one-line address.
func submittedFor(p model.Parcel, input string) bool {
	street := address.SanitizeForGeocoder(p.AddressStreet)
	if street == "" {
		return false
	}
	input = strings.TrimSpace(input)
	if strings.EqualFold(input, street) {
		return true
	}
	return len(input) > len(street) &&
		strings.EqualFold(input[:len(street)], street) &&
		input[len(street)] == ','
}
