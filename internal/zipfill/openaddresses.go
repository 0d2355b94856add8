package zipfill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/cny-realestate-etl/internal/address"
	"github.com/sells-group/cny-realestate-etl/internal/model"
	"github.com/sells-group/cny-realestate-etl/internal/store"
	"github.com/sells-group/cny-realestate-etl/pkg/geocode"
)

// OpenAddresses is an offline index of OpenAddresses point features keyed by
// normalized street line and city.
type OpenAddresses struct {
	byStreetCity map[string][]string
	byStreet     map[string][]string
	features     int
}

// ReadOpenAddresses indexes a GeoJSON FeatureCollection or a stream of
// newline-delimited Features, the format OpenAddresses publishes. Features
// without a point geometry or a street line are ignored.
func ReadOpenAddresses(r io.Reader) (*OpenAddresses, error) {
	oa := &OpenAddresses{
		byStreetCity: make(map[string][]string),
		byStreet:     make(map[string][]string),
	}
	dec := json.NewDecoder(r)
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return oa, nil
			}
			return nil, eris.Wrap(err, "zipfill: read openaddresses")
		}

		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return nil, eris.Wrap(err, "zipfill: read openaddresses type")
		}
		switch head.Type {
		case "FeatureCollection":
			var fc geojson.FeatureCollection
			if err := json.Unmarshal(raw, &fc); err != nil {
				return nil, eris.Wrap(err, "zipfill: decode feature collection")
			}
			for _, f := range fc.Features {
				oa.add(f)
			}
		case "Feature":
			var f geojson.Feature
			if err := json.Unmarshal(raw, &f); err != nil {
				return nil, eris.Wrap(err, "zipfill: decode feature")
			}
			oa.add(&f)
		default:
			return nil, eris.Errorf("zipfill: unexpected geojson type %q", head.Type)
		}
	}
}

// Len is the number of indexed features.
func (oa *OpenAddresses) Len() int { return oa.features }

func (oa *OpenAddresses) add(f *geojson.Feature) {
	if f == nil {
		return
	}
	if _, ok := f.Geometry.(*geom.Point); !ok {
		return
	}
	street := address.Normalize(address.StreetLine(prop(f, "number"), prop(f, "street")))
	zip := address.CleanZip(prop(f, "postcode"))
	if street == "" || zip == "" {
		return
	}
	oa.features++
	city := address.Normalize(prop(f, "city"))
	if city != "" {
		k := street + "|" + city
		oa.byStreetCity[k] = appendUnique(oa.byStreetCity[k], zip)
	}
	oa.byStreet[street] = appendUnique(oa.byStreet[street], zip)
}

// Lookup matches one parcel. A single zip for the exact street and city is
// Exact. Disagreeing zips are Multiple. A street-only hit is Partial.
func (oa *OpenAddresses) Lookup(p model.Parcel) geocode.Match {
	input := address.SanitizeForGeocoder(p.AddressStreet)
	m := geocode.Match{ID: p.ID, Input: input, Status: geocode.StatusNone}
	street := address.Normalize(input)
	if street == "" {
		return m
	}

	if zips := oa.byStreetCity[street+"|"+address.Normalize(p.MunicipalityName)]; len(zips) > 0 {
		return resolve(m, zips, geocode.StatusExact)
	}
	if zips := oa.byStreet[street]; len(zips) > 0 {
		return resolve(m, zips, geocode.StatusPartial)
	}
	return m
}

func resolve(m geocode.Match, zips []string, status geocode.MatchStatus) geocode.Match {
	if len(zips) > 1 {
		m.Status = geocode.StatusMultiple
		m.Zip = strings.Join(zips, ";")
		return m
	}
	m.Status = status
	m.Zip = zips[0]
	return m
}

// Run matches every parcel still missing a zip against the index.
func (oa *OpenAddresses) Run(ctx context.Context, st store.Store, limit int) (Stats, error) {
	log := zap.L().With(zap.String("component", "zipfill"), zap.String("source", "openaddresses"))
	matcher := NewMatcher(st)
	var total Stats

	err := eachMissing(ctx, st, limit, func(parcels []model.Parcel) (int, error) {
		matches := make([]geocode.Match, 0, len(parcels))
		for _, p := range parcels {
			matches = append(matches, oa.Lookup(p))
		}
		s, err := matcher.Apply(ctx, matches)
		total.Add(s)
		if err != nil {
			return 0, err
		}
		log.Info("openaddresses page applied",
			zap.Int("parcels", len(parcels)),
			zap.Int("updated", s.Updated),
		)
		return s.Updated, nil
	})
	return total, err
}

func prop(f *geojson.Feature, key string) string {
	v, ok := f.Properties[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
