package zipfill

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/cny-realestate-etl/internal/address"
	"github.com/sells-group/cny-realestate-etl/internal/model"
	"github.com/sells-group/cny-realestate-etl/internal/store"
	"github.com/sells-group/cny-realestate-etl/pkg/geocode"
)

// Census backfills zips with the Census batch geocoder.
type Census struct {
	client  geocode.Client
	store   store.Store
	matcher *Matcher
}

// NewCensus creates a Census backfill source.
func NewCensus(client geocode.Client, st store.Store) *Census {
	return &Census{client: client, store: st, matcher: NewMatcher(st)}
}

// Run submits every parcel still missing a zip, one batch per page.
func (c *Census) Run(ctx context.Context, limit int) (Stats, error) {
	log := zap.L().With(zap.String("component", "zipfill"), zap.String("source", "census"))
	var total Stats

	err := eachMissing(ctx, c.store, limit, func(parcels []model.Parcel) (int, error) {
		inputs := make([]geocode.AddressInput, 0, len(parcels))
		for _, p := range parcels {
			street := address.SanitizeForGeocoder(p.AddressStreet)
			if street == "" {
				continue
			}
			inputs = append(inputs, geocode.AddressInput{
				ID:     p.ID,
				Street: street,
				City:   p.MunicipalityName,
				State:  model.StateNY,
			})
		}
		if len(inputs) == 0 {
			return 0, nil
		}

		start := time.Now()
		matches, err := c.client.BatchGeocode(ctx, inputs)
		if err != nil {
			return 0, err
		}
		st, err := c.matcher.Apply(ctx, matches)
		total.Add(st)
		if err != nil {
			return 0, err
		}
		log.Info("census batch applied",
			zap.Int("submitted", len(inputs)),
			zap.Int("updated", st.Updated),
			zap.Int("untrusted", st.Untrusted),
			zap.Duration("elapsed", time.Since(start)),
		)
		return st.Updated, nil
	})
	return total, err
}
