package zipfill

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cny-realestate-etl/internal/address"
	"github.com/sells-group/cny-realestate-etl/internal/store"
)

// CacheKey is the object name of the zip cache in the artifact bucket.
const CacheKey = "zipcodes_cache.json"

// Cache maps parcel ids to zips that were trusted in an earlier run.
type Cache map[string]string

// ReadCache decodes a cache. An empty reader yields an empty cache.
func ReadCache(r io.Reader) (Cache, error) {
	c := Cache{}
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return c, nil
		}
		return nil, eris.Wrap(err, "zipfill: decode cache")
	}
	return c, nil
}

// Write encodes the cache as one JSON object.
func (c Cache) Write(w io.Writer) error {
	if err := json.NewEncoder(w).Encode(c); err != nil {
		return eris.Wrap(err, "zipfill: encode cache")
	}
	return nil
}

// Merge adds every well-formed zip in zips and returns how many entries
// were new or changed.
func (c Cache) Merge(zips map[string]string) int {
	n := 0
	for id, z := range zips {
		z = address.CleanZip(z)
		if id == "" || z == "" || c[id] == z {
			continue
		}
		c[id] = z
		n++
	}
	return n
}

// Refresh merges every zip currently stored in the warehouse.
func (c Cache) Refresh(ctx context.Context, st store.Store) (int, error) {
	zips, err := st.ParcelZips(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "zipfill: read parcel zips")
	}
	return c.Merge(zips), nil
}

// Apply writes cached zips to parcels that still have none.
func (c Cache) Apply(ctx context.Context, st store.Store) (Stats, error) {
	var s Stats
	for id, z := range c {
		if err := ctx.Err(); err != nil {
			return s, eris.Wrap(err, "zipfill: apply cache")
		}
		s.Submitted++
		if address.CleanZip(z) == "" {
			s.Untrusted++
			continue
		}
		updated, err := st.SetZipIfUnknown(ctx, id, z)
		if err != nil {
			return s, eris.Wrapf(err, "zipfill: set cached zip for %s", id)
		}
		if updated {
			s.Updated++
		} else {
			s.Known++
		}
	}
	return s, nil
}
