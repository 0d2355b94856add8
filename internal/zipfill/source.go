package zipfill

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cny-realestate-etl/internal/model"
	"github.com/sells-group/cny-realestate-etl/internal/store"
)

// PageSize is how many zipless parcels are read per pass.
const PageSize = 10000

// eachMissing pages through parcels without a zip. fn returns how many of
// the page it resolved so later pages are not skipped as rows drop out of
// the result set. limit caps the number of parcels visited, 0 means no cap.
func eachMissing(ctx context.Context, st store.Store, limit int, fn func([]model.Parcel) (int, error)) error {
	offset, seen := 0, 0
	for {
		size := PageSize
		if limit > 0 {
			if seen >= limit {
				return nil
			}
			size = min(size, limit-seen)
		}
		parcels, err := st.ParcelsMissingZip(ctx, size, offset)
		if err != nil {
			return eris.Wrap(err, "zipfill: list parcels missing zip")
		}
		if len(parcels) == 0 {
			return nil
		}
		resolved, err := fn(parcels)
		if err != nil {
			return err
		}
		seen += len(parcels)
		offset += len(parcels) - resolved
	}
}
