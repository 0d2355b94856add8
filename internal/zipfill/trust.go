// Package zipfill backfills missing parcel zip codes from external address
// sources without ever replacing a zip that is already known.
package zipfill

import (
	"github.com/sells-group/cny-realestate-etl/internal/address"
	"github.com/sells-group/cny-realestate-etl/pkg/geocode"
)

// Trusted returns the zip carried by m when the match is good enough to
// store. Exact matches are accepted. Tied matches are accepted only when the
// geocoder still settled on one postal code. Everything else is discarded.
func Trusted(m geocode.Match) (string, bool) {
	switch m.Status {
	case geocode.StatusExact, geocode.StatusTied:
	default:
		return "", false
	}
	zip := address.CleanZip(m.Zip)
	if zip == "" {
		return "", false
	}
	return zip, true
}
