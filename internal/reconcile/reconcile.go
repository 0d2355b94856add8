// Package reconcile merges an incoming parcel fragment into the stored
// parcel dimension.
package reconcile

import (
	"github.com/sells-group/cny-realestate-etl/internal/address"
	"github.com/sells-group/cny-realestate-etl/internal/model"
	"github.com/sells-group/cny-realestate-etl/internal/normalize"
)

// Action is the write the store must perform for a reconciled parcel.
type Action int

const (
	Insert Action = iota
	Unchanged
	Update
)

func (a Action) String() string {
	switch a {
	case Insert:
		return "insert"
	case Unchanged:
		return "unchanged"
	case Update:
		return "update"
	default:
		return "unknown"
	}
}

// Decision is the outcome of Reconcile.
type Decision struct {
	Action Action
	Parcel model.Parcel

	// OwnerOccupied is true when the mailing address matched the parcel.
	OwnerOccupied bool
}

// Reconcile decides how frag changes the stored parcel. existing is nil when
// the id has never been seen.
//
// Structural fields (swis, print key, municipality, county, school district)
// are fixed by the first write. Only the street line moves after that. A
// zip is set once, when the parcel has none, and is never changed or
// cleared.
func Reconcile(existing *model.Parcel, frag normalize.ParcelFragment) Decision {
	incoming := frag.Parcel
	trusted := address.TrustedZip(incoming.AddressStreet, frag.Mailing)

	if existing == nil {
		p := incoming
		p.AddressState = model.StateNY
		p.AddressZip = nil
		if trusted != "" {
			z := trusted
			p.AddressZip = &z
		}
		return Decision{Action: Insert, Parcel: p, OwnerOccupied: trusted != ""}
	}

	merged := *existing
	changed := false

	if incoming.AddressStreet != "" && incoming.AddressStreet != existing.AddressStreet {
		merged.AddressStreet = incoming.AddressStreet
		changed = true
	}
	if merged.AddressState == "" {
		merged.AddressState = model.StateNY
		changed = true
	}

	switch {
	case existing.HasZip():
		z := existing.Zip()
		merged.AddressZip = &z
	case trusted != "":
		z := trusted
		merged.AddressZip = &z
		changed = true
	default:
		merged.AddressZip = nil
	}

	action := Unchanged
	if changed {
		action = Update
	}
	return Decision{Action: action, Parcel: merged, OwnerOccupied: trusted != ""}
}
