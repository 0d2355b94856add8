package address

import (
	"strings"
)

// Mailing is the owner mailing address carried on an assessment record.
// Either the structured fields or Line may be set.
type Mailing struct {
	Number string
	Street string
	Suffix string
	City   string
	State  string
	Zip    string

	// Line is a free-form "street, city, state zip" address.
	Line string
}

// StreetLine returns the mailing street line, preferring structured fields.
func (m Mailing) StreetLine() string {
	if s := StreetLine(m.Number, m.Street, m.Suffix); s != "" {
		return s
	}
	line, _, _ := strings.Cut(m.Line, ",")
	return strings.TrimSpace(line)
}

// PostalCode returns the mailing zip, falling back to the tail of Line.
func (m Mailing) PostalCode() string {
	if z := CleanZip(m.Zip); z != "" {
		return z
	}
	return ZipFromLine(m.Line)
}

// Empty reports whether no mailing data is present.
func (m Mailing) Empty() bool {
	return m.StreetLine() == "" && m.PostalCode() == ""
}

func (m Mailing) state() string {
	if s := strings.TrimSpace(m.State); s != "" {
		return strings.ToUpper(s)
	}
	parts := strings.Split(m.Line, ",")
	if len(parts) < 3 {
		return ""
	}
	tail := strings.Fields(parts[len(parts)-1])
	if len(tail) == 0 {
		return ""
	}
	return strings.ToUpper(tail[0])
}

// OwnerOccupied reports whether the mailing address is the parcel itself.
// Both street lines must normalize to the same text and start with a house
// number. A mailing address in another state never matches.
func OwnerOccupied(parcelStreet string, m Mailing) bool {
	if st := m.state(); st != "" && st != "NY" {
		return false
	}
	parcel := Normalize(parcelStreet)
	mailing := Normalize(m.StreetLine())
	if parcel == "" || parcel != mailing {
		return false
	}
	first, _, _ := strings.Cut(parcel, " ")
	return first != "" && first[0] >= '0' && first[0] <= '9'
}

// TrustedZip returns the mailing zip when the parcel is owner-occupied and
// the zip is well formed, otherwise "".
func TrustedZip(parcelStreet string, m Mailing) string {
	if !OwnerOccupied(parcelStreet, m) {
		return ""
	}
	return m.PostalCode()
}
