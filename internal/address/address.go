// Package address normalizes street addresses and decides whether a mailing
// address identifies an owner-occupied parcel.
package address

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// streetSuffixes canonicalizes the USPS suffixes that show up in ORPS rolls.
var streetSuffixes = map[string]string{
	"ALLEY":     "ALY",
	"AVENUE":    "AVE",
	"AV":        "AVE",
	"BOULEVARD": "BLVD",
	"CIRCLE":    "CIR",
	"COURT":     "CT",
	"DRIVE":     "DR",
	"EXTENSION": "EXT",
	"HIGHWAY":   "HWY",
	"LANE":      "LN",
	"PARKWAY":   "PKWY",
	"PLACE":     "PL",
	"ROAD":      "RD",
	"ROUTE":     "RTE",
	"SQUARE":    "SQ",
	"STREET":    "ST",
	"TERRACE":   "TER",
	"TRAIL":     "TRL",
	"TURNPIKE":  "TPKE",
	"WAY":       "WAY",
	"NORTH":     "N",
	"SOUTH":     "S",
	"EAST":      "E",
	"WEST":      "W",
}

var (
	nonAlnumRe   = regexp.MustCompile(`[^A-Z0-9 ]+`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
	zipRe        = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\s*$`)
	parenRe      = regexp.MustCompile(`\([^)]*\)`)
	leadingOffRe = regexp.MustCompile(`(?i)^off\b`)
)

// foldDiacritics removes combining marks so "Peña" compares equal to "Pena".
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize standardizes a street line for comparison: diacritics folded,
// upper case, punctuation dropped, whitespace collapsed and suffixes
// shortened.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = strings.ToUpper(foldDiacritics(s))
	s = strings.ReplaceAll(s, "-", " ")
	s = nonAlnumRe.ReplaceAllString(s, "")
	s = multiSpaceRe.ReplaceAllString(s, " ")

	words := strings.Fields(s)
	for i, w := range words {
		if i == 0 {
			continue
		}
		if short, ok := streetSuffixes[w]; ok {
			words[i] = short
		}
	}
	return strings.Join(words, " ")
}

// StreetLine joins number, street and suffix, dropping empty parts.
func StreetLine(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return multiSpaceRe.ReplaceAllString(strings.Join(nonEmpty, " "), " ")
}

// SameStreet compares two street lines after normalization.
func SameStreet(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	return na != "" && na == nb
}

// ZipFromLine extracts a trailing five digit zip (ZIP+4 allowed) from a
// free-form address line.
func ZipFromLine(line string) string {
	m := zipRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return ""
	}
	return m[1]
}

// ValidZip reports whether s is a five digit postal code.
func ValidZip(s string) bool {
	if len(s) != 5 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CleanZip trims a raw zip and cuts a ZIP+4 suffix. It returns "" when the
// result is not a five digit code.
func CleanZip(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '-'); i >= 0 {
		raw = raw[:i]
	}
	if !ValidZip(raw) {
		return ""
	}
	return raw
}

// SanitizeForGeocoder strips the characters the Census batch geocoder
// chokes on.
func SanitizeForGeocoder(s string) string {
	s = parenRe.ReplaceAllString(s, "")
	s = strings.NewReplacer(
		"/", " - ",
		"&", " - ",
		"'", "",
		"\"", "",
		"+", "",
	).Replace(s)
	s = strings.TrimSpace(s)
	s = leadingOffRe.ReplaceAllString(s, "")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
