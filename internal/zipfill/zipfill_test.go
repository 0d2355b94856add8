package zipfill

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cny-realestate-etl/internal/model"
	"github.com/sells-group/cny-realestate-etl/internal/store"
	"github.com/sells-group/cny-realestate-etl/pkg/geocode"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "zip.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func strPtr(s string) *string { return &s }

func seedParcel(t *testing.T, st store.Store, printKey, street string, zip *string) model.Parcel {
	t.Helper()
	p := model.Parcel{
		ID:                 model.ParcelID("311500", printKey),
		SwisCode:           "311500",
		PrintKeyCode:       printKey,
		MunicipalityCode:   "311500",
		MunicipalityName:   "Syracuse",
		CountyName:         "Onondaga",
		SchoolDistrictCode: "311500",
		SchoolDistrictName: "Syracuse",
		AddressStreet:      street,
		AddressState:       model.StateNY,
		AddressZip:         zip,
	}
	require.NoError(t, st.SaveAssessment(context.Background(), store.ParcelInsert, p, model.Assessment{
		PropertyID:       p.ID,
		RollYear:         2024,
		PropertyClass:    210,
		PropertyCategory: "Single Family House",
		FullMarketValue:  100000,
	}))
	return p
}

func zipOf(t *testing.T, st store.Store, id string) string {
	t.Helper()
	p, err := st.GetParcel(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Zip()
}

func TestTrusted(t *testing.T) {
	tests := []struct {
		name   string
		match  geocode.Match
		want   string
		wantOK bool
	}{
		{"exact", geocode.Match{Status: geocode.StatusExact, Zip: "13202"}, "13202", true},
		{"exact zip plus four", geocode.Match{Status: geocode.StatusExact, Zip: "13202-1234"}, "13202", true},
		{"tied single zip", geocode.Match{Status: geocode.StatusTied, Zip: "13202"}, "13202", true},
		{"tied no zip", geocode.Match{Status: geocode.StatusTied}, "", false},
		{"partial", geocode.Match{Status: geocode.StatusPartial, Zip: "13202"}, "", false},
		{"multiple", geocode.Match{Status: geocode.StatusMultiple, Zip: "13202;13203"}, "", false},
		{"none", geocode.Match{Status: geocode.StatusNone}, "", false},
		{"bad zip", geocode.Match{Status: geocode.StatusExact, Zip: "1320"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Trusted(tt.match)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatcher_Apply(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a := seedParcel(t, st, "1.-1-1", "100 Main St (Rear)", nil)
	b := seedParcel(t, st, "1.-1-2", "5 Elm St", strPtr("13201"))
	c := seedParcel(t, st, "1.-1-3", "9 Oak Dr", nil)
	d := seedParcel(t, st, "1.-1-4", "1 Pine Ln", nil)

	s, err := NewMatcher(st).Apply(ctx, []geocode.Match{
		{ID: a.ID, Input: "100 Main St, Syracuse, NY,", Status: geocode.StatusExact, Zip: "13202"},
		{ID: b.ID, Input: "5 Elm St", Status: geocode.StatusExact, Zip: "13299"},
		{ID: c.ID, Input: "9 Oak Dr", Status: geocode.StatusPartial, Zip: "13205"},
		{ID: d.ID, Input: "2 Pine Ln", Status: geocode.StatusExact, Zip: "13206"},
		{ID: "311500 9.-9-9", Input: "3 Gone St", Status: geocode.StatusExact, Zip: "13207"},
	})
	require.NoError(t, err)
	assert.Equal(t, Stats{Submitted: 5, Updated: 1, Known: 1, Untrusted: 1, Mismatched: 1, Missing: 1}, s)

	assert.Equal(t, "13202", zipOf(t, st, a.ID))
	assert.Equal(t, "13201", zipOf(t, st, b.ID), "known zip is never replaced")
	assert.Empty(t, zipOf(t, st, c.ID))
	assert.Empty(t, zipOf(t, st, d.ID))
}

func TestSubmittedFor(t *testing.T) {
	p := model.Parcel{AddressStreet: "12 Oak St / Elm St"}
	assert.True(t, submittedFor(p, "12 Oak St - Elm St"))
	assert.True(t, submittedFor(p, "12 OAK ST - ELM ST, Syracuse, NY, "))
	assert.False(t, submittedFor(p, "12 Oak St - Elm Street"))
	assert.False(t, submittedFor(model.Parcel{}, ""))
}

type fakeGeocoder struct {
	batches [][]geocode.AddressInput
	zips    map[string]string
}

func (f *fakeGeocoder) BatchGeocode(_ context.Context, addrs []geocode.AddressInput) ([]geocode.Match, error) {
	f.batches = append(f.batches, addrs)
	out := make([]geocode.Match, 0, len(addrs))
	for _, a := range addrs {
		m := geocode.Match{ID: a.ID, Input: a.Street + ", " + a.City + ", " + a.State + ", "}
		if z, ok := f.zips[a.ID]; ok {
			m.Status = geocode.StatusExact
			m.Zip = z
		}
		out = append(out, m)
	}
	return out, nil
}

func TestCensus_Run(t *testing.T) {
	st := newTestStore(t)
	a := seedParcel(t, st, "1.-1-1", "100 Main St", nil)
	b := seedParcel(t, st, "1.-1-2", "5 Elm St", nil)
	seedParcel(t, st, "1.-1-3", "9 Oak Dr", strPtr("13201"))
	seedParcel(t, st, "1.-1-4", "(vacant)", nil)

	fg := &fakeGeocoder{zips: map[string]string{a.ID: "13202"}}
	s, err := NewCensus(fg, st).Run(context.Background(), 0)
	require.NoError(t, err)

	require.Len(t, fg.batches, 1)
	assert.Len(t, fg.batches[0], 2, "parcels with a zip or no street are not submitted")
	assert.Equal(t, "Syracuse", fg.batches[0][0].City)
	assert.Equal(t, model.StateNY, fg.batches[0][0].State)
	assert.Equal(t, 1, s.Updated)
	assert.Equal(t, 1, s.Untrusted)
	assert.Equal(t, "13202", zipOf(t, st, a.ID))
	assert.Empty(t, zipOf(t, st, b.ID))
}

func TestCensus_RunLimit(t *testing.T) {
	st := newTestStore(t)
	seedParcel(t, st, "1.-1-1", "100 Main St", nil)
	seedParcel(t, st, "1.-1-2", "5 Elm St", nil)

	fg := &fakeGeocoder{}
	_, err := NewCensus(fg, st).Run(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, fg.batches, 1)
	assert.Len(t, fg.batches[0], 1)
}

func TestCache_ReadWrite(t *testing.T) {
	c, err := ReadCache(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, c)

	c, err = ReadCache(strings.NewReader(`{"311500 1.-1-1":"13202"}`))
	require.NoError(t, err)
	assert.Equal(t, Cache{"311500 1.-1-1": "13202"}, c)

	var buf bytes.Buffer
	require.NoError(t, c.Write(&buf))
	assert.JSONEq(t, `{"311500 1.-1-1":"13202"}`, buf.String())

	_, err = ReadCache(strings.NewReader(`[1,2]`))
	assert.Error(t, err)
}

func TestCache_MergeRefreshApply(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a := seedParcel(t, st, "1.-1-1", "100 Main St", nil)
	b := seedParcel(t, st, "1.-1-2", "5 Elm St", strPtr("13201"))

	c := Cache{}
	assert.Equal(t, 1, c.Merge(map[string]string{a.ID: "13202-0001", "x": "bad", "": "13203"}))
	assert.Equal(t, "13202", c[a.ID])

	n, err := c.Refresh(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "13201", c[b.ID])

	c[b.ID] = "13299"
	s, err := c.Apply(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Submitted)
	assert.Equal(t, 1, s.Updated)
	assert.Equal(t, 1, s.Known)
	assert.Equal(t, "13202", zipOf(t, st, a.ID))
	assert.Equal(t, "13201", zipOf(t, st, b.ID))
}

const oaCollection = `{"type":"FeatureCollection","features":[
 {"type":"Feature","geometry":{"type":"Point","coordinates":[-76.15,43.04]},
  "properties":{"number":"100","street":"Main Street","city":"Syracuse","postcode":"13202"}},
 {"type":"Feature","geometry":{"type":"Point","coordinates":[-76.1,43.0]},
  "properties":{"number":"5","street":"Elm St","city":"Syracuse","postcode":"13203"}},
 {"type":"Feature","geometry":{"type":"Point","coordinates":[-76.1,43.0]},
  "properties":{"number":"5","street":"Elm St","city":"Syracuse","postcode":"13204"}},
 {"type":"Feature","geometry":{"type":"Point","coordinates":[-76.2,43.1]},
  "properties":{"number":"9","street":"Oak Dr","city":"Liverpool","postcode":"13088"}},
 {"type":"Feature","geometry":null,"properties":{"number":"1","street":"Pine Ln","postcode":"13206"}}
]}`

func TestOpenAddresses_Lookup(t *testing.T) {
	oa, err := ReadOpenAddresses(strings.NewReader(oaCollection))
	require.NoError(t, err)
	assert.Equal(t, 4, oa.Len())

	p := model.Parcel{ID: "a", AddressStreet: "100 MAIN ST", MunicipalityName: "Syracuse"}
	m := oa.Lookup(p)
	assert.Equal(t, geocode.StatusExact, m.Status)
	assert.Equal(t, "13202", m.Zip)
	assert.Equal(t, "100 MAIN ST", m.Input)

	m = oa.Lookup(model.Parcel{AddressStreet: "5 Elm St", MunicipalityName: "Syracuse"})
	assert.Equal(t, geocode.StatusMultiple, m.Status)

	m = oa.Lookup(model.Parcel{AddressStreet: "9 Oak Drive", MunicipalityName: "Clay"})
	assert.Equal(t, geocode.StatusPartial, m.Status)

	m = oa.Lookup(model.Parcel{AddressStreet: "1 Pine Ln", MunicipalityName: "Syracuse"})
	assert.Equal(t, geocode.StatusNone, m.Status)
}

func TestOpenAddresses_NewlineDelimited(t *testing.T) {
	nd := `{"type":"Feature","geometry":{"type":"Point","coordinates":[-76.15,43.04]},"properties":{"number":"100","street":"Main St","city":"Syracuse","postcode":"13202"}}
{"type":"Feature","geometry":{"type":"Point","coordinates":[-76.1,43.0]},"properties":{"number":"7","street":"Elm St","city":"Syracuse","postcode":"13203"}}
`
	oa, err := ReadOpenAddresses(strings.NewReader(nd))
	require.NoError(t, err)
	assert.Equal(t, 2, oa.Len())

	_, err = ReadOpenAddresses(strings.NewReader(`{"type":"Topology"}`))
	assert.Error(t, err)
}

func TestOpenAddresses_Run(t *testing.T) {
	st := newTestStore(t)
	a := seedParcel(t, st, "1.-1-1", "100 Main St", nil)
	b := seedParcel(t, st, "1.-1-2", "5 Elm St", nil)

	oa, err := ReadOpenAddresses(strings.NewReader(oaCollection))
	require.NoError(t, err)
	s, err := oa.Run(context.Background(), st, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Updated)
	assert.Equal(t, 1, s.Untrusted)
	assert.Equal(t, "13202", zipOf(t, st, a.ID))
	assert.Empty(t, zipOf(t, st, b.ID))
}
