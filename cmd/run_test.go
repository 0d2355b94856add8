package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cny-realestate-etl/internal/artifact"
	"github.com/sells-group/cny-realestate-etl/internal/config"
	"github.com/sells-group/cny-realestate-etl/internal/etl"
	"github.com/sells-group/cny-realestate-etl/internal/objstore"
	"github.com/sells-group/cny-realestate-etl/internal/store"
)

func resetRunFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		runForce, runYear, runCounties, runSkipRatios, runNoPublish = false, 0, nil, false, false
		_ = runCmd.Flags().Set("force", "false")
		runCmd.Flags().Lookup("force").Changed = false
	})
}

func TestRunOptions_ConfigDefaults(t *testing.T) {
	resetRunFlags(t)
	withConfig(t, &config.Config{ETL: config.ETLConfig{Counties: []string{"onondaga"}, ForceRefresh: true}})

	opts, err := runOptions(runCmd)
	require.NoError(t, err)
	assert.True(t, opts.Force)
	assert.Equal(t, []string{"Onondaga"}, opts.Counties)
	assert.Zero(t, opts.Year)
}

func TestRunOptions_FlagsWin(t *testing.T) {
	resetRunFlags(t)
	withConfig(t, &config.Config{ETL: config.ETLConfig{Counties: []string{"Onondaga"}, ForceRefresh: true}})

	require.NoError(t, runCmd.Flags().Set("force", "false"))
	runCounties = []string{"oswego", "cortland"}
	runYear = 2025

	opts, err := runOptions(runCmd)
	require.NoError(t, err)
	assert.False(t, opts.Force)
	assert.Equal(t, []string{"Oswego", "Cortland"}, opts.Counties)
	assert.Equal(t, 2025, opts.Year)
}

func TestRunOptions_UnknownCounty(t *testing.T) {
	resetRunFlags(t)
	withConfig(t, &config.Config{})
	runCounties = []string{"Erie"}

	_, err := runOptions(runCmd)
	require.Error(t, err)
}

func TestBackfillSources(t *testing.T) {
	got, err := backfillSources("all", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"cache", "census"}, got)

	got, err = backfillSources("all", "extract.geojson")
	require.NoError(t, err)
	assert.Equal(t, []string{"cache", "census", "openaddresses"}, got)

	_, err = backfillSources("openaddresses", "")
	require.Error(t, err)

	_, err = backfillSources("google", "")
	require.Error(t, err)
}

func TestPublish_Skips(t *testing.T) {
	withConfig(t, &config.Config{})
	ctx := context.Background()
	dir := t.TempDir()
	bucket, err := objstore.NewLocal(dir)
	require.NoError(t, err)
	arts := artifact.New(bucket, filepath.Join(t.TempDir(), "missing.db"))

	// None of these touch the database file, which does not exist.
	require.NoError(t, publish(ctx, nil, true, false))
	require.NoError(t, publish(ctx, arts, false, false))
	require.NoError(t, publish(ctx, arts, true, true))

	_, err = bucket.Get(ctx, artifact.VersionKey)
	assert.True(t, errors.Is(err, objstore.ErrNotFound))
}

// TestRunETL_LocalBucket drives a full run against a fake open-data server
// and a local artifact directory.
func TestRunETL_LocalBucket(t *testing.T) {
	resetRunFlags(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("$offset") != "0" {
			fmt.Fprint(w, `[]`)
			return
		}
		switch r.URL.Path {
		case "/resource/bsmp-6um6.json":
			fmt.Fprint(w, `[{"rate_year":"2024","swis_code":"311500","county_name":"Onondaga","municipality_name":"Syracuse","residential_assessment_ratio":"87.5"}]`)
		case "/resource/7vem-aaz7.json":
			fmt.Fprint(w, `[{"roll_year":"2024","county_name":"Onondaga","municipality_code":"311500","municipality_name":"Syracuse",
				"school_district_code":"311500","school_district_name":"Syracuse","swis_code":"311500","property_class":"210",
				"property_class_description":"One Family Year-Round Residence","print_key_code":"1.-1-1",
				"parcel_address_number":"100","parcel_address_street":"Main","parcel_address_suff":"St",
				"front":"50","depth":"100","full_market_value":"185000"}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	artDir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "cny.db")
	withConfig(t, &config.Config{
		Store:     config.StoreConfig{Driver: "sqlite", Path: dbPath},
		OpenData:  config.OpenDataConfig{BaseURL: srv.URL, RateLimitPerMinute: 6000, PageSize: 10},
		Artifacts: config.ArtifactsConfig{LocalDir: artDir},
		Retry:     config.RetryConfig{MaxAttempts: 1},
		Monitoring: config.MonitoringConfig{
			LookbackWindowHours: 24,
		},
	})

	ctx := context.Background()
	opts := etl.Options{Year: 2024, Counties: []string{"Onondaga"}}
	require.NoError(t, runETL(ctx, opts))

	bucket, err := objstore.NewLocal(artDir)
	require.NoError(t, err)
	rc, err := bucket.Get(ctx, artifact.VersionKey)
	require.NoError(t, err)
	defer rc.Close() //nolint:errcheck
	buf := make([]byte, 8)
	n, _ := rc.Read(buf)
	assert.Equal(t, "1", string(buf[:n]))

	st, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Parcels)
	assert.Equal(t, int64(1), stats.Ratios)
}
