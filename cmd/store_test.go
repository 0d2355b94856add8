package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cny-realestate-etl/internal/config"
	"github.com/sells-group/cny-realestate-etl/internal/objstore"
)

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	old := cfg
	cfg = c
	t.Cleanup(func() { cfg = old })
}

func TestInitStore_SQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "cny.db")
	withConfig(t, &config.Config{Store: config.StoreConfig{Driver: "sqlite", Path: path}})

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	assert.FileExists(t, path)
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	withConfig(t, &config.Config{Store: config.StoreConfig{Driver: "mysql"}})

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitBucket_Local(t *testing.T) {
	dir := t.TempDir()
	withConfig(t, &config.Config{Artifacts: config.ArtifactsConfig{LocalDir: dir, Bucket: "ignored"}})

	b, err := initBucket(context.Background())
	require.NoError(t, err)
	require.IsType(t, &objstore.Local{}, b)
}

func TestInitBucket_None(t *testing.T) {
	withConfig(t, &config.Config{})

	b, err := initBucket(context.Background())
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestInitArtifacts_PostgresNeverPublishes(t *testing.T) {
	withConfig(t, &config.Config{
		Store:     config.StoreConfig{Driver: "postgres", DatabaseURL: "postgres://localhost/x"},
		Artifacts: config.ArtifactsConfig{LocalDir: t.TempDir()},
	})

	arts, err := initArtifacts(context.Background())
	require.NoError(t, err)
	assert.Nil(t, arts)
}

func TestCanonicalCounties(t *testing.T) {
	got, err := canonicalCounties([]string{"onondaga", " CAYUGA ,madison", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"Onondaga", "Cayuga", "Madison"}, got)

	_, err = canonicalCounties([]string{"Kings"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Kings")
}

func TestPerMinute(t *testing.T) {
	l := perMinute(4)
	assert.Equal(t, 4, l.Burst())
	assert.InDelta(t, 4.0/60.0, float64(l.Limit()), 0.0001)

	assert.Equal(t, 1, perMinute(0).Burst())
}
