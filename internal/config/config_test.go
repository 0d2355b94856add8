package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp moves into an empty directory so no config.yaml or .env is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "data/cny-real-estate.db", cfg.Store.Path)
	assert.Equal(t, "https://data.ny.gov", cfg.OpenData.BaseURL)
	assert.Equal(t, 3, cfg.OpenData.RateLimitPerMinute)
	assert.Equal(t, 1000, cfg.OpenData.PageSize)
	assert.Equal(t, 4, cfg.Geocoder.RateLimitPerMinute)
	assert.Equal(t, "Public_AR_Current", cfg.Geocoder.Benchmark)
	assert.Equal(t, "cny-realestate-data", cfg.Artifacts.Bucket)
	assert.Equal(t, []string{"Cayuga", "Cortland", "Madison", "Onondaga", "Oswego"}, cfg.ETL.Counties)
	assert.False(t, cfg.ETL.ForceRefresh)
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
	assert.InDelta(t, 0.25, cfg.Retry.JitterFraction, 0.001)
	assert.Equal(t, 24, cfg.Monitoring.LookbackWindowHours)
	assert.Equal(t, "cny_etl", cfg.Metrics.Job)
	assert.Contains(t, cfg.Zillow.CSVURL, "City_zhvi_uc_sfr")
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/cny
log:
  level: debug
  format: console
etl:
  counties: [Onondaga]
artifacts:
  local_dir: /tmp/artifacts
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/cny", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, []string{"Onondaga"}, cfg.ETL.Counties)
	assert.Equal(t, "/tmp/artifacts", cfg.Artifacts.LocalDir)
	// Defaults still apply for unset values
	assert.Equal(t, 1000, cfg.OpenData.PageSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("CNY_STORE_DRIVER", "sqlite")
	t.Setenv("CNY_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadLegacyEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("OPEN_DATA_APP_TOKEN", "legacy-token")
	t.Setenv("FORCE_REFRESH", "true")
	t.Setenv("AWS_REGION", "us-west-2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "legacy-token", cfg.OpenData.AppToken)
	assert.True(t, cfg.ETL.ForceRefresh)
	assert.Equal(t, "us-west-2", cfg.Artifacts.Region)
}

func TestLoadPrefixedEnvBeatsLegacy(t *testing.T) {
	chdirTemp(t)
	t.Setenv("OPEN_DATA_APP_TOKEN", "legacy-token")
	t.Setenv("CNY_OPENDATA_APP_TOKEN", "new-token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "new-token", cfg.OpenData.AppToken)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CNY_METRICS_PUSHGATEWAY_URL=http://gateway:9091\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("CNY_METRICS_PUSHGATEWAY_URL") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://gateway:9091", cfg.Metrics.PushgatewayURL)
}

func TestLoadOptionalKeysFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CNY_ARTIFACTS_PREFIX", "nightly/")
	t.Setenv("CNY_ARTIFACTS_LOCAL_DIR", "/srv/artifacts")
	t.Setenv("CNY_MONITORING_WEBHOOK_URL", "https://hooks.example.com/etl")
	t.Setenv("CNY_METRICS_PUSHGATEWAY_URL", "http://gateway:9091")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "nightly/", cfg.Artifacts.Prefix)
	assert.Equal(t, "/srv/artifacts", cfg.Artifacts.LocalDir)
	assert.Equal(t, "https://hooks.example.com/etl", cfg.Monitoring.WebhookURL)
	assert.Equal(t, "http://gateway:9091", cfg.Metrics.PushgatewayURL)
}

func TestLoadCountiesFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CNY_ETL_COUNTIES", "Cayuga,Oswego")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"Cayuga", "Oswego"}, cfg.ETL.Counties)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = "cny.db"
	cfg.OpenData.RateLimitPerMinute = 3
	cfg.OpenData.PageSize = 1000
	cfg.Geocoder.RateLimitPerMinute = 4
	cfg.Zillow.CSVURL = "https://files.example.com/zhvi.csv"
	cfg.ETL.Counties = []string{"Onondaga", "oswego"}
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"run", "zipcodes", "homevalues", "migrate", "status"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidate_Store(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Path = ""
	assert.ErrorContains(t, cfg.Validate("migrate"), "store.path")

	cfg = validDefaults()
	cfg.Store.Driver = "postgres"
	assert.ErrorContains(t, cfg.Validate("migrate"), "store.database_url")
	cfg.Store.DatabaseURL = "postgres://localhost/cny"
	assert.NoError(t, cfg.Validate("migrate"))

	cfg.Store.Driver = "mysql"
	assert.ErrorContains(t, cfg.Validate("migrate"), "unknown store.driver")
}

func TestValidate_Run(t *testing.T) {
	cfg := validDefaults()
	cfg.ETL.Counties = []string{"Erie"}
	assert.ErrorContains(t, cfg.Validate("run"), `unknown county "Erie"`)

	cfg = validDefaults()
	cfg.OpenData.PageSize = 0
	assert.ErrorContains(t, cfg.Validate("run"), "page_size")
}

func TestValidate_Zipcodes(t *testing.T) {
	cfg := validDefaults()
	cfg.Geocoder.RateLimitPerMinute = 0
	assert.ErrorContains(t, cfg.Validate("zipcodes"), "geocoder.rate_limit_per_minute")
}

func TestValidate_HomeValues(t *testing.T) {
	cfg := validDefaults()
	cfg.Zillow.CSVURL = ""
	assert.ErrorContains(t, cfg.Validate("homevalues"), "zillow.csv_url")
}

func TestLoadZillowURLFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CNY_ZILLOW_CSV_URL", "/data/zhvi.csv")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/data/zhvi.csv", cfg.Zillow.CSVURL)
}

func TestValidate_UnknownMode(t *testing.T) {
	assert.ErrorContains(t, validDefaults().Validate("serve"), "unknown mode")
}

func TestValidate_CoverageThreshold(t *testing.T) {
	cfg := validDefaults()
	cfg.Monitoring.ZipCoverageThreshold = 1.5
	assert.ErrorContains(t, cfg.Validate("status"), "zip_coverage_threshold")
}

func TestUsesBucket(t *testing.T) {
	cfg := validDefaults()
	assert.False(t, cfg.UsesBucket())
	cfg.Artifacts.Bucket = "cny-realestate-data"
	assert.True(t, cfg.UsesBucket())
}
