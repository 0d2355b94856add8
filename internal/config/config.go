package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/cny-realestate-etl/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	OpenData   OpenDataConfig   `yaml:"opendata" mapstructure:"opendata"`
	Geocoder   GeocoderConfig   `yaml:"geocoder" mapstructure:"geocoder"`
	Zillow     ZillowConfig     `yaml:"zillow" mapstructure:"zillow"`
	Artifacts  ArtifactsConfig  `yaml:"artifacts" mapstructure:"artifacts"`
	ETL        ETLConfig        `yaml:"etl" mapstructure:"etl"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OpenDataConfig configures the data.ny.gov client.
type OpenDataConfig struct {
	AppToken           string `yaml:"app_token" mapstructure:"app_token"`
	BaseURL            string `yaml:"base_url" mapstructure:"base_url"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	PageSize           int    `yaml:"page_size" mapstructure:"page_size"`
}

// GeocoderConfig configures the Census batch geocoder.
type GeocoderConfig struct {
	BatchURL           string `yaml:"batch_url" mapstructure:"batch_url"`
	Benchmark          string `yaml:"benchmark" mapstructure:"benchmark"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	TimeoutSecs        int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ZillowConfig configures the home value index source. CSVURL may be a URL
// or a local path.
type ZillowConfig struct {
	CSVURL string `yaml:"csv_url" mapstructure:"csv_url"`
}

// ArtifactsConfig configures where the database and zip cache are published.
// LocalDir, when set, replaces S3 with a directory.
type ArtifactsConfig struct {
	Bucket   string `yaml:"bucket" mapstructure:"bucket"`
	Region   string `yaml:"region" mapstructure:"region"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	LocalDir string `yaml:"local_dir" mapstructure:"local_dir"`
}

// ETLConfig holds run defaults that flags override.
type ETLConfig struct {
	Counties     []string `yaml:"counties" mapstructure:"counties"`
	ForceRefresh bool     `yaml:"force_refresh" mapstructure:"force_refresh"`
	TempDir      string   `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// RetryConfig configures retry behavior for upstream calls.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// MonitoringConfig configures post-run health alerts.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	ZipCoverageThreshold float64 `yaml:"zip_coverage_threshold" mapstructure:"zip_coverage_threshold"`
}

// MetricsConfig configures the Prometheus Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" mapstructure:"pushgateway_url"`
	Job            string `yaml:"job" mapstructure:"job"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// legacyEnv maps config keys to the unprefixed variables older deployments
// set. The CNY_ prefixed form still wins.
var legacyEnv = map[string]string{
	"opendata.app_token": "OPEN_DATA_APP_TOKEN",
	"artifacts.region":   "AWS_REGION",
	"etl.force_refresh":  "FORCE_REFRESH",
	"store.database_url": "DATABASE_URL",
	"artifacts.bucket":   "S3_BUCKET_NAME",
	"artifacts.endpoint": "AWS_ENDPOINT_URL_S3",
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	// .env is optional; variables already set in the process win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CNY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, "CNY_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), legacy); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", key)
		}
	}

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "data/cny-real-estate.db")
	v.SetDefault("opendata.base_url", "https://data.ny.gov")
	v.SetDefault("opendata.rate_limit_per_minute", 3)
	v.SetDefault("opendata.page_size", 1000)
	v.SetDefault("geocoder.batch_url", "https://geocoding.geo.census.gov/geocoder/locations/addressbatch")
	v.SetDefault("geocoder.benchmark", "Public_AR_Current")
	v.SetDefault("geocoder.rate_limit_per_minute", 4)
	v.SetDefault("geocoder.timeout_secs", 600)
	v.SetDefault("zillow.csv_url", "https://files.zillowstatic.com/research/public_csvs/zhvi/City_zhvi_uc_sfr_tier_0.33_0.67_sm_sa_month.csv")
	v.SetDefault("artifacts.bucket", "cny-realestate-data")
	v.SetDefault("artifacts.region", "us-east-1")
	v.SetDefault("artifacts.prefix", "")
	v.SetDefault("artifacts.local_dir", "")
	v.SetDefault("etl.counties", model.Counties)
	v.SetDefault("etl.force_refresh", false)
	v.SetDefault("etl.temp_dir", os.TempDir())
	v.SetDefault("retry.max_attempts", 4)
	v.SetDefault("retry.initial_backoff_ms", 2000)
	v.SetDefault("retry.max_backoff_ms", 60000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.zip_coverage_threshold", 0.0)
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "cny_etl")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is the command name.
func (c *Config) Validate(mode string) error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return eris.New("config: store.path is required for sqlite")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for postgres")
		}
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}

	switch mode {
	case "run":
		if c.OpenData.RateLimitPerMinute <= 0 {
			return eris.New("config: opendata.rate_limit_per_minute must be positive")
		}
		if c.OpenData.PageSize <= 0 {
			return eris.New("config: opendata.page_size must be positive")
		}
		for _, county := range c.ETL.Counties {
			if !knownCounty(county) {
				return eris.Errorf("config: unknown county %q", county)
			}
		}
	case "zipcodes":
		if c.Geocoder.RateLimitPerMinute <= 0 {
			return eris.New("config: geocoder.rate_limit_per_minute must be positive")
		}
	case "homevalues":
		if c.Zillow.CSVURL == "" {
			return eris.New("config: zillow.csv_url is required")
		}
	case "migrate", "status":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Monitoring.ZipCoverageThreshold < 0 || c.Monitoring.ZipCoverageThreshold > 1 {
		return eris.New("config: monitoring.zip_coverage_threshold must be between 0 and 1")
	}
	return nil
}

// UsesBucket reports whether artifacts go to a bucket at all.
func (c *Config) UsesBucket() bool {
	return c.Artifacts.LocalDir != "" || c.Artifacts.Bucket != ""
}

func knownCounty(name string) bool {
	for _, c := range model.Counties {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
