// Package config loads geolocate settings from config.yaml and GEOLOCATE_*
// environment variables.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/geolocate/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig       `yaml:"store" mapstructure:"store"`
	GeoIP   GeoIPConfig       `yaml:"geoip" mapstructure:"geoip"`
	Score   model.DecayConfig `yaml:"score" mapstructure:"score"`
	Locate  LocateConfig      `yaml:"locate" mapstructure:"locate"`
	Batch   BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Import  ImportConfig      `yaml:"import" mapstructure:"import"`
	Retry   RetryConfig       `yaml:"retry" mapstructure:"retry"`
	Circuit CircuitConfig     `yaml:"circuit" mapstructure:"circuit"`
	Log     LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the telemetry store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// GeoIPConfig locates the MaxMind city database.
type GeoIPConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LocateConfig selects the sources consulted by a fusion pass.
type LocateConfig struct {
	OCIDEnabled  bool `yaml:"ocid_enabled" mapstructure:"ocid_enabled"`
	IPFallback   bool `yaml:"ip_fallback" mapstructure:"ip_fallback"`
	AreaFallback bool `yaml:"area_fallback" mapstructure:"area_fallback"`
}

// BatchConfig configures batch lookups.
type BatchConfig struct {
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// ImportConfig configures cell imports.
type ImportConfig struct {
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
}

// RetryConfig configures retries of store calls and downloads.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
}

// CircuitConfig configures the store circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOLOCATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	decay := model.DefaultDecayConfig()
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "geolocate.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("geoip.path", "")
	v.SetDefault("score.half_life_days", decay.HalfLifeDays)
	v.SetDefault("score.floor", decay.Floor)
	v.SetDefault("score.sample_saturation", decay.SampleSaturation)
	v.SetDefault("locate.ocid_enabled", true)
	v.SetDefault("locate.ip_fallback", true)
	v.SetDefault("locate.area_fallback", true)
	v.SetDefault("batch.concurrency", 8)
	v.SetDefault("batch.rate_per_sec", 0)
	v.SetDefault("import.batch_size", 1000)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 100)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)
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

// Validate checks the settings needed by a command mode: "locate",
// "import" or "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	switch {
	case c.Store.DatabaseURL == "":
		errs = append(errs, "store.database_url is required")
	case c.Store.Driver == "postgres" && !isPostgresDSN(c.Store.DatabaseURL):
		errs = append(errs, "store.database_url must be a postgres URL or key=value connection string")
	}

	switch mode {
	case "locate":
		if c.Batch.Concurrency < 1 {
			errs = append(errs, "batch.concurrency must be >= 1")
		}
		if c.Batch.RatePerSec < 0 {
			errs = append(errs, "batch.rate_per_sec must be >= 0")
		}
		if c.Score.HalfLifeDays < 1 {
			errs = append(errs, "score.half_life_days must be >= 1")
		}
		if c.Score.Floor < 0 || c.Score.Floor > 1 {
			errs = append(errs, "score.floor must be between 0 and 1")
		}
	case "import":
		if c.Import.BatchSize < 1 {
			errs = append(errs, "import.batch_size must be >= 1")
		}
	case "migrate":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
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

// isPostgresDSN accepts postgres:// URLs and libpq key=value strings. The
// sqlite file default matches neither.
func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "=")
}
