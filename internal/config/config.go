package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Catalog    CatalogConfig    `yaml:"catalog" mapstructure:"catalog"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Vocab      VocabConfig      `yaml:"vocab" mapstructure:"vocab"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CatalogConfig points at the catalog service that owns product CRUD.
type CatalogConfig struct {
	BaseURL         string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent       string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries      int     `yaml:"max_retries" mapstructure:"max_retries"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" mapstructure:"rate_limit_per_sec"`
}

// ExtractConfig tunes extraction scoring and batch fan-out.
type ExtractConfig struct {
	Workers            int     `yaml:"workers" mapstructure:"workers"`
	SpecsBaseline      float64 `yaml:"specs_baseline" mapstructure:"specs_baseline"`
	TitleBaseline      float64 `yaml:"title_baseline" mapstructure:"title_baseline"`
	InferredBaseline   float64 `yaml:"inferred_baseline" mapstructure:"inferred_baseline"`
	ConflictPenalty    float64 `yaml:"conflict_penalty" mapstructure:"conflict_penalty"`
	CorroborationBoost float64 `yaml:"corroboration_boost" mapstructure:"corroboration_boost"`
	BoostCap           float64 `yaml:"boost_cap" mapstructure:"boost_cap"`
	MatchThreshold     float64 `yaml:"match_threshold" mapstructure:"match_threshold"`
}

// VocabConfig locates vocabulary overlays loaded at startup.
type VocabConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures background alert checks.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackRuns         int     `yaml:"lookback_runs" mapstructure:"lookback_runs"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	IncompleteThreshold  int     `yaml:"incomplete_threshold" mapstructure:"incomplete_threshold"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (optional) and the COMPAT_*
// environment, applying defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COMPAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "compat.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("catalog.base_url", "")
	v.SetDefault("catalog.user_agent", "compat-cli/1.0")
	v.SetDefault("catalog.timeout_secs", 30)
	v.SetDefault("catalog.max_retries", 3)
	v.SetDefault("catalog.rate_limit_per_sec", 10)
	v.SetDefault("extract.workers", 4)
	v.SetDefault("extract.specs_baseline", 0.95)
	v.SetDefault("extract.title_baseline", 0.70)
	v.SetDefault("extract.inferred_baseline", 0.60)
	v.SetDefault("extract.conflict_penalty", 0.25)
	v.SetDefault("extract.corroboration_boost", 0.10)
	v.SetDefault("extract.boost_cap", 0.95)
	v.SetDefault("extract.match_threshold", 0.60)
	v.SetDefault("vocab.path", "")
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_runs", 50)
	v.SetDefault("monitoring.failure_rate_threshold", 0.2)
	v.SetDefault("monitoring.incomplete_threshold", 0)

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
