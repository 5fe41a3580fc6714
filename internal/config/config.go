package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/isq-cli/internal/audit"
	"github.com/sells-group/isq-cli/internal/extract"
	"github.com/sells-group/isq-cli/internal/reconcile"
	"github.com/sells-group/isq-cli/internal/resilience"
	"github.com/sells-group/isq-cli/internal/specmatch"
)

// Config holds the full application configuration.
type Config struct {
	Log       LogConfig               `yaml:"log" mapstructure:"log"`
	Store     StoreConfig             `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig         `yaml:"anthropic" mapstructure:"anthropic"`
	Jina      JinaConfig              `yaml:"jina" mapstructure:"jina"`
	Scrape    ScrapeConfig            `yaml:"scrape" mapstructure:"scrape"`
	Extract   extract.Config          `yaml:"extract" mapstructure:"extract"`
	Audit     audit.Config            `yaml:"audit" mapstructure:"audit"`
	Retry     RetryConfig             `yaml:"retry" mapstructure:"retry"`
	Match     specmatch.Policy        `yaml:"match" mapstructure:"match"`
	Buyer     reconcile.SelectOptions `yaml:"buyer" mapstructure:"buyer"`
	Server    ServerConfig            `yaml:"server" mapstructure:"server"`
	Cache     CacheConfig             `yaml:"cache" mapstructure:"cache"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// ScrapeConfig configures page retrieval.
type ScrapeConfig struct {
	TimeoutSecs   int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxConcurrent int  `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	UseJina       bool `yaml:"use_jina" mapstructure:"use_jina"`
	DiscoverLimit int  `yaml:"discover_limit" mapstructure:"discover_limit"`
}

// RetryConfig configures retries of LLM and reader calls.
type RetryConfig struct {
	MaxAttempts        int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffSecs float64 `yaml:"initial_backoff_secs" mapstructure:"initial_backoff_secs"`
	MaxBackoffSecs     float64 `yaml:"max_backoff_secs" mapstructure:"max_backoff_secs"`
}

// Resilience converts the retry section into a resilience.RetryConfig.
func (r RetryConfig) Resilience() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	if r.MaxAttempts > 0 {
		cfg.MaxAttempts = r.MaxAttempts
	}
	if r.InitialBackoffSecs > 0 {
		cfg.InitialBackoff = secs(r.InitialBackoffSecs)
	}
	if r.MaxBackoffSecs > 0 {
		cfg.MaxBackoff = secs(r.MaxBackoffSecs)
	}
	return cfg
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// CacheConfig configures the fetched-page cache.
type CacheConfig struct {
	PageTTLHours int `yaml:"page_ttl_hours" mapstructure:"page_ttl_hours"`
}

// PageTTL returns the page cache lifetime. Zero disables caching.
func (c CacheConfig) PageTTL() time.Duration {
	return time.Duration(c.PageTTLHours) * time.Hour
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ISQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "isq.db")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.timeout_secs", 120)
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("scrape.timeout_secs", 15)
	v.SetDefault("scrape.max_concurrent", 5)
	v.SetDefault("scrape.use_jina", false)
	v.SetDefault("scrape.discover_limit", 5)
	v.SetDefault("extract.model", extract.DefaultModel)
	v.SetDefault("extract.max_tokens", extract.DefaultMaxTokens)
	v.SetDefault("extract.temperature", extract.DefaultTemperature)
	v.SetDefault("extract.page_chars", extract.DefaultPageChars)
	v.SetDefault("extract.max_concurrent", extract.DefaultMaxConcurrent)
	v.SetDefault("extract.rate_per_sec", extract.DefaultRatePerSec)
	v.SetDefault("audit.model", audit.DefaultModel)
	v.SetDefault("audit.max_tokens", audit.DefaultMaxTokens)
	v.SetDefault("audit.temperature", audit.DefaultTemperature)
	v.SetDefault("retry.max_attempts", resilience.DefaultMaxAttempts)
	v.SetDefault("retry.initial_backoff_secs", resilience.DefaultInitialBackoff.Seconds())
	v.SetDefault("retry.max_backoff_secs", resilience.DefaultMaxBackoff.Seconds())
	v.SetDefault("match.unit_inference_max_mm", specmatch.DefaultUnitInferenceMaxMM)
	v.SetDefault("match.abs_tolerance_mm", specmatch.DefaultAbsToleranceMM)
	v.SetDefault("match.rel_tolerance", specmatch.DefaultRelTolerance)
	v.SetDefault("buyer.max_specs", reconcile.DefaultMaxSpecs)
	v.SetDefault("buyer.max_options", reconcile.DefaultMaxOptions)
	v.SetDefault("buyer.placeholder", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("cache.page_ttl_hours", 24)

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

// Validate checks the keys a command mode needs.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, "store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}

	switch mode {
	case "extract", "run", "rerun", "serve":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
	}
	if c.Scrape.UseJina && c.Jina.Key == "" {
		errs = append(errs, "jina.key is required when scrape.use_jina is set")
	}
	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
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
