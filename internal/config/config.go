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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Reader    ReaderConfig    `yaml:"reader" mapstructure:"reader"`
	Onboard   OnboardConfig   `yaml:"onboard" mapstructure:"onboard"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ReaderConfig holds markdown reader service settings.
type ReaderConfig struct {
	Key               string `yaml:"key" mapstructure:"key"`
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// OnboardConfig bounds the onboarding engine's behavior.
type OnboardConfig struct {
	MaxSuggestedPages   int    `yaml:"max_suggested_pages" mapstructure:"max_suggested_pages"`
	MaxDetailPages      int    `yaml:"max_detail_pages" mapstructure:"max_detail_pages"`
	ScrapeDelayMinMs    int    `yaml:"scrape_delay_min_ms" mapstructure:"scrape_delay_min_ms"`
	ScrapeDelayMaxMs    int    `yaml:"scrape_delay_max_ms" mapstructure:"scrape_delay_max_ms"`
	PersonaTemplatePath string `yaml:"persona_template_path" mapstructure:"persona_template_path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks that everything a run mode needs is present. Modes:
// "onboard" for commands that call external services, "serve" for the HTTP
// API (implies onboard requirements plus a listen port).
func (c *Config) Validate(mode string) error {
	var missing []string

	checkOnboard := func() {
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required")
		}
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key is required")
		}
		if c.Reader.Key == "" {
			missing = append(missing, "reader.key is required")
		}
		if c.Onboard.MaxSuggestedPages < 1 || c.Onboard.MaxSuggestedPages > 20 {
			missing = append(missing, "onboard.max_suggested_pages must be between 1 and 20")
		}
		if c.Onboard.ScrapeDelayMinMs < 0 || c.Onboard.ScrapeDelayMaxMs < c.Onboard.ScrapeDelayMinMs {
			missing = append(missing, "onboard scrape delays must satisfy 0 <= min <= max")
		}
	}

	switch mode {
	case "onboard":
		checkOnboard()
	case "serve":
		checkOnboard()
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	case "migrate":
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: invalid configuration:\n  - %s", strings.Join(missing, "\n  - "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ONBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "onboarding.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("reader.base_url", "https://r.jina.ai")
	v.SetDefault("reader.requests_per_minute", 20)
	v.SetDefault("onboard.max_suggested_pages", 10)
	v.SetDefault("onboard.max_detail_pages", 5)
	v.SetDefault("onboard.scrape_delay_min_ms", 3000)
	v.SetDefault("onboard.scrape_delay_max_ms", 5000)

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
