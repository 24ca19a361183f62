package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/planwise/plan-advisor/internal/model"
)

// Config holds the full application configuration. The pipeline consumes it
// as an opaque object and never reads environment state directly.
type Config struct {
	Providers  []model.ProviderConfig `yaml:"providers" mapstructure:"providers"`
	Anthropic  AnthropicConfig        `yaml:"anthropic" mapstructure:"anthropic"`
	Embeddings EmbeddingsConfig       `yaml:"embeddings" mapstructure:"embeddings"`
	Firecrawl  FirecrawlConfig        `yaml:"firecrawl" mapstructure:"firecrawl"`
	Cache      CacheConfig            `yaml:"cache" mapstructure:"cache"`
	Index      IndexConfig            `yaml:"index" mapstructure:"index"`
	Query      QueryConfig            `yaml:"query" mapstructure:"query"`
	Ingest     IngestConfig           `yaml:"ingest" mapstructure:"ingest"`
	Server     ServerConfig           `yaml:"server" mapstructure:"server"`
	Log        LogConfig              `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds reasoning API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// EmbeddingsConfig holds settings for the OpenAI-compatible embeddings API.
type EmbeddingsConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Model             string  `yaml:"model" mapstructure:"model"`
	BatchSize         int     `yaml:"batch_size" mapstructure:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// FirecrawlConfig holds settings for the dynamic-render scrape API.
type FirecrawlConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CacheConfig configures the per-provider plan cache.
type CacheConfig struct {
	Dir            string `yaml:"dir" mapstructure:"dir"`
	FreshnessHours int    `yaml:"freshness_hours" mapstructure:"freshness_hours"`
}

// IndexConfig configures the vector index backend.
type IndexConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres, memory
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// QueryConfig configures the query pipeline.
type QueryConfig struct {
	TopK int `yaml:"top_k" mapstructure:"top_k"`
}

// IngestConfig configures ingestion jobs.
type IngestConfig struct {
	MaxConcurrentProviders int `yaml:"max_concurrent_providers" mapstructure:"max_concurrent_providers"`
	// ProviderTimeoutSecs bounds a provider's whole ingestion run
	// (fetch, extract, normalize, embed, index), not just the fetch.
	ProviderTimeoutSecs    int `yaml:"provider_timeout_secs" mapstructure:"provider_timeout_secs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("PLANADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2000)
	v.SetDefault("embeddings.base_url", "https://api.openai.com/v1")
	v.SetDefault("embeddings.model", "text-embedding-3-small")
	v.SetDefault("embeddings.batch_size", 20)
	v.SetDefault("embeddings.requests_per_second", 5)
	v.SetDefault("embeddings.timeout_secs", 30)
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("firecrawl.timeout_secs", 45)
	v.SetDefault("cache.dir", "plan_cache")
	v.SetDefault("cache.freshness_hours", 24)
	v.SetDefault("index.driver", "sqlite")
	v.SetDefault("index.path", "plan_index.db")
	v.SetDefault("query.top_k", 5)
	v.SetDefault("ingest.max_concurrent_providers", 3)
	v.SetDefault("ingest.provider_timeout_secs", 60)

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

// Provider returns the configuration for the named provider.
func (c *Config) Provider(name string) (model.ProviderConfig, bool) {
	for _, p := range c.Providers {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return model.ProviderConfig{}, false
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
