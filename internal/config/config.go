package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrMissingLLMKey is returned by Load when OPENAI_API_KEY is not configured.
var ErrMissingLLMKey = errors.New("OPENAI_API_KEY is required")

const (
	MinArticleCount = 1
	MaxArticleCount = 20
)

// Config holds the application configuration loaded from files and environment variables.
// It is built once at startup and shared read-only.
type Config struct {
	AppName        string `mapstructure:"app_name"`
	Env            string `mapstructure:"app_env"`
	LogLevel       string `mapstructure:"log_level"`
	LogFile        string `mapstructure:"log_file"`
	HTTPAddr       string `mapstructure:"http_addr"`
	ProvidersFile  string `mapstructure:"providers_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	OpenAIAPIKey   string `mapstructure:"openai_api_key"`
	NewsAPIKey     string `mapstructure:"news_api_key"`
	LLMEndpoint    string `mapstructure:"llm_endpoint"`
	LLMModel       string `mapstructure:"llm_model"`
	LLMTimeoutSec  int64  `mapstructure:"llm_timeout_seconds"`
	HTTPTimeoutSec int64  `mapstructure:"http_timeout_seconds"`

	AnalysisConcurrency int  `mapstructure:"analysis_concurrency"`
	DefaultArticleCount int  `mapstructure:"default_article_count"`
	SynthesizeSummary   bool `mapstructure:"synthesize_summary"`
	EnrichArticles      bool `mapstructure:"enrich_articles"`

	StorageType           string `mapstructure:"storage_type"`
	BBoltPath             string `mapstructure:"bbolt_path"`
	PostgresDSN           string `mapstructure:"postgres_dsn"`
	ExportTTLSeconds      int64  `mapstructure:"export_ttl_seconds"`
	StorageCleanupSeconds int64  `mapstructure:"storage_cleanup_interval_seconds"`

	LLMTimeout             time.Duration `mapstructure:"-"`
	HTTPTimeout            time.Duration `mapstructure:"-"`
	ExportTTL              time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and .env files.
func Load() (*Config, error) {
	return LoadWithFlags(nil)
}

// LoadWithFlags is Load with command-line flags layered on top of the environment.
// Only flags that were explicitly set override other sources.
func LoadWithFlags(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")
	_ = godotenv.Load(".env")

	v := newViper()
	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil {
				bindErr = errors.Join(bindErr, err)
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("app_name", "samvad-news-digest")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "./app.log")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("providers_file", "./configs/providers.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")

	v.SetDefault("openai_api_key", "")
	v.SetDefault("news_api_key", "")
	v.SetDefault("llm_endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("llm_model", "gpt-3.5-turbo")
	v.SetDefault("llm_timeout_seconds", 30)
	v.SetDefault("http_timeout_seconds", 15)

	v.SetDefault("analysis_concurrency", 4)
	v.SetDefault("default_article_count", 5)
	v.SetDefault("synthesize_summary", true)
	v.SetDefault("enrich_articles", false)

	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/exports.db")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("export_ttl_seconds", int64(time.Hour/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((10*time.Minute)/time.Second))

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func (c *Config) normalize() error {
	c.OpenAIAPIKey = strings.TrimSpace(c.OpenAIAPIKey)
	c.NewsAPIKey = strings.TrimSpace(c.NewsAPIKey)
	if c.OpenAIAPIKey == "" {
		return ErrMissingLLMKey
	}

	if c.LLMTimeoutSec <= 0 {
		return fmt.Errorf("invalid llm_timeout_seconds (must be positive seconds)")
	}
	if c.HTTPTimeoutSec <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	c.LLMTimeout = time.Duration(c.LLMTimeoutSec) * time.Second
	c.HTTPTimeout = time.Duration(c.HTTPTimeoutSec) * time.Second

	if c.AnalysisConcurrency <= 0 {
		c.AnalysisConcurrency = 1
	}
	if c.DefaultArticleCount < MinArticleCount || c.DefaultArticleCount > MaxArticleCount {
		return fmt.Errorf("invalid default_article_count (must be %d-%d)", MinArticleCount, MaxArticleCount)
	}

	if c.ExportTTLSeconds <= 0 {
		return fmt.Errorf("invalid export_ttl_seconds (must be positive seconds)")
	}
	if c.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	c.ExportTTL = time.Duration(c.ExportTTLSeconds) * time.Second
	c.StorageCleanupInterval = time.Duration(c.StorageCleanupSeconds) * time.Second
	return nil
}

// NewsAPIEnabled reports whether the optional search API source can be offered.
func (c *Config) NewsAPIEnabled() bool {
	return c != nil && c.NewsAPIKey != ""
}

// Redacted returns a copy safe for logging.
func (c *Config) Redacted() Config {
	out := *c
	out.OpenAIAPIKey = mask(out.OpenAIAPIKey)
	out.NewsAPIKey = mask(out.NewsAPIKey)
	if out.PostgresDSN != "" {
		out.PostgresDSN = "***"
	}
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}
