// Package config loads mcl settings from the config file, MCL_* environment
// variables and command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/franz/movie-checklist/internal/catalog"
	"github.com/franz/movie-checklist/internal/util"
)

// EnvPrefix is prepended to environment variable names
const EnvPrefix = "MCL"

// BreakerConfig holds circuit breaker settings for catalog calls
type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// CatalogConfig holds catalog API settings
type CatalogConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Language  string        `mapstructure:"language"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
}

// SearchConfig holds search screen settings
type SearchConfig struct {
	Debounce       time.Duration `mapstructure:"debounce"`
	MinQueryLength int           `mapstructure:"min_query_length"`
}

// Config holds all runtime configuration
type Config struct {
	DB        string        `mapstructure:"db"`
	EventsDir string        `mapstructure:"events_dir"`
	Verbose   bool          `mapstructure:"verbose"`
	Quiet     bool          `mapstructure:"quiet"`
	Catalog   CatalogConfig `mapstructure:"catalog"`
	Search    SearchConfig  `mapstructure:"search"`
}

// Init points viper at the config file and the environment. An empty
// cfgFile searches ./configs and the working directory for mcl.yaml.
func Init(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("mcl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("%w: %v", util.ErrInvalidConfig, err)
	}

	util.DebugLog("Using config file: %s", viper.ConfigFileUsed())
	return nil
}

func setDefaults() {
	viper.SetDefault("db", "mcl-library.db")
	viper.SetDefault("events_dir", "")
	viper.SetDefault("verbose", false)
	viper.SetDefault("quiet", false)

	viper.SetDefault("catalog.base_url", catalog.DefaultBaseURL)
	viper.SetDefault("catalog.api_key", "")
	viper.SetDefault("catalog.language", "en-US")
	viper.SetDefault("catalog.timeout", 30*time.Second)
	viper.SetDefault("catalog.rate_limit", float64(catalog.DefaultRateLimit))
	viper.SetDefault("catalog.burst", 2)
	viper.SetDefault("catalog.cache_ttl", 24*time.Hour)
	viper.SetDefault("catalog.breaker.max_failures", 5)
	viper.SetDefault("catalog.breaker.timeout", time.Minute)

	viper.SetDefault("search.debounce", 500*time.Millisecond)
	viper.SetDefault("search.min_query_length", 3)
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", util.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c Config) Validate() error {
	var problems []string

	if c.DB == "" {
		problems = append(problems, "db must not be empty")
	}
	if c.Verbose && c.Quiet {
		problems = append(problems, "verbose and quiet are mutually exclusive")
	}
	if c.Catalog.BaseURL == "" {
		problems = append(problems, "catalog.base_url must not be empty")
	}
	if c.Catalog.Timeout <= 0 {
		problems = append(problems, "catalog.timeout must be positive")
	}
	if c.Catalog.RateLimit <= 0 {
		problems = append(problems, "catalog.rate_limit must be positive")
	}
	if c.Catalog.Burst < 1 {
		problems = append(problems, "catalog.burst must be at least 1")
	}
	if c.Catalog.CacheTTL < 0 {
		problems = append(problems, "catalog.cache_ttl must not be negative")
	}
	if c.Catalog.Breaker.MaxFailures < 1 {
		problems = append(problems, "catalog.breaker.max_failures must be at least 1")
	}
	if c.Search.Debounce < 0 {
		problems = append(problems, "search.debounce must not be negative")
	}
	if c.Search.MinQueryLength < 1 {
		problems = append(problems, "search.min_query_length must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", util.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// ClientConfig converts the catalog section for catalog.NewClient
func (c CatalogConfig) ClientConfig() catalog.Config {
	return catalog.Config{
		BaseURL:   c.BaseURL,
		APIKey:    c.APIKey,
		Language:  c.Language,
		Timeout:   c.Timeout,
		RateLimit: c.RateLimit,
		Burst:     c.Burst,
	}
}

// BreakerConfig converts the breaker section for catalog.NewBreaker
func (c CatalogConfig) BreakerConfig() catalog.BreakerConfig {
	return catalog.BreakerConfig{
		MaxFailures: c.Breaker.MaxFailures,
		Timeout:     c.Breaker.Timeout,
	}
}
