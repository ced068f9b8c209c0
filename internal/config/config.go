// Package config loads the catalog proxy configuration from a YAML file,
// CLOTHIFY_* environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. CLOTHIFY_API_BASE_URL.
const EnvPrefix = "CLOTHIFY"

// Config holds the catalog proxy configuration.
type Config struct {
	// Catalog API
	APIBaseURL          string        `mapstructure:"api_base_url"`
	UserAgent           string        `mapstructure:"user_agent"`
	PageSize            int           `mapstructure:"page_size"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	RetryMaxAttempts    int           `mapstructure:"retry_max_attempts"`
	RetryInitialBackoff time.Duration `mapstructure:"retry_initial_backoff"`

	// Query cache
	StaleTime      time.Duration `mapstructure:"stale_time"`
	GCTime         time.Duration `mapstructure:"gc_time"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	InitialPages   int           `mapstructure:"initial_pages"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`

	// Redis backs the shared cache and request budget; empty disables it
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisDB     int    `mapstructure:"redis_db"`
	RedisPrefix string `mapstructure:"redis_prefix"`

	// Server
	ListenAddr string `mapstructure:"listen_addr"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:          "http://localhost:3000/api",
		UserAgent:           "clothify-proxy/1.0",
		PageSize:            10,
		RequestTimeout:      15 * time.Second,
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 500 * time.Millisecond,
		StaleTime:           time.Minute,
		GCTime:              5 * time.Minute,
		FetchTimeout:        30 * time.Second,
		InitialPages:        1,
		MaxConcurrency:      4,
		RedisAddr:           "",
		RedisDB:             0,
		RedisPrefix:         "clothify:",
		ListenAddr:          ":8080",
		LogLevel:            "info",
		LogPretty:           false,
	}
}

// Load reads configuration into a new Config. cfgFile may be empty, in
// which case config.yaml is looked up in the working directory and a
// missing file is not an error. v carries flag bindings; nil uses a fresh
// instance.
func Load(cfgFile string, v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	cfg := DefaultConfig()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("api_base_url", cfg.APIBaseURL)
	v.SetDefault("user_agent", cfg.UserAgent)
	v.SetDefault("page_size", cfg.PageSize)
	v.SetDefault("request_timeout", cfg.RequestTimeout)
	v.SetDefault("retry_max_attempts", cfg.RetryMaxAttempts)
	v.SetDefault("retry_initial_backoff", cfg.RetryInitialBackoff)
	v.SetDefault("stale_time", cfg.StaleTime)
	v.SetDefault("gc_time", cfg.GCTime)
	v.SetDefault("fetch_timeout", cfg.FetchTimeout)
	v.SetDefault("initial_pages", cfg.InitialPages)
	v.SetDefault("max_concurrency", cfg.MaxConcurrency)
	v.SetDefault("redis_addr", cfg.RedisAddr)
	v.SetDefault("redis_db", cfg.RedisDB)
	v.SetDefault("redis_prefix", cfg.RedisPrefix)
	v.SetDefault("listen_addr", cfg.ListenAddr)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_pretty", cfg.LogPretty)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and required fields.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_base_url must be an absolute http(s) url (got %q)", c.APIBaseURL)
	}
	if c.PageSize < 1 || c.PageSize > 50 {
		return fmt.Errorf("page_size must be between 1 and 50 (got %d)", c.PageSize)
	}
	if c.StaleTime < 0 {
		return fmt.Errorf("stale_time must not be negative (got %v)", c.StaleTime)
	}
	if c.InitialPages < 1 {
		return fmt.Errorf("initial_pages must be >= 1 (got %d)", c.InitialPages)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be >= 1 (got %d)", c.MaxConcurrency)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	return nil
}
