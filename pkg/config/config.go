// Package config loads sidecar configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "config.yaml"
	DefaultUserAgent  = "fetch-fanout/0.1.0"
)

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// CacheConfig holds the optional fetched-body cache settings.
type CacheConfig struct {
	Enabled   bool   `yaml:"enabled"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	TTL       string `yaml:"ttl"`
}

// Config is the full sidecar configuration. Durations are strings in the
// YAML file ("15s", "1m") and parsed by the accessor methods after Validate.
type Config struct {
	Port           int    `yaml:"port"`
	UserAgent      string `yaml:"user_agent"`
	FetchTimeout   string `yaml:"fetch_timeout"`
	BatchTimeout   string `yaml:"batch_timeout"`
	MaxConcurrency int    `yaml:"max_concurrency"`

	Log   LogConfig   `yaml:"log"`
	Cache CacheConfig `yaml:"cache"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Port:           8080,
		UserAgent:      DefaultUserAgent,
		FetchTimeout:   "15s",
		BatchTimeout:   "60s",
		MaxConcurrency: 0, // unbounded fan-out
		Log: LogConfig{
			Level:  "info",
			Pretty: false,
		},
		Cache: CacheConfig{
			Enabled:   false,
			RedisAddr: "localhost:6379",
			RedisDB:   0,
			TTL:       "60s",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if it
// exists), then environment variable overrides. A missing file is not an
// error; an unreadable or unparsable one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults + env only.
	default:
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides config fields from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		c.FetchTimeout = v
	}
	if v := os.Getenv("BATCH_TIMEOUT"); v != "" {
		c.BatchTimeout = v
	}
	if v := os.Getenv("MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrency = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		c.Log.Pretty = v == "true" || v == "1"
	}
	if v := os.Getenv("CACHE_ENABLED"); v != "" {
		c.Cache.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Cache.RedisDB = db
		}
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		c.Cache.TTL = v
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d, must be between 0 and 65535", c.Port)
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user_agent must not be empty")
	}

	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must be >= 0 (got %d)", c.MaxConcurrency)
	}

	if _, err := time.ParseDuration(c.FetchTimeout); err != nil {
		return fmt.Errorf("invalid fetch_timeout %q: %w", c.FetchTimeout, err)
	}

	if _, err := time.ParseDuration(c.BatchTimeout); err != nil {
		return fmt.Errorf("invalid batch_timeout %q: %w", c.BatchTimeout, err)
	}

	if c.Cache.Enabled {
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr must be set when the cache is enabled")
		}
		if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
			return fmt.Errorf("invalid cache.ttl %q: %w", c.Cache.TTL, err)
		}
	}

	return nil
}

// FetchTimeoutDuration returns the parsed per-fetch timeout.
func (c *Config) FetchTimeoutDuration() time.Duration {
	return mustDuration(c.FetchTimeout, 15*time.Second)
}

// BatchTimeoutDuration returns the parsed whole-batch timeout.
func (c *Config) BatchTimeoutDuration() time.Duration {
	return mustDuration(c.BatchTimeout, 60*time.Second)
}

// CacheTTLDuration returns the parsed cache TTL.
func (c *Config) CacheTTLDuration() time.Duration {
	return mustDuration(c.Cache.TTL, 60*time.Second)
}

func mustDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
