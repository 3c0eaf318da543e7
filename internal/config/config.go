package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. MARKETFEED_FEEDS_PRICES_URL.
const EnvPrefix = "MARKETFEED_"

// Cache backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	Feeds   FeedsConfig   `yaml:"feeds" envPrefix:"FEEDS_"`
	Cache   CacheConfig   `yaml:"cache" envPrefix:"CACHE_"`
	Refresh RefreshConfig `yaml:"refresh" envPrefix:"REFRESH_"`
	History HistoryConfig `yaml:"history" envPrefix:"HISTORY_"`
	Server  ServerConfig  `yaml:"server" envPrefix:"SERVER_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Proxy   string        `yaml:"proxy" env:"PROXY"`
}

type FeedsConfig struct {
	PricesURL      string        `yaml:"prices_url" env:"PRICES_URL"`
	MetadataURL    string        `yaml:"metadata_url" env:"METADATA_URL"`
	HistoryURL     string        `yaml:"history_url" env:"HISTORY_URL"`
	APIKey         string        `yaml:"api_key" env:"API_KEY"`
	Timeout        time.Duration `yaml:"timeout" env:"TIMEOUT"`
	HistoryTimeout time.Duration `yaml:"history_timeout" env:"HISTORY_TIMEOUT"`
	RateLimit      int           `yaml:"rate_limit" env:"RATE_LIMIT"`
}

type CacheConfig struct {
	Backend    string        `yaml:"backend" env:"BACKEND"`
	SQLitePath string        `yaml:"sqlite_path" env:"SQLITE_PATH"`
	RedisAddr  string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisDB    int           `yaml:"redis_db" env:"REDIS_DB"`
	Prefix     string        `yaml:"prefix" env:"PREFIX"`
	FeedTTL    time.Duration `yaml:"feed_ttl" env:"FEED_TTL"`
	HistoryTTL time.Duration `yaml:"history_ttl" env:"HISTORY_TTL"`
}

type RefreshConfig struct {
	Interval     time.Duration `yaml:"interval" env:"INTERVAL"`
	RunOnStart   *bool         `yaml:"run_on_start" env:"RUN_ON_START"`
	CycleTimeout time.Duration `yaml:"cycle_timeout" env:"CYCLE_TIMEOUT"`
}

type HistoryConfig struct {
	BasePrice float64 `yaml:"base_price" env:"BASE_PRICE"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// Load reads config from an optional YAML file and an optional .env file, then applies
// environment variable overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Proxy == "" {
		cfg.Proxy = os.Getenv("HTTPS_PROXY")
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Feeds.Timeout == 0 {
		c.Feeds.Timeout = 10 * time.Second
	}
	if c.Feeds.HistoryTimeout == 0 {
		c.Feeds.HistoryTimeout = 30 * time.Second
	}
	if c.Feeds.RateLimit == 0 {
		c.Feeds.RateLimit = 5
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendSQLite
	}
	if c.Cache.SQLitePath == "" {
		c.Cache.SQLitePath = "data/marketfeed.db"
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "market_data_"
	}
	if c.Cache.FeedTTL == 0 {
		c.Cache.FeedTTL = 6 * time.Hour
	}
	if c.Cache.HistoryTTL == 0 {
		c.Cache.HistoryTTL = 6 * time.Hour
	}
	if c.Refresh.Interval == 0 {
		c.Refresh.Interval = 6 * time.Hour
	}
	if c.Refresh.RunOnStart == nil {
		on := true
		c.Refresh.RunOnStart = &on
	}
	if c.Refresh.CycleTimeout == 0 {
		c.Refresh.CycleTimeout = time.Minute
	}
	if c.History.BasePrice == 0 {
		c.History.BasePrice = 1000
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Feeds.PricesURL == "" {
		return fmt.Errorf("feeds.prices_url is required")
	}
	if c.Feeds.MetadataURL == "" {
		return fmt.Errorf("feeds.metadata_url is required")
	}
	if c.Feeds.HistoryURL == "" {
		return fmt.Errorf("feeds.history_url is required")
	}
	if c.Feeds.Timeout < 0 || c.Feeds.HistoryTimeout < 0 {
		return fmt.Errorf("feeds timeouts must be positive")
	}
	if c.Feeds.RateLimit < 0 {
		return fmt.Errorf("feeds.rate_limit must be positive")
	}
	switch c.Cache.Backend {
	case BackendSQLite:
		if c.Cache.SQLitePath == "" {
			return fmt.Errorf("cache.sqlite_path is required for the sqlite backend")
		}
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("cache.backend must be one of sqlite, redis, memory; got %q", c.Cache.Backend)
	}
	if c.Cache.Prefix == "" {
		return fmt.Errorf("cache.prefix must not be empty")
	}
	if c.Cache.FeedTTL <= 0 || c.Cache.HistoryTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.Refresh.Interval < time.Second {
		return fmt.Errorf("refresh.interval must be at least 1s")
	}
	if c.Refresh.CycleTimeout <= 0 {
		return fmt.Errorf("refresh.cycle_timeout must be positive")
	}
	if c.History.BasePrice <= 0 {
		return fmt.Errorf("history.base_price must be positive")
	}
	return nil
}

// RunOnStart reports whether a refresh cycle runs before the timer starts.
func (c *Config) RunOnStart() bool {
	return c.Refresh.RunOnStart == nil || *c.Refresh.RunOnStart
}
