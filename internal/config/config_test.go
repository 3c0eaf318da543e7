package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HTTPS_PROXY", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Feeds.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Feeds.HistoryTimeout)
	assert.Equal(t, 5, cfg.Feeds.RateLimit)
	assert.Equal(t, BackendSQLite, cfg.Cache.Backend)
	assert.Equal(t, "market_data_", cfg.Cache.Prefix)
	assert.Equal(t, 6*time.Hour, cfg.Cache.FeedTTL)
	assert.Equal(t, 6*time.Hour, cfg.Refresh.Interval)
	assert.True(t, cfg.RunOnStart())
	assert.Equal(t, 1000.0, cfg.History.BasePrice)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.ErrorContains(t, cfg.Validate(), "feeds.prices_url")
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
feeds:
  prices_url: https://feeds.example.com/prices
  metadata_url: https://feeds.example.com/symbols
  history_url: https://feeds.example.com/history
  timeout: 5s
cache:
  backend: memory
  feed_ttl: 30m
refresh:
  interval: 1h
  run_on_start: false
history:
  base_price: 250
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://feeds.example.com/prices", cfg.Feeds.PricesURL)
	assert.Equal(t, 5*time.Second, cfg.Feeds.Timeout)
	assert.Equal(t, BackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Cache.FeedTTL)
	assert.Equal(t, 6*time.Hour, cfg.Cache.HistoryTTL)
	assert.Equal(t, time.Hour, cfg.Refresh.Interval)
	assert.False(t, cfg.RunOnStart())
	assert.Equal(t, 250.0, cfg.History.BasePrice)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
feeds:
  prices_url: https://file/prices
  metadata_url: https://file/symbols
  history_url: https://file/history
cache:
  backend: sqlite
`)
	t.Setenv("MARKETFEED_FEEDS_PRICES_URL", "https://env/prices")
	t.Setenv("MARKETFEED_CACHE_BACKEND", "redis")
	t.Setenv("MARKETFEED_CACHE_REDIS_ADDR", "localhost:6379")
	t.Setenv("MARKETFEED_REFRESH_INTERVAL", "15m")
	t.Setenv("MARKETFEED_LOG_LEVEL", "debug")
	t.Setenv("HTTPS_PROXY", "http://proxy:3128")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://env/prices", cfg.Feeds.PricesURL)
	assert.Equal(t, "https://file/symbols", cfg.Feeds.MetadataURL)
	assert.Equal(t, BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, 15*time.Minute, cfg.Refresh.Interval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "http://proxy:3128", cfg.Proxy)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "feeds: [unterminated"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{Feeds: FeedsConfig{PricesURL: "p", MetadataURL: "m", HistoryURL: "h"}}
		c.applyDefaults()
		return c
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"feeds.history_url": func(c *Config) { c.Feeds.HistoryURL = "" },
		"cache.backend":     func(c *Config) { c.Cache.Backend = "etcd" },
		"cache.redis_addr":  func(c *Config) { c.Cache.Backend = BackendRedis },
		"refresh.interval":  func(c *Config) { c.Refresh.Interval = time.Millisecond },
		"base_price":        func(c *Config) { c.History.BasePrice = -1 },
	}
	for want, mutate := range cases {
		c := valid()
		mutate(c)
		assert.ErrorContains(t, c.Validate(), want)
	}
}
