package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"MarketFeed/internal/api"
	"MarketFeed/internal/cache"
	"MarketFeed/internal/collector"
	"MarketFeed/internal/config"
	"MarketFeed/internal/history"
	"MarketFeed/internal/logger"
	"MarketFeed/internal/market"
	"MarketFeed/internal/scheduler"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		lg.Fatal("config validation failed", zap.Error(err))
	}
	lg.Info("marketfeed starting", zap.String("config", cfgPath), zap.String("cache_backend", cfg.Cache.Backend))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := openBackend(ctx, cfg, lg)
	defer backend.Close()
	store := cache.NewStore(backend, cache.WithLogger(lg))

	fetcher := collector.NewHTTPFetcher(collector.Endpoints{
		Prices:   cfg.Feeds.PricesURL,
		Metadata: cfg.Feeds.MetadataURL,
		History:  cfg.Feeds.HistoryURL,
	},
		collector.WithAPIKey(cfg.Feeds.APIKey),
		collector.WithTimeout(cfg.Feeds.Timeout),
		collector.WithHistoryTimeout(cfg.Feeds.HistoryTimeout),
		collector.WithRateLimit(cfg.Feeds.RateLimit),
		collector.WithProxy(cfg.Proxy),
	)
	feed := collector.NewFeedClient(fetcher, store,
		collector.WithPrefix(cfg.Cache.Prefix),
		collector.WithFeedTTL(cfg.Cache.FeedTTL),
		collector.WithHistoryTTL(cfg.Cache.HistoryTTL),
		collector.WithLogger(lg.Named("feed")),
	)
	lg.Info("data source ready", zap.String("fetcher", fetcher.Name()))

	resolver := history.NewResolver(feed,
		history.WithBasePrice(cfg.History.BasePrice),
		history.WithLogger(lg.Named("history")),
	)

	sched := scheduler.NewScheduler(collector.NewCollector(feed),
		scheduler.WithInterval(cfg.Refresh.Interval),
		scheduler.WithCycleTimeout(cfg.Refresh.CycleTimeout),
		scheduler.WithLogger(lg.Named("refresh")),
		scheduler.WithContext(ctx),
	)
	svc := market.NewService(sched, resolver)

	// Served from cache when a previous process left valid entries behind.
	if cfg.RunOnStart() {
		if err := svc.LoadMarketData(ctx); err != nil {
			lg.Warn("initial load failed, serving empty data until the next cycle", zap.Error(err))
		}
	}
	sched.StartAutoRefresh()
	defer sched.StopAutoRefresh()

	srv := api.NewServer(svc, cfg.Server.Addr, lg.Named("api"))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		lg.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			lg.Error("http server stopped", zap.Error(err))
		}
	}

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("http shutdown", zap.Error(err))
	}
	lg.Info("marketfeed stopped")
}

// openBackend builds the configured cache backend, falling back to memory when the
// durable store cannot be opened. The cache is advisory, so the service still runs.
func openBackend(ctx context.Context, cfg *config.Config, lg *zap.Logger) cache.Backend {
	var (
		backend cache.Backend
		err     error
	)
	switch cfg.Cache.Backend {
	case config.BackendSQLite:
		backend, err = cache.NewSQLiteBackend(cfg.Cache.SQLitePath, lg.Named("cache"))
	case config.BackendRedis:
		backend, err = cache.NewRedisBackend(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
	case config.BackendMemory:
		return cache.NewMemoryBackend()
	default:
		err = fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	if err != nil {
		lg.Warn("cache backend unavailable, using in-memory cache",
			zap.String("backend", cfg.Cache.Backend), zap.Error(err))
		return cache.NewMemoryBackend()
	}
	return backend
}
