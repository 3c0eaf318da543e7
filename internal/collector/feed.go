package collector

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"MarketFeed/internal/cache"
	"MarketFeed/internal/model"
)

const (
	// DefaultPrefix namespaces every market-data cache key so clearing it cannot evict
	// unrelated entries.
	DefaultPrefix = "market_data_"

	// DefaultFeedTTL matches the feed's settlement cadence: closing prices change once per session.
	DefaultFeedTTL    = 6 * time.Hour
	DefaultHistoryTTL = 6 * time.Hour

	keyPrices   = "prices"
	keyMetadata = "symbols"
	keyHistory  = "history"
)

// FeedClient serves the feeds through the TTL cache. A hit performs no I/O; a miss performs
// exactly one fetch, shared by concurrent callers, and caches the result.
type FeedClient struct {
	fetcher    Fetcher
	store      *cache.Store
	prefix     string
	feedTTL    time.Duration
	historyTTL time.Duration
	logger     *zap.Logger
	group      singleflight.Group
}

// FeedOption configures a FeedClient.
type FeedOption func(*FeedClient)

func WithPrefix(prefix string) FeedOption {
	return func(c *FeedClient) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

func WithFeedTTL(ttl time.Duration) FeedOption {
	return func(c *FeedClient) {
		if ttl > 0 {
			c.feedTTL = ttl
		}
	}
}

func WithHistoryTTL(ttl time.Duration) FeedOption {
	return func(c *FeedClient) {
		if ttl > 0 {
			c.historyTTL = ttl
		}
	}
}

func WithLogger(l *zap.Logger) FeedOption {
	return func(c *FeedClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewFeedClient wraps fetcher with the cache store.
func NewFeedClient(fetcher Fetcher, store *cache.Store, opts ...FeedOption) *FeedClient {
	c := &FeedClient{
		fetcher:    fetcher,
		store:      store,
		prefix:     DefaultPrefix,
		feedTTL:    DefaultFeedTTL,
		historyTTL: DefaultHistoryTTL,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the namespaced cache key for a feed name.
func (c *FeedClient) Key(name string) string {
	return c.prefix + name
}

func (c *FeedClient) FetchPrices(ctx context.Context) (model.PriceFeed, error) {
	return cached(ctx, c, keyPrices, c.feedTTL, c.fetcher.FetchPrices)
}

func (c *FeedClient) FetchSymbolMetadata(ctx context.Context) (map[string]model.SymbolMetadata, error) {
	return cached(ctx, c, keyMetadata, c.feedTTL, c.fetcher.FetchSymbolMetadata)
}

func (c *FeedClient) FetchHistory(ctx context.Context) (json.RawMessage, error) {
	return cached(ctx, c, keyHistory, c.historyTTL, c.fetcher.FetchHistory)
}

// Invalidate drops the cached price and metadata feeds.
func (c *FeedClient) Invalidate(ctx context.Context) {
	c.store.Clear(ctx, c.Key(keyPrices))
	c.store.Clear(ctx, c.Key(keyMetadata))
}

// InvalidateAll drops every market-data entry, including the historical document.
func (c *FeedClient) InvalidateAll(ctx context.Context) {
	c.store.ClearAll(ctx, c.prefix)
}

func cached[T any](ctx context.Context, c *FeedClient, name string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	key := c.Key(name)

	var hit T
	if c.store.Get(ctx, key, &hit) {
		c.logger.Debug("feed cache hit", zap.String("key", key))
		return hit, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		start := time.Now()
		out, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store.Set(ctx, key, out, ttl)
		c.logger.Info("feed fetched",
			zap.String("feed", name),
			zap.String("source", c.fetcher.Name()),
			zap.Duration("elapsed", time.Since(start)))
		return out, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if shared {
		c.logger.Debug("feed fetch shared", zap.String("key", key))
	}
	return v.(T), nil
}
