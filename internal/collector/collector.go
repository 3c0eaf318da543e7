package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"MarketFeed/internal/model"
)

// MockFetcher returns fixed data for development and testing. Gate, when set, blocks
// every price fetch until it is closed.
type MockFetcher struct {
	Prices   model.PriceFeed
	Metadata map[string]model.SymbolMetadata
	History  json.RawMessage

	PriceErr    error
	MetadataErr error
	HistoryErr  error

	Gate chan struct{}

	PriceCalls    atomic.Int32
	MetadataCalls atomic.Int32
	HistoryCalls  atomic.Int32
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchPrices(ctx context.Context) (model.PriceFeed, error) {
	m.PriceCalls.Add(1)
	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return model.PriceFeed{}, &FeedError{Feed: "prices", Endpoint: "mock", Err: ctx.Err()}
		}
	}
	if m.PriceErr != nil {
		return model.PriceFeed{}, &FeedError{Feed: "prices", Endpoint: "mock", Err: m.PriceErr}
	}
	return m.Prices, nil
}

func (m *MockFetcher) FetchSymbolMetadata(_ context.Context) (map[string]model.SymbolMetadata, error) {
	m.MetadataCalls.Add(1)
	if m.MetadataErr != nil {
		return nil, &FeedError{Feed: "metadata", Endpoint: "mock", Err: m.MetadataErr}
	}
	return m.Metadata, nil
}

func (m *MockFetcher) FetchHistory(_ context.Context) (json.RawMessage, error) {
	m.HistoryCalls.Add(1)
	if m.HistoryErr != nil {
		return nil, &FeedError{Feed: "history", Endpoint: "mock", Err: m.HistoryErr}
	}
	return m.History, nil
}

// Snapshot is one consistent read of both feeds.
type Snapshot struct {
	Prices   model.PriceFeed
	Metadata map[string]model.SymbolMetadata
}

// Collector gathers the price and metadata feeds for one refresh cycle.
type Collector struct {
	Feed *FeedClient
}

// NewCollector creates a new Collector.
func NewCollector(feed *FeedClient) *Collector {
	return &Collector{Feed: feed}
}

// Collect fetches both feeds concurrently. Either failing fails the whole collection.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		prices, err := c.Feed.FetchPrices(gctx)
		if err != nil {
			return fmt.Errorf("fetch prices: %w", err)
		}
		snap.Prices = prices
		return nil
	})
	g.Go(func() error {
		metadata, err := c.Feed.FetchSymbolMetadata(gctx)
		if err != nil {
			return fmt.Errorf("fetch symbol metadata: %w", err)
		}
		snap.Metadata = metadata
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Invalidate drops the cached feeds so the next Collect goes to the network.
func (c *Collector) Invalidate(ctx context.Context) {
	c.Feed.Invalidate(ctx)
}
