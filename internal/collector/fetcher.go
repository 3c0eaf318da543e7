package collector

import (
	"context"
	"encoding/json"

	"MarketFeed/internal/model"
)

// Fetcher retrieves the raw market feeds from their source. Implementations do not cache
// and do not retry.
type Fetcher interface {
	FetchPrices(ctx context.Context) (model.PriceFeed, error)
	FetchSymbolMetadata(ctx context.Context) (map[string]model.SymbolMetadata, error)
	FetchHistory(ctx context.Context) (json.RawMessage, error)
	Name() string
}
