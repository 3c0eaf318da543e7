package model

import "time"

// RawPriceRecord is one symbol's closing-price entry as published by the price feed.
type RawPriceRecord struct {
	Symbol        string    `json:"symbol"`
	CommodityName string    `json:"commodity"`
	OpeningPrice  float64   `json:"openingPrice"`
	ClosingPrice  float64   `json:"closingPrice"`
	HighPrice     float64   `json:"highPrice"`
	LowPrice      float64   `json:"lowPrice"`
	PriceChange   float64   `json:"priceChange"`
	LastTradeDate time.Time `json:"lastTradeDate"`
}

// PriceFeed is a decoded price feed response.
type PriceFeed struct {
	Timestamp string           `json:"timestamp"`
	Records   []RawPriceRecord `json:"records"`
}

// SymbolMetadata describes where and at what grade a symbol is delivered.
type SymbolMetadata struct {
	DeliveryCentre string `json:"deliveryCentre"`
	Grade          string `json:"grade"`
	CommodityName  string `json:"commodity"`
}

// ProcessedRecord is the joined, display-ready view of a single symbol.
type ProcessedRecord struct {
	Symbol           string    `json:"symbol"`
	CommodityName    string    `json:"commodity"`
	DeliveryCentre   string    `json:"deliveryCentre"`
	Grade            string    `json:"grade"`
	OpeningPrice     float64   `json:"openingPrice"`
	ClosingPrice     float64   `json:"closingPrice"`
	HighPrice        float64   `json:"highPrice"`
	LowPrice         float64   `json:"lowPrice"`
	PriceChange      float64   `json:"priceChange"`
	PercentChange    float64   `json:"percentChange"`
	FormattedPrice   string    `json:"formattedPrice"`
	IsPositiveChange bool      `json:"isPositiveChange"`
	LastTradeDate    time.Time `json:"lastTradeDate"`
}

// MarketStatistics summarises the current record set.
type MarketStatistics struct {
	TotalSymbols        int               `json:"totalSymbols"`
	Gainers             int               `json:"gainers"`
	Losers              int               `json:"losers"`
	Unchanged           int               `json:"unchanged"`
	AverageChange       float64           `json:"averageChange"`
	CommodityCount      int               `json:"commodityCount"`
	DeliveryCentreCount int               `json:"deliveryCentreCount"`
	TopPerformers       []ProcessedRecord `json:"topPerformers"`
	BottomPerformers    []ProcessedRecord `json:"bottomPerformers"`
	LastUpdated         time.Time         `json:"lastUpdated"`
	IsStale             bool              `json:"isStale"`
	LastError           string            `json:"lastError,omitempty"`
}
