package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"MarketFeed/internal/model"
)

const (
	DefaultFeedTimeout    = 10 * time.Second
	DefaultHistoryTimeout = 30 * time.Second
	DefaultRateLimit      = 5 // requests per second

	maxBodyBytes = 64 << 20
)

// Endpoints holds the three feed URLs.
type Endpoints struct {
	Prices   string
	Metadata string
	History  string
}

// HTTPFetcher implements Fetcher over plain HTTP GETs.
type HTTPFetcher struct {
	endpoints     Endpoints
	apiKey        string
	client        *http.Client
	historyClient *http.Client
	limiter       *rate.Limiter
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithAPIKey sends the key as a bearer token.
func WithAPIKey(key string) Option {
	return func(f *HTTPFetcher) {
		f.apiKey = key
	}
}

// WithTimeout bounds price and metadata requests.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithHistoryTimeout bounds the historical document request.
func WithHistoryTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.historyClient.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(requestsPerSecond int) Option {
	return func(f *HTTPFetcher) {
		if requestsPerSecond > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithProxy routes every request through proxyURL. Invalid URLs are ignored.
func WithProxy(proxyURL string) Option {
	return func(f *HTTPFetcher) {
		if proxyURL == "" {
			return
		}
		u, err := url.Parse(proxyURL)
		if err != nil {
			return
		}
		transport := &http.Transport{Proxy: http.ProxyURL(u)}
		f.client.Transport = transport
		f.historyClient.Transport = transport
	}
}

// NewHTTPFetcher creates a fetcher for the given endpoints.
func NewHTTPFetcher(endpoints Endpoints, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		endpoints:     endpoints,
		client:        &http.Client{Timeout: DefaultFeedTimeout},
		historyClient: &http.Client{Timeout: DefaultHistoryTimeout},
		limiter:       rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *HTTPFetcher) Name() string { return "http" }

// flexFloat64 accepts a JSON number or a numeric string. Unparseable strings read as 0.
type flexFloat64 float64

func (v *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*v = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*v = 0
			return nil
		}
		*v = flexFloat64(n)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// flexString accepts any JSON scalar and keeps its text.
type flexString string

func (v *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = flexString(s)
		return nil
	}
	*v = flexString(strings.TrimSpace(string(data)))
	return nil
}

type wirePrice struct {
	Symbol        string      `json:"symbol"`
	Commodity     string      `json:"commodity"`
	OpeningPrice  flexFloat64 `json:"openingPrice"`
	ClosingPrice  flexFloat64 `json:"closingPrice"`
	HighPrice     flexFloat64 `json:"highPrice"`
	LowPrice      flexFloat64 `json:"lowPrice"`
	PriceChange   flexFloat64 `json:"priceChange"`
	LastTradeDate flexString  `json:"lastTradeDate"`
}

type priceFeedResponse struct {
	Timestamp flexString           `json:"timestamp"`
	Data      map[string]wirePrice `json:"data"`
}

type wireMetadata struct {
	DeliveryCentre string `json:"deliveryCentre"`
	Grade          string `json:"grade"`
	Commodity      string `json:"commodity"`
}

func (f *HTTPFetcher) FetchPrices(ctx context.Context) (model.PriceFeed, error) {
	body, err := f.get(ctx, "prices", f.endpoints.Prices, f.client)
	if err != nil {
		return model.PriceFeed{}, err
	}
	var resp priceFeedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.PriceFeed{}, &FeedError{Feed: "prices", Endpoint: f.endpoints.Prices, Err: fmt.Errorf("decode: %w", err)}
	}

	feed := model.PriceFeed{
		Timestamp: string(resp.Timestamp),
		Records:   make([]model.RawPriceRecord, 0, len(resp.Data)),
	}
	for key, wp := range resp.Data {
		symbol := strings.TrimSpace(wp.Symbol)
		if symbol == "" {
			symbol = key
		}
		rec := model.RawPriceRecord{
			Symbol:        symbol,
			CommodityName: strings.TrimSpace(wp.Commodity),
			OpeningPrice:  float64(wp.OpeningPrice),
			ClosingPrice:  float64(wp.ClosingPrice),
			HighPrice:     float64(wp.HighPrice),
			LowPrice:      float64(wp.LowPrice),
			PriceChange:   float64(wp.PriceChange),
		}
		if t, ok := model.ParseSessionDate(string(wp.LastTradeDate)); ok {
			rec.LastTradeDate = t
		}
		feed.Records = append(feed.Records, rec)
	}
	sort.Slice(feed.Records, func(i, j int) bool { return feed.Records[i].Symbol < feed.Records[j].Symbol })
	return feed, nil
}

func (f *HTTPFetcher) FetchSymbolMetadata(ctx context.Context) (map[string]model.SymbolMetadata, error) {
	body, err := f.get(ctx, "metadata", f.endpoints.Metadata, f.client)
	if err != nil {
		return nil, err
	}
	var resp map[string]wireMetadata
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &FeedError{Feed: "metadata", Endpoint: f.endpoints.Metadata, Err: fmt.Errorf("decode: %w", err)}
	}
	out := make(map[string]model.SymbolMetadata, len(resp))
	for symbol, m := range resp {
		out[symbol] = model.SymbolMetadata{
			DeliveryCentre: strings.TrimSpace(m.DeliveryCentre),
			Grade:          strings.TrimSpace(m.Grade),
			CommodityName:  strings.TrimSpace(m.Commodity),
		}
	}
	return out, nil
}

func (f *HTTPFetcher) FetchHistory(ctx context.Context) (json.RawMessage, error) {
	body, err := f.get(ctx, "history", f.endpoints.History, f.historyClient)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, &FeedError{Feed: "history", Endpoint: f.endpoints.History, Err: fmt.Errorf("decode: invalid JSON document")}
	}
	return json.RawMessage(body), nil
}

func (f *HTTPFetcher) get(ctx context.Context, feed, endpoint string, client *http.Client) ([]byte, error) {
	if endpoint == "" {
		return nil, &FeedError{Feed: feed, Endpoint: endpoint, Err: fmt.Errorf("no endpoint configured")}
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &FeedError{Feed: feed, Endpoint: endpoint, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FeedError{Feed: feed, Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &FeedError{Feed: feed, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FeedError{Feed: feed, Endpoint: endpoint, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &FeedError{Feed: feed, Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("body: %s", truncate(body, 200))}
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
