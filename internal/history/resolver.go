package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"MarketFeed/internal/calculator"
	"MarketFeed/internal/model"
)

const (
	// DefaultBasePrice anchors the synthetic walk.
	DefaultBasePrice = 1000.0

	recentPointsFallback = 30
	syntheticPoints      = 31
)

var (
	// ErrSymbolNotFound means the document holds no usable series at all.
	ErrSymbolNotFound = errors.New("symbol not found in historical data")
	// ErrNoDataAfterFiltering is recovered internally by the recent-points and synthetic
	// fallbacks and never returned by Resolve.
	ErrNoDataAfterFiltering = errors.New("no historical data inside window")
	// ErrInvalidPeriod rejects periods outside model.Periods.
	ErrInvalidPeriod = errors.New("invalid period")
)

// DocumentSource supplies the raw historical document.
type DocumentSource interface {
	FetchHistory(ctx context.Context) (json.RawMessage, error)
}

// Resolver locates and windows a symbol's series inside the historical document.
type Resolver struct {
	source    DocumentSource
	now       func() time.Time
	basePrice float64
	logger    *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func WithBasePrice(p float64) Option {
	return func(r *Resolver) {
		if p > 0 {
			r.basePrice = p
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewResolver(source DocumentSource, opts ...Option) *Resolver {
	r := &Resolver{
		source:    source,
		now:       time.Now,
		basePrice: DefaultBasePrice,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the series for symbol over period. The search runs in phases:
// exact symbol at the top level, exact symbol one level down, then the first nested
// series of any symbol. The returned Source says which phase answered. Resolve fails
// with ErrSymbolNotFound only when the document holds no non-empty series anywhere.
func (r *Resolver) Resolve(ctx context.Context, symbol string, period model.Period) (*model.HistoricalSeries, error) {
	if !validPeriod(period) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	symbol = strings.TrimSpace(symbol)

	doc, err := r.source.FetchHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch historical document: %w", err)
	}

	found, source := find(parseDocument(doc), symbol)
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	out := &model.HistoricalSeries{
		Symbol:        symbol,
		MatchedSymbol: found.symbol,
		Period:        period,
		Source:        source,
	}
	if source == model.SourceFallbackAnySymbol {
		r.logger.Info("historical series borrowed from another entry",
			zap.String("symbol", symbol),
			zap.String("matched_symbol", found.symbol),
			zap.String("entry", found.key))
	}

	now := r.now()
	points, err := window(found.points, period.Cutoff(now))
	if errors.Is(err, ErrNoDataAfterFiltering) {
		out.WindowFallback = true
		points = recent(found.points, recentPointsFallback)
		r.logger.Debug("no points inside window, using most recent points",
			zap.String("symbol", symbol),
			zap.String("period", string(period)),
			zap.Int("points", len(points)))
	}
	if len(points) == 0 {
		out.Source = model.SourceSynthetic
		out.MatchedSymbol = ""
		points = synthesize(symbol, period, now, r.basePrice)
		r.logger.Info("historical series synthesized",
			zap.String("symbol", symbol),
			zap.String("period", string(period)))
	}

	fill(out, points, period)
	return out, nil
}

func validPeriod(p model.Period) bool {
	for _, known := range model.Periods {
		if p == known {
			return true
		}
	}
	return false
}

// find runs the three search phases over the parsed document.
func find(entries []node, symbol string) (*series, model.SeriesSource) {
	usable := func(s *series) bool { return s != nil && s.size > 0 }
	matches := func(s *series) bool { return usable(s) && symbol != "" && s.symbol == symbol }

	for _, e := range entries {
		if matches(e.series) {
			return e.series, model.SourceExact
		}
	}
	for _, e := range entries {
		for _, c := range e.children {
			if matches(c.series) {
				return c.series, model.SourceExact
			}
		}
	}
	for _, e := range entries {
		for _, c := range e.children {
			if usable(c.series) {
				return c.series, model.SourceFallbackAnySymbol
			}
		}
	}
	// Series sitting directly at the top level are the last resort, so a document with any
	// data at all still charts.
	for _, e := range entries {
		if usable(e.series) {
			return e.series, model.SourceFallbackAnySymbol
		}
	}
	return nil, ""
}

// window returns the points dated at or after cutoff, ascending by session date.
func window(points []model.HistoricalPoint, cutoff time.Time) ([]model.HistoricalPoint, error) {
	sorted := sortedCopy(points)
	out := make([]model.HistoricalPoint, 0, len(sorted))
	for _, p := range sorted {
		if !p.SessionDate.Before(cutoff) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoDataAfterFiltering
	}
	return out, nil
}

// recent returns the last n points by session date, ascending.
func recent(points []model.HistoricalPoint, n int) []model.HistoricalPoint {
	sorted := sortedCopy(points)
	if len(sorted) > n {
		sorted = sorted[len(sorted)-n:]
	}
	return sorted
}

func sortedCopy(points []model.HistoricalPoint) []model.HistoricalPoint {
	out := append([]model.HistoricalPoint(nil), points...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SessionDate.Before(out[j].SessionDate) })
	return out
}

// synthesize builds a deterministic random walk seeded by the symbol, spread evenly
// across the period and ending at now.
func synthesize(symbol string, period model.Period, now time.Time, base float64) []model.HistoricalPoint {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	rng := rand.New(rand.NewPCG(h.Sum64(), uint64(len(symbol))+1))

	cutoff := period.Cutoff(now)
	step := now.Sub(cutoff) / (syntheticPoints - 1)

	points := make([]model.HistoricalPoint, 0, syntheticPoints)
	price := base
	for i := 0; i < syntheticPoints; i++ {
		opening := price
		closing := opening * (1 + (rng.Float64()-0.5)*0.04)
		if closing < 0.01 {
			closing = 0.01
		}
		points = append(points, model.HistoricalPoint{
			SessionDate: cutoff.Add(step * time.Duration(i)),
			Opening:     opening,
			High:        max(opening, closing) * (1 + rng.Float64()*0.01),
			Low:         min(opening, closing) * (1 - rng.Float64()*0.01),
			Closing:     closing,
		})
		price = closing
	}
	return points
}

func fill(out *model.HistoricalSeries, points []model.HistoricalPoint, period model.Period) {
	layout := period.LabelLayout()
	out.Points = points
	out.Labels = make([]string, len(points))
	out.CloseSeries = make([]float64, len(points))
	out.HighSeries = make([]float64, len(points))
	out.LowSeries = make([]float64, len(points))
	out.OpenSeries = make([]float64, len(points))
	for i, p := range points {
		out.Labels[i] = p.SessionDate.Format(layout)
		out.CloseSeries[i] = p.Closing
		out.HighSeries[i] = p.High
		out.LowSeries[i] = p.Low
		out.OpenSeries[i] = p.Opening
	}
	out.AverageSeries = calculator.MovingAverage(out.CloseSeries, averageWindow)
	out.Summary = summarize(points, out.CloseSeries)
}
