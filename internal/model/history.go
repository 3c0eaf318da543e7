package model

import (
	"fmt"
	"strings"
	"time"
)

// Period is a historical lookback window.
type Period string

const (
	Period1D Period = "1D"
	Period1W Period = "1W"
	Period1M Period = "1M"
	Period3M Period = "3M"
	Period6M Period = "6M"
	Period1Y Period = "1Y"
)

// Periods lists every supported period, shortest first.
var Periods = []Period{Period1D, Period1W, Period1M, Period3M, Period6M, Period1Y}

// ParsePeriod accepts a period case-insensitively.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Periods {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Cutoff returns the earliest session date inside the window ending at now.
func (p Period) Cutoff(now time.Time) time.Time {
	switch p {
	case Period1D:
		return now.AddDate(0, 0, -1)
	case Period1W:
		return now.AddDate(0, 0, -7)
	case Period1M:
		return now.AddDate(0, -1, 0)
	case Period3M:
		return now.AddDate(0, -3, 0)
	case Period6M:
		return now.AddDate(0, -6, 0)
	case Period1Y:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, -1, 0)
	}
}

// LabelLayout is the time layout used for chart labels at this granularity.
func (p Period) LabelLayout() string {
	if p == Period1D {
		return "15:04"
	}
	return "Jan 2"
}

// HistoricalPoint is one trading session's OHLC values.
type HistoricalPoint struct {
	SessionDate time.Time `json:"sessionDate"`
	Opening     float64   `json:"opening"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Closing     float64   `json:"closing"`
}

// SeriesSource records which resolution phase produced a series.
type SeriesSource string

const (
	// SourceExact is data found under the requested symbol.
	SourceExact SeriesSource = "exact"
	// SourceFallbackAnySymbol is data borrowed from the first available entry; it may belong
	// to a different symbol (see MatchedSymbol).
	SourceFallbackAnySymbol SeriesSource = "fallback_any_symbol"
	// SourceSynthetic is a generated random walk, not market data.
	SourceSynthetic SeriesSource = "synthetic"
)

// HistoricalSeries is a chart-ready series, always ordered by session date ascending.
// WindowFallback is set when no point fell inside the period and the most recent raw points
// were returned instead.
type HistoricalSeries struct {
	Symbol         string            `json:"symbol"`
	MatchedSymbol  string            `json:"matchedSymbol,omitempty"`
	Period         Period            `json:"period"`
	Source         SeriesSource      `json:"source"`
	WindowFallback bool              `json:"windowFallback"`
	Points         []HistoricalPoint `json:"points"`
	Labels         []string          `json:"labels"`
	CloseSeries    []float64         `json:"closeSeries"`
	HighSeries     []float64         `json:"highSeries"`
	LowSeries      []float64         `json:"lowSeries"`
	OpenSeries     []float64         `json:"openSeries"`
	AverageSeries  []float64         `json:"averageSeries"`
	Summary        SeriesSummary     `json:"summary"`
}

// SeriesSummary describes the returned points as a whole.
type SeriesSummary struct {
	FirstClose    float64 `json:"firstClose"`
	LastClose     float64 `json:"lastClose"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"percentChange"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	// RangePosition is where LastClose sits between Low and High, 0.0~1.0.
	RangePosition float64 `json:"rangePosition"`
	RSI           float64 `json:"rsi"`
}

// Synthetic reports whether the series is fabricated.
func (s *HistoricalSeries) Synthetic() bool {
	return s.Source == SourceSynthetic
}
