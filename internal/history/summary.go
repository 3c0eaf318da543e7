package history

import (
	"MarketFeed/internal/aggregator"
	"MarketFeed/internal/calculator"
	"MarketFeed/internal/model"
)

const (
	averageWindow = 7
	rsiPeriod     = 14
)

func summarize(points []model.HistoricalPoint, closes []float64) model.SeriesSummary {
	var s model.SeriesSummary
	if len(points) == 0 {
		return s
	}
	s.FirstClose = closes[0]
	s.LastClose = closes[len(closes)-1]
	s.Change = s.LastClose - s.FirstClose
	s.PercentChange = aggregator.PercentChange(s.Change, s.FirstClose)

	if high, low, err := calculator.Range(points); err == nil {
		s.High, s.Low = high, low
		s.RangePosition, _ = calculator.Position(s.LastClose, high, low)
	}
	s.RSI, _ = calculator.RSI(closes, rsiPeriod)
	return s
}
