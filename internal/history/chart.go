package history

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"MarketFeed/internal/model"
)

// ErrNotEnoughPoints means the series is too short to draw a line.
var ErrNotEnoughPoints = errors.New("need at least 2 data points")

// RenderChart renders close, high and low lines, plus the moving average when present, as a PNG.
func RenderChart(s *model.HistoricalSeries) ([]byte, error) {
	if s == nil || len(s.Points) < 2 {
		n := 0
		if s != nil {
			n = len(s.Points)
		}
		return nil, fmt.Errorf("%w, got %d", ErrNotEnoughPoints, n)
	}

	xValues := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		xValues[i] = p.SessionDate
	}

	closeSeries := chart.TimeSeries{
		Name: "Close",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"),
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: s.CloseSeries,
	}
	highSeries := chart.TimeSeries{
		Name: "High",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("16a34a"),
			StrokeWidth:     1,
			StrokeDashArray: []float64{4.0, 3.0},
		},
		XValues: xValues,
		YValues: s.HighSeries,
	}
	lowSeries := chart.TimeSeries{
		Name: "Low",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("dc2626"),
			StrokeWidth:     1,
			StrokeDashArray: []float64{4.0, 3.0},
		},
		XValues: xValues,
		YValues: s.LowSeries,
	}

	avgSeries := chart.TimeSeries{
		Name: fmt.Sprintf("SMA %d", averageWindow),
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("f59e0b"),
			StrokeWidth: 1.5,
		},
		XValues: xValues,
		YValues: s.AverageSeries,
	}

	layout := s.Period.LabelLayout()
	graph := chart.Chart{
		Title:  chartTitle(s),
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format(layout)
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{closeSeries, highSeries, lowSeries},
	}
	if len(s.AverageSeries) == len(xValues) {
		graph.Series = append(graph.Series, avgSeries)
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

func chartTitle(s *model.HistoricalSeries) string {
	title := fmt.Sprintf("%s · %s", s.Symbol, s.Period)
	switch s.Source {
	case model.SourceSynthetic:
		title += " (synthetic)"
	case model.SourceFallbackAnySymbol:
		title += fmt.Sprintf(" (showing %s)", s.MatchedSymbol)
	}
	return title
}
