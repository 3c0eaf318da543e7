package market

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketFeed/internal/history"
	"MarketFeed/internal/model"
)

type fakeState struct {
	st        model.RefreshState
	loads     int
	refreshes int
}

func (f *fakeState) Snapshot() model.RefreshState { return f.st }

func (f *fakeState) LoadMarketData(context.Context) error {
	f.loads++
	return nil
}

func (f *fakeState) RefreshMarketData(context.Context) error {
	f.refreshes++
	return nil
}

type docSource string

func (d docSource) FetchHistory(context.Context) (json.RawMessage, error) {
	return json.RawMessage(d), nil
}

func newService(doc string) (*Service, *fakeState) {
	st := &fakeState{st: model.RefreshState{Records: sample()}}
	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)
	r := history.NewResolver(docSource(doc), history.WithClock(func() time.Time { return now }))
	return NewService(st, r), st
}

func TestService_Queries(t *testing.T) {
	s, _ := newService(`{}`)

	assert.Len(t, s.GetAllMarketData(), 7)
	assert.Len(t, s.GetMarketDataByCommodity("maize"), 4)
	assert.Len(t, s.GetMarketDataByDeliveryCentre("kumasi"), 1)
	assert.Len(t, s.SearchMarketData("GEJ"), 1)
	assert.Len(t, s.GetUniqueCommodities(), 5)
	assert.Len(t, s.GetUniqueDeliveryCentres(), 6)
	assert.Equal(t, "GEJWM2", s.GetTopPerformers()[0].Symbol)
	assert.Equal(t, "GKMWM1", s.GetBottomPerformers()[0].Symbol)
	assert.Equal(t, 7, s.GetMarketStatistics().TotalSymbols)
}

func TestService_DelegatesRefresh(t *testing.T) {
	s, st := newService(`{}`)
	require.NoError(t, s.LoadMarketData(context.Background()))
	require.NoError(t, s.RefreshMarketData(context.Background()))
	assert.Equal(t, 1, st.loads)
	assert.Equal(t, 1, st.refreshes)
}

func TestService_GetHistoricalData(t *testing.T) {
	s, _ := newService(`{"GAPWM2": {"symbol": "GAPWM2", "closingPrices": [
		{"sessionDate": "2026-06-28", "closing": 1870},
		{"sessionDate": "2026-06-29", "closing": 1880}
	]}}`)

	series, err := s.GetHistoricalData(context.Background(), "GAPWM2", "1w")
	require.NoError(t, err)
	assert.Equal(t, model.Period1W, series.Period)
	assert.Equal(t, model.SourceExact, series.Source)
	assert.Equal(t, []float64{1870, 1880}, series.CloseSeries)

	_, err = s.GetHistoricalData(context.Background(), "GAPWM2", "5Y")
	assert.ErrorIs(t, err, history.ErrInvalidPeriod)

	empty, _ := newService(`{}`)
	_, err = empty.GetHistoricalData(context.Background(), "GAPWM2", "1M")
	assert.ErrorIs(t, err, history.ErrSymbolNotFound)
}

func TestService_GetHistoricalChart(t *testing.T) {
	s, _ := newService(`{"GAPWM2": {"symbol": "GAPWM2", "closingPrices": [
		{"sessionDate": "2026-06-28", "closing": 1870},
		{"sessionDate": "2026-06-29", "closing": 1880}
	]}}`)

	png, series, err := s.GetHistoricalChart(context.Background(), "GAPWM2", "1M")
	require.NoError(t, err)
	assert.Len(t, series.Points, 2)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
