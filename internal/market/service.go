package market

import (
	"context"
	"fmt"

	"MarketFeed/internal/history"
	"MarketFeed/internal/model"
)

// StateSource owns the refresh state the Service reads.
type StateSource interface {
	Snapshot() model.RefreshState
	LoadMarketData(ctx context.Context) error
	RefreshMarketData(ctx context.Context) error
}

// HistoryResolver resolves chart series for a symbol.
type HistoryResolver interface {
	Resolve(ctx context.Context, symbol string, period model.Period) (*model.HistoricalSeries, error)
}

// Service is the read side handed to consumers. Every query works on one snapshot, so
// results never mix records from two refresh cycles.
type Service struct {
	state   StateSource
	history HistoryResolver
}

// NewService creates a new Service.
func NewService(state StateSource, history HistoryResolver) *Service {
	return &Service{state: state, history: history}
}

func (s *Service) records() []model.ProcessedRecord {
	return s.state.Snapshot().Records
}

func (s *Service) Snapshot() model.RefreshState {
	return s.state.Snapshot()
}

func (s *Service) LoadMarketData(ctx context.Context) error {
	return s.state.LoadMarketData(ctx)
}

func (s *Service) RefreshMarketData(ctx context.Context) error {
	return s.state.RefreshMarketData(ctx)
}

func (s *Service) GetAllMarketData() []model.ProcessedRecord {
	return s.records()
}

func (s *Service) GetMarketDataByCommodity(commodity string) []model.ProcessedRecord {
	return FilterByCommodity(s.records(), commodity)
}

func (s *Service) GetMarketDataByDeliveryCentre(centre string) []model.ProcessedRecord {
	return FilterByDeliveryCentre(s.records(), centre)
}

func (s *Service) SearchMarketData(q string) []model.ProcessedRecord {
	return Search(s.records(), q)
}

func (s *Service) GetUniqueCommodities() []string {
	return UniqueCommodities(s.records())
}

func (s *Service) GetUniqueDeliveryCentres() []string {
	return UniqueDeliveryCentres(s.records())
}

func (s *Service) GetTopPerformers() []model.ProcessedRecord {
	return TopPerformers(s.records(), PerformerCount)
}

func (s *Service) GetBottomPerformers() []model.ProcessedRecord {
	return BottomPerformers(s.records(), PerformerCount)
}

func (s *Service) GetMarketStatistics() model.MarketStatistics {
	return Statistics(s.state.Snapshot())
}

// GetHistoricalData resolves the chart series for symbol. period is parsed
// case-insensitively; unknown values fail with history.ErrInvalidPeriod.
func (s *Service) GetHistoricalData(ctx context.Context, symbol, period string) (*model.HistoricalSeries, error) {
	p, err := model.ParsePeriod(period)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", history.ErrInvalidPeriod, period)
	}
	return s.history.Resolve(ctx, symbol, p)
}

// GetHistoricalChart renders the series for symbol as a PNG.
func (s *Service) GetHistoricalChart(ctx context.Context, symbol, period string) ([]byte, *model.HistoricalSeries, error) {
	series, err := s.GetHistoricalData(ctx, symbol, period)
	if err != nil {
		return nil, nil, err
	}
	png, err := history.RenderChart(series)
	if err != nil {
		return nil, series, err
	}
	return png, series, nil
}
