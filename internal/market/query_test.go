package market

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"MarketFeed/internal/model"
)

func rec(symbol, commodity, centre string, change, pct float64) model.ProcessedRecord {
	return model.ProcessedRecord{
		Symbol:           symbol,
		CommodityName:    commodity,
		DeliveryCentre:   centre,
		PriceChange:      change,
		PercentChange:    pct,
		IsPositiveChange: change >= 0,
	}
}

func sample() []model.ProcessedRecord {
	return []model.ProcessedRecord{
		rec("GAPWM2", "White Maize", "Greater Accra", 5, 0.27),
		rec("GKMWM1", "White Maize", "Kumasi", -12, -0.8),
		rec("GSBSB1", "Soya Bean", "Sandema", 0, 0),
		rec("GEJWM2", "White Maize", "Ejura", 30, 1.9),
		rec("GTMYM2", "Yellow Maize", "Tamale", -3, -0.2),
		rec("GBKSR1", "Sorghum", "", 8, 0.6),
		rec("GWAMP1", "Millet", "Wa", 1, 0.05),
	}
}

func symbols(rs []model.ProcessedRecord) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Symbol
	}
	return out
}

func TestFilterByCommodity(t *testing.T) {
	assert.Equal(t, []string{"GAPWM2", "GKMWM1", "GEJWM2", "GTMYM2"}, symbols(FilterByCommodity(sample(), "maize")))
	assert.Equal(t, []string{"GAPWM2", "GKMWM1", "GEJWM2"}, symbols(FilterByCommodity(sample(), "WHITE")))
	assert.Empty(t, FilterByCommodity(sample(), "cocoa"))
	assert.Len(t, FilterByCommodity(sample(), ""), len(sample()))
}

func TestFilterByDeliveryCentre(t *testing.T) {
	assert.Equal(t, []string{"GAPWM2"}, symbols(FilterByDeliveryCentre(sample(), " accra ")))
	assert.Equal(t, []string{"GKMWM1", "GSBSB1", "GTMYM2"}, symbols(FilterByDeliveryCentre(sample(), "m")))
	assert.NotContains(t, symbols(FilterByDeliveryCentre(sample(), "a")), "GBKSR1", "empty centre never matches a non-empty query")
}

func TestSearch(t *testing.T) {
	assert.Equal(t, []string{"GSBSB1"}, symbols(Search(sample(), "gsbsb")), "symbol")
	assert.Equal(t, []string{"GBKSR1"}, symbols(Search(sample(), "sorg")), "commodity")
	assert.Equal(t, []string{"GTMYM2"}, symbols(Search(sample(), "TAMALE")), "centre")
	assert.Empty(t, Search(sample(), "zzz"))
}

func TestUniqueValues(t *testing.T) {
	assert.Equal(t, []string{"Millet", "Sorghum", "Soya Bean", "White Maize", "Yellow Maize"}, UniqueCommodities(sample()))
	assert.Equal(t, []string{"Ejura", "Greater Accra", "Kumasi", "Sandema", "Tamale", "Wa"}, UniqueDeliveryCentres(sample()))
	assert.Empty(t, UniqueCommodities(nil))
	assert.NotNil(t, UniqueCommodities(nil))
}

func TestPerformers(t *testing.T) {
	in := sample()
	assert.Equal(t, []string{"GEJWM2", "GBKSR1", "GAPWM2", "GWAMP1", "GSBSB1"}, symbols(TopPerformers(in, PerformerCount)))
	assert.Equal(t, []string{"GKMWM1", "GTMYM2", "GSBSB1", "GWAMP1", "GAPWM2"}, symbols(BottomPerformers(in, PerformerCount)))
	assert.Equal(t, sample(), in, "input untouched")

	assert.Len(t, TopPerformers(in[:2], PerformerCount), 2)
	assert.Empty(t, TopPerformers(in, 0))
}

func TestPerformers_TiesBreakBySymbol(t *testing.T) {
	in := []model.ProcessedRecord{rec("B", "x", "", 1, 1), rec("A", "x", "", 1, 1)}
	assert.Equal(t, []string{"A", "B"}, symbols(TopPerformers(in, 5)))
	assert.Equal(t, []string{"A", "B"}, symbols(BottomPerformers(in, 5)))
}

func TestStatistics(t *testing.T) {
	updated := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)
	stats := Statistics(model.RefreshState{
		Records:     sample(),
		LastUpdated: updated,
		LastError:   errors.New("feed unavailable"),
	})

	assert.Equal(t, 7, stats.TotalSymbols)
	assert.Equal(t, 4, stats.Gainers)
	assert.Equal(t, 2, stats.Losers)
	assert.Equal(t, 1, stats.Unchanged)
	assert.InDelta(t, (0.27-0.8+0+1.9-0.2+0.6+0.05)/7, stats.AverageChange, 1e-9)
	assert.Equal(t, 5, stats.CommodityCount)
	assert.Equal(t, 6, stats.DeliveryCentreCount)
	assert.Len(t, stats.TopPerformers, 5)
	assert.Len(t, stats.BottomPerformers, 5)
	assert.Equal(t, updated, stats.LastUpdated)
	assert.True(t, stats.IsStale)
	assert.Equal(t, "feed unavailable", stats.LastError)
}

func TestStatistics_Empty(t *testing.T) {
	stats := Statistics(model.RefreshState{})
	assert.Zero(t, stats.TotalSymbols)
	assert.Zero(t, stats.AverageChange)
	assert.False(t, stats.IsStale)
	assert.Empty(t, stats.LastError)
}
