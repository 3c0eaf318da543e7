package aggregator

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"MarketFeed/internal/model"
)

// Aggregate joins price records with their symbol metadata and derives the display fields.
// It never mutates its inputs and always returns a newly allocated slice, ordered by
// commodity name, then delivery centre (empty last), then symbol.
func Aggregate(prices []model.RawPriceRecord, metadata map[string]model.SymbolMetadata) []model.ProcessedRecord {
	out := make([]model.ProcessedRecord, 0, len(prices))
	for _, p := range prices {
		meta := metadata[p.Symbol]

		commodity := p.CommodityName
		if commodity == "" {
			commodity = meta.CommodityName
		}

		out = append(out, model.ProcessedRecord{
			Symbol:           p.Symbol,
			CommodityName:    commodity,
			DeliveryCentre:   meta.DeliveryCentre,
			Grade:            meta.Grade,
			OpeningPrice:     p.OpeningPrice,
			ClosingPrice:     p.ClosingPrice,
			HighPrice:        p.HighPrice,
			LowPrice:         p.LowPrice,
			PriceChange:      p.PriceChange,
			PercentChange:    PercentChange(p.PriceChange, p.OpeningPrice),
			FormattedPrice:   FormatPrice(p.ClosingPrice),
			IsPositiveChange: p.PriceChange >= 0,
			LastTradeDate:    p.LastTradeDate,
		})
	}
	slices.SortStableFunc(out, compareRecords)
	return out
}

func compareRecords(a, b model.ProcessedRecord) int {
	if c := cmp.Compare(a.CommodityName, b.CommodityName); c != 0 {
		return c
	}
	if c := compareEmptyLast(a.DeliveryCentre, b.DeliveryCentre); c != 0 {
		return c
	}
	return cmp.Compare(a.Symbol, b.Symbol)
}

func compareEmptyLast(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	default:
		return strings.Compare(a, b)
	}
}

// PercentChange returns change as a percentage of the opening price. It is 0 whenever the
// opening price is not positive or the result would not be finite.
func PercentChange(change, opening float64) float64 {
	if opening <= 0 || math.IsNaN(opening) {
		return 0
	}
	pct := change / opening * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0
	}
	return pct
}

// FormatPrice renders a price with thousands separators and two decimals.
func FormatPrice(price float64) string {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return "-"
	}
	return humanize.FormatFloat("#,###.##", price)
}
