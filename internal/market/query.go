package market

import (
	"cmp"
	"slices"
	"strings"

	"MarketFeed/internal/model"
)

// PerformerCount is how many records the top and bottom performer lists hold.
const PerformerCount = 5

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func filter(records []model.ProcessedRecord, keep func(model.ProcessedRecord) bool) []model.ProcessedRecord {
	out := make([]model.ProcessedRecord, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// FilterByCommodity keeps records whose commodity name contains q, ignoring case.
// An empty q keeps everything.
func FilterByCommodity(records []model.ProcessedRecord, q string) []model.ProcessedRecord {
	q = strings.TrimSpace(q)
	return filter(records, func(r model.ProcessedRecord) bool { return containsFold(r.CommodityName, q) })
}

// FilterByDeliveryCentre keeps records whose delivery centre contains q, ignoring case.
func FilterByDeliveryCentre(records []model.ProcessedRecord, q string) []model.ProcessedRecord {
	q = strings.TrimSpace(q)
	return filter(records, func(r model.ProcessedRecord) bool { return containsFold(r.DeliveryCentre, q) })
}

// Search matches q against symbol, commodity and delivery centre.
func Search(records []model.ProcessedRecord, q string) []model.ProcessedRecord {
	q = strings.TrimSpace(q)
	return filter(records, func(r model.ProcessedRecord) bool {
		return containsFold(r.Symbol, q) || containsFold(r.CommodityName, q) || containsFold(r.DeliveryCentre, q)
	})
}

func unique(records []model.ProcessedRecord, field func(model.ProcessedRecord) string) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0)
	for _, r := range records {
		v := field(r)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// UniqueCommodities returns the sorted set of non-empty commodity names.
func UniqueCommodities(records []model.ProcessedRecord) []string {
	return unique(records, func(r model.ProcessedRecord) string { return r.CommodityName })
}

// UniqueDeliveryCentres returns the sorted set of non-empty delivery centres.
func UniqueDeliveryCentres(records []model.ProcessedRecord) []string {
	return unique(records, func(r model.ProcessedRecord) string { return r.DeliveryCentre })
}

// TopPerformers returns up to n records with the highest percent change, best first.
func TopPerformers(records []model.ProcessedRecord, n int) []model.ProcessedRecord {
	return ranked(records, n, func(a, b model.ProcessedRecord) int {
		return cmp.Compare(b.PercentChange, a.PercentChange)
	})
}

// BottomPerformers returns up to n records with the lowest percent change, worst first.
func BottomPerformers(records []model.ProcessedRecord, n int) []model.ProcessedRecord {
	return ranked(records, n, func(a, b model.ProcessedRecord) int {
		return cmp.Compare(a.PercentChange, b.PercentChange)
	})
}

func ranked(records []model.ProcessedRecord, n int, byChange func(a, b model.ProcessedRecord) int) []model.ProcessedRecord {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b model.ProcessedRecord) int {
		if c := byChange(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.Symbol, b.Symbol)
	})
	if n < 0 {
		n = 0
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Statistics summarises a refresh state.
func Statistics(st model.RefreshState) model.MarketStatistics {
	stats := model.MarketStatistics{
		TotalSymbols:        len(st.Records),
		CommodityCount:      len(UniqueCommodities(st.Records)),
		DeliveryCentreCount: len(UniqueDeliveryCentres(st.Records)),
		TopPerformers:       TopPerformers(st.Records, PerformerCount),
		BottomPerformers:    BottomPerformers(st.Records, PerformerCount),
		LastUpdated:         st.LastUpdated,
		IsStale:             st.Stale(),
	}
	if st.LastError != nil {
		stats.LastError = st.LastError.Error()
	}

	var sum float64
	for _, r := range st.Records {
		switch {
		case r.PriceChange > 0:
			stats.Gainers++
		case r.PriceChange < 0:
			stats.Losers++
		default:
			stats.Unchanged++
		}
		sum += r.PercentChange
	}
	if len(st.Records) > 0 {
		stats.AverageChange = sum / float64(len(st.Records))
	}
	return stats
}
