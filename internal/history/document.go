package history

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"MarketFeed/internal/model"
)

// maxDepth bounds the walk: top-level entries and their direct children only.
const maxDepth = 2

// node is one value in the historical document. Exactly one of series or children is
// meaningful: an object carrying a closingPrices array is a series, anything else
// that is an object or array is a container.
type node struct {
	key      string
	series   *series
	children []node
}

type series struct {
	key    string
	symbol string
	// size is the length of the raw closingPrices array, counted before unparseable points
	// are dropped.
	size   int
	points []model.HistoricalPoint
}

// parseDocument decodes the top level of the document. A document that is not an object
// or array yields no entries.
func parseDocument(raw []byte) []node {
	return decodeChildren(raw, 1)
}

func decodeChildren(raw []byte, depth int) []node {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		out := make([]node, 0, len(obj))
		for _, k := range slices.Sorted(maps.Keys(obj)) {
			if n, ok := decodeNode(k, obj[k], depth); ok {
				out = append(out, n)
			}
		}
		return out
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		out := make([]node, 0, len(arr))
		for i, v := range arr {
			if n, ok := decodeNode(strconv.Itoa(i), v, depth); ok {
				out = append(out, n)
			}
		}
		return out
	}
	return nil
}

func decodeNode(key string, raw json.RawMessage, depth int) (node, bool) {
	n := node{key: key}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		if prices, ok := obj["closingPrices"]; ok {
			var items []json.RawMessage
			if err := json.Unmarshal(prices, &items); err == nil {
				n.series = &series{
					key:    key,
					symbol: stringField(obj["symbol"]),
					size:   len(items),
					points: decodePoints(items),
				}
				return n, true
			}
		}
	} else {
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return node{}, false
		}
	}

	if depth < maxDepth {
		n.children = decodeChildren(raw, depth+1)
	}
	return n, true
}

var (
	dateKeys    = []string{"sessionDate", "date", "tradeDate", "timestamp"}
	openingKeys = []string{"opening", "openingPrice", "open"}
	highKeys    = []string{"high", "highPrice"}
	lowKeys     = []string{"low", "lowPrice"}
	closingKeys = []string{"closing", "closingPrice", "close", "price"}
)

func decodePoints(items []json.RawMessage) []model.HistoricalPoint {
	points := make([]model.HistoricalPoint, 0, len(items))
	for _, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		date, ok := dateField(obj)
		if !ok {
			continue
		}
		closing, hasClose := numberField(obj, closingKeys)
		opening, hasOpen := numberField(obj, openingKeys)
		if !hasClose && !hasOpen {
			continue
		}
		if !hasClose {
			closing = opening
		}
		if !hasOpen {
			opening = closing
		}
		high, ok := numberField(obj, highKeys)
		if !ok {
			high = max(opening, closing)
		}
		low, ok := numberField(obj, lowKeys)
		if !ok {
			low = min(opening, closing)
		}
		points = append(points, model.HistoricalPoint{
			SessionDate: date,
			Opening:     opening,
			High:        high,
			Low:         low,
			Closing:     closing,
		})
	}
	return points
}

func dateField(obj map[string]json.RawMessage) (time.Time, bool) {
	for _, k := range dateKeys {
		raw, ok := obj[k]
		if !ok || string(raw) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if t, ok := model.ParseSessionDate(s); ok {
				return t, true
			}
			continue
		}
		var n int64
		if err := json.Unmarshal(raw, &n); err == nil {
			return model.UnixAuto(n), true
		}
	}
	return time.Time{}, false
}

func numberField(obj map[string]json.RawMessage, keys []string) (float64, bool) {
	for _, k := range keys {
		raw, ok := obj[k]
		if !ok || string(raw) == "null" {
			continue
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return f, true
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func stringField(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
