package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument_Shapes(t *testing.T) {
	entries := parseDocument([]byte(fixture))
	require.Len(t, entries, 3)

	assert.Equal(t, "GAPWM2", entries[0].key)
	require.NotNil(t, entries[0].series)
	assert.Equal(t, 3, entries[0].series.size)
	assert.Empty(t, entries[0].children)

	assert.Equal(t, "owner1", entries[1].key)
	assert.Nil(t, entries[1].series)
	require.Len(t, entries[1].children, 2)
	assert.Equal(t, "GSBSB1", entries[1].children[0].series.symbol)
	assert.Equal(t, 0, entries[1].children[1].series.size)
}

func TestParseDocument_ArrayContainers(t *testing.T) {
	entries := parseDocument([]byte(`[{"symbol": "A", "closingPrices": [{"date": 1748908800, "close": 3}]}, "noise", 7]`))
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].series)
	pts := entries[0].series.points
	require.Len(t, pts, 1)
	assert.Equal(t, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), pts[0].SessionDate)
}

func TestDecodePoints_Aliases(t *testing.T) {
	entries := parseDocument([]byte(`{"S": {"symbol": "S", "closingPrices": [
		{"sessionDate": "2026-06-01", "open": "1,000.5", "close": 1010},
		{"sessionDate": "2026-06-02", "opening": 20},
		{"sessionDate": "2026-06-03", "closing": null},
		{"sessionDate": null, "closing": 5}
	]}}`))
	require.Len(t, entries, 1)
	pts := entries[0].series.points
	require.Len(t, pts, 2)

	assert.Equal(t, 1000.5, pts[0].Opening)
	assert.Equal(t, 1010.0, pts[0].Closing)
	assert.Equal(t, 1010.0, pts[0].High, "high defaults to max(open, close)")
	assert.Equal(t, 1000.5, pts[0].Low, "low defaults to min(open, close)")

	assert.Equal(t, 20.0, pts[1].Closing, "closing defaults to opening")
}
