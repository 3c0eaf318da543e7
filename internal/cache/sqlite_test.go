package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteBackend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "data", "cache.db"), nil)
	require.NoError(t, err)
	defer b.Close()

	_, ok, err := b.Read(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Write(ctx, "market_data_prices", []byte("one")))
	require.NoError(t, b.Write(ctx, "market_data_prices", []byte("two")))
	v, ok, err := b.Read(ctx, "market_data_prices")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", string(v))

	require.NoError(t, b.Delete(ctx, "market_data_prices"))
	_, ok, _ = b.Read(ctx, "market_data_prices")
	assert.False(t, ok)
}

func TestSQLiteBackend_DeletePrefixIsLiteral(t *testing.T) {
	ctx := context.Background()
	b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "cache.db"), nil)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Write(ctx, "market_data_prices", []byte("1")))
	require.NoError(t, b.Write(ctx, "market_data_symbols", []byte("2")))
	// '_' is a LIKE wildcard; this key must not match the prefix.
	require.NoError(t, b.Write(ctx, "marketXdataXother", []byte("3")))

	require.NoError(t, b.DeletePrefix(ctx, "market_data_"))

	_, ok, _ := b.Read(ctx, "market_data_prices")
	assert.False(t, ok)
	_, ok, _ = b.Read(ctx, "market_data_symbols")
	assert.False(t, ok)
	_, ok, _ = b.Read(ctx, "marketXdataXother")
	assert.True(t, ok)
}

func TestSQLiteBackend_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	b, err := NewSQLiteBackend(path, nil)
	require.NoError(t, err)
	s := NewStore(b)
	s.Set(ctx, "market_data_prices", []string{"GAPWM2"}, time.Hour)
	require.NoError(t, b.Close())

	b, err = NewSQLiteBackend(path, nil)
	require.NoError(t, err)
	defer b.Close()

	var got []string
	require.True(t, NewStore(b).Get(ctx, "market_data_prices", &got))
	assert.Equal(t, []string{"GAPWM2"}, got)
}
