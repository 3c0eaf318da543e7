package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*Store, *MemoryBackend, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	backend := NewMemoryBackend()
	return NewStore(backend, WithClock(clock.Now)), backend, clock
}

type payload struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func TestStore_SetGet(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	s.Set(ctx, "market_data_prices", payload{Name: "maize", Price: 1875}, time.Hour)

	var got payload
	require.True(t, s.Get(ctx, "market_data_prices", &got))
	assert.Equal(t, payload{Name: "maize", Price: 1875}, got)
}

func TestStore_MissingKey(t *testing.T) {
	s, _, _ := newTestStore(t)
	var got payload
	assert.False(t, s.Get(context.Background(), "nope", &got))
}

func TestStore_ExpiresStrictlyByTime(t *testing.T) {
	ctx := context.Background()
	s, backend, clock := newTestStore(t)

	s.Set(ctx, "k", payload{Name: "soya"}, 6*time.Hour)

	clock.Advance(6*time.Hour - time.Millisecond)
	var got payload
	assert.True(t, s.Get(ctx, "k", &got), "entry should still be valid just before ttl")

	// Reads do not extend the lifetime.
	clock.Advance(time.Millisecond)
	assert.False(t, s.Get(ctx, "k", &got), "entry must be absent once now >= storedAt+ttl")

	_, ok, _ := backend.Read(ctx, "k")
	assert.False(t, ok, "expired entry should be evicted on read")
}

func TestStore_SetOverwrites(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	s.Set(ctx, "k", map[string]int{"a": 1, "b": 2}, time.Hour)
	s.Set(ctx, "k", map[string]int{"c": 3}, time.Hour)

	var got map[string]int
	require.True(t, s.Get(ctx, "k", &got))
	assert.Equal(t, map[string]int{"c": 3}, got)
}

func TestStore_CorruptEnvelopeIsMiss(t *testing.T) {
	ctx := context.Background()
	s, backend, _ := newTestStore(t)

	for name, raw := range map[string]string{
		"not json":      "{{{",
		"no data":       `{"v":1,"stored_at":1700000000000,"ttl_ms":1000}`,
		"wrong version": `{"v":99,"stored_at":1772442000000,"ttl_ms":3600000,"data":{"name":"x"}}`,
		"wrong shape":   `{"v":1,"stored_at":1772442000000,"ttl_ms":3600000,"data":"a string"}`,
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, backend.Write(ctx, "k", []byte(raw)))
			var got payload
			assert.False(t, s.Get(ctx, "k", &got))
			_, ok, _ := backend.Read(ctx, "k")
			assert.False(t, ok, "corrupt entry should be evicted")
		})
	}
}

func TestStore_ClearAndClearAll(t *testing.T) {
	ctx := context.Background()
	s, backend, _ := newTestStore(t)

	s.Set(ctx, "market_data_prices", 1, time.Hour)
	s.Set(ctx, "market_data_symbols", 2, time.Hour)
	s.Set(ctx, "user_prefs", 3, time.Hour)

	s.Clear(ctx, "market_data_prices")
	var v int
	assert.False(t, s.Get(ctx, "market_data_prices", &v))
	assert.True(t, s.Get(ctx, "market_data_symbols", &v))

	s.ClearAll(ctx, "market_data_")
	assert.False(t, s.Get(ctx, "market_data_symbols", &v))
	assert.True(t, s.Get(ctx, "user_prefs", &v), "unrelated keys must survive ClearAll")

	s.ClearAll(ctx, "")
	_, ok, _ := backend.Read(ctx, "user_prefs")
	assert.True(t, ok, "empty prefix must not clear anything")
}

type failingBackend struct{ *MemoryBackend }

func (f *failingBackend) Write(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestStore_WriteFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	s := NewStore(&failingBackend{MemoryBackend: NewMemoryBackend()})

	assert.NotPanics(t, func() { s.Set(ctx, "k", 1, time.Hour) })
	var v int
	assert.False(t, s.Get(ctx, "k", &v))
}

func TestDecodeEnvelope_WrapsCorrupt(t *testing.T) {
	_, err := decodeEnvelope([]byte("nope"))
	assert.ErrorIs(t, err, ErrCacheCorrupt)
}
