package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SchemaVersion tags every envelope. Bump it whenever a cached payload's shape changes so
// entries written by an older build read as misses.
const SchemaVersion = 1

// ErrCacheCorrupt marks an unreadable envelope. Store.Get absorbs it as a miss.
var ErrCacheCorrupt = errors.New("cache entry corrupt")

type envelope struct {
	Version  int             `json:"v"`
	StoredAt int64           `json:"stored_at"`
	TTL      int64           `json:"ttl_ms"`
	Data     json.RawMessage `json:"data"`
}

// Store is a TTL cache over a Backend. A value is valid while now - storedAt < ttl.
// Every failure is advisory: reads degrade to a miss and writes are logged and dropped.
type Store struct {
	backend Backend
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a Store on top of backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get decodes the value stored under key into out and reports whether a valid entry was found.
// Expired, corrupt, or version-mismatched entries are deleted and reported as absent.
func (s *Store) Get(ctx context.Context, key string, out any) bool {
	raw, ok, err := s.backend.Read(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}

	env, err := decodeEnvelope(raw)
	if err == nil && env.Version != SchemaVersion {
		err = fmt.Errorf("%w: schema version %d, want %d", ErrCacheCorrupt, env.Version, SchemaVersion)
	}
	if err != nil {
		s.logger.Debug("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		s.evict(ctx, key)
		return false
	}

	if !s.valid(env) {
		s.logger.Debug("cache entry expired", zap.String("key", key))
		s.evict(ctx, key)
		return false
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		s.logger.Debug("discarding unreadable cache entry", zap.String("key", key),
			zap.Error(fmt.Errorf("%w: %v", ErrCacheCorrupt, err)))
		s.evict(ctx, key)
		return false
	}
	return true
}

// Set stores value under key for ttl, replacing whatever was there.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	raw, err := json.Marshal(envelope{
		Version:  SchemaVersion,
		StoredAt: s.now().UnixMilli(),
		TTL:      ttl.Milliseconds(),
		Data:     data,
	})
	if err != nil {
		s.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.backend.Write(ctx, key, raw); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Clear removes key.
func (s *Store) Clear(ctx context.Context, key string) {
	s.evict(ctx, key)
}

// ClearAll removes every key starting with prefix. An empty prefix is refused so a
// caller cannot wipe unrelated entries by accident.
func (s *Store) ClearAll(ctx context.Context, prefix string) {
	if prefix == "" {
		s.logger.Warn("refusing to clear cache with empty prefix")
		return
	}
	if err := s.backend.DeletePrefix(ctx, prefix); err != nil {
		s.logger.Warn("cache clear failed", zap.String("prefix", prefix), zap.Error(err))
	}
}

func (s *Store) valid(env envelope) bool {
	age := s.now().UnixMilli() - env.StoredAt
	return age < env.TTL
}

func (s *Store) evict(ctx context.Context, key string) {
	if err := s.backend.Delete(ctx, key); err != nil {
		s.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

func decodeEnvelope(raw []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}
	if len(env.Data) == 0 || env.StoredAt <= 0 {
		return envelope{}, fmt.Errorf("%w: incomplete envelope", ErrCacheCorrupt)
	}
	return env, nil
}
