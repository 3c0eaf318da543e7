package scheduler

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"MarketFeed/internal/aggregator"
	"MarketFeed/internal/collector"
	"MarketFeed/internal/model"
)

const (
	DefaultInterval     = 6 * time.Hour
	DefaultCycleTimeout = time.Minute
)

// Source supplies both feeds for one refresh cycle.
type Source interface {
	Collect(ctx context.Context) (*collector.Snapshot, error)
	Invalidate(ctx context.Context)
}

// Scheduler runs refresh cycles and owns the shared RefreshState. It is the only writer
// of that state; readers get copies through Snapshot.
type Scheduler struct {
	source       Source
	interval     time.Duration
	cycleTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
	ctx          context.Context

	loading atomic.Bool

	mu    sync.RWMutex
	state model.RefreshState

	cronMu sync.Mutex
	cron   *cron.Cron
}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithCycleTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.cycleTimeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithContext sets the parent context of timer-driven cycles. Cancelling it aborts an
// in-flight scheduled refresh.
func WithContext(ctx context.Context) Option {
	return func(s *Scheduler) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

// NewScheduler creates a new Scheduler.
func NewScheduler(source Source, opts ...Option) *Scheduler {
	s := &Scheduler{
		source:       source,
		interval:     DefaultInterval,
		cycleTimeout: DefaultCycleTimeout,
		logger:       zap.NewNop(),
		now:          time.Now,
		ctx:          context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadMarketData runs one refresh cycle, serving feeds from cache where still valid.
// On failure the previous records are kept and LastError is set. A call made while another
// cycle is in flight returns nil without fetching.
func (s *Scheduler) LoadMarketData(ctx context.Context) error {
	return s.run(ctx, false)
}

// RefreshMarketData clears the cached feeds and then loads, coalescing with any cycle
// already in flight.
func (s *Scheduler) RefreshMarketData(ctx context.Context) error {
	return s.run(ctx, true)
}

func (s *Scheduler) run(ctx context.Context, bust bool) error {
	if !s.loading.CompareAndSwap(false, true) {
		s.logger.Debug("refresh already in flight, coalescing", zap.Bool("cache_bust", bust))
		return nil
	}
	defer s.loading.Store(false)

	log := s.logger.With(zap.String("cycle_id", uuid.NewString()), zap.Bool("cache_bust", bust))
	ctx, cancel := context.WithTimeout(ctx, s.cycleTimeout)
	defer cancel()

	start := s.now()
	if bust {
		s.source.Invalidate(ctx)
	}

	snap, err := s.source.Collect(ctx)
	if err != nil {
		s.mu.Lock()
		s.state.LastError = err
		kept := len(s.state.Records)
		s.mu.Unlock()
		log.Error("refresh cycle failed, keeping previous records",
			zap.Error(err), zap.Int("records_kept", kept))
		return err
	}

	records := aggregator.Aggregate(snap.Prices.Records, snap.Metadata)
	s.mu.Lock()
	s.state.Records = records
	s.state.LastUpdated = s.now()
	s.state.LastError = nil
	s.mu.Unlock()

	log.Info("refresh cycle complete",
		zap.Int("records", len(records)),
		zap.String("feed_timestamp", snap.Prices.Timestamp),
		zap.Duration("took", s.now().Sub(start)))
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Scheduler) Snapshot() model.RefreshState {
	s.mu.RLock()
	st := s.state
	s.mu.RUnlock()
	st.Records = slices.Clone(st.Records)
	st.IsLoading = s.loading.Load()
	return st
}

// StartAutoRefresh starts the periodic timer, replacing any timer already running.
func (s *Scheduler) StartAutoRefresh() {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()

	if s.cron != nil {
		s.cron.Stop()
	}
	c := cron.New(cron.WithLogger(cronLogger{s.logger.Sugar()}))
	c.Schedule(cron.Every(s.interval), cron.FuncJob(s.tick))
	c.Start()
	s.cron = c
	s.logger.Info("auto refresh started", zap.Duration("interval", s.interval))
}

// StopAutoRefresh stops the periodic timer. Safe to call when not started.
func (s *Scheduler) StopAutoRefresh() {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()

	if s.cron == nil {
		return
	}
	s.cron.Stop()
	s.cron = nil
	s.logger.Info("auto refresh stopped")
}

func (s *Scheduler) tick() {
	// Errors are recorded in state and logged by run.
	_ = s.RefreshMarketData(s.ctx)
}

// timers reports how many periodic entries are registered.
func (s *Scheduler) timers() int {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	if s.cron == nil {
		return 0
	}
	return len(s.cron.Entries())
}

// cronLogger routes cron's own diagnostics through zap.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
