// Package tracker owns the market data snapshot. A single goroutine
// polls the market data client on a failure-adaptive schedule and is the
// only writer of snapshot state; readers are served from the last
// committed state even while a fetch is in flight.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bitdash/bitdash/internal/domain"
	"github.com/bitdash/bitdash/internal/events"
	"github.com/bitdash/bitdash/internal/instrumentation"
	"github.com/bitdash/bitdash/internal/services/marketdata"
)

// Defaults for the polling schedule.
const (
	DefaultBaseInterval   = 60 * time.Second
	DefaultInitialDelay   = 2 * time.Second
	DefaultMaxBackoff     = 30 * time.Minute
	DefaultRequestTimeout = 30 * time.Second
	DefaultHistoryLimit   = 287
)

// Publisher receives a price update after every tick.
type Publisher interface {
	Publish(events.PriceUpdate)
}

// Config holds the tracker's tunables. Zero fields fall back to defaults.
type Config struct {
	AssetID        int
	Currency       string
	BaseInterval   time.Duration
	InitialDelay   time.Duration
	MaxBackoff     time.Duration
	RequestTimeout time.Duration
	HistoryLimit   int
}

func (c *Config) applyDefaults() {
	if c.AssetID == 0 {
		c.AssetID = marketdata.BitcoinAssetID
	}
	if c.Currency == "" {
		c.Currency = "USD"
	}
	if c.BaseInterval <= 0 {
		c.BaseInterval = DefaultBaseInterval
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = DefaultInitialDelay
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
}

// Tracker polls the market data client and maintains the price snapshot.
type Tracker struct {
	cfg     Config
	client  marketdata.Client
	pub     Publisher
	logger  *zap.Logger
	metrics *instrumentation.Metrics
	now     func() time.Time
	backoff *backoff.Backoff

	mu       sync.RWMutex
	snapshot domain.PriceSnapshot
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock fixes the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// New creates a Tracker with an empty snapshot.
func New(cfg Config, client marketdata.Client, pub Publisher, logger *zap.Logger, opts ...Option) (*Tracker, error) {
	if client == nil {
		return nil, errors.New("market data client is required")
	}
	if pub == nil {
		return nil, errors.New("publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()

	t := &Tracker{
		cfg:    cfg,
		client: client,
		pub:    pub,
		logger: logger,
		now:    time.Now,
		backoff: &backoff.Backoff{
			Min:    cfg.BaseInterval,
			Max:    cfg.MaxBackoff,
			Factor: 2,
			Jitter: false,
		},
		snapshot: domain.PriceSnapshot{
			History: make([]domain.PricePoint, 0, cfg.HistoryLimit),
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Run polls until ctx is cancelled. The first tick fires after the
// initial delay; subsequent ticks follow the backoff schedule.
func (t *Tracker) Run(ctx context.Context) error {
	t.logger.Info("starting price tracker",
		zap.Duration("initial_delay", t.cfg.InitialDelay),
		zap.Duration("base_interval", t.cfg.BaseInterval),
		zap.Duration("max_backoff", t.cfg.MaxBackoff))

	timer := time.NewTimer(t.cfg.InitialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("price tracker stopped")
			return ctx.Err()
		case <-timer.C:
			failures := t.tick(ctx)
			next := t.nextInterval(failures)
			if failures > 0 {
				t.logger.Warn("fetch failing, backing off",
					zap.Int("consecutive_failures", failures),
					zap.Duration("next_tick", next))
			}
			timer.Reset(next)
		}
	}
}

// Snapshot returns a copy of the current snapshot with history normalized
// to well-formed price points. It never blocks on I/O.
func (t *Tracker) Snapshot() domain.PriceSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshot := t.snapshot
	snapshot.History = make([]domain.PricePoint, 0, len(t.snapshot.History))
	for _, point := range t.snapshot.History {
		if point.Price.LessThanOrEqual(decimal.Zero) || point.Timestamp.IsZero() {
			continue
		}
		snapshot.History = append(snapshot.History, point)
	}
	return snapshot
}

// tick performs one fetch-validate-apply cycle and publishes the
// resulting snapshot. The fetch runs outside the snapshot lock so
// readers stay responsive. Returns the consecutive failure count after
// the tick.
func (t *Tracker) tick(ctx context.Context) int {
	fetchCtx, cancel := context.WithTimeout(ctx, t.cfg.RequestTimeout)
	quote, err := t.client.Fetch(fetchCtx, t.cfg.AssetID, t.cfg.Currency)
	cancel()

	if err == nil {
		err = validateQuote(quote)
	}

	var failures int
	if err != nil {
		failures = t.applyFailure()
		t.logger.Warn("price fetch failed", zap.Error(err), zap.Int("consecutive_failures", failures))
	} else {
		t.applyQuote(quote)
		t.logger.Debug("price updated", zap.String("price", quote.Price.String()))
	}

	t.metrics.RecordTick(err == nil)
	t.metrics.SetConsecutiveFailures(failures)
	if err == nil {
		price, _ := quote.Price.Float64()
		t.metrics.SetLastPrice(price)
	}

	t.pub.Publish(events.PriceUpdate{Snapshot: t.Snapshot()})
	return failures
}

// applyQuote commits a validated quote. The apply step is all-or-nothing:
// no partial snapshot state is ever visible.
func (t *Tracker) applyQuote(quote marketdata.Quote) {
	now := t.now().UTC()
	ts := quote.Timestamp
	if ts.IsZero() {
		ts = now
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.snapshot.PreviousPrice = t.snapshot.BitcoinPrice
	t.snapshot.BitcoinPrice = quote.Price
	t.snapshot.PriceChange1h = quote.PercentChange1h
	t.snapshot.PriceChange24h = quote.PercentChange24h
	t.snapshot.PriceChange7d = quote.PercentChange7d
	t.snapshot.Volume24h = quote.Volume24h
	t.snapshot.MarketCap = quote.MarketCap
	t.snapshot.UpdatedAt = now
	t.snapshot.LastAPISuccess = now
	t.snapshot.ConsecutiveFailures = 0

	history := append([]domain.PricePoint{{Price: quote.Price, Timestamp: ts}}, t.snapshot.History...)
	if len(history) > t.cfg.HistoryLimit {
		history = history[:t.cfg.HistoryLimit]
	}
	t.snapshot.History = history
}

// applyFailure records a failed tick, keeping all market fields at their
// last known good values.
func (t *Tracker) applyFailure() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshot.ConsecutiveFailures++
	return t.snapshot.ConsecutiveFailures
}

// nextInterval computes min(base * 2^failures, maxBackoff).
func (t *Tracker) nextInterval(failures int) time.Duration {
	return t.backoff.ForAttempt(float64(failures))
}

func validateQuote(q marketdata.Quote) error {
	if q.Price.LessThanOrEqual(decimal.Zero) {
		return errors.Errorf("non-positive price %s", q.Price.String())
	}
	if q.Volume24h.LessThan(decimal.Zero) {
		return errors.Errorf("negative 24h volume %s", q.Volume24h.String())
	}
	if q.MarketCap.LessThan(decimal.Zero) {
		return errors.Errorf("negative market cap %s", q.MarketCap.String())
	}
	return nil
}
