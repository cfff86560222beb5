package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bitdash/bitdash/internal/domain"
	"github.com/bitdash/bitdash/internal/events"
	"github.com/bitdash/bitdash/internal/services/marketdata"
)

type fetchResult struct {
	quote marketdata.Quote
	err   error
}

// scriptedClient replays a fixed sequence of fetch results, repeating the
// last one once the script is exhausted.
type scriptedClient struct {
	mu      sync.Mutex
	script  []fetchResult
	fetches int
}

func (c *scriptedClient) Fetch(_ context.Context, _ int, _ string) (marketdata.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.fetches
	if idx >= len(c.script) {
		idx = len(c.script) - 1
	}
	c.fetches++
	r := c.script[idx]
	return r.quote, r.err
}

type recordingPublisher struct {
	mu      sync.Mutex
	updates []events.PriceUpdate
}

func (p *recordingPublisher) Publish(u events.PriceUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, u)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.updates)
}

func quoteAt(price int64) marketdata.Quote {
	return marketdata.Quote{
		Price:            decimal.NewFromInt(price),
		PercentChange24h: decimal.NewFromFloat(1.5),
		Volume24h:        decimal.NewFromInt(1_000_000),
		MarketCap:        decimal.NewFromInt(900_000_000),
	}
}

func newTestTracker(t *testing.T, cfg Config, script ...fetchResult) (*Tracker, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	tr, err := New(cfg, &scriptedClient{script: script}, pub, zap.NewNop())
	require.NoError(t, err)
	return tr, pub
}

func TestNewRequiresClientAndPublisher(t *testing.T) {
	_, err := New(Config{}, nil, &recordingPublisher{}, zap.NewNop())
	require.Error(t, err)

	_, err = New(Config{}, &scriptedClient{script: []fetchResult{{}}}, nil, zap.NewNop())
	require.Error(t, err)
}

func TestTickSuccess(t *testing.T) {
	tr, pub := newTestTracker(t, Config{}, fetchResult{quote: quoteAt(50000)})

	failures := tr.tick(context.Background())
	require.Zero(t, failures)

	snap := tr.Snapshot()
	require.True(t, snap.BitcoinPrice.Equal(decimal.NewFromInt(50000)))
	require.True(t, snap.PreviousPrice.Equal(decimal.Zero))
	require.Zero(t, snap.ConsecutiveFailures)
	require.False(t, snap.LastAPISuccess.IsZero())
	require.Len(t, snap.History, 1)
	require.Equal(t, 1, pub.count())
}

func TestTickTracksPreviousPrice(t *testing.T) {
	tr, _ := newTestTracker(t, Config{},
		fetchResult{quote: quoteAt(50000)},
		fetchResult{quote: quoteAt(51000)},
	)

	tr.tick(context.Background())
	tr.tick(context.Background())

	snap := tr.Snapshot()
	require.True(t, snap.BitcoinPrice.Equal(decimal.NewFromInt(51000)))
	require.True(t, snap.PreviousPrice.Equal(decimal.NewFromInt(50000)))
}

func TestFailuresKeepLastGoodSnapshot(t *testing.T) {
	tr, pub := newTestTracker(t, Config{},
		fetchResult{quote: quoteAt(50000)},
		fetchResult{err: errors.New("connection refused")},
	)

	tr.tick(context.Background())
	lastSuccess := tr.Snapshot().LastAPISuccess

	for i := 1; i <= 3; i++ {
		failures := tr.tick(context.Background())
		require.Equal(t, i, failures)
	}

	snap := tr.Snapshot()
	require.True(t, snap.BitcoinPrice.Equal(decimal.NewFromInt(50000)), "failed fetches must not disturb the last good price")
	require.Equal(t, 3, snap.ConsecutiveFailures)
	require.Equal(t, lastSuccess, snap.LastAPISuccess)
	require.Len(t, snap.History, 1)

	// every tick publishes, failed or not
	require.Equal(t, 4, pub.count())
}

func TestFailureCountResetsOnSuccess(t *testing.T) {
	tr, _ := newTestTracker(t, Config{},
		fetchResult{err: errors.New("timeout")},
		fetchResult{err: errors.New("timeout")},
		fetchResult{quote: quoteAt(49000)},
	)

	tr.tick(context.Background())
	tr.tick(context.Background())
	require.Equal(t, 2, tr.Snapshot().ConsecutiveFailures)

	failures := tr.tick(context.Background())
	require.Zero(t, failures)
	require.Zero(t, tr.Snapshot().ConsecutiveFailures)
}

func TestMalformedQuoteCountsAsFailure(t *testing.T) {
	cases := map[string]marketdata.Quote{
		"zero price":      {Price: decimal.Zero},
		"negative price":  {Price: decimal.NewFromInt(-1)},
		"negative volume": {Price: decimal.NewFromInt(50000), Volume24h: decimal.NewFromInt(-5)},
		"negative cap":    {Price: decimal.NewFromInt(50000), MarketCap: decimal.NewFromInt(-5)},
	}
	for name, quote := range cases {
		t.Run(name, func(t *testing.T) {
			tr, _ := newTestTracker(t, Config{}, fetchResult{quote: quote})
			failures := tr.tick(context.Background())
			require.Equal(t, 1, failures)
			require.True(t, tr.Snapshot().BitcoinPrice.Equal(decimal.Zero))
		})
	}
}

func TestHistoryCappedNewestFirst(t *testing.T) {
	tr, _ := newTestTracker(t, Config{HistoryLimit: 3},
		fetchResult{quote: quoteAt(1)},
		fetchResult{quote: quoteAt(2)},
		fetchResult{quote: quoteAt(3)},
		fetchResult{quote: quoteAt(4)},
		fetchResult{quote: quoteAt(5)},
	)

	for i := 0; i < 5; i++ {
		tr.tick(context.Background())
	}

	history := tr.Snapshot().History
	require.Len(t, history, 3)
	require.True(t, history[0].Price.Equal(decimal.NewFromInt(5)))
	require.True(t, history[1].Price.Equal(decimal.NewFromInt(4)))
	require.True(t, history[2].Price.Equal(decimal.NewFromInt(3)))
}

func TestSnapshotDropsMalformedHistoryPoints(t *testing.T) {
	tr, _ := newTestTracker(t, Config{}, fetchResult{quote: quoteAt(50000)})
	tr.tick(context.Background())

	tr.mu.Lock()
	tr.snapshot.History = append(tr.snapshot.History,
		domain.PricePoint{Price: decimal.Zero, Timestamp: time.Now()},
		domain.PricePoint{Price: decimal.NewFromInt(100)},
	)
	tr.mu.Unlock()

	history := tr.Snapshot().History
	require.Len(t, history, 1)
	require.True(t, history[0].Price.Equal(decimal.NewFromInt(50000)))
}

func TestSnapshotReturnsIndependentCopy(t *testing.T) {
	tr, _ := newTestTracker(t, Config{}, fetchResult{quote: quoteAt(50000)})
	tr.tick(context.Background())

	snap := tr.Snapshot()
	snap.History[0].Price = decimal.NewFromInt(1)
	snap.BitcoinPrice = decimal.NewFromInt(1)

	fresh := tr.Snapshot()
	require.True(t, fresh.History[0].Price.Equal(decimal.NewFromInt(50000)))
	require.True(t, fresh.BitcoinPrice.Equal(decimal.NewFromInt(50000)))
}

func TestNextIntervalDoublesAndCaps(t *testing.T) {
	tr, _ := newTestTracker(t, Config{
		BaseInterval: time.Minute,
		MaxBackoff:   30 * time.Minute,
	}, fetchResult{quote: quoteAt(50000)})

	require.Equal(t, time.Minute, tr.nextInterval(0))
	require.Equal(t, 2*time.Minute, tr.nextInterval(1))
	require.Equal(t, 4*time.Minute, tr.nextInterval(2))
	require.Equal(t, 16*time.Minute, tr.nextInterval(4))
	require.Equal(t, 30*time.Minute, tr.nextInterval(5))
	require.Equal(t, 30*time.Minute, tr.nextInterval(20))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	tr, _ := newTestTracker(t, Config{InitialDelay: time.Hour}, fetchResult{quote: quoteAt(50000)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
