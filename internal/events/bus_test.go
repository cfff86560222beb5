package events

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bitdash/bitdash/internal/domain"
)

func TestBroadcasterDeliversToAllSubscribers(t *testing.T) {
	b := NewBroadcaster[PriceUpdate](8)
	first := b.Subscribe()
	second := b.Subscribe()

	update := PriceUpdate{Snapshot: domain.PriceSnapshot{BitcoinPrice: decimal.NewFromInt(50000)}}
	b.Publish(update)

	for _, ch := range []chan PriceUpdate{first, second} {
		select {
		case got := <-ch:
			require.True(t, got.Snapshot.BitcoinPrice.Equal(decimal.NewFromInt(50000)))
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the update")
		}
	}
}

func TestBroadcasterNoReplayForLateSubscribers(t *testing.T) {
	b := NewBroadcaster[PriceUpdate](8)
	b.Publish(PriceUpdate{})

	late := b.Subscribe()
	select {
	case <-late:
		t.Fatal("late subscriber must not receive earlier events")
	default:
	}
}

func TestBroadcasterDropsSlowConsumer(t *testing.T) {
	b := NewBroadcaster[PriceUpdate](1)
	slow := b.Subscribe()

	// second publish overflows the buffer; it must drop, not block
	done := make(chan struct{})
	go func() {
		b.Publish(PriceUpdate{Snapshot: domain.PriceSnapshot{ConsecutiveFailures: 1}})
		b.Publish(PriceUpdate{Snapshot: domain.PriceSnapshot{ConsecutiveFailures: 2}})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow consumer")
	}

	got := <-slow
	require.Equal(t, 1, got.Snapshot.ConsecutiveFailures)
	select {
	case <-slow:
		t.Fatal("dropped event was delivered")
	default:
	}
}

func TestBroadcasterUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster[WalletUpdate](4)
	ch := b.Subscribe()
	b.Unsubscribe(ch)

	_, open := <-ch
	require.False(t, open)

	// publishing after unsubscribe must not panic
	b.Publish(WalletUpdate{})
	// double unsubscribe is a no-op
	b.Unsubscribe(ch)
}

func TestNewBusBufferFloor(t *testing.T) {
	bus := NewBus(0)
	require.NotNil(t, bus.Price)
	require.NotNil(t, bus.Wallet)

	ch := bus.Price.Subscribe()
	require.Equal(t, 64, cap(ch))
}
