package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is a single entry in the rolling price history.
type PricePoint struct {
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// PriceSnapshot is the tracker's view of the market: current and previous
// price, change percentages, and a bounded most-recent-first history.
// History length never exceeds the configured limit.
type PriceSnapshot struct {
	BitcoinPrice        decimal.Decimal `json:"bitcoin_price"`
	PreviousPrice       decimal.Decimal `json:"previous_price"`
	PriceChange1h       decimal.Decimal `json:"price_change_1h"`
	PriceChange24h      decimal.Decimal `json:"price_change_24h"`
	PriceChange7d       decimal.Decimal `json:"price_change_7d"`
	Volume24h           decimal.Decimal `json:"volume_24h"`
	MarketCap           decimal.Decimal `json:"market_cap"`
	UpdatedAt           time.Time       `json:"updated_at"`
	LastAPISuccess      time.Time       `json:"last_api_success,omitzero"`
	ConsecutiveFailures int             `json:"consecutive_failures"`
	History             []PricePoint    `json:"history"`
}

// Valid reports whether the snapshot holds real market data.
// A snapshot is valid once at least one fetch delivered a positive price.
func (s PriceSnapshot) Valid() bool {
	return s.BitcoinPrice.GreaterThan(decimal.Zero)
}

// Stale reports whether the snapshot is older than the cache-valid window.
// Staleness is advisory for consumers; the tracker keeps serving the last
// known good data regardless.
func (s PriceSnapshot) Stale(window time.Duration, now time.Time) bool {
	if s.UpdatedAt.IsZero() {
		return true
	}
	return now.Sub(s.UpdatedAt) > window
}
