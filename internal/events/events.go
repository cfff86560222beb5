// Package events carries the price-updated and wallet-updated
// notifications from the core services to the UI layer.
package events

import "github.com/bitdash/bitdash/internal/domain"

// PriceUpdate is emitted once per tracker tick, success or failure,
// carrying the full current snapshot.
type PriceUpdate struct {
	Snapshot domain.PriceSnapshot `json:"snapshot"`
}

// WalletUpdate is emitted once per successful mutating wallet operation,
// carrying the new wallet and the full transaction log, newest first.
type WalletUpdate struct {
	Wallet       domain.Wallet        `json:"wallet"`
	Transactions []domain.Transaction `json:"transactions"`
}

// Bus groups the two broadcasters the core publishes to.
type Bus struct {
	Price  *Broadcaster[PriceUpdate]
	Wallet *Broadcaster[WalletUpdate]
}

// NewBus creates a bus with the given per-subscriber buffer.
func NewBus(buffer int) *Bus {
	return &Bus{
		Price:  NewBroadcaster[PriceUpdate](buffer),
		Wallet: NewBroadcaster[WalletUpdate](buffer),
	}
}
