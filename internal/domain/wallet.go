package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds the authoritative cash and bitcoin balances.
// Both balances are always non-negative.
type Wallet struct {
	CashBalance    decimal.Decimal `json:"cash_balance"`
	BitcoinBalance decimal.Decimal `json:"bitcoin_balance"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TotalValue returns cash plus bitcoin valued at the given price.
func (w Wallet) TotalValue(btcPrice decimal.Decimal) decimal.Decimal {
	return w.CashBalance.Add(w.BitcoinBalance.Mul(btcPrice))
}
