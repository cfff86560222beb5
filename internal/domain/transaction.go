package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// TransactionType identifies a wallet operation.
type TransactionType string

const (
	TransactionCashDeposit TransactionType = "cash_deposit"
	TransactionBuyBitcoin  TransactionType = "buy_bitcoin"
	TransactionSellBitcoin TransactionType = "sell_bitcoin"
)

// Transaction is an append-only wallet log entry. Field presence depends
// on the type: deposits carry only the cash amount, buys and sells also
// carry the bitcoin amount and the execution price.
type Transaction struct {
	Type          TransactionType  `json:"type"`
	TransactionID string           `json:"transaction_id"`
	Amount        decimal.Decimal  `json:"amount"`
	BTCAmount     *decimal.Decimal `json:"btc_amount,omitempty"`
	BTCPrice      *decimal.Decimal `json:"btc_price,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

// NewDepositTransaction builds a cash_deposit entry.
func NewDepositTransaction(id string, amount decimal.Decimal, ts time.Time) (Transaction, error) {
	if id == "" {
		return Transaction{}, errors.New("transaction id is required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return Transaction{}, errors.Errorf("deposit amount must be positive, got %s", amount.String())
	}

	return Transaction{
		Type:          TransactionCashDeposit,
		TransactionID: id,
		Amount:        amount,
		Timestamp:     ts,
	}, nil
}

// NewTradeTransaction builds a buy_bitcoin or sell_bitcoin entry.
// The cash amount is the quote-side value actually moved, which for a
// buy-max purchase may differ from btcAmount*btcPrice.
func NewTradeTransaction(typ TransactionType, id string, amount, btcAmount, btcPrice decimal.Decimal, ts time.Time) (Transaction, error) {
	if typ != TransactionBuyBitcoin && typ != TransactionSellBitcoin {
		return Transaction{}, errors.Errorf("unexpected trade transaction type: %s", typ)
	}
	if id == "" {
		return Transaction{}, errors.New("transaction id is required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return Transaction{}, errors.Errorf("cash amount must be positive, got %s", amount.String())
	}
	if btcAmount.LessThanOrEqual(decimal.Zero) {
		return Transaction{}, errors.Errorf("btc amount must be positive, got %s", btcAmount.String())
	}
	if btcPrice.LessThanOrEqual(decimal.Zero) {
		return Transaction{}, errors.Errorf("btc price must be positive, got %s", btcPrice.String())
	}

	return Transaction{
		Type:          typ,
		TransactionID: id,
		Amount:        amount,
		BTCAmount:     &btcAmount,
		BTCPrice:      &btcPrice,
		Timestamp:     ts,
	}, nil
}
