package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNewDepositTransaction(t *testing.T) {
	ts := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	tx, err := NewDepositTransaction("ADD-20260825120000-AABBCCDDEE-1", decimal.NewFromInt(500), ts)
	require.NoError(t, err)
	require.Equal(t, TransactionCashDeposit, tx.Type)
	require.True(t, tx.Amount.Equal(decimal.NewFromInt(500)))
	require.Nil(t, tx.BTCAmount)
	require.Nil(t, tx.BTCPrice)
	require.Equal(t, ts, tx.Timestamp)

	_, err = NewDepositTransaction("", decimal.NewFromInt(500), ts)
	require.Error(t, err)

	_, err = NewDepositTransaction("id", decimal.Zero, ts)
	require.Error(t, err)

	_, err = NewDepositTransaction("id", decimal.NewFromInt(-5), ts)
	require.Error(t, err)
}

func TestNewTradeTransaction(t *testing.T) {
	ts := time.Now().UTC()
	amount := decimal.NewFromInt(500)
	btcAmount := decimal.NewFromFloat(0.01)
	btcPrice := decimal.NewFromInt(50000)

	for _, typ := range []TransactionType{TransactionBuyBitcoin, TransactionSellBitcoin} {
		tx, err := NewTradeTransaction(typ, "id", amount, btcAmount, btcPrice, ts)
		require.NoError(t, err)
		require.Equal(t, typ, tx.Type)
		require.NotNil(t, tx.BTCAmount)
		require.True(t, tx.BTCAmount.Equal(btcAmount))
		require.NotNil(t, tx.BTCPrice)
		require.True(t, tx.BTCPrice.Equal(btcPrice))
	}

	// deposits cannot be built through the trade constructor
	_, err := NewTradeTransaction(TransactionCashDeposit, "id", amount, btcAmount, btcPrice, ts)
	require.Error(t, err)

	_, err = NewTradeTransaction(TransactionBuyBitcoin, "id", amount, decimal.Zero, btcPrice, ts)
	require.Error(t, err)

	_, err = NewTradeTransaction(TransactionBuyBitcoin, "id", amount, btcAmount, decimal.Zero, ts)
	require.Error(t, err)

	_, err = NewTradeTransaction(TransactionSellBitcoin, "id", decimal.Zero, btcAmount, btcPrice, ts)
	require.Error(t, err)
}
