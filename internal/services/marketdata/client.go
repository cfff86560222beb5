// Package marketdata defines the boundary to external market data
// providers and the adapters that implement it. The tracker consumes
// providers only through the Client interface; transport details
// (HTTP stack, per-call retries) stay inside each adapter.
package marketdata

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// BitcoinAssetID is the conventional numeric identifier for bitcoin.
const BitcoinAssetID = 1

// Quote is a validated-shape market quote. The tracker still checks the
// values (price > 0) before applying it.
type Quote struct {
	Price            decimal.Decimal
	Volume24h        decimal.Decimal
	MarketCap        decimal.Decimal
	PercentChange1h  decimal.Decimal
	PercentChange24h decimal.Decimal
	PercentChange7d  decimal.Decimal
	Timestamp        time.Time
}

// Client fetches a quote for an asset converted into the given currency.
type Client interface {
	Fetch(ctx context.Context, assetID int, currency string) (Quote, error)
}

var assetSymbols = map[int]string{
	BitcoinAssetID: "BTC",
}

// exchangeSymbol maps an asset id and quote currency to an exchange
// ticker symbol. Spot venues quote USD markets in USDT.
func exchangeSymbol(assetID int, currency string) (string, error) {
	base, ok := assetSymbols[assetID]
	if !ok {
		return "", errors.Errorf("unknown asset id %d", assetID)
	}

	quote := strings.ToUpper(currency)
	if quote == "USD" {
		quote = "USDT"
	}

	return base + quote, nil
}
