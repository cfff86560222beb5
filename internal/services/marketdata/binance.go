package marketdata

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// BinanceClient fetches quotes from the Binance public API without
// requiring authentication.
type BinanceClient struct {
	client *binance.Client
}

// NewBinanceClient creates a Binance-backed market data client.
func NewBinanceClient(client *binance.Client) *BinanceClient {
	return &BinanceClient{client: client}
}

// Fetch returns the 24h ticker statistics for the asset. Binance does
// not publish market cap or 1h/7d change; those fields stay zero and the
// tracker treats them as valid non-negative values.
func (c *BinanceClient) Fetch(ctx context.Context, assetID int, currency string) (Quote, error) {
	symbol, err := exchangeSymbol(assetID, currency)
	if err != nil {
		return Quote{}, err
	}

	stats, err := c.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return Quote{}, errors.Wrapf(err, "binance 24h stats for %s", symbol)
	}
	if len(stats) == 0 {
		return Quote{}, errors.Errorf("binance API returned empty stats for %s", symbol)
	}

	price, err := decimal.NewFromString(stats[0].LastPrice)
	if err != nil {
		return Quote{}, errors.Wrap(err, "parse last price")
	}

	// quote-side 24h volume
	volume, err := decimal.NewFromString(stats[0].QuoteVolume)
	if err != nil {
		return Quote{}, errors.Wrap(err, "parse quote volume")
	}

	change24h, err := decimal.NewFromString(stats[0].PriceChangePercent)
	if err != nil {
		return Quote{}, errors.Wrap(err, "parse price change percent")
	}

	return Quote{
		Price:            price,
		Volume24h:        volume,
		PercentChange24h: change24h,
		Timestamp:        time.Now().UTC(),
	}, nil
}
