package marketdata

import (
	"context"
	"time"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// BybitClient fetches quotes from the Bybit V5 public API.
type BybitClient struct {
	client *bybit.Client
}

// NewBybitClient creates a Bybit-backed market data client.
func NewBybitClient(client *bybit.Client) *BybitClient {
	return &BybitClient{client: client}
}

// Fetch returns the spot ticker for the asset. Bybit exposes price,
// 24h turnover and 24h change only; the remaining fields stay zero.
func (c *BybitClient) Fetch(ctx context.Context, assetID int, currency string) (Quote, error) {
	symbolStr, err := exchangeSymbol(assetID, currency)
	if err != nil {
		return Quote{}, err
	}
	symbol := bybit.SymbolV5(symbolStr)

	result, err := c.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &symbol,
	})
	if err != nil {
		return Quote{}, errors.Wrapf(err, "bybit tickers for %s", symbolStr)
	}
	if len(result.Result.Spot.List) == 0 {
		return Quote{}, errors.Errorf("bybit API returned empty tickers for %s", symbolStr)
	}
	ticker := result.Result.Spot.List[0]

	price, err := decimal.NewFromString(ticker.LastPrice)
	if err != nil {
		return Quote{}, errors.Wrap(err, "parse last price")
	}

	quote := Quote{
		Price:     price,
		Timestamp: time.Now().UTC(),
	}

	// secondary fields are best effort: a parse failure leaves them zero
	// rather than failing the whole fetch
	if volume, err := decimal.NewFromString(ticker.Turnover24H); err == nil {
		quote.Volume24h = volume
	}
	if pcnt, err := decimal.NewFromString(ticker.Price24HPcnt); err == nil {
		// bybit reports a ratio (0.0153), the tracker expects a percentage
		quote.PercentChange24h = pcnt.Mul(decimal.NewFromInt(100))
	}

	return quote, nil
}
