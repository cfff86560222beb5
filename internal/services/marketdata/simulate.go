package marketdata

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// SimulateClient serves synthetic quotes from a random walk around a
// starting price. It lets the dashboard run without network access.
type SimulateClient struct {
	mu    sync.Mutex
	price decimal.Decimal
	rnd   *rand.Rand
}

// NewSimulateClient creates a simulated market data source starting at
// the given price.
func NewSimulateClient(startPrice decimal.Decimal, seed int64) *SimulateClient {
	if startPrice.LessThanOrEqual(decimal.Zero) {
		startPrice = decimal.NewFromInt(50000)
	}
	return &SimulateClient{
		price: startPrice,
		rnd:   rand.New(rand.NewSource(seed)),
	}
}

// Fetch advances the walk by up to ±0.5% and returns the new quote.
func (c *SimulateClient) Fetch(_ context.Context, assetID int, currency string) (Quote, error) {
	if _, err := exchangeSymbol(assetID, currency); err != nil {
		return Quote{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	drift := decimal.NewFromFloat((c.rnd.Float64() - 0.5) / 100)
	previous := c.price
	c.price = c.price.Add(c.price.Mul(drift)).Round(2)

	change := decimal.Zero
	if previous.GreaterThan(decimal.Zero) {
		change = c.price.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(4)
	}

	return Quote{
		Price:            c.price,
		Volume24h:        c.price.Mul(decimal.NewFromInt(21000)).Round(2),
		MarketCap:        c.price.Mul(decimal.NewFromInt(19_800_000)).Round(2),
		PercentChange1h:  change,
		PercentChange24h: change.Mul(decimal.NewFromInt(4)),
		PercentChange7d:  change.Mul(decimal.NewFromInt(10)),
		Timestamp:        time.Now().UTC(),
	}, nil
}
