// Package analytics computes indicator summaries over the tracker's
// price history for the dashboard stats panel. Decimal prices are
// converted to float only here, at the presentation boundary.
package analytics

import (
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/bitdash/bitdash/internal/domain"
)

const (
	smaPeriod = 20
	emaPeriod = 20
	rsiPeriod = 14

	// MinPoints is the smallest history that yields a full summary.
	MinPoints = 21
)

// Summary aggregates indicators over the rolling price history.
type Summary struct {
	Points int             `json:"points"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	SMA20  decimal.Decimal `json:"sma_20"`
	EMA20  decimal.Decimal `json:"ema_20"`
	RSI14  decimal.Decimal `json:"rsi_14"`
}

// Summarize computes the summary from a most-recent-first history.
func Summarize(history []domain.PricePoint) (Summary, error) {
	if len(history) < MinPoints {
		return Summary{}, errors.Errorf("not enough history: need %d points, got %d", MinPoints, len(history))
	}

	// history arrives newest first; indicators expect chronological order
	closes := make([]float64, len(history))
	high := history[0].Price
	low := history[0].Price
	for i, point := range history {
		closes[len(history)-1-i], _ = point.Price.Float64()
		if point.Price.GreaterThan(high) {
			high = point.Price
		}
		if point.Price.LessThan(low) {
			low = point.Price
		}
	}

	sma := lastValue(trend.NewSmaWithPeriod[float64](smaPeriod).Compute(helper.SliceToChan(closes)))
	ema := lastValue(trend.NewEmaWithPeriod[float64](emaPeriod).Compute(helper.SliceToChan(closes)))
	rsi := lastValue(momentum.NewRsiWithPeriod[float64](rsiPeriod).Compute(helper.SliceToChan(closes)))

	return Summary{
		Points: len(history),
		High:   high,
		Low:    low,
		SMA20:  decimal.NewFromFloat(sma).Round(2),
		EMA20:  decimal.NewFromFloat(ema).Round(2),
		RSI14:  decimal.NewFromFloat(rsi).Round(2),
	}, nil
}

func lastValue(ch <-chan float64) float64 {
	values := helper.ChanToSlice(ch)
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}
