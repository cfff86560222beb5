package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bitdash/bitdash/internal/domain"
)

// newestFirst builds a history from chronological prices, ordered the way
// the tracker stores it: most recent point first.
func newestFirst(chronological ...float64) []domain.PricePoint {
	start := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	points := make([]domain.PricePoint, len(chronological))
	for i, price := range chronological {
		points[len(chronological)-1-i] = domain.PricePoint{
			Price:     decimal.NewFromFloat(price),
			Timestamp: start.Add(time.Duration(i) * time.Minute),
		}
	}
	return points
}

func TestSummarizeRisingSeries(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = float64(i + 1)
	}

	summary, err := Summarize(newestFirst(prices...))
	require.NoError(t, err)

	require.Equal(t, 40, summary.Points)
	require.True(t, summary.High.Equal(decimal.NewFromInt(40)))
	require.True(t, summary.Low.Equal(decimal.NewFromInt(1)))

	// SMA over the last 20 closes of 1..40 is the mean of 21..40
	require.True(t, summary.SMA20.Equal(decimal.NewFromFloat(30.5)), "got %s", summary.SMA20)

	// an uninterrupted rise pins RSI at 100
	require.True(t, summary.RSI14.Equal(decimal.NewFromInt(100)), "got %s", summary.RSI14)

	// EMA weights recent closes, so it sits between the SMA and the top
	require.True(t, summary.EMA20.GreaterThan(summary.SMA20), "got %s", summary.EMA20)
	require.True(t, summary.EMA20.LessThanOrEqual(decimal.NewFromInt(40)))
}

func TestSummarizeHighLowIgnoreOrder(t *testing.T) {
	prices := make([]float64, MinPoints)
	for i := range prices {
		prices[i] = 100
	}
	prices[3] = 250.5
	prices[10] = 42.25

	summary, err := Summarize(newestFirst(prices...))
	require.NoError(t, err)
	require.True(t, summary.High.Equal(decimal.NewFromFloat(250.5)))
	require.True(t, summary.Low.Equal(decimal.NewFromFloat(42.25)))
}

func TestSummarizeNotEnoughHistory(t *testing.T) {
	prices := make([]float64, MinPoints-1)
	for i := range prices {
		prices[i] = 100
	}

	_, err := Summarize(newestFirst(prices...))
	require.Error(t, err)

	_, err = Summarize(nil)
	require.Error(t, err)
}
