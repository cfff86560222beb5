// Package decimalutil holds the shared rounding and parsing conventions
// for money and bitcoin quantities. All balance math is exact base-10
// decimal; conversion to float happens only at presentation boundaries.
package decimalutil

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	// CashScale is the number of decimal places cash amounts round to.
	CashScale = 2
	// BTCScale is the number of decimal places bitcoin amounts round to
	// (one satoshi).
	BTCScale = 8
)

// RoundCash rounds to cash precision (2 decimal places, half away from zero).
func RoundCash(d decimal.Decimal) decimal.Decimal {
	return d.Round(CashScale)
}

// RoundBTC rounds to satoshi precision (8 decimal places).
func RoundBTC(d decimal.Decimal) decimal.Decimal {
	return d.Round(BTCScale)
}

// ParsePositive parses a decimal string and requires it to be > 0.
func ParsePositive(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "invalid decimal %q", s)
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, errors.Errorf("value must be positive, got %s", d.String())
	}
	return d, nil
}

// Satoshi is the smallest representable bitcoin quantity.
var Satoshi = decimal.New(1, -BTCScale)
