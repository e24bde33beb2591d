// Package money converts between operator-facing decimal amounts and the
// integer minor units (cents) stored everywhere else.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// ParseMinor parses "125.50" into 12550. More than two fractional digits is rejected.
func ParseMinor(s string) (int64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return 0, fmt.Errorf("%w: %q has more than two decimals", ErrInvalidAmount, s)
	}
	return d.Mul(hundred).Round(0).IntPart(), nil
}

// FormatMinor renders 12550 as "125.50".
func FormatMinor(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
