// Package money converts between display-format decimal amounts and the
// integer minor units (cents) used everywhere inside the engine. Currency
// math never happens on floats; parsing and formatting are the only places
// a decimal representation exists.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var centFactor = decimal.NewFromInt(100)

// Parse converts a decimal amount string ("12.50", "1250", "0.99") into
// cents. Amounts with more than two fractional digits are rejected.
func Parse(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if d.Exponent() < -2 {
		return 0, fmt.Errorf("amount %q has sub-cent precision", raw)
	}
	cents := d.Mul(centFactor)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %q has sub-cent precision", raw)
	}
	return cents.IntPart(), nil
}

// FromDecimal converts an already-parsed decimal (e.g. from a JSON body)
// into cents, with the same sub-cent rejection as Parse.
func FromDecimal(d decimal.Decimal) (int64, error) {
	cents := d.Mul(centFactor)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-cent precision", d.String())
	}
	return cents.IntPart(), nil
}

// Format renders cents as a two-decimal string for receipts and wire
// payloads ("1250" -> "12.50").
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// ToDecimal exposes cents as a decimal value for JSON encoding toward
// backends that expect fractional money.
func ToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
