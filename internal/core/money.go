// Package core holds the domain model shared by the services, the record
// stores and the aggregation engine: entries, monthly budgets, monetary
// amounts with cent precision, and the error taxonomy.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a monetary amount with at most cent precision.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. A third
// decimal digit is rounded half away from zero. Negative amounts are
// rejected; zero is allowed (a zero budget is legal, it just never alerts).
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, NewValidationError("amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d.Round(2), nil
}

// Cents converts an amount to integer cents for storage. Sub-cent values are
// rounded, never truncated.
func Cents(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}

// FromCents restores a decimal amount from integer cents.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}
