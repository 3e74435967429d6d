package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// CentsToDollars converts integer cents to a display decimal.
func CentsToDollars(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// DollarsToCents converts a dollar amount to cents, rounding half away from zero.
func DollarsToCents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}
