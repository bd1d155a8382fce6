package models

import "github.com/shopspring/decimal"

// NewDecimal builds a decimal from a float64 provider value.
func NewDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
