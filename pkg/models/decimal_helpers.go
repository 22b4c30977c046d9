package models

import "github.com/shopspring/decimal"

// ToFloat64 safely converts decimal to float64
func ToFloat64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// PriceFromFloat converts a provider price into a two-decimal amount,
// matching the precision requested from the price API
func PriceFromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
