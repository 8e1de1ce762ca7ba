package domain

import "github.com/shopspring/decimal"

// Amounts are stored as NUMERIC(12,2).
var maxAmount = decimal.RequireFromString("9999999999.99")

// IsCents reports whether d fits a NUMERIC(12,2) column without rounding.
func IsCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2)) && d.Abs().LessThanOrEqual(maxAmount)
}

// IsCurrencyCode reports whether code is three upper-case ASCII letters.
func IsCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}
