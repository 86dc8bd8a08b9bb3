// Package money converts integer amounts in the smallest currency unit into
// decimal values for display and reporting.
package money

import "github.com/shopspring/decimal"

// Exponent is the number of minor-unit digits of the shop currency.
var Exponent int32 = 2

// Decimal returns amount (minor units) as a decimal in major units.
func Decimal(amount int64) decimal.Decimal {
	return decimal.New(amount, -Exponent)
}

// String formats amount with exactly Exponent fraction digits.
func String(amount int64) string {
	return Decimal(amount).StringFixed(Exponent)
}

// Sum adds amounts without overflow.
func Sum(amounts ...int64) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(Decimal(a))
	}
	return total
}
