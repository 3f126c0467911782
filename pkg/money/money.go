// Package money converts between integer minor units and decimal amounts.
// Every persisted amount is an int64 count of cents; decimals are only used
// for intermediate products (hours x rate, quantity x unit cost, markup).
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const msPerHour = 3_600_000

var hundred = decimal.NewFromInt(100)

// ToDecimal renders cents as a two-place decimal amount.
func ToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FromDecimal rounds a major-unit amount half away from zero to cents.
func FromDecimal(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// ParseAmount parses a major-unit string such as "25.00".
func ParseAmount(value string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return FromDecimal(d), nil
}

// LaborCost is durationMs / 3,600,000 x hourly rate, rounded once to cents.
func LaborCost(durationMs int64, rateCents int64) int64 {
	if durationMs <= 0 || rateCents <= 0 {
		return 0
	}
	return decimal.NewFromInt(durationMs).
		Mul(decimal.NewFromInt(rateCents)).
		Div(decimal.NewFromInt(msPerHour)).
		Round(0).
		IntPart()
}

// Hours converts a duration in milliseconds to hours with two decimals.
func Hours(durationMs int64) decimal.Decimal {
	return decimal.NewFromInt(durationMs).Div(decimal.NewFromInt(msPerHour)).Round(2)
}

// ExactHours converts without rounding, for aggregations.
func ExactHours(durationMs int64) decimal.Decimal {
	return decimal.NewFromInt(durationMs).Div(decimal.NewFromInt(msPerHour))
}

// Extend multiplies a quantity by a per-unit price in cents.
func Extend(quantity decimal.Decimal, unitCents int64) int64 {
	return quantity.Mul(decimal.NewFromInt(unitCents)).Round(0).IntPart()
}

// Percent returns pct percent of cents, rounded to cents.
func Percent(cents int64, pct decimal.Decimal) int64 {
	return decimal.NewFromInt(cents).Mul(pct).Div(hundred).Round(0).IntPart()
}

// Format renders cents for documents, e.g. "USD 1,234.50".
func Format(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := fmt.Sprintf("%s%s.%02d", sign, b.String(), frac)
	if currency = strings.TrimSpace(currency); currency != "" {
		return currency + " " + out
	}
	return out
}
