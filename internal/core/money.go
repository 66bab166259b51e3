// Package core provides the domain types shared by the report engine,
// its sources and its writers.
//
// This file contains money parsing for the boundary formats the fetch layer
// delivers (Brazilian "1.234,56" and plain "1234.56").
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Cent is the smallest currency unit amounts are compared against.
var Cent = decimal.New(1, -2)

// ParseAmount converts a decimal string to an amount.
//
// A string containing a comma treats it as the decimal separator and any dots
// as thousands separators. Otherwise the dot is the decimal separator.
// Negative values are accepted since some upstream reports sign refunds.
//
// Examples:
//
//	ParseAmount("1.234,56") -> 1234.56
//	ParseAmount("1234.56")  -> 1234.56
//	ParseAmount("12,5")     -> 12.5
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	body := strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	if body == "" || strings.Count(body, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range body {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// SafeRatio returns num/den, or zero when den is zero.
func SafeRatio(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}
