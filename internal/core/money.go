// Package core provides money parsing and handling utilities.
//
// Amounts are held as decimals. Received amounts follow the strict
// two-decimal form accepted by the pool form; prices are any positive number.
package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var amountPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// ParseAmount converts a received-amount string to a decimal.
//
// Only digits with an optional dot and one or two fractional digits are
// accepted, and the value must be greater than zero.
//
// Examples:
//
//	ParseAmount("500.00") -> 500, nil
//	ParseAmount("12.5")   -> 12.5, nil
//	ParseAmount("12.345") -> error (three decimals)
//	ParseAmount("0")      -> error (not positive)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !amountPattern.MatchString(s) {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParsePrice converts a price string to a positive decimal.
// Decimal commas are normalized to dots.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatRupees formats an amount for display (e.g., "₹12.30").
func FormatRupees(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-₹" + d.Neg().StringFixed(2)
	}
	return "₹" + d.StringFixed(2)
}
