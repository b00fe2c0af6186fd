// Package core provides money parsing and formatting utilities.
//
// Ledger amounts arrive as text ("1200", "¥1,200.50", " 35.5 "). They are
// parsed with decimal arithmetic and only converted to float64 at the end,
// so that thousands separators and trailing zeros never introduce drift.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes every formatted amount.
const CurrencySymbol = "¥"

// ParseAmount converts a ledger amount to its magnitude.
//
// Accepted: optional currency symbol, thousands commas, optional sign.
// A negative amount is returned as its absolute value since direction is
// carried by the operation, not by the sign.
//
// Examples:
//
//	ParseAmount("1200")       -> 1200, nil
//	ParseAmount("¥1,200.50")  -> 1200.5, nil
//	ParseAmount("-35")        -> 35, nil
//	ParseAmount("abc")        -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, CurrencySymbol)
	s = strings.TrimPrefix(s, "￥")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return d.Abs().InexactFloat64(), nil
}

// FormatYen renders an amount with two decimals, e.g. "¥1200.50".
func FormatYen(amount float64) string {
	return CurrencySymbol + decimal.NewFromFloat(amount).StringFixed(2)
}

// RoundCents rounds an amount to two decimals, half away from zero.
func RoundCents(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}
