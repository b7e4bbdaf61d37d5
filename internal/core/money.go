// Package core provides the domain records of the ledger and the value types
// they are built from.
//
// This file contains the Money type and the parsing of monetary amounts from
// user input.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount without currency. Formatting with a
// currency symbol is left to the presentation layer.
type Money struct {
	value decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// NewMoney returns the amount value * 10^exp, e.g. NewMoney(1234, -2) is 12.34.
func NewMoney(value int64, exp int32) Money {
	return Money{value: decimal.New(value, exp)}
}

// MoneyFromInt returns a whole amount.
func MoneyFromInt(v int64) Money {
	return Money{value: decimal.NewFromInt(v)}
}

// MoneyFromDecimal wraps an existing decimal.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{value: d}
}

// ParseMoney converts user input into Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// thousands separators and anything that is not a plain decimal number are
// rejected with ErrInvalidAmount. Zero is accepted.
//
// Examples:
//
//	ParseMoney("12.34") -> 12.34, nil
//	ParseMoney("12,34") -> 12.34, nil
//	ParseMoney("-1")    -> 0, ErrInvalidAmount
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Zero, ErrInvalidAmount
	}
	digits := 0
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) {
				return Zero, ErrInvalidAmount
			}
			digits++
		}
	}
	if digits == 0 {
		return Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	return Money{value: d}, nil
}

// MustParseMoney is ParseMoney that panics on error. Intended for tests and
// constant tables.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic("core: invalid money literal " + s)
	}
	return m
}

// Validate rejects negative amounts.
func (m Money) Validate() error {
	if m.value.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(n Money) Money { return Money{value: m.value.Add(n.value)} }
func (m Money) Sub(n Money) Money { return Money{value: m.value.Sub(n.value)} }
func (m Money) Neg() Money        { return Money{value: m.value.Neg()} }

func (m Money) Equal(n Money) bool       { return m.value.Equal(n.value) }
func (m Money) LessThan(n Money) bool    { return m.value.LessThan(n.value) }
func (m Money) GreaterThan(n Money) bool { return m.value.GreaterThan(n.value) }
func (m Money) IsZero() bool             { return m.value.IsZero() }
func (m Money) IsNegative() bool         { return m.value.IsNegative() }
func (m Money) IsPositive() bool         { return m.value.IsPositive() }

// Percent returns m * pct / 100.
func (m Money) Percent(pct float64) Money {
	return Money{value: m.value.Mul(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100))}
}

// NonNegative clamps negative amounts to zero.
func (m Money) NonNegative() Money {
	if m.value.IsNegative() {
		return Zero
	}
	return m
}

// Decimal exposes the underlying value.
func (m Money) Decimal() decimal.Decimal { return m.value }

// Float64 is for display and spreadsheet export only; calculations stay decimal.
func (m Money) Float64() float64 { return m.value.InexactFloat64() }

// String renders the amount with two decimals.
func (m Money) String() string { return m.value.StringFixed(2) }

// MarshalJSON encodes the amount as a bare JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.value.String()), nil
}

// UnmarshalJSON accepts both quoted and bare numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return ErrInvalidAmount
	}
	m.value = d
	return nil
}

// Sum adds up amounts.
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
