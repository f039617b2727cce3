// Package core provides money parsing and handling utilities.
//
// All amounts are held as signed integer minor units (cents). Conversion to
// and from decimal text happens only at the edges: parsing user input and
// formatting for display.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a signed decimal string ("-42.50", "1e2", "+3") into
// Money, rounding half away from zero to the nearest cent.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d)
}

// maxIntegerDigits is the most integer digits a major-unit amount can have
// and still fit in int64 cents.
const maxIntegerDigits = 17

// MoneyFromDecimal rounds d to cents. Values that do not fit in int64 cents
// are rejected before any scaling, so huge exponents cost nothing.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsZero() {
		return Money{}, nil
	}
	// magnitude is the position of the leading digit: 10^(magnitude-1) <= |d|.
	magnitude := int64(d.NumDigits()) + int64(d.Exponent())
	if magnitude > maxIntegerDigits {
		return Money{}, ErrInvalidAmount
	}
	if magnitude < -2 {
		// Below a tenth of a cent; rounds to zero.
		return Money{}, nil
	}
	cents := d.Shift(2).Round(0)
	if !cents.BigInt().IsInt64() {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Cents is a shorthand constructor.
func Cents(c int64) Money { return Money{Cents: c} }

// Decimal returns the amount as an exact decimal in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with two decimals and no currency, e.g. "-42.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Float returns the major-unit value as a float64 for display and ratios.
// Use cents for calculations.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }
func (m Money) IsZero() bool      { return m.Cents == 0 }
func (m Money) IsNegative() bool  { return m.Cents < 0 }

// Abs returns the magnitude.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

// Validate reports whether m is a usable, strictly positive magnitude.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
