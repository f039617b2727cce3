// Package invoice holds invoice records and their arithmetic.
//
// Line-item, subtotal, tax and total values are exact decimals; conversion to
// cents happens once, when totals are stored or displayed.
package invoice

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"firefly/internal/core"
)

// DefaultTaxRate applies when an invoice does not carry its own rate.
var DefaultTaxRate = decimal.RequireFromString("0.10")

var (
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")
	ErrInvalidUnitPrice = errors.New("unit price must not be negative")
	ErrInvalidTaxRate   = errors.New("tax rate must not be negative")
	ErrEmptyItemName    = errors.New("empty item name")
	ErrOutOfRange       = errors.New("value out of range")
)

// maxFractionDigits bounds the scale of prices and rates so that exponent
// alignment in sums stays cheap.
const maxFractionDigits = 10

// inRange reports whether d fits in cents and has a bounded scale.
func inRange(d decimal.Decimal) bool {
	if d.Exponent() < -maxFractionDigits {
		return false
	}
	if d.IsZero() {
		return true
	}
	_, err := core.MoneyFromDecimal(d)
	return err == nil
}

// LineItem is one billed line.
type LineItem struct {
	ID        int64
	Name      string
	Quantity  int64
	UnitPrice decimal.Decimal
}

func (li LineItem) Validate() error {
	if strings.TrimSpace(li.Name) == "" {
		return ErrEmptyItemName
	}
	if li.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if li.UnitPrice.IsNegative() {
		return ErrInvalidUnitPrice
	}
	if !inRange(li.UnitPrice) {
		return fmt.Errorf("unit price: %w", ErrOutOfRange)
	}
	return nil
}

// LineItemTotal is quantity × unit price.
func LineItemTotal(item LineItem) decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity))
}

// Subtotal sums the line totals.
func Subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(LineItemTotal(it))
	}
	return sum
}

// Tax is subtotal × rate.
func Tax(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate)
}

// Total is subtotal + tax.
func Total(subtotal, tax decimal.Decimal) decimal.Decimal {
	return subtotal.Add(tax)
}

// Figures groups the three computed amounts.
type Figures struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Totals returns subtotal, tax and total for items at rate.
func Totals(items []LineItem, rate decimal.Decimal) Figures {
	sub := Subtotal(items)
	tax := Tax(sub, rate)
	return Figures{Subtotal: sub, Tax: tax, Total: Total(sub, tax)}
}

// Money rounds each figure half away from zero to cents.
func (t Figures) Money() (subtotal, tax, total core.Money, err error) {
	if subtotal, err = core.MoneyFromDecimal(t.Subtotal); err != nil {
		return
	}
	if tax, err = core.MoneyFromDecimal(t.Tax); err != nil {
		return
	}
	total, err = core.MoneyFromDecimal(t.Total)
	return
}
