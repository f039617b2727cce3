package invoice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"firefly/internal/core"
)

var (
	ErrEmptyCustomer  = errors.New("empty customer name")
	ErrNoItems        = errors.New("invoice needs at least one line item")
	ErrDueBeforeIssue = errors.New("due date must not be before issue date")
)

// Invoice is a bill issued to a customer. Subtotal, Tax and Total are derived
// from Items and TaxRate by Recalculate.
type Invoice struct {
	ID           int64
	Number       string
	CustomerID   int64
	CustomerName string
	IssueDate    int64
	DueDate      int64
	Status       Status
	Items        []LineItem
	TaxRate      decimal.Decimal
	Notes        string
	Subtotal     core.Money
	Tax          core.Money
	Total        core.Money
	CreatedAt    int64
	UpdatedAt    int64
}

func (inv Invoice) Validate() error {
	if strings.TrimSpace(inv.CustomerName) == "" {
		return ErrEmptyCustomer
	}
	if inv.IssueDate <= 0 {
		return core.ErrInvalidDate
	}
	if inv.DueDate < inv.IssueDate {
		return ErrDueBeforeIssue
	}
	if inv.Status == nil {
		return errors.New("invoice status is required")
	}
	if inv.TaxRate.IsNegative() {
		return ErrInvalidTaxRate
	}
	if !inRange(inv.TaxRate) {
		return fmt.Errorf("tax rate: %w", ErrOutOfRange)
	}
	if len(inv.Items) == 0 {
		return ErrNoItems
	}
	for i, it := range inv.Items {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i+1, err)
		}
	}
	return nil
}

// Recalculate refreshes the stored totals from the items.
func (inv *Invoice) Recalculate() error {
	sub, tax, total, err := Totals(inv.Items, inv.TaxRate).Money()
	if err != nil {
		return err
	}
	inv.Subtotal, inv.Tax, inv.Total = sub, tax, total
	return nil
}

// MarkOverdue moves a sent invoice past its due date to Overdue. It reports
// whether the status changed.
func (inv *Invoice) MarkOverdue(now time.Time) bool {
	if _, ok := inv.Status.(Sent); !ok {
		return false
	}
	if inv.DueDate >= now.UnixMilli() {
		return false
	}
	inv.Status = Overdue{}
	return true
}

// Filter restricts invoice listings. Zero fields do not filter.
type Filter struct {
	Status     Status
	CustomerID int64
	StartDate  int64 // inclusive, on IssueDate
	EndDate    int64 // inclusive, on IssueDate
}

func (f Filter) Match(inv Invoice) bool {
	if f.Status != nil && (inv.Status == nil || f.Status.Label() != inv.Status.Label()) {
		return false
	}
	if f.CustomerID != 0 && inv.CustomerID != f.CustomerID {
		return false
	}
	if f.StartDate != 0 && inv.IssueDate < f.StartDate {
		return false
	}
	if f.EndDate != 0 && inv.IssueDate > f.EndDate {
		return false
	}
	return true
}

// Apply returns the invoices that match, preserving order.
func (f Filter) Apply(invs []Invoice) []Invoice {
	var out []Invoice
	for _, inv := range invs {
		if f.Match(inv) {
			out = append(out, inv)
		}
	}
	return out
}

// NextNumber returns the next "INV-<yyyymm>-<seq>" number for the issue month,
// one past the highest sequence already used that month.
func NextNumber(month core.MonthKey, existing []Invoice) string {
	prefix := fmt.Sprintf("INV-%d-", int(month))
	highest := 0
	for _, inv := range existing {
		rest, ok := strings.CutPrefix(inv.Number, prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%04d", prefix, highest+1)
}
