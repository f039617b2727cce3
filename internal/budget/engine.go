// Package budget reconciles monthly category limits against actual spend and
// computes the carry-over rolled into the following month.
package budget

import (
	"fmt"
	"time"

	"firefly/internal/core"
	"firefly/internal/report"
)

// CategoryStatus is one expense category's position within a month.
type CategoryStatus struct {
	CategoryID     int64
	Name           string
	Limit          core.Money
	Spent          core.Money
	Remaining      core.Money
	PercentageUsed float64
	// LimitSet is false when the budget has no positive limit for the
	// category; PercentageUsed is then 0.
	LimitSet bool
}

// MonthStatus is the budget view for a month.
type MonthStatus struct {
	Month          core.MonthKey
	BudgetID       int64 // 0 when the month has no budget yet
	Categories     []CategoryStatus
	TotalLimit     core.Money
	TotalSpent     core.Money
	TotalRemaining core.Money
	CarryOver      core.Money
}

// Engine evaluates budgets with month boundaries in Location (UTC when nil).
type Engine struct {
	Location *time.Location
}

// FindByMonth returns the budget stored for month, if any.
func FindByMonth(budgets []core.Budget, month core.MonthKey) (core.Budget, bool) {
	for _, b := range budgets {
		if b.Month == month {
			return b, true
		}
	}
	return core.Budget{}, false
}

// Spending sums abs(amount) per expense category over the calendar month.
func (e Engine) Spending(month core.MonthKey, txs []core.Transaction, cats []core.Category) map[int64]core.Money {
	index := core.CategoryIndex(cats)
	out := make(map[int64]core.Money)
	for _, tx := range txs {
		if !month.Contains(tx.Date, e.Location) {
			continue
		}
		if cat, ok := index[tx.CategoryID]; ok && cat.IsExpense {
			out[tx.CategoryID] = out[tx.CategoryID].Add(tx.Amount.Abs())
		}
	}
	return out
}

// TotalSpent sums expense spend over every expense category in the month.
func (e Engine) TotalSpent(month core.MonthKey, txs []core.Transaction, cats []core.Category) core.Money {
	var total core.Money
	for _, m := range e.Spending(month, txs, cats) {
		total = total.Add(m)
	}
	return total
}

// Status lists every expense category, in catalog order, against the month's
// budget. budgets may hold any months; only month's budget is used.
func (e Engine) Status(month core.MonthKey, budgets []core.Budget, txs []core.Transaction, cats []core.Category) MonthStatus {
	b, hasBudget := FindByMonth(budgets, month)
	spending := e.Spending(month, txs, cats)

	ms := MonthStatus{Month: month, CarryOver: e.CarryOver(month, budgets, txs, cats)}
	if hasBudget {
		ms.BudgetID = b.ID
	}
	for _, cat := range cats {
		if !cat.IsExpense {
			continue
		}
		var limit core.Money
		if hasBudget {
			limit, _ = b.LimitFor(cat.ID)
		}
		cs := CategoryStatus{
			CategoryID: cat.ID,
			Name:       cat.Name,
			Limit:      limit,
			Spent:      spending[cat.ID],
			Remaining:  limit.Sub(spending[cat.ID]),
			LimitSet:   limit.Cents > 0,
		}
		if cs.LimitSet {
			cs.PercentageUsed = report.Percent(cs.Spent, cs.Limit)
		}
		ms.Categories = append(ms.Categories, cs)
		ms.TotalLimit = ms.TotalLimit.Add(cs.Limit)
		ms.TotalSpent = ms.TotalSpent.Add(cs.Spent)
		ms.TotalRemaining = ms.TotalRemaining.Add(cs.Remaining)
	}
	return ms
}

// CarryOver is the previous month's total limit minus that month's total
// expense spend, across all expense categories. It is zero when the previous
// month has no budget and negative when it was overspent.
func (e Engine) CarryOver(month core.MonthKey, budgets []core.Budget, txs []core.Transaction, cats []core.Category) core.Money {
	prev, ok := FindByMonth(budgets, month.Prev())
	if !ok {
		return core.Money{}
	}
	return prev.TotalLimit().Sub(e.TotalSpent(prev.Month, txs, cats))
}

// Summary rolls the month up into budget and actual totals. Limits exist only
// for expense categories, so the income budget is always zero.
func (e Engine) Summary(month core.MonthKey, budgets []core.Budget, txs []core.Transaction, cats []core.Category) core.BudgetSummary {
	index := core.CategoryIndex(cats)
	s := core.BudgetSummary{Month: month}
	if b, ok := FindByMonth(budgets, month); ok {
		s.TotalExpenseBudget = b.TotalLimit()
		s.CarryOver = b.CarryOver
	}
	for _, tx := range txs {
		if !month.Contains(tx.Date, e.Location) {
			continue
		}
		cat, ok := index[tx.CategoryID]
		if !ok {
			continue
		}
		if cat.IsExpense {
			s.ActualExpenses = s.ActualExpenses.Add(tx.Amount.Abs())
		} else {
			s.ActualIncome = s.ActualIncome.Add(tx.Amount)
		}
	}
	s.RemainingExpenseBudget = s.TotalExpenseBudget.Sub(s.ActualExpenses)
	s.RemainingIncomeBudget = s.TotalIncomeBudget.Sub(s.ActualIncome)
	return s
}

// ValidateLimits rejects limits on unknown or income categories, repeated
// categories and negative amounts.
func ValidateLimits(limits []core.CategoryLimit, cats []core.Category) error {
	index := core.CategoryIndex(cats)
	seen := make(map[int64]bool, len(limits))
	for _, l := range limits {
		cat, ok := index[l.CategoryID]
		if !ok {
			return fmt.Errorf("category %d: %w", l.CategoryID, core.ErrUnknownCategory)
		}
		if !cat.IsExpense {
			return fmt.Errorf("category %q: %w", cat.Name, core.ErrIncomeCategoryLimit)
		}
		if seen[l.CategoryID] {
			return fmt.Errorf("category %q: %w", cat.Name, core.ErrDuplicateLimit)
		}
		seen[l.CategoryID] = true
		if l.Limit.IsNegative() {
			return fmt.Errorf("category %q: %w", cat.Name, core.ErrNegativeLimit)
		}
	}
	return nil
}

// NormalizeLimits drops zero limits, which mean "not set", keeping order.
func NormalizeLimits(limits []core.CategoryLimit) []core.CategoryLimit {
	out := make([]core.CategoryLimit, 0, len(limits))
	for _, l := range limits {
		if l.Limit.Cents > 0 {
			out = append(out, l)
		}
	}
	return out
}
