// Package report aggregates transactions by category and period for the
// dashboard and saved reports.
//
// Expense totals are sum(abs(amount)) over expense categories; income totals
// are sum(amount) over the rest. Transactions pointing at unknown categories
// are left out of per-category figures. Every function is deterministic for a
// given input snapshot.
package report

import (
	"sort"

	"firefly/internal/core"
)

// DefaultTopN is the number of categories shown in the dashboard ranking.
const DefaultTopN = 5

// CategoryShare is a category's spend and its share of total spend.
type CategoryShare struct {
	CategoryID int64
	Name       string
	Total      core.Money
	Percentage float64
}

// IncomeExpenseSummary splits a window into income and spend.
type IncomeExpenseSummary struct {
	TotalIncome   core.Money
	TotalExpenses core.Money
	Net           core.Money
	Income        []core.CategoryAmount
	Expenses      []core.CategoryAmount
}

// Stats are the headline figures over an unfiltered transaction list.
type Stats struct {
	Income  core.Money
	Expense core.Money
	Net     core.Money
}

// Window keeps transactions dated within [start, end], both inclusive.
func Window(txs []core.Transaction, start, end int64) []core.Transaction {
	var out []core.Transaction
	for _, tx := range txs {
		if tx.Date >= start && tx.Date <= end {
			out = append(out, tx)
		}
	}
	return out
}

// accumulator sums per category, remembering first-encounter order for ties.
type accumulator struct {
	order  []int64
	totals map[int64]core.Money
	counts map[int64]int
}

func newAccumulator() *accumulator {
	return &accumulator{totals: make(map[int64]core.Money), counts: make(map[int64]int)}
}

func (a *accumulator) add(id int64, m core.Money) {
	if _, ok := a.totals[id]; !ok {
		a.order = append(a.order, id)
	}
	a.totals[id] = a.totals[id].Add(m)
	a.counts[id]++
}

func (a *accumulator) amounts(cats map[int64]core.Category) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, core.CategoryAmount{CategoryID: id, Name: cats[id].Name, Amount: a.totals[id]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount.Cents > out[j].Amount.Cents })
	return out
}

func expenseTotals(txs []core.Transaction, cats map[int64]core.Category) (*accumulator, core.Money) {
	acc := newAccumulator()
	var total core.Money
	for _, tx := range txs {
		cat, ok := cats[tx.CategoryID]
		if !ok || !cat.IsExpense {
			continue
		}
		amt := tx.Amount.Abs()
		acc.add(cat.ID, amt)
		total = total.Add(amt)
	}
	return acc, total
}

// Percent returns part/total*100, or 0 when total is not positive.
func Percent(part, total core.Money) float64 {
	if total.Cents <= 0 {
		return 0
	}
	return float64(part.Cents) / float64(total.Cents) * 100
}

// CategoryBreakdown lists every expense category with spend in txs, largest
// first. Equal totals keep the order in which categories first appear.
func CategoryBreakdown(txs []core.Transaction, cats []core.Category) []CategoryShare {
	index := core.CategoryIndex(cats)
	acc, total := expenseTotals(txs, index)
	out := make([]CategoryShare, 0, len(acc.order))
	for _, ca := range acc.amounts(index) {
		out = append(out, CategoryShare{
			CategoryID: ca.CategoryID,
			Name:       ca.Name,
			Total:      ca.Amount,
			Percentage: Percent(ca.Amount, total),
		})
	}
	return out
}

// TopCategories is the breakdown cut to the n largest. Percentages stay
// relative to total spend, not to the kept subset.
func TopCategories(txs []core.Transaction, cats []core.Category, n int) []CategoryShare {
	all := CategoryBreakdown(txs, cats)
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// IncomeVsExpenses totals income and spend, with per-category lists sorted
// largest first.
func IncomeVsExpenses(txs []core.Transaction, cats []core.Category) IncomeExpenseSummary {
	index := core.CategoryIndex(cats)
	income, expense := newAccumulator(), newAccumulator()
	var s IncomeExpenseSummary
	for _, tx := range txs {
		cat, ok := index[tx.CategoryID]
		if !ok {
			continue
		}
		if cat.IsExpense {
			amt := tx.Amount.Abs()
			expense.add(cat.ID, amt)
			s.TotalExpenses = s.TotalExpenses.Add(amt)
		} else {
			income.add(cat.ID, tx.Amount)
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
		}
	}
	s.Net = s.TotalIncome.Sub(s.TotalExpenses)
	s.Income = income.amounts(index)
	s.Expenses = expense.amounts(index)
	return s
}

// QuickStats sums positive amounts into income and the magnitude of the rest
// into expense. Net is always Income - Expense.
func QuickStats(txs []core.Transaction) Stats {
	var s Stats
	for _, tx := range txs {
		if tx.Amount.Cents > 0 {
			s.Income = s.Income.Add(tx.Amount)
		} else {
			s.Expense = s.Expense.Add(tx.Amount.Abs())
		}
	}
	s.Net = s.Income.Sub(s.Expense)
	return s
}
