package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID int64
	Name       string
	Amount     Money
}

// BudgetSummary is the month-level rollup returned by the backend and the budget engine.
// Limits are expense-only, so the income budget is always zero and the
// remaining income budget is the negated actual income.
type BudgetSummary struct {
	Month                  MonthKey
	TotalIncomeBudget      Money
	ActualIncome           Money
	RemainingIncomeBudget  Money
	TotalExpenseBudget     Money
	ActualExpenses         Money
	RemainingExpenseBudget Money
	CarryOver              Money
}
