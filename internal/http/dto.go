package http

import (
	"encoding/json"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"firefly/internal/budget"
	"firefly/internal/core"
	"firefly/internal/invoice"
	"firefly/internal/report"
	"firefly/internal/services"
)

// JSON shapes of the API. Core types carry no tags, so every response goes
// through one of these.

type moneyJSON struct {
	Cents     int64  `json:"cents"`
	Amount    string `json:"amount"`
	Formatted string `json:"formatted"`
}

func (s *Server) money(m core.Money) moneyJSON {
	return moneyJSON{Cents: m.Cents, Amount: m.String(), Formatted: s.format.Currency(m, "")}
}

type accountJSON struct {
	ID      int64     `json:"id"`
	Name    string    `json:"name"`
	Balance moneyJSON `json:"balance"`
}

type categoryJSON struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IsExpense bool   `json:"isExpense"`
}

type tagJSON struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type transactionJSON struct {
	ID         int64     `json:"id"`
	AccountID  int64     `json:"accountId"`
	CategoryID int64     `json:"categoryId"`
	Amount     moneyJSON `json:"amount"`
	Date       int64     `json:"date"`
	DateLabel  string    `json:"dateLabel"`
	TagIDs     []int64   `json:"tagIds"`
}

func (s *Server) accounts(in []core.Account) []accountJSON {
	out := make([]accountJSON, 0, len(in))
	for _, a := range in {
		out = append(out, accountJSON{ID: a.ID, Name: a.Name, Balance: s.money(a.Balance)})
	}
	return out
}

func categories(in []core.Category) []categoryJSON {
	out := make([]categoryJSON, 0, len(in))
	for _, c := range in {
		out = append(out, categoryJSON{ID: c.ID, Name: c.Name, IsExpense: c.IsExpense})
	}
	return out
}

func tags(in []core.Tag) []tagJSON {
	out := make([]tagJSON, 0, len(in))
	for _, t := range in {
		out = append(out, tagJSON{ID: t.ID, Name: t.Name})
	}
	return out
}

func (s *Server) transaction(t core.Transaction) transactionJSON {
	ids := t.TagIDs
	if ids == nil {
		ids = []int64{}
	}
	return transactionJSON{
		ID:         t.ID,
		AccountID:  t.AccountID,
		CategoryID: t.CategoryID,
		Amount:     s.money(t.Amount),
		Date:       t.Date,
		DateLabel:  s.format.Date(t.Date),
		TagIDs:     ids,
	}
}

func (s *Server) transactions(in []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(in))
	for _, t := range in {
		out = append(out, s.transaction(t))
	}
	return out
}

type limitJSON struct {
	CategoryID int64     `json:"categoryId"`
	Limit      moneyJSON `json:"limit"`
}

type budgetJSON struct {
	ID        int64       `json:"id"`
	Month     string      `json:"month"`
	Limits    []limitJSON `json:"limits"`
	CarryOver moneyJSON   `json:"carryOver"`
	Total     moneyJSON   `json:"totalLimit"`
}

func (s *Server) budget(b core.Budget) budgetJSON {
	limits := make([]limitJSON, 0, len(b.Limits))
	for _, l := range b.Limits {
		limits = append(limits, limitJSON{CategoryID: l.CategoryID, Limit: s.money(l.Limit)})
	}
	return budgetJSON{
		ID:        b.ID,
		Month:     b.Month.String(),
		Limits:    limits,
		CarryOver: s.money(b.CarryOver),
		Total:     s.money(b.TotalLimit()),
	}
}

type categoryStatusJSON struct {
	CategoryID     int64     `json:"categoryId"`
	Name           string    `json:"name"`
	Limit          moneyJSON `json:"limit"`
	Spent          moneyJSON `json:"spent"`
	Remaining      moneyJSON `json:"remaining"`
	PercentageUsed float64   `json:"percentageUsed"`
	LimitSet       bool      `json:"limitSet"`
}

type budgetStatusJSON struct {
	Month          string               `json:"month"`
	BudgetID       int64                `json:"budgetId,omitempty"`
	Categories     []categoryStatusJSON `json:"categories"`
	TotalLimit     moneyJSON            `json:"totalLimit"`
	TotalSpent     moneyJSON            `json:"totalSpent"`
	TotalRemaining moneyJSON            `json:"totalRemaining"`
	CarryOver      moneyJSON            `json:"carryOver"`
}

type budgetSummaryJSON struct {
	TotalIncomeBudget      moneyJSON `json:"totalIncomeBudget"`
	ActualIncome           moneyJSON `json:"actualIncome"`
	RemainingIncomeBudget  moneyJSON `json:"remainingIncomeBudget"`
	TotalExpenseBudget     moneyJSON `json:"totalExpenseBudget"`
	ActualExpenses         moneyJSON `json:"actualExpenses"`
	RemainingExpenseBudget moneyJSON `json:"remainingExpenseBudget"`
	CarryOver              moneyJSON `json:"carryOver"`
}

type budgetViewJSON struct {
	Status  budgetStatusJSON  `json:"status"`
	Summary budgetSummaryJSON `json:"summary"`
}

func (s *Server) budgetView(v services.BudgetView) budgetViewJSON {
	st := v.Status
	cats := make([]categoryStatusJSON, 0, len(st.Categories))
	for _, c := range st.Categories {
		cats = append(cats, s.categoryStatus(c))
	}
	sum := v.Summary
	return budgetViewJSON{
		Status: budgetStatusJSON{
			Month:          st.Month.String(),
			BudgetID:       st.BudgetID,
			Categories:     cats,
			TotalLimit:     s.money(st.TotalLimit),
			TotalSpent:     s.money(st.TotalSpent),
			TotalRemaining: s.money(st.TotalRemaining),
			CarryOver:      s.money(st.CarryOver),
		},
		Summary: budgetSummaryJSON{
			TotalIncomeBudget:      s.money(sum.TotalIncomeBudget),
			ActualIncome:           s.money(sum.ActualIncome),
			RemainingIncomeBudget:  s.money(sum.RemainingIncomeBudget),
			TotalExpenseBudget:     s.money(sum.TotalExpenseBudget),
			ActualExpenses:         s.money(sum.ActualExpenses),
			RemainingExpenseBudget: s.money(sum.RemainingExpenseBudget),
			CarryOver:              s.money(sum.CarryOver),
		},
	}
}

func (s *Server) categoryStatus(c budget.CategoryStatus) categoryStatusJSON {
	return categoryStatusJSON{
		CategoryID:     c.CategoryID,
		Name:           c.Name,
		Limit:          s.money(c.Limit),
		Spent:          s.money(c.Spent),
		Remaining:      s.money(c.Remaining),
		PercentageUsed: c.PercentageUsed,
		LimitSet:       c.LimitSet,
	}
}

type reportJSON struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Type      core.ReportType `json:"type"`
	Start     int64           `json:"start"`
	End       int64           `json:"end"`
	Filters   json.RawMessage `json:"filters"`
	CreatedAt int64           `json:"createdAt"`
	UpdatedAt int64           `json:"updatedAt"`
}

func reportDTO(r core.Report) reportJSON {
	filters := json.RawMessage("{}")
	if r.Filters != "" {
		filters = json.RawMessage(r.Filters)
	}
	return reportJSON{
		ID:        r.ID,
		Name:      r.Name,
		Type:      r.Type,
		Start:     r.Start,
		End:       r.End,
		Filters:   filters,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type shareJSON struct {
	CategoryID int64     `json:"categoryId"`
	Name       string    `json:"name"`
	Total      moneyJSON `json:"total"`
	Percentage float64   `json:"percentage"`
}

type categoryTotalJSON struct {
	CategoryID int64     `json:"categoryId"`
	Name       string    `json:"name"`
	Total      moneyJSON `json:"total"`
	Count      int       `json:"count"`
}

type categoryAmountJSON struct {
	CategoryID int64     `json:"categoryId"`
	Name       string    `json:"name"`
	Amount     moneyJSON `json:"amount"`
}

type incomeVsExpensesJSON struct {
	TotalIncome   moneyJSON            `json:"totalIncome"`
	TotalExpenses moneyJSON            `json:"totalExpenses"`
	Net           moneyJSON            `json:"net"`
	Income        []categoryAmountJSON `json:"income"`
	Expenses      []categoryAmountJSON `json:"expenses"`
}

type statsJSON struct {
	Income  moneyJSON `json:"income"`
	Expense moneyJSON `json:"expense"`
	Net     moneyJSON `json:"net"`
}

type reportResultJSON struct {
	Report           reportJSON            `json:"report"`
	Type             core.ReportType       `json:"type"`
	TransactionCount int                   `json:"transactionCount"`
	Breakdown        []shareJSON           `json:"breakdown,omitempty"`
	Totals           []categoryTotalJSON   `json:"totals"`
	IncomeVsExpenses *incomeVsExpensesJSON `json:"incomeVsExpenses,omitempty"`
}

type dashboardJSON struct {
	Start            int64                `json:"start"`
	End              int64                `json:"end"`
	Stats            statsJSON            `json:"stats"`
	Breakdown        []shareJSON          `json:"breakdown"`
	TopCategories    []shareJSON          `json:"topCategories"`
	IncomeVsExpenses incomeVsExpensesJSON `json:"incomeVsExpenses"`
	Accounts         []accountJSON        `json:"accounts"`
	TransactionCount int                  `json:"transactionCount"`
}

func (s *Server) shares(in []report.CategoryShare) []shareJSON {
	out := make([]shareJSON, 0, len(in))
	for _, c := range in {
		out = append(out, shareJSON{CategoryID: c.CategoryID, Name: c.Name, Total: s.money(c.Total), Percentage: c.Percentage})
	}
	return out
}

func (s *Server) categoryAmounts(in []core.CategoryAmount) []categoryAmountJSON {
	out := make([]categoryAmountJSON, 0, len(in))
	for _, c := range in {
		out = append(out, categoryAmountJSON{CategoryID: c.CategoryID, Name: c.Name, Amount: s.money(c.Amount)})
	}
	return out
}

func (s *Server) incomeVsExpenses(ie report.IncomeExpenseSummary) incomeVsExpensesJSON {
	return incomeVsExpensesJSON{
		TotalIncome:   s.money(ie.TotalIncome),
		TotalExpenses: s.money(ie.TotalExpenses),
		Net:           s.money(ie.Net),
		Income:        s.categoryAmounts(ie.Income),
		Expenses:      s.categoryAmounts(ie.Expenses),
	}
}

func (s *Server) reportResult(r core.Report, res report.Result) reportResultJSON {
	totals := make([]categoryTotalJSON, 0, len(res.Totals))
	for _, t := range res.Totals {
		totals = append(totals, categoryTotalJSON{CategoryID: t.CategoryID, Name: t.Name, Total: s.money(t.Total), Count: t.Count})
	}
	out := reportResultJSON{
		Report:           reportDTO(r),
		Type:             res.Type,
		TransactionCount: res.TransactionCount,
		Totals:           totals,
	}
	if res.Breakdown != nil {
		out.Breakdown = s.shares(res.Breakdown)
	}
	if res.IncomeVsExpenses != nil {
		ie := s.incomeVsExpenses(*res.IncomeVsExpenses)
		out.IncomeVsExpenses = &ie
	}
	return out
}

func (s *Server) dashboardDTO(d services.Dashboard) dashboardJSON {
	return dashboardJSON{
		Start: d.Start,
		End:   d.End,
		Stats: statsJSON{
			Income:  s.money(d.Stats.Income),
			Expense: s.money(d.Stats.Expense),
			Net:     s.money(d.Stats.Net),
		},
		Breakdown:        s.shares(d.Breakdown),
		TopCategories:    s.shares(d.TopCategories),
		IncomeVsExpenses: s.incomeVsExpenses(d.IncomeVsExpenses),
		Accounts:         s.accounts(d.Accounts),
		TransactionCount: d.TransactionCount,
	}
}

type lineItemJSON struct {
	ID        int64           `json:"id,omitempty"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type invoiceJSON struct {
	ID            int64          `json:"id"`
	Number        string         `json:"number"`
	CustomerID    int64          `json:"customerId"`
	CustomerName  string         `json:"customerName"`
	IssueDate     int64          `json:"issueDate"`
	DueDate       int64          `json:"dueDate"`
	Status        string         `json:"status"`
	StatusVariant string         `json:"statusVariant"`
	Items         []lineItemJSON `json:"items"`
	TaxRate       string         `json:"taxRate"`
	Notes         string         `json:"notes"`
	Subtotal      moneyJSON      `json:"subtotal"`
	Tax           moneyJSON      `json:"tax"`
	Total         moneyJSON      `json:"total"`
	CreatedAt     int64          `json:"createdAt"`
	UpdatedAt     int64          `json:"updatedAt"`
}

func (s *Server) invoice(inv invoice.Invoice) invoiceJSON {
	items := make([]lineItemJSON, 0, len(inv.Items))
	for _, it := range inv.Items {
		items = append(items, lineItemJSON{ID: it.ID, Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	out := invoiceJSON{
		ID:           inv.ID,
		Number:       inv.Number,
		CustomerID:   inv.CustomerID,
		CustomerName: inv.CustomerName,
		IssueDate:    inv.IssueDate,
		DueDate:      inv.DueDate,
		Items:        items,
		TaxRate:      inv.TaxRate.String(),
		Notes:        inv.Notes,
		Subtotal:     s.money(inv.Subtotal),
		Tax:          s.money(inv.Tax),
		Total:        s.money(inv.Total),
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
	}
	if inv.Status != nil {
		out.Status = inv.Status.Label()
		out.StatusVariant = inv.Status.Variant()
	}
	return out
}

type bankStatusJSON struct {
	Kind    string `json:"kind"`
	At      int64  `json:"at,omitempty"`
	Message string `json:"message,omitempty"`
}

type bankConnectionJSON struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	ConnectionType string         `json:"connectionType"`
	Status         bankStatusJSON `json:"status"`
	CreatedAt      int64          `json:"createdAt"`
	LastSync       int64          `json:"lastSync,omitempty"`
	LastSyncAgo    string         `json:"lastSyncAgo,omitempty"`
	NextSync       int64          `json:"nextSync,omitempty"`
	RetryAttempts  int            `json:"retryAttempts"`
}

func (s *Server) bankConnection(c core.BankConnection) bankConnectionJSON {
	st := bankStatusJSON{Kind: core.StatusKind(c.Status)}
	switch v := c.Status.(type) {
	case core.StatusLastSynced:
		st.At = v.At
	case core.StatusSyncError:
		st.At, st.Message = v.At, v.Message
	}
	out := bankConnectionJSON{
		ID:             c.ID,
		Name:           c.Name,
		ConnectionType: c.ConnectionType,
		Status:         st,
		CreatedAt:      c.CreatedAt,
		LastSync:       c.LastSync,
		NextSync:       c.NextSync,
		RetryAttempts:  c.RetryAttempts,
	}
	if c.LastSync > 0 {
		out.LastSyncAgo = humanize.RelTime(time.UnixMilli(c.LastSync), s.now(), "ago", "from now")
	}
	return out
}
