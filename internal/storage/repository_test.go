package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"firefly/internal/core"
	"firefly/internal/invoice"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	clock := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "firefly.db"),
		WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "firefly.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	repo.Close()
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestTransactionsBalancesAndTags(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	acc, err := repo.CreateAccount(ctx, " Checking ")
	if err != nil {
		t.Fatal(err)
	}
	food, _ := repo.CreateCategory(ctx, "Food", true)
	pay, _ := repo.CreateCategory(ctx, "Salary", false)
	weekly, _ := repo.CreateTag(ctx, "weekly")
	if _, err := repo.CreateTag(ctx, "WEEKLY"); !errors.Is(err, core.ErrDuplicateName) {
		t.Fatalf("duplicate tag err = %v", err)
	}

	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC).UnixMilli()
	feb := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC).UnixMilli()
	if _, err := repo.CreateTransaction(ctx, core.NewTransaction{AccountID: acc, CategoryID: food, Amount: core.Cents(-2500), Date: jan, TagIDs: []int64{weekly, weekly}}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateTransaction(ctx, core.NewTransaction{AccountID: acc, CategoryID: pay, Amount: core.Cents(100000), Date: feb}); err != nil {
		t.Fatal(err)
	}

	accounts, err := repo.ListAccounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 1 || accounts[0].Name != "Checking" || accounts[0].Balance.Cents != 97500 {
		t.Fatalf("accounts = %+v", accounts)
	}

	txs, err := repo.ListTransactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 2 || len(txs[0].TagIDs) != 1 || txs[0].TagIDs[0] != weekly {
		t.Fatalf("transactions = %+v", txs)
	}

	start, end := core.MonthKey(202501).Bounds(nil)
	inJan, err := repo.ListTransactionsByDateRange(ctx, start, end)
	if err != nil {
		t.Fatal(err)
	}
	if len(inJan) != 1 || inJan[0].Amount.Cents != -2500 {
		t.Fatalf("january = %+v", inJan)
	}

	if err := repo.DeleteTag(ctx, weekly); err != nil {
		t.Fatal(err)
	}
	txs, _ = repo.ListTransactions(ctx)
	if len(txs[0].TagIDs) != 0 {
		t.Fatalf("tag not detached: %+v", txs[0])
	}
	if err := repo.DeleteTag(ctx, weekly); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestCreateTransactionsFromRowsIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	acc, _ := repo.CreateAccount(ctx, "Checking")
	food, _ := repo.CreateCategory(ctx, "Food", true)
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC).UnixMilli()

	_, err := repo.CreateTransactionsFromRows(ctx, []core.NewTransaction{
		{AccountID: acc, CategoryID: food, Amount: core.Cents(-100), Date: date},
		{AccountID: acc, CategoryID: 999, Amount: core.Cents(-200), Date: date},
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	txs, _ := repo.ListTransactions(ctx)
	if len(txs) != 0 {
		t.Fatalf("partial insert: %+v", txs)
	}

	ids, err := repo.CreateTransactionsFromRows(ctx, []core.NewTransaction{
		{AccountID: acc, CategoryID: food, Amount: core.Cents(-100), Date: date},
		{AccountID: acc, CategoryID: food, Amount: core.Cents(-200), Date: date},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] == ids[1] {
		t.Fatalf("ids = %v", ids)
	}
}

func TestBudgetsAndSummary(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	acc, _ := repo.CreateAccount(ctx, "Checking")
	food, _ := repo.CreateCategory(ctx, "Food", true)
	rent, _ := repo.CreateCategory(ctx, "Rent", true)
	pay, _ := repo.CreateCategory(ctx, "Salary", false)

	limits := []core.CategoryLimit{{CategoryID: rent, Limit: core.Cents(80000)}, {CategoryID: food, Limit: core.Cents(30000)}}
	id, err := repo.CreateBudget(ctx, 202501, limits, core.Cents(500))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateBudget(ctx, 202501, nil, core.Money{}); !errors.Is(err, core.ErrDuplicateMonth) {
		t.Fatalf("duplicate month err = %v", err)
	}

	b, err := repo.GetBudget(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if b.Month != 202501 || len(b.Limits) != 2 || b.Limits[0].CategoryID != rent || b.CarryOver.Cents != 500 {
		t.Fatalf("budget = %+v", b)
	}

	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC).UnixMilli()
	repo.CreateTransaction(ctx, core.NewTransaction{AccountID: acc, CategoryID: food, Amount: core.Cents(-12000), Date: date})
	repo.CreateTransaction(ctx, core.NewTransaction{AccountID: acc, CategoryID: pay, Amount: core.Cents(250000), Date: date})

	s, err := repo.GetBudgetSummary(ctx, 202501)
	if err != nil {
		t.Fatal(err)
	}
	if s.TotalExpenseBudget.Cents != 110000 || s.ActualExpenses.Cents != 12000 ||
		s.RemainingExpenseBudget.Cents != 98000 || s.ActualIncome.Cents != 250000 || s.CarryOver.Cents != 500 {
		t.Fatalf("summary = %+v", s)
	}

	if err := repo.UpdateBudget(ctx, id, 202502, limits[:1], core.Money{}); err != nil {
		t.Fatal(err)
	}
	b, _ = repo.GetBudget(ctx, id)
	if b.Month != 202502 || len(b.Limits) != 1 {
		t.Fatalf("updated = %+v", b)
	}
	if err := repo.UpdateBudget(ctx, 42, 202503, nil, core.Money{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update missing err = %v", err)
	}
	if err := repo.DeleteBudget(ctx, id); err != nil {
		t.Fatal(err)
	}
	budgets, _ := repo.ListBudgets(ctx)
	if len(budgets) != 0 {
		t.Fatalf("budgets = %+v", budgets)
	}
}

func TestReportsCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	rep := core.Report{Name: "Q1", Type: core.CategoryBreakdown, Start: 1, End: 10, Filters: `{"tagIds":["1"]}`}
	id, err := repo.CreateReport(ctx, rep)
	if err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetReport(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Q1" || got.Type != core.CategoryBreakdown || got.Filters != rep.Filters || got.CreatedAt == 0 {
		t.Fatalf("report = %+v", got)
	}

	got.Type = core.IncomeVsExpenses
	if err := repo.UpdateReport(ctx, got); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateReport(ctx, core.Report{Name: "bad", Type: core.CategoryBreakdown, Start: 10, End: 1}); !errors.Is(err, core.ErrInvalidRange) {
		t.Fatalf("range err = %v", err)
	}
	if err := repo.DeleteReport(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetReport(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get deleted err = %v", err)
	}
}

func TestInvoicesNumberingAndFilter(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	issue := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC).UnixMilli()
	item := invoice.LineItem{Name: "Consulting", Quantity: 3, UnitPrice: decimal.RequireFromString("33.33")}

	inv := invoice.Invoice{
		CustomerID: 7, CustomerName: "Acme", IssueDate: issue, DueDate: issue,
		Status: invoice.Draft{}, Items: []invoice.LineItem{item}, TaxRate: invoice.DefaultTaxRate,
	}
	first, err := repo.CreateInvoice(ctx, inv)
	if err != nil {
		t.Fatal(err)
	}
	inv.Status = invoice.Sent{}
	second, err := repo.CreateInvoice(ctx, inv)
	if err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetInvoice(ctx, second)
	if err != nil {
		t.Fatal(err)
	}
	if got.Number != "INV-202503-0002" || got.Subtotal.Cents != 9999 || got.Tax.Cents != 1000 || got.Total.Cents != 10999 {
		t.Fatalf("invoice = %+v", got)
	}
	if len(got.Items) != 1 || !got.Items[0].UnitPrice.Equal(item.UnitPrice) {
		t.Fatalf("items = %+v", got.Items)
	}

	sent, err := repo.ListInvoices(ctx, invoice.Filter{Status: invoice.Sent{}})
	if err != nil {
		t.Fatal(err)
	}
	if len(sent) != 1 || sent[0].ID != second {
		t.Fatalf("sent = %+v", sent)
	}

	got.Status = invoice.Paid{}
	got.Number = ""
	if err := repo.UpdateInvoice(ctx, got); err != nil {
		t.Fatal(err)
	}
	got, _ = repo.GetInvoice(ctx, second)
	if got.Number != "INV-202503-0002" || got.Status.Label() != "Paid" {
		t.Fatalf("updated = %+v", got)
	}

	if err := repo.DeleteInvoice(ctx, first); err != nil {
		t.Fatal(err)
	}
	all, _ := repo.ListInvoices(ctx, invoice.Filter{})
	if len(all) != 1 {
		t.Fatalf("all = %+v", all)
	}
}

func TestBankConnectionStatusRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, err := repo.CreateBankConnection(ctx, "Main bank", "")
	if err != nil {
		t.Fatal(err)
	}
	c, err := repo.GetBankConnection(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if c.ConnectionType != core.MockBankConnection {
		t.Fatalf("type = %q", c.ConnectionType)
	}
	if _, ok := c.Status.(core.StatusIdle); !ok {
		t.Fatalf("status = %#v", c.Status)
	}

	c.Status = core.StatusSyncError{Message: "timeout", At: 42}
	c.RetryAttempts = 2
	if err := repo.UpdateBankConnection(ctx, c); err != nil {
		t.Fatal(err)
	}
	c, _ = repo.GetBankConnection(ctx, id)
	if st, ok := c.Status.(core.StatusSyncError); !ok || st.Message != "timeout" || st.At != 42 || c.RetryAttempts != 2 {
		t.Fatalf("connection = %+v", c)
	}

	if err := repo.DeleteBankConnection(ctx, id); err != nil {
		t.Fatal(err)
	}
	list, _ := repo.ListBankConnections(ctx)
	if len(list) != 0 {
		t.Fatalf("list = %+v", list)
	}
}
