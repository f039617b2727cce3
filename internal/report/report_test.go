package report

import (
	"math"
	"reflect"
	"testing"

	"firefly/internal/core"
)

var cats = []core.Category{
	{ID: 1, Name: "Food", IsExpense: true},
	{ID: 2, Name: "Salary"},
	{ID: 3, Name: "Rent", IsExpense: true},
	{ID: 4, Name: "Fun", IsExpense: true},
	{ID: 5, Name: "Gifts"},
}

func tx(id, cat, cents, date int64) core.Transaction {
	return core.Transaction{ID: id, AccountID: 1, CategoryID: cat, Amount: core.Cents(cents), Date: date}
}

func TestBreakdownAndQuickStatsExample(t *testing.T) {
	txs := []core.Transaction{tx(1, 1, -5000, 1), tx(2, 1, -3000, 2), tx(3, 2, 100000, 3)}
	got := CategoryBreakdown(txs, cats[:2])
	want := []CategoryShare{{CategoryID: 1, Name: "Food", Total: core.Cents(8000), Percentage: 100}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("breakdown = %+v", got)
	}
	stats := QuickStats(txs)
	if stats.Income.Cents != 100000 || stats.Expense.Cents != 8000 || stats.Net.Cents != 92000 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestBreakdownOrderingAndPercentages(t *testing.T) {
	txs := []core.Transaction{
		tx(1, 4, -1000, 1), // Fun seen first
		tx(2, 3, -3000, 2),
		tx(3, 1, -1000, 3), // ties Fun
		tx(4, 99, -9999, 4),
		tx(5, 2, 5000, 5),
	}
	got := CategoryBreakdown(txs, cats)
	names := []string{got[0].Name, got[1].Name, got[2].Name}
	if !reflect.DeepEqual(names, []string{"Rent", "Fun", "Food"}) {
		t.Fatalf("order = %v", names)
	}
	var sum float64
	for _, s := range got {
		sum += s.Percentage
	}
	if math.Abs(sum-100) > 1e-9 {
		t.Fatalf("percentages sum to %v", sum)
	}
	if math.Abs(got[0].Percentage-60) > 1e-9 {
		t.Fatalf("rent share = %v", got[0].Percentage)
	}
}

func TestBreakdownZeroTotal(t *testing.T) {
	if got := CategoryBreakdown(nil, cats); len(got) != 0 {
		t.Fatalf("expected empty breakdown, got %+v", got)
	}
	got := CategoryBreakdown([]core.Transaction{tx(1, 1, 0, 1)}, cats)
	if len(got) != 1 || got[0].Percentage != 0 {
		t.Fatalf("zero spend should give 0%%, got %+v", got)
	}
}

func TestTopCategoriesKeepsFullTotal(t *testing.T) {
	var txs []core.Transaction
	extra := []core.Category{}
	for i := int64(10); i < 17; i++ {
		extra = append(extra, core.Category{ID: i, Name: "c", IsExpense: true})
		txs = append(txs, tx(i, i, -1000*(i-9), i))
	}
	top := TopCategories(txs, extra, DefaultTopN)
	if len(top) != 5 {
		t.Fatalf("len = %d", len(top))
	}
	// totals 1..7 thousand, sum 28000; largest is 7000
	if top[0].Total.Cents != 7000 || math.Abs(top[0].Percentage-25) > 1e-9 {
		t.Fatalf("top = %+v", top[0])
	}
	var sum float64
	for _, s := range top {
		sum += s.Percentage
	}
	if sum >= 100 {
		t.Fatalf("truncated percentages should not be renormalised, sum=%v", sum)
	}
}

func TestIncomeVsExpenses(t *testing.T) {
	txs := []core.Transaction{
		tx(1, 2, 300000, 1),
		tx(2, 5, 5000, 2),
		tx(3, 1, -4000, 3),
		tx(4, 3, -120000, 4),
		tx(5, 1, -1000, 5),
		tx(6, 42, -777, 6),
	}
	s := IncomeVsExpenses(txs, cats)
	if s.TotalIncome.Cents != 305000 || s.TotalExpenses.Cents != 125000 || s.Net.Cents != 180000 {
		t.Fatalf("summary = %+v", s)
	}
	if s.Income[0].Name != "Salary" || s.Income[1].Name != "Gifts" {
		t.Fatalf("income order = %+v", s.Income)
	}
	if s.Expenses[0].Name != "Rent" || s.Expenses[1].Amount.Cents != 5000 {
		t.Fatalf("expense order = %+v", s.Expenses)
	}
}

func TestQuickStatsNetInvariant(t *testing.T) {
	sets := [][]core.Transaction{
		nil,
		{tx(1, 1, -1, 1)},
		{tx(1, 2, 10, 1), tx(2, 1, -30, 1), tx(3, 99, 7, 1)},
	}
	for i, txs := range sets {
		s := QuickStats(txs)
		if s.Net != s.Income.Sub(s.Expense) || s.Expense.IsNegative() {
			t.Fatalf("set %d: %+v", i, s)
		}
	}
}

func TestWindowInclusive(t *testing.T) {
	txs := []core.Transaction{tx(1, 1, -1, 10), tx(2, 1, -1, 20), tx(3, 1, -1, 30)}
	got := Window(txs, 10, 20)
	if len(got) != 2 || got[1].ID != 2 {
		t.Fatalf("window = %+v", got)
	}
}

func TestFilters(t *testing.T) {
	f, err := ParseFilters(`{"categoryId":"1","tagIds":["7", 8]}`)
	if err != nil {
		t.Fatal(err)
	}
	if f.CategoryID == nil || *f.CategoryID != 1 || f.AccountID != nil || !reflect.DeepEqual(f.TagIDs, []ID{7, 8}) {
		t.Fatalf("filters = %+v", f)
	}
	if enc := f.Encode(); enc != `{"categoryId":"1","tagIds":["7","8"]}` {
		t.Fatalf("encode = %s", enc)
	}

	txs := []core.Transaction{
		{ID: 1, CategoryID: 1, TagIDs: []int64{8}},
		{ID: 2, CategoryID: 1},
		{ID: 3, CategoryID: 2, TagIDs: []int64{7}},
	}
	got := f.Apply(txs)
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("apply = %+v", got)
	}

	empty, err := ParseFilters("")
	if err != nil || !empty.IsEmpty() || empty.Encode() != "" {
		t.Fatalf("empty filters: %+v %v", empty, err)
	}
	if _, err := ParseFilters(`{"categoryId":"abc"}`); err == nil {
		t.Fatalf("expected error for bad id")
	}
}

func TestRun(t *testing.T) {
	txs := []core.Transaction{
		tx(1, 1, -5000, 100),
		tx(2, 1, -2000, 150),
		tx(3, 2, 90000, 150),
		tx(4, 3, -9000, 500), // outside window
	}
	r := core.Report{Name: "Jan", Type: core.CategoryBreakdown, Start: 100, End: 200}
	res, err := Run(r, txs, cats)
	if err != nil {
		t.Fatal(err)
	}
	if res.TransactionCount != 3 || len(res.Breakdown) != 1 || res.Breakdown[0].Total.Cents != 7000 {
		t.Fatalf("breakdown result = %+v", res)
	}
	if len(res.Totals) != 2 || res.Totals[0].Name != "Salary" || res.Totals[1].Count != 2 || res.Totals[1].Total.Cents != -7000 {
		t.Fatalf("totals = %+v", res.Totals)
	}

	r.Type = core.IncomeVsExpenses
	r.Filters = `{"categoryId":"2"}`
	res, err = Run(r, txs, cats)
	if err != nil {
		t.Fatal(err)
	}
	if res.IncomeVsExpenses == nil || res.IncomeVsExpenses.TotalIncome.Cents != 90000 || res.IncomeVsExpenses.TotalExpenses.Cents != 0 {
		t.Fatalf("income result = %+v", res.IncomeVsExpenses)
	}

	r.End = 50
	if _, err := Run(r, txs, cats); err == nil {
		t.Fatalf("expected range error")
	}
}
