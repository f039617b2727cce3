package csvimport

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"firefly/internal/core"
)

func fixture() ([]core.Account, []core.Category, []core.Tag) {
	accounts := []core.Account{{ID: 1, Name: "Checking"}, {ID: 2, Name: "Credit, Card"}}
	cats := []core.Category{
		{ID: 1, Name: "Groceries", IsExpense: true},
		{ID: 2, Name: "Salary"},
		{ID: 3, Name: `Eating "Out"`, IsExpense: true},
	}
	tags := []core.Tag{{ID: 1, Name: "weekly"}, {ID: 2, Name: "work"}}
	return accounts, cats, tags
}

func TestParseAliasesAndQuoting(t *testing.T) {
	text := "Date,Account,CATEGORY, Amount ,tags\n" +
		"\n" +
		"2025-01-15,Checking,Groceries,-42.50,\"weekly, work\"\n" +
		"   \n" +
		"2025-01-16,\"Credit, Card\",\"Eating \"\"Out\"\"\",-12,\n" +
		"2025-01-17,Checking,\"Multi\nLine\",1,\n"

	rows, err := ParseString(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %+v", len(rows), rows)
	}
	if rows[0].Tags != "weekly, work" || !reflect.DeepEqual(rows[0].TagNames(), []string{"weekly", "work"}) {
		t.Fatalf("tags: %+v", rows[0])
	}
	if rows[1].AccountName != "Credit, Card" || rows[1].CategoryName != `Eating "Out"` {
		t.Fatalf("quoted fields: %+v", rows[1])
	}
	if rows[2].CategoryName != "Multi\nLine" {
		t.Fatalf("embedded newline: %q", rows[2].CategoryName)
	}
	if rows[0].Line != 3 {
		t.Fatalf("line of first data row = %d, want 3", rows[0].Line)
	}
}

func TestParseLongHeaderNames(t *testing.T) {
	rows, err := ParseString("accountName,categoryName,date,amount\nChecking,Salary,2025-02-01,1000\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := Row{Line: 2, Date: "2025-02-01", AccountName: "Checking", CategoryName: "Salary", Amount: "1000"}
	if rows[0] != want {
		t.Fatalf("got %+v want %+v", rows[0], want)
	}
}

func TestParseFallsBackToShortAlias(t *testing.T) {
	text := "account,accountName,category,categoryName,date,amount\n" +
		"Savings,Checking,Misc,Salary,2025-02-01,1000\n" +
		"Savings,,Misc,,2025-02-02,5\n"
	rows, err := ParseString(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rows[0].AccountName != "Checking" || rows[0].CategoryName != "Salary" {
		t.Errorf("long names should win when set, got %+v", rows[0])
	}
	if rows[1].AccountName != "Savings" || rows[1].CategoryName != "Misc" {
		t.Errorf("empty long names should fall back, got %+v", rows[1])
	}
}

func TestParseTooFewRows(t *testing.T) {
	for _, text := range []string{"", "date,account,category,amount\n", "\n\n  \n", "date,amount\n\n\n"} {
		_, err := ParseString(text)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%q: expected ParseError, got %v", text, err)
		}
		if !errors.Is(err, ErrTooFewRows) {
			t.Fatalf("%q: expected ErrTooFewRows, got %v", text, err)
		}
	}
}

func TestValidate(t *testing.T) {
	ref := NewReference(fixture())

	tests := []struct {
		name string
		row  Row
		opts Options
		want []string
	}{
		{
			name: "valid",
			row:  Row{Date: "2025-01-15", AccountName: "Checking", CategoryName: "Groceries", Amount: "-42.50"},
		},
		{
			name: "case insensitive names and tags",
			row:  Row{Date: "01/15/2025", AccountName: "CHECKING", CategoryName: "groceries", Amount: "10", Tags: "Weekly,WORK"},
		},
		{
			name: "unknown account",
			row:  Row{Date: "2025-01-15", AccountName: "Savings", CategoryName: "Groceries", Amount: "-42.50"},
			want: []string{`Account "Savings" not found`},
		},
		{
			name: "all errors accumulate",
			row:  Row{Date: "yesterday", AccountName: "Savings", CategoryName: "Fun", Amount: "0", Tags: "x, ,y"},
			want: []string{
				"Invalid date format",
				`Account "Savings" not found`,
				`Category "Fun" not found`,
				"Invalid amount",
				`Tag "x" not found`,
				`Tag "y" not found`,
			},
		},
		{
			name: "required fields",
			row:  Row{},
			want: []string{"Date is required", "Account name is required", "Category name is required", "Amount is required"},
		},
		{
			name: "amount rounding to zero",
			row:  Row{Date: "2025-01-15", AccountName: "Checking", CategoryName: "Groceries", Amount: "0.001"},
			want: []string{"Invalid amount"},
		},
		{
			name: "missing tags allowed when auto-creating",
			row:  Row{Date: "2025-01-15", AccountName: "Checking", CategoryName: "Groceries", Amount: "5", Tags: "new"},
			opts: Options{CreateMissingTags: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.row, ref, tt.opts)
			if got.IsValid != (len(tt.want) == 0) {
				t.Fatalf("IsValid = %v, errors %v", got.IsValid, got.Errors)
			}
			if len(tt.want) == 0 && len(got.Errors) == 0 {
				return
			}
			if !reflect.DeepEqual(got.Errors, tt.want) {
				t.Fatalf("errors = %q, want %q", got.Errors, tt.want)
			}
		})
	}
}

func TestValidateAmbiguousName(t *testing.T) {
	ref := NewReference([]core.Account{{ID: 1, Name: "Main"}, {ID: 2, Name: "MAIN"}}, []core.Category{{ID: 1, Name: "Food", IsExpense: true}}, nil)
	res := Validate(Row{Date: "2025-01-01", AccountName: "main", CategoryName: "Food", Amount: "1"}, ref, Options{})
	if res.IsValid || len(res.Errors) != 1 || res.Errors[0] != `Account "main" is ambiguous` {
		t.Fatalf("got %+v", res)
	}
}

func TestValidateAllPairsWithRows(t *testing.T) {
	ref := NewReference(fixture())
	rows := []Row{
		{Date: "2025-01-15", AccountName: "Checking", CategoryName: "Groceries", Amount: "-1"},
		{Date: "2025-01-15", AccountName: "Nope", CategoryName: "Groceries", Amount: "-1"},
	}
	res := ValidateAll(rows, ref, Options{})
	if len(res) != 2 || !res[0].IsValid || res[1].IsValid {
		t.Fatalf("got %+v", res)
	}
}

func TestResolveAppliesCategorySign(t *testing.T) {
	ref := NewReference(fixture())

	tx, err := Resolve(Row{Date: "2025-01-15", AccountName: "checking", CategoryName: "Groceries", Amount: "42.50", Tags: "work,weekly,work"}, ref)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := core.NewTransaction{
		AccountID:  1,
		CategoryID: 1,
		Amount:     core.Cents(-4250),
		Date:       time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC).UnixMilli(),
		TagIDs:     []int64{1, 2},
	}
	if !reflect.DeepEqual(tx, want) {
		t.Fatalf("got %+v want %+v", tx, want)
	}

	tx, err = Resolve(Row{Date: "2025-01-31", AccountName: "Checking", CategoryName: "salary", Amount: "-1000"}, ref)
	if err != nil || tx.Amount.Cents != 100000 {
		t.Fatalf("income sign: %+v err=%v", tx, err)
	}

	if _, err := Resolve(Row{Date: "2025-01-31", AccountName: "Savings", CategoryName: "Salary", Amount: "1"}, ref); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMissingTags(t *testing.T) {
	ref := NewReference(fixture())
	rows := []Row{{Tags: "weekly, Travel"}, {Tags: "travel,Gifts"}}
	got := MissingTags(rows, ref)
	if !reflect.DeepEqual(got, []string{"Travel", "Gifts"}) {
		t.Fatalf("got %v", got)
	}
}

func TestExport(t *testing.T) {
	accounts, cats, tags := fixture()
	day := time.Date(2025, 1, 15, 18, 0, 0, 0, time.UTC).UnixMilli()
	txs := []core.Transaction{
		{ID: 7, AccountID: 2, CategoryID: 3, Amount: core.Cents(-4250), Date: day, TagIDs: []int64{2, 1}},
		{ID: 8, AccountID: 99, CategoryID: 98, Amount: core.Cents(100000), Date: day},
	}
	got := ExportString(txs, accounts, cats, tags)
	want := "transactionId,date,accountId,accountName,categoryId,categoryName,amount,tags\n" +
		"7,2025-01-15,2,\"Credit, Card\",3,\"Eating \"\"Out\"\"\",-42.50,\"weekly,work\"\n" +
		"8,2025-01-15,99,Unknown,98,Unknown,1000.00,\n"
	if got != want {
		t.Fatalf("export mismatch\n got: %q\nwant: %q", got, want)
	}
}

type tuple struct {
	account, category string
	cents             int64
	tags              string
}

func TestExportParseRoundTrip(t *testing.T) {
	accounts, cats, tags := fixture()
	base := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC).UnixMilli()
	txs := []core.Transaction{
		{ID: 1, AccountID: 1, CategoryID: 1, Amount: core.Cents(-1999), Date: base, TagIDs: []int64{1}},
		{ID: 2, AccountID: 2, CategoryID: 3, Amount: core.Cents(-5), Date: base + 86_400_000, TagIDs: []int64{1, 2}},
		{ID: 3, AccountID: 1, CategoryID: 2, Amount: core.Cents(250000), Date: base + 2*86_400_000},
	}

	rows, err := ParseString(ExportString(txs, accounts, cats, tags))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ref := NewReference(accounts, cats, tags)

	var got, want []tuple
	for i, row := range rows {
		res := Validate(row, ref, Options{})
		if !res.IsValid {
			t.Fatalf("row %d invalid: %v", i, res.Errors)
		}
		nt, err := Resolve(row, ref)
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if nt.Date != time.UnixMilli(txs[i].Date).UTC().Truncate(24*time.Hour).UnixMilli() {
			t.Fatalf("row %d date not truncated to the day", i)
		}
		got = append(got, tuple{row.AccountName, row.CategoryName, nt.Amount.Cents, strings.Join(row.TagNames(), "|")})
	}
	names := func(ids []int64) string {
		var ns []string
		for _, tg := range tags {
			for _, id := range ids {
				if id == tg.ID {
					ns = append(ns, tg.Name)
				}
			}
		}
		return strings.Join(ns, "|")
	}
	acc := map[int64]string{1: "Checking", 2: "Credit, Card"}
	cat := map[int64]string{1: "Groceries", 2: "Salary", 3: `Eating "Out"`}
	for _, tx := range txs {
		want = append(want, tuple{acc[tx.AccountID], cat[tx.CategoryID], tx.Amount.Cents, names(tx.TagIDs)})
	}
	less := func(s []tuple) func(i, j int) bool {
		return func(i, j int) bool { return s[i].cents < s[j].cents }
	}
	sort.Slice(got, less(got))
	sort.Slice(want, less(want))
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch\n got %+v\nwant %+v", got, want)
	}
}
