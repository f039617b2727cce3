package core

import (
	"errors"
	"testing"
	"time"
)

func TestSignedAmount(t *testing.T) {
	food := Category{ID: 1, Name: "Food", IsExpense: true}
	salary := Category{ID: 2, Name: "Salary"}

	if got := SignedAmount(food, Cents(500)); got.Cents != -500 {
		t.Fatalf("expense positive input: got %d", got.Cents)
	}
	if got := SignedAmount(food, Cents(-500)); got.Cents != -500 {
		t.Fatalf("expense negative input: got %d", got.Cents)
	}
	if got := SignedAmount(salary, Cents(-500)); got.Cents != 500 {
		t.Fatalf("income negative input: got %d", got.Cents)
	}
}

func TestDedupeIDs(t *testing.T) {
	got := DedupeIDs([]int64{3, 1, 3, 2, 1})
	want := []int64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v", got)
		}
	}
	if DedupeIDs(nil) != nil {
		t.Fatalf("expected nil for empty input")
	}
}

func TestNewTransactionValidate(t *testing.T) {
	good := NewTransaction{AccountID: 1, CategoryID: 1, Amount: Cents(-100), Date: time.Now().UnixMilli()}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []NewTransaction{
		{CategoryID: 1, Amount: Cents(1), Date: 1},
		{AccountID: 1, Amount: Cents(1), Date: 1},
		{AccountID: 1, CategoryID: 1, Date: 1},
		{AccountID: 1, CategoryID: 1, Amount: Cents(1)},
	}
	for i, b := range bads {
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestReportValidate(t *testing.T) {
	r := Report{Name: "Q1", Type: CategoryBreakdown, Start: 10, End: 20}
	if err := r.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	r.End = 5
	if err := r.Validate(); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	r.End, r.Type = 20, "pie"
	if err := r.Validate(); !errors.Is(err, ErrInvalidReportType) {
		t.Fatalf("expected ErrInvalidReportType, got %v", err)
	}
}

func TestBudgetValidate(t *testing.T) {
	b := Budget{Month: 202501, Limits: []CategoryLimit{{CategoryID: 1, Limit: Cents(100)}, {CategoryID: 2, Limit: Cents(0)}}}
	if err := b.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if got := b.TotalLimit(); got.Cents != 100 {
		t.Fatalf("total limit: got %d", got.Cents)
	}
	b.Limits = append(b.Limits, CategoryLimit{CategoryID: 1, Limit: Cents(5)})
	if err := b.Validate(); !errors.Is(err, ErrDuplicateLimit) {
		t.Fatalf("expected ErrDuplicateLimit, got %v", err)
	}
	b = Budget{Month: 202513}
	if err := b.Validate(); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestBankStatusRoundTrip(t *testing.T) {
	statuses := []BankConnectionStatus{
		StatusIdle{},
		StatusInProgress{},
		StatusLastSynced{At: 42},
		StatusSyncError{Message: "timeout", At: 7},
	}
	for _, s := range statuses {
		kind, msg, at := StatusParts(s)
		got, err := StatusFromKind(kind, msg, at)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if got != s {
			t.Fatalf("%s: got %#v want %#v", kind, got, s)
		}
	}
	if _, err := StatusFromKind("bogus", "", 0); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}
