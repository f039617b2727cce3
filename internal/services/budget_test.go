package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"firefly/internal/backend"
	"firefly/internal/cache"
	"firefly/internal/core"
	"firefly/internal/ports/memory"
)

func TestBudgetService_SaveUpsertsAndCarriesOver(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	acc, _ := store.CreateAccount(ctx, "Checking")
	food, _ := store.CreateCategory(ctx, "Food", true)
	rent, _ := store.CreateCategory(ctx, "Rent", true)
	salary, _ := store.CreateCategory(ctx, "Salary", false)
	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC).UnixMilli()
	if _, err := store.CreateTransaction(ctx, core.NewTransaction{AccountID: acc, CategoryID: food, Amount: core.Cents(-15000), Date: jan}); err != nil {
		t.Fatal(err)
	}

	svc := NewBudgetService(store, time.UTC)

	janBudget, err := svc.Save(ctx, 202501, []core.CategoryLimit{{CategoryID: food, Limit: core.Cents(20000)}})
	if err != nil {
		t.Fatalf("Save(jan) error = %v", err)
	}
	if !janBudget.CarryOver.IsZero() {
		t.Errorf("jan carry-over = %v, want 0", janBudget.CarryOver)
	}

	feb, err := svc.Save(ctx, 202502, []core.CategoryLimit{
		{CategoryID: food, Limit: core.Cents(10000)},
		{CategoryID: rent, Limit: core.Money{}},
	})
	if err != nil {
		t.Fatalf("Save(feb) error = %v", err)
	}
	if len(feb.Limits) != 1 || feb.Limits[0].CategoryID != food {
		t.Errorf("zero limits should be dropped, got %+v", feb.Limits)
	}
	if feb.CarryOver.Cents != 5000 {
		t.Errorf("feb carry-over = %d, want 5000", feb.CarryOver.Cents)
	}

	again, err := svc.Save(ctx, 202502, []core.CategoryLimit{{CategoryID: food, Limit: core.Cents(30000)}})
	if err != nil {
		t.Fatalf("second Save(feb) error = %v", err)
	}
	if again.ID != feb.ID || again.Limits[0].Limit.Cents != 30000 {
		t.Errorf("expected update of budget %d, got %+v", feb.ID, again)
	}
	budgets, _ := store.ListBudgets(ctx)
	if len(budgets) != 2 {
		t.Errorf("budgets = %d, want 2", len(budgets))
	}

	view, err := svc.Status(ctx, 202502)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(view.Status.Categories) != 2 {
		t.Errorf("status should list every expense category, got %+v", view.Status.Categories)
	}
	if view.Status.CarryOver.Cents != 5000 || view.Summary.TotalExpenseBudget.Cents != 30000 {
		t.Errorf("view = %+v", view)
	}

	_, err = svc.Save(ctx, 202503, []core.CategoryLimit{{CategoryID: salary, Limit: core.Cents(100)}})
	if !IsValidation(err) || !errors.Is(err, core.ErrIncomeCategoryLimit) {
		t.Errorf("expected income limit validation error, got %v", err)
	}
}

func TestBudgetService_SaveReadsPastStaleCache(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	acc, _ := store.CreateAccount(ctx, "Checking")
	food, _ := store.CreateCategory(ctx, "Food", true)

	qc := cache.NewQueryCache[any](100, time.Hour, cache.DefaultInvalidations)
	svc := NewBudgetService(backend.NewCached(store, qc), time.UTC)

	if _, err := svc.Save(ctx, 202501, []core.CategoryLimit{{CategoryID: food, Limit: core.Cents(20000)}}); err != nil {
		t.Fatal(err)
	}
	// Warm the cached transaction list, then write behind the cache's back
	// the way another process sharing the store would.
	if _, err := svc.Status(ctx, 202501); err != nil {
		t.Fatal(err)
	}
	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC).UnixMilli()
	if _, err := store.CreateTransaction(ctx, core.NewTransaction{AccountID: acc, CategoryID: food, Amount: core.Cents(-15000), Date: jan}); err != nil {
		t.Fatal(err)
	}

	feb, err := svc.Save(ctx, 202502, []core.CategoryLimit{{CategoryID: food, Limit: core.Cents(10000)}})
	if err != nil {
		t.Fatalf("Save(feb) error = %v", err)
	}
	if feb.CarryOver.Cents != 5000 {
		t.Errorf("feb carry-over = %d, want 5000 from the stored spending", feb.CarryOver.Cents)
	}
	carry, err := svc.CarryOver(ctx, 202502)
	if err != nil || carry.Cents != 5000 {
		t.Errorf("CarryOver() = %v, %v; want 5000", carry, err)
	}
}

func TestBudgetService_InvalidMonth(t *testing.T) {
	svc := NewBudgetService(memory.New(), nil)
	tests := []core.MonthKey{0, 202513, 202400}
	for _, month := range tests {
		if _, err := svc.Status(context.Background(), month); !IsValidation(err) {
			t.Errorf("Status(%d) error = %v, want validation error", month, err)
		}
	}
}
