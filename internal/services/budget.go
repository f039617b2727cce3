package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"firefly/internal/budget"
	"firefly/internal/core"
	"firefly/internal/log"
	"firefly/internal/ports"
)

// BudgetView is everything the budget screen shows for one month.
type BudgetView struct {
	Status  budget.MonthStatus `json:"status"`
	Summary core.BudgetSummary `json:"summary"`
}

// BudgetService computes budget status and saves monthly budgets.
type BudgetService struct {
	backend ports.Backend
	engine  budget.Engine
}

func NewBudgetService(backend ports.Backend, loc *time.Location) *BudgetService {
	if loc == nil {
		loc = time.UTC
	}
	return &BudgetService{backend: backend, engine: budget.Engine{Location: loc}}
}

// Status returns per-category status, carry-over and the summary for month.
func (s *BudgetService) Status(ctx context.Context, month core.MonthKey) (BudgetView, error) {
	if err := month.Validate(); err != nil {
		return BudgetView{}, invalid(err)
	}
	snap, err := LoadSnapshot(ctx, s.backend, Categories|Transactions|Budgets)
	if err != nil {
		return BudgetView{}, err
	}
	return BudgetView{
		Status:  s.engine.Status(month, snap.Budgets, snap.Transactions, snap.Categories),
		Summary: s.engine.Summary(month, snap.Budgets, snap.Transactions, snap.Categories),
	}, nil
}

// Save creates or replaces the budget for month. Zero limits are dropped and
// the carry-over is recomputed from the previous month.
func (s *BudgetService) Save(ctx context.Context, month core.MonthKey, limits []core.CategoryLimit) (core.Budget, error) {
	if err := month.Validate(); err != nil {
		return core.Budget{}, invalid(err)
	}
	snap, err := LoadFreshSnapshot(ctx, s.backend, Categories|Transactions|Budgets)
	if err != nil {
		return core.Budget{}, err
	}
	if err := budget.ValidateLimits(limits, snap.Categories); err != nil {
		return core.Budget{}, invalid(err)
	}
	limits = budget.NormalizeLimits(limits)
	carry := s.engine.CarryOver(month, snap.Budgets, snap.Transactions, snap.Categories)

	id, err := s.upsert(ctx, month, limits, carry, snap.Budgets)
	if errors.Is(err, core.ErrDuplicateMonth) {
		// Another writer created the month after our snapshot.
		budgets, lerr := uncached(s.backend).ListBudgets(ctx)
		if lerr != nil {
			return core.Budget{}, fmt.Errorf("reload budgets: %w", lerr)
		}
		id, err = s.upsert(ctx, month, limits, carry, budgets)
	}
	if err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Budget saved",
		log.FieldComponent, log.ComponentBudget,
		log.FieldMonth, month.String(),
		"limits", len(limits),
		"carry_over_cents", carry.Cents)

	return s.backend.GetBudget(ctx, id)
}

func (s *BudgetService) upsert(ctx context.Context, month core.MonthKey, limits []core.CategoryLimit, carry core.Money, budgets []core.Budget) (int64, error) {
	if existing, ok := budget.FindByMonth(budgets, month); ok {
		if err := s.backend.UpdateBudget(ctx, existing.ID, month, limits, carry); err != nil {
			return 0, fmt.Errorf("update budget: %w", err)
		}
		return existing.ID, nil
	}
	id, err := s.backend.CreateBudget(ctx, month, limits, carry)
	if err != nil {
		return 0, fmt.Errorf("create budget: %w", err)
	}
	return id, nil
}

// CarryOver returns the amount rolled into month from the previous month.
func (s *BudgetService) CarryOver(ctx context.Context, month core.MonthKey) (core.Money, error) {
	if err := month.Validate(); err != nil {
		return core.Money{}, invalid(err)
	}
	snap, err := LoadFreshSnapshot(ctx, s.backend, Categories|Transactions|Budgets)
	if err != nil {
		return core.Money{}, err
	}
	return s.engine.CarryOver(month, snap.Budgets, snap.Transactions, snap.Categories), nil
}
