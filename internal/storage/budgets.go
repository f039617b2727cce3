package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"firefly/internal/core"
)

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, month, carry_over_cents FROM budgets ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	var out []core.Budget
	index := map[int64]int{}
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.Month, &b.CarryOver.Cents); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		index[b.ID] = len(out)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	limitRows, err := r.db.QueryContext(ctx, "SELECT budget_id, category_id, limit_cents FROM budget_limits ORDER BY budget_id, position")
	if err != nil {
		return nil, fmt.Errorf("list budget limits: %w", err)
	}
	defer limitRows.Close()
	for limitRows.Next() {
		var budgetID int64
		var l core.CategoryLimit
		if err := limitRows.Scan(&budgetID, &l.CategoryID, &l.Limit.Cents); err != nil {
			return nil, fmt.Errorf("scan budget limit: %w", err)
		}
		if i, ok := index[budgetID]; ok {
			out[i].Limits = append(out[i].Limits, l)
		}
	}
	return out, limitRows.Err()
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	b := core.Budget{ID: id}
	err := r.db.QueryRowContext(ctx, "SELECT month, carry_over_cents FROM budgets WHERE id = ?", id).
		Scan(&b.Month, &b.CarryOver.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, notFound("budget", id)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, "SELECT category_id, limit_cents FROM budget_limits WHERE budget_id = ? ORDER BY position", id)
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget limits: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l core.CategoryLimit
		if err := rows.Scan(&l.CategoryID, &l.Limit.Cents); err != nil {
			return core.Budget{}, fmt.Errorf("scan budget limit: %w", err)
		}
		b.Limits = append(b.Limits, l)
	}
	return b, rows.Err()
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, month core.MonthKey, limits []core.CategoryLimit, carryOver core.Money) (int64, error) {
	b := core.Budget{Month: month, Limits: limits, CarryOver: carryOver}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	var id int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "INSERT INTO budgets (month, carry_over_cents) VALUES (?, ?)", int(month), carryOver.Cents)
		if isUniqueViolation(err) {
			return fmt.Errorf("month %s: %w", month, core.ErrDuplicateMonth)
		}
		if err != nil {
			return fmt.Errorf("insert budget: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return insertLimits(ctx, tx, id, limits)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, id int64, month core.MonthKey, limits []core.CategoryLimit, carryOver core.Money) error {
	b := core.Budget{ID: id, Month: month, Limits: limits, CarryOver: carryOver}
	if err := b.Validate(); err != nil {
		return err
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE budgets SET month = ?, carry_over_cents = ? WHERE id = ?", int(month), carryOver.Cents, id)
		if isUniqueViolation(err) {
			return fmt.Errorf("month %s: %w", month, core.ErrDuplicateMonth)
		}
		if err != nil {
			return fmt.Errorf("update budget: %w", err)
		}
		if err := affected(res, "budget", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM budget_limits WHERE budget_id = ?", id); err != nil {
			return fmt.Errorf("clear budget limits: %w", err)
		}
		return insertLimits(ctx, tx, id, limits)
	})
}

func insertLimits(ctx context.Context, tx *sql.Tx, budgetID int64, limits []core.CategoryLimit) error {
	for i, l := range limits {
		if err := checkRef(ctx, tx, "categories", "category", l.CategoryID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO budget_limits (budget_id, position, category_id, limit_cents) VALUES (?, ?, ?, ?)",
			budgetID, i, l.CategoryID, l.Limit.Cents); err != nil {
			return fmt.Errorf("insert budget limit: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM budgets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return affected(res, "budget", id)
}

func (r *SQLiteRepository) GetBudgetSummary(ctx context.Context, month core.MonthKey) (core.BudgetSummary, error) {
	if err := month.Validate(); err != nil {
		return core.BudgetSummary{}, err
	}
	budgets, err := r.ListBudgets(ctx)
	if err != nil {
		return core.BudgetSummary{}, err
	}
	start, end := month.Bounds(r.engine.Location)
	txs, err := r.ListTransactionsByDateRange(ctx, start, end)
	if err != nil {
		return core.BudgetSummary{}, err
	}
	cats, err := r.ListCategories(ctx)
	if err != nil {
		return core.BudgetSummary{}, err
	}
	return r.engine.Summary(month, budgets, txs, cats), nil
}
