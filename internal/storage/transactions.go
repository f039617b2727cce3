package storage

import (
	"context"
	"database/sql"
	"fmt"

	"firefly/internal/core"
)

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return r.queryTransactions(ctx, `
		SELECT id, account_id, category_id, amount_cents, date_ms
		FROM transactions ORDER BY id`)
}

func (r *SQLiteRepository) ListTransactionsByDateRange(ctx context.Context, start, end int64) ([]core.Transaction, error) {
	return r.queryTransactions(ctx, `
		SELECT id, account_id, category_id, amount_cents, date_ms
		FROM transactions WHERE date_ms BETWEEN ? AND ? ORDER BY id`, start, end)
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	var out []core.Transaction
	index := map[int64]int{}
	for rows.Next() {
		var tx core.Transaction
		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.CategoryID, &tx.Amount.Cents, &tx.Date); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		index[tx.ID] = len(out)
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(out) == 0 {
		return out, nil
	}

	tagRows, err := r.db.QueryContext(ctx, "SELECT transaction_id, tag_id FROM transaction_tags ORDER BY transaction_id, tag_id")
	if err != nil {
		return nil, fmt.Errorf("list transaction tags: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var txID, tagID int64
		if err := tagRows.Scan(&txID, &tagID); err != nil {
			return nil, fmt.Errorf("scan transaction tag: %w", err)
		}
		if i, ok := index[txID]; ok {
			out[i].TagIDs = append(out[i].TagIDs, tagID)
		}
	}
	return out, tagRows.Err()
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, n core.NewTransaction) (int64, error) {
	var id int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = r.insertTransaction(ctx, tx, n)
		return err
	})
	return id, err
}

func (r *SQLiteRepository) CreateTransactionsFromRows(ctx context.Context, rows []core.NewTransaction) ([]int64, error) {
	ids := make([]int64, len(rows))
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		for i, n := range rows {
			id, err := r.insertTransaction(ctx, tx, n)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			ids[i] = id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *SQLiteRepository) insertTransaction(ctx context.Context, tx *sql.Tx, n core.NewTransaction) (int64, error) {
	if err := n.Validate(); err != nil {
		return 0, err
	}
	if err := checkRef(ctx, tx, "accounts", "account", n.AccountID); err != nil {
		return 0, err
	}
	if err := checkRef(ctx, tx, "categories", "category", n.CategoryID); err != nil {
		return 0, err
	}
	tagIDs := core.DedupeIDs(n.TagIDs)
	for _, tagID := range tagIDs {
		if err := checkRef(ctx, tx, "tags", "tag", tagID); err != nil {
			return 0, err
		}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (account_id, category_id, amount_cents, date_ms, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		n.AccountID, n.CategoryID, n.Amount.Cents, n.Date, r.stamp())
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx, "INSERT INTO transaction_tags (transaction_id, tag_id) VALUES (?, ?)", id, tagID); err != nil {
			return 0, fmt.Errorf("tag transaction: %w", err)
		}
	}
	return id, nil
}

func checkRef(ctx context.Context, q queryer, table, kind string, id int64) error {
	ok, err := exists(ctx, q, table, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound(kind, id)
	}
	return nil
}
