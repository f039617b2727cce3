package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"firefly/internal/core"
	"firefly/internal/invoice"
)

const invoiceColumns = `id, number, customer_id, customer_name, issue_date, due_date, status,
	tax_rate, notes, subtotal_cents, tax_cents, total_cents, created_at, updated_at`

func scanInvoice(s scanner) (invoice.Invoice, error) {
	var (
		inv     invoice.Invoice
		status  string
		taxRate string
	)
	err := s.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.CustomerName, &inv.IssueDate, &inv.DueDate,
		&status, &taxRate, &inv.Notes, &inv.Subtotal.Cents, &inv.Tax.Cents, &inv.Total.Cents,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return inv, err
	}
	if inv.Status, err = invoice.ParseStatus(status); err != nil {
		return inv, err
	}
	if inv.TaxRate, err = decimal.NewFromString(taxRate); err != nil {
		return inv, fmt.Errorf("invoice %d tax rate: %w", inv.ID, err)
	}
	return inv, nil
}

// invoiceWhere turns a filter into a WHERE clause. Zero fields are skipped.
func invoiceWhere(f invoice.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, f.Status.Label())
	}
	if f.CustomerID != 0 {
		conds = append(conds, "customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if f.StartDate != 0 {
		conds = append(conds, "issue_date >= ?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != 0 {
		conds = append(conds, "issue_date <= ?")
		args = append(args, f.EndDate)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *SQLiteRepository) ListInvoices(ctx context.Context, f invoice.Filter) ([]invoice.Invoice, error) {
	where, args := invoiceWhere(f)
	rows, err := r.db.QueryContext(ctx, "SELECT "+invoiceColumns+" FROM invoices"+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	var out []invoice.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		if out[i].Items, err = r.invoiceItems(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *SQLiteRepository) invoiceItems(ctx context.Context, invoiceID int64) ([]invoice.LineItem, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, quantity, unit_price FROM invoice_items WHERE invoice_id = ? ORDER BY position", invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()

	var items []invoice.LineItem
	for rows.Next() {
		var (
			it    invoice.LineItem
			price string
		)
		if err := rows.Scan(&it.ID, &it.Name, &it.Quantity, &price); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("invoice item %d price: %w", it.ID, err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *SQLiteRepository) GetInvoice(ctx context.Context, id int64) (invoice.Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRowContext(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return invoice.Invoice{}, notFound("invoice", id)
	}
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	if inv.Items, err = r.invoiceItems(ctx, id); err != nil {
		return invoice.Invoice{}, err
	}
	return inv, nil
}

// nextInvoiceNumber reads the numbers already used in the issue month.
func nextInvoiceNumber(ctx context.Context, tx *sql.Tx, issueDate int64) (string, error) {
	month := core.MonthKeyOf(time.UnixMilli(issueDate).UTC())
	rows, err := tx.QueryContext(ctx, "SELECT number FROM invoices WHERE number LIKE ?", fmt.Sprintf("INV-%d-%%", int(month)))
	if err != nil {
		return "", fmt.Errorf("list invoice numbers: %w", err)
	}
	defer rows.Close()
	var existing []invoice.Invoice
	for rows.Next() {
		var inv invoice.Invoice
		if err := rows.Scan(&inv.Number); err != nil {
			return "", err
		}
		existing = append(existing, inv)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return invoice.NextNumber(month, existing), nil
}

func (r *SQLiteRepository) CreateInvoice(ctx context.Context, inv invoice.Invoice) (int64, error) {
	if err := inv.Validate(); err != nil {
		return 0, err
	}
	inv.Items = append([]invoice.LineItem(nil), inv.Items...)
	if err := inv.Recalculate(); err != nil {
		return 0, err
	}
	now := r.stamp()
	var id int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if inv.Number == "" {
			n, err := nextInvoiceNumber(ctx, tx, inv.IssueDate)
			if err != nil {
				return err
			}
			inv.Number = n
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO invoices (number, customer_id, customer_name, issue_date, due_date, status,
				tax_rate, notes, subtotal_cents, tax_cents, total_cents, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			inv.Number, inv.CustomerID, inv.CustomerName, inv.IssueDate, inv.DueDate, inv.Status.Label(),
			inv.TaxRate.String(), inv.Notes, inv.Subtotal.Cents, inv.Tax.Cents, inv.Total.Cents, now, now)
		if isUniqueViolation(err) {
			return fmt.Errorf("invoice number %q: %w", inv.Number, core.ErrDuplicateName)
		}
		if err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return insertItems(ctx, tx, id, inv.Items)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *SQLiteRepository) UpdateInvoice(ctx context.Context, inv invoice.Invoice) error {
	if err := inv.Validate(); err != nil {
		return err
	}
	inv.Items = append([]invoice.LineItem(nil), inv.Items...)
	if err := inv.Recalculate(); err != nil {
		return err
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE invoices SET
				number = COALESCE(NULLIF(?, ''), number), customer_id = ?, customer_name = ?,
				issue_date = ?, due_date = ?, status = ?, tax_rate = ?, notes = ?,
				subtotal_cents = ?, tax_cents = ?, total_cents = ?, updated_at = ?
			WHERE id = ?`,
			inv.Number, inv.CustomerID, inv.CustomerName, inv.IssueDate, inv.DueDate, inv.Status.Label(),
			inv.TaxRate.String(), inv.Notes, inv.Subtotal.Cents, inv.Tax.Cents, inv.Total.Cents, r.stamp(), inv.ID)
		if isUniqueViolation(err) {
			return fmt.Errorf("invoice number %q: %w", inv.Number, core.ErrDuplicateName)
		}
		if err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		if err := affected(res, "invoice", inv.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM invoice_items WHERE invoice_id = ?", inv.ID); err != nil {
			return fmt.Errorf("clear invoice items: %w", err)
		}
		return insertItems(ctx, tx, inv.ID, inv.Items)
	})
}

func insertItems(ctx context.Context, tx *sql.Tx, invoiceID int64, items []invoice.LineItem) error {
	for i, it := range items {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO invoice_items (invoice_id, position, name, quantity, unit_price) VALUES (?, ?, ?, ?, ?)",
			invoiceID, i, it.Name, it.Quantity, it.UnitPrice.String()); err != nil {
			return fmt.Errorf("insert invoice item: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) DeleteInvoice(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM invoices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return affected(res, "invoice", id)
}
