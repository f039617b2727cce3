package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"firefly/internal/core"
)

const connectionColumns = `id, name, connection_type, status, status_message, status_at,
	created_at, last_sync, next_sync, retry_attempts`

func scanConnection(s scanner) (core.BankConnection, error) {
	var (
		c        core.BankConnection
		kind     string
		message  string
		statusAt int64
	)
	err := s.Scan(&c.ID, &c.Name, &c.ConnectionType, &kind, &message, &statusAt,
		&c.CreatedAt, &c.LastSync, &c.NextSync, &c.RetryAttempts)
	if err != nil {
		return c, err
	}
	if c.Status, err = core.StatusFromKind(kind, message, statusAt); err != nil {
		return c, fmt.Errorf("bank connection %d status %q: %w", c.ID, kind, err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListBankConnections(ctx context.Context) ([]core.BankConnection, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+connectionColumns+" FROM bank_connections ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list bank connections: %w", err)
	}
	defer rows.Close()

	var out []core.BankConnection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bank connection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetBankConnection(ctx context.Context, id int64) (core.BankConnection, error) {
	c, err := scanConnection(r.db.QueryRowContext(ctx, "SELECT "+connectionColumns+" FROM bank_connections WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.BankConnection{}, notFound("bank connection", id)
	}
	if err != nil {
		return core.BankConnection{}, fmt.Errorf("get bank connection: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateBankConnection(ctx context.Context, name, connectionType string) (int64, error) {
	c := core.BankConnection{Name: strings.TrimSpace(name), ConnectionType: connectionType}
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if c.ConnectionType == "" {
		c.ConnectionType = core.MockBankConnection
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO bank_connections (name, connection_type, status, created_at) VALUES (?, ?, ?, ?)",
		c.Name, c.ConnectionType, core.StatusKindIdle, r.stamp())
	if err != nil {
		return 0, fmt.Errorf("create bank connection: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) UpdateBankConnection(ctx context.Context, c core.BankConnection) error {
	if c.Status == nil {
		return errors.New("bank connection status is required")
	}
	kind, message, at := core.StatusParts(c.Status)
	res, err := r.db.ExecContext(ctx, `
		UPDATE bank_connections
		SET status = ?, status_message = ?, status_at = ?, last_sync = ?, next_sync = ?, retry_attempts = ?
		WHERE id = ?`,
		kind, message, at, c.LastSync, c.NextSync, c.RetryAttempts, c.ID)
	if err != nil {
		return fmt.Errorf("update bank connection: %w", err)
	}
	return affected(res, "bank connection", c.ID)
}

func (r *SQLiteRepository) DeleteBankConnection(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM bank_connections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete bank connection: %w", err)
	}
	return affected(res, "bank connection", id)
}
