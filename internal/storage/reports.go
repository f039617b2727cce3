package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"firefly/internal/core"
)

const reportColumns = "id, name, type, start_ms, end_ms, filters, created_at, updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (core.Report, error) {
	var rep core.Report
	err := s.Scan(&rep.ID, &rep.Name, &rep.Type, &rep.Start, &rep.End, &rep.Filters, &rep.CreatedAt, &rep.UpdatedAt)
	return rep, err
}

func (r *SQLiteRepository) ListReports(ctx context.Context) ([]core.Report, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+reportColumns+" FROM reports ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []core.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetReport(ctx context.Context, id int64) (core.Report, error) {
	rep, err := scanReport(r.db.QueryRowContext(ctx, "SELECT "+reportColumns+" FROM reports WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Report{}, notFound("report", id)
	}
	if err != nil {
		return core.Report{}, fmt.Errorf("get report: %w", err)
	}
	return rep, nil
}

func (r *SQLiteRepository) CreateReport(ctx context.Context, rep core.Report) (int64, error) {
	if err := rep.Validate(); err != nil {
		return 0, err
	}
	now := r.stamp()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO reports (name, type, start_ms, end_ms, filters, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rep.Name, string(rep.Type), rep.Start, rep.End, rep.Filters, now, now)
	if err != nil {
		return 0, fmt.Errorf("create report: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) UpdateReport(ctx context.Context, rep core.Report) error {
	if err := rep.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE reports SET name = ?, type = ?, start_ms = ?, end_ms = ?, filters = ?, updated_at = ?
		WHERE id = ?`,
		rep.Name, string(rep.Type), rep.Start, rep.End, rep.Filters, r.stamp(), rep.ID)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	return affected(res, "report", rep.ID)
}

func (r *SQLiteRepository) DeleteReport(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reports WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return affected(res, "report", id)
}
