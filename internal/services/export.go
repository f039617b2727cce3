package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"firefly/internal/csvimport"
	"firefly/internal/log"
	"firefly/internal/ports"
	"firefly/internal/sheets"
)

// ErrSheetsDisabled is returned when no sheet exporter is configured.
var ErrSheetsDisabled = errors.New("sheets export is not configured")

// SheetExport describes a completed sheet export.
type SheetExport struct {
	Range string `json:"range"`
	Rows  int    `json:"rows"`
}

// ExportService writes the transaction export as CSV or to a spreadsheet.
type ExportService struct {
	backend ports.Backend
	sheets  sheets.TransactionExporter
}

// NewExportService creates the service; exporter may be nil.
func NewExportService(backend ports.Backend, exporter sheets.TransactionExporter) *ExportService {
	return &ExportService{backend: backend, sheets: exporter}
}

// Records builds the export matrix, header first, from a fresh snapshot.
func (s *ExportService) Records(ctx context.Context) ([][]string, error) {
	snap, err := LoadSnapshot(ctx, s.backend, Accounts|Categories|Tags|Transactions)
	if err != nil {
		return nil, err
	}
	return csvimport.ExportRecords(snap.Transactions, snap.Accounts, snap.Categories, snap.Tags), nil
}

// WriteCSV writes every transaction to w and returns the number of rows.
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer) (int, error) {
	snap, err := LoadSnapshot(ctx, s.backend, Accounts|Categories|Tags|Transactions)
	if err != nil {
		return 0, err
	}
	if err := csvimport.Export(w, snap.Transactions, snap.Accounts, snap.Categories, snap.Tags); err != nil {
		return 0, fmt.Errorf("write csv: %w", err)
	}
	return len(snap.Transactions), nil
}

// ExportToSheets replaces the configured sheet with the export matrix.
func (s *ExportService) ExportToSheets(ctx context.Context) (SheetExport, error) {
	if s.sheets == nil {
		return SheetExport{}, ErrSheetsDisabled
	}
	records, err := s.Records(ctx)
	if err != nil {
		return SheetExport{}, err
	}
	ref, err := s.sheets.ExportTransactions(ctx, records)
	if err != nil {
		return SheetExport{}, fmt.Errorf("export to sheets: %w", err)
	}
	slog.InfoContext(ctx, "Transactions exported",
		log.FieldComponent, log.ComponentSheets,
		log.FieldOperation, log.OpExport,
		log.FieldRows, len(records)-1)
	return SheetExport{Range: ref, Rows: len(records) - 1}, nil
}
