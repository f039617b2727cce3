package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"firefly/internal/core"
	"firefly/internal/csvimport"
	"firefly/internal/log"
	"firefly/internal/ports"
)

// ImportResult is the outcome of a CSV import. Failed counts rows rejected by
// validation plus rows the backend refused.
type ImportResult struct {
	Created int      `json:"created"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
	IDs     []int64  `json:"ids,omitempty"`
}

// ImportService runs the CSV import workflow against a backend.
type ImportService struct {
	backend ports.Backend
	logs    *log.StructuredLogger
}

func NewImportService(backend ports.Backend, logger *log.Logger) *ImportService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ImportService{
		backend: backend,
		logs:    log.NewStructuredLogger(logger.WithComponent(log.ComponentImport)),
	}
}

// Import parses r, validates every row against a fresh snapshot, optionally
// creates missing tags, and submits the valid rows as one batch. A parse
// failure aborts the import and is returned as a *csvimport.ParseError.
func (s *ImportService) Import(ctx context.Context, r io.Reader, opts csvimport.Options) (ImportResult, error) {
	rows, err := csvimport.Parse(r)
	if err != nil {
		return ImportResult{}, err
	}

	snap, err := LoadSnapshot(ctx, s.backend, Accounts|Categories|Tags)
	if err != nil {
		return ImportResult{}, err
	}
	ref := csvimport.NewReference(snap.Accounts, snap.Categories, snap.Tags)

	var res ImportResult
	results := csvimport.ValidateAll(rows, ref, opts)
	valid := make([]csvimport.Row, 0, len(rows))
	for i, v := range results {
		if !v.IsValid {
			res.Failed++
			res.Errors = append(res.Errors, rowError(rows[i].Line, v.Errors))
			continue
		}
		valid = append(valid, rows[i])
	}

	if opts.CreateMissingTags && len(valid) > 0 {
		for _, name := range csvimport.MissingTags(valid, ref) {
			id, err := s.backend.CreateTag(ctx, name)
			if err != nil {
				return res, fmt.Errorf("create tag %q: %w", name, err)
			}
			ref.AddTag(core.Tag{ID: id, Name: name})
			slog.InfoContext(ctx, "Created tag during import", "tag", name, "id", id)
		}
	}

	batch := make([]core.NewTransaction, 0, len(valid))
	for _, row := range valid {
		tx, err := csvimport.Resolve(row, ref)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, rowError(row.Line, []string{err.Error()}))
			continue
		}
		batch = append(batch, tx)
	}

	if len(batch) > 0 {
		ids, err := s.backend.CreateTransactionsFromRows(ctx, batch)
		if err != nil {
			res.Failed += len(batch)
			res.Errors = append(res.Errors, fmt.Sprintf("Import failed: %v", err))
			s.logs.LogError(ctx, "Batch import rejected by backend", err, log.ComponentImport, log.OpImport,
				log.NewFields().WithImport(len(rows), 0, res.Failed))
		} else {
			res.Created = len(ids)
			res.IDs = ids
		}
	}

	s.logs.LogImportCompleted(ctx, len(rows), res.Created, res.Failed)
	return res, nil
}

func rowError(line int, errs []string) string {
	return fmt.Sprintf("Row %d: %s", line, strings.Join(errs, ", "))
}
