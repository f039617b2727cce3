package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"firefly/internal/core"
	"firefly/internal/ports"
	"firefly/internal/report"
)

// ReportService manages saved reports and evaluates them.
type ReportService struct {
	backend ports.Backend
}

func NewReportService(backend ports.Backend) *ReportService {
	return &ReportService{backend: backend}
}

// Save validates r and creates it, or updates it when r.ID is set.
func (s *ReportService) Save(ctx context.Context, r core.Report) (core.Report, error) {
	if err := r.Validate(); err != nil {
		return core.Report{}, invalid(err)
	}
	filters, err := report.ParseFilters(r.Filters)
	if err != nil {
		return core.Report{}, invalid(err)
	}
	r.Filters = filters.Encode()

	if r.ID == 0 {
		id, err := s.backend.CreateReport(ctx, r)
		if err != nil {
			return core.Report{}, fmt.Errorf("create report: %w", err)
		}
		r.ID = id
	} else if err := s.backend.UpdateReport(ctx, r); err != nil {
		return core.Report{}, fmt.Errorf("update report: %w", err)
	}
	return s.backend.GetReport(ctx, r.ID)
}

// Results runs the saved report id over the transactions in its window.
func (s *ReportService) Results(ctx context.Context, id int64) (core.Report, report.Result, error) {
	saved, err := s.backend.GetReport(ctx, id)
	if err != nil {
		return core.Report{}, report.Result{}, err
	}

	var (
		txs  []core.Transaction
		cats []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		txs, err = s.backend.ListTransactionsByDateRange(gctx, saved.Start, saved.End)
		return wrapLoad("transactions", err)
	})
	g.Go(func() (err error) {
		cats, err = s.backend.ListCategories(gctx)
		return wrapLoad("categories", err)
	})
	if err := g.Wait(); err != nil {
		return core.Report{}, report.Result{}, err
	}

	res, err := report.Run(saved, txs, cats)
	if err != nil {
		return core.Report{}, report.Result{}, fmt.Errorf("run report %d: %w", id, err)
	}
	return saved, res, nil
}
