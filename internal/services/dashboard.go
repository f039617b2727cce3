package services

import (
	"context"
	"fmt"

	"firefly/internal/core"
	"firefly/internal/ports"
	"firefly/internal/report"
)

// Dashboard holds the figures shown on the overview page.
type Dashboard struct {
	Start            int64
	End              int64
	Stats            report.Stats
	Breakdown        []report.CategoryShare
	TopCategories    []report.CategoryShare
	IncomeVsExpenses report.IncomeExpenseSummary
	Accounts         []core.Account
	TransactionCount int
}

// DashboardService aggregates transactions for the overview page.
type DashboardService struct {
	backend ports.Backend
	topN    int
}

func NewDashboardService(backend ports.Backend) *DashboardService {
	return &DashboardService{backend: backend, topN: report.DefaultTopN}
}

// Dashboard aggregates the transactions dated within [start, end]. A zero
// end means no upper bound, so Dashboard(ctx, 0, 0) covers everything.
func (s *DashboardService) Dashboard(ctx context.Context, start, end int64) (Dashboard, error) {
	if end != 0 && end < start {
		return Dashboard{}, invalid(core.ErrInvalidRange)
	}
	snap, err := LoadSnapshot(ctx, s.backend, Accounts|Categories|Transactions)
	if err != nil {
		return Dashboard{}, fmt.Errorf("dashboard: %w", err)
	}

	txs := snap.Transactions
	if end != 0 {
		txs = report.Window(txs, start, end)
	} else if start != 0 {
		txs = report.Window(txs, start, maxMillis)
	}

	return Dashboard{
		Start:            start,
		End:              end,
		Stats:            report.QuickStats(txs),
		Breakdown:        report.CategoryBreakdown(txs, snap.Categories),
		TopCategories:    report.TopCategories(txs, snap.Categories, s.topN),
		IncomeVsExpenses: report.IncomeVsExpenses(txs, snap.Categories),
		Accounts:         snap.Accounts,
		TransactionCount: len(txs),
	}, nil
}

const maxMillis = int64(1<<63 - 1)
