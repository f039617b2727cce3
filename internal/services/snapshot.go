package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"firefly/internal/core"
	"firefly/internal/ports"
)

// Part selects which collections a snapshot loads.
type Part uint8

const (
	Accounts Part = 1 << iota
	Categories
	Tags
	Transactions
	Budgets
)

// Snapshot is a point-in-time copy of backend collections that the pure
// engines compute over. Collections not requested are nil.
type Snapshot struct {
	Accounts     []core.Account
	Categories   []core.Category
	Tags         []core.Tag
	Transactions []core.Transaction
	Budgets      []core.Budget
}

// LoadSnapshot fetches the requested collections in parallel. The first
// failure cancels the rest.
func LoadSnapshot(ctx context.Context, b ports.Backend, parts Part) (Snapshot, error) {
	var snap Snapshot
	g, ctx := errgroup.WithContext(ctx)

	if parts&Accounts != 0 {
		g.Go(func() (err error) {
			snap.Accounts, err = b.ListAccounts(ctx)
			return wrapLoad("accounts", err)
		})
	}
	if parts&Categories != 0 {
		g.Go(func() (err error) {
			snap.Categories, err = b.ListCategories(ctx)
			return wrapLoad("categories", err)
		})
	}
	if parts&Tags != 0 {
		g.Go(func() (err error) {
			snap.Tags, err = b.ListTags(ctx)
			return wrapLoad("tags", err)
		})
	}
	if parts&Transactions != 0 {
		g.Go(func() (err error) {
			snap.Transactions, err = b.ListTransactions(ctx)
			return wrapLoad("transactions", err)
		})
	}
	if parts&Budgets != 0 {
		g.Go(func() (err error) {
			snap.Budgets, err = b.ListBudgets(ctx)
			return wrapLoad("budgets", err)
		})
	}

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// LoadFreshSnapshot is LoadSnapshot past any read cache wrapping b. Values
// that get persisted, such as a budget's carry-over, are computed from it.
func LoadFreshSnapshot(ctx context.Context, b ports.Backend, parts Part) (Snapshot, error) {
	return LoadSnapshot(ctx, uncached(b), parts)
}

func uncached(b ports.Backend) ports.Backend {
	for {
		u, ok := b.(interface{ Unwrap() ports.Backend })
		if !ok {
			return b
		}
		b = u.Unwrap()
	}
}

func wrapLoad(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("load %s: %w", what, err)
}
