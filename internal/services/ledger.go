package services

import (
	"context"
	"fmt"
	"strings"

	"firefly/internal/core"
	"firefly/internal/ports"
)

// LedgerService validates and records accounts, categories, tags and
// transactions.
type LedgerService struct {
	backend ports.Backend
}

func NewLedgerService(backend ports.Backend) *LedgerService {
	return &LedgerService{backend: backend}
}

func (s *LedgerService) CreateAccount(ctx context.Context, name string) (core.Account, error) {
	a := core.Account{Name: strings.TrimSpace(name)}
	if err := a.Validate(); err != nil {
		return core.Account{}, invalid(err)
	}
	id, err := s.backend.CreateAccount(ctx, a.Name)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	a.ID = id
	return a, nil
}

func (s *LedgerService) CreateCategory(ctx context.Context, name string, isExpense bool) (core.Category, error) {
	c := core.Category{Name: strings.TrimSpace(name), IsExpense: isExpense}
	if err := c.Validate(); err != nil {
		return core.Category{}, invalid(err)
	}
	id, err := s.backend.CreateCategory(ctx, c.Name, c.IsExpense)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	c.ID = id
	return c, nil
}

func (s *LedgerService) CreateTag(ctx context.Context, name string) (core.Tag, error) {
	t := core.Tag{Name: strings.TrimSpace(name)}
	if err := t.Validate(); err != nil {
		return core.Tag{}, invalid(err)
	}
	id, err := s.backend.CreateTag(ctx, t.Name)
	if err != nil {
		return core.Tag{}, fmt.Errorf("create tag: %w", err)
	}
	t.ID = id
	return t, nil
}

// CreateTransaction records n with its amount signed by its category:
// expenses are stored negative and income positive.
func (s *LedgerService) CreateTransaction(ctx context.Context, n core.NewTransaction) (core.Transaction, error) {
	if err := n.Validate(); err != nil {
		return core.Transaction{}, invalid(err)
	}
	cats, err := s.backend.ListCategories(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load categories: %w", err)
	}
	cat, ok := core.CategoryIndex(cats)[n.CategoryID]
	if !ok {
		return core.Transaction{}, invalid(fmt.Errorf("category %d: %w", n.CategoryID, core.ErrUnknownCategory))
	}
	n.Amount = core.SignedAmount(cat, n.Amount)
	n.TagIDs = core.DedupeIDs(n.TagIDs)

	id, err := s.backend.CreateTransaction(ctx, n)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return core.Transaction{
		ID:         id,
		AccountID:  n.AccountID,
		CategoryID: n.CategoryID,
		Amount:     n.Amount,
		Date:       n.Date,
		TagIDs:     n.TagIDs,
	}, nil
}
