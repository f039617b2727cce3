package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"firefly/internal/core"
	"firefly/internal/csvimport"
	"firefly/internal/ports/memory"
)

const importCSV = `date,account,category,amount,tags
2025-01-15,Checking,Groceries,42.50,weekly
2025-01-16,Savings,Groceries,-10.00,
2025-01-17,Checking,Salary,1000,new
`

func importFixture(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	if _, err := s.CreateAccount(ctx, "Checking"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateCategory(ctx, "Groceries", true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateCategory(ctx, "Salary", false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateTag(ctx, "weekly"); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestImportService_Import(t *testing.T) {
	tests := []struct {
		name        string
		opts        csvimport.Options
		wantCreated int
		wantFailed  int
		wantErrors  []string
		wantTags    int
	}{
		{
			name:        "unknown tags rejected",
			wantCreated: 1,
			wantFailed:  2,
			wantErrors:  []string{`Row 3: Account "Savings" not found`, `Row 4: Tag "new" not found`},
			wantTags:    1,
		},
		{
			name:        "missing tags created",
			opts:        csvimport.Options{CreateMissingTags: true},
			wantCreated: 2,
			wantFailed:  1,
			wantErrors:  []string{`Row 3: Account "Savings" not found`},
			wantTags:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := importFixture(t)
			svc := NewImportService(store, nil)

			res, err := svc.Import(ctx, strings.NewReader(importCSV), tt.opts)
			if err != nil {
				t.Fatalf("Import() error = %v", err)
			}
			if res.Created != tt.wantCreated || res.Failed != tt.wantFailed {
				t.Errorf("created/failed = %d/%d, want %d/%d", res.Created, res.Failed, tt.wantCreated, tt.wantFailed)
			}
			if strings.Join(res.Errors, "|") != strings.Join(tt.wantErrors, "|") {
				t.Errorf("errors = %q, want %q", res.Errors, tt.wantErrors)
			}

			tags, _ := store.ListTags(ctx)
			if len(tags) != tt.wantTags {
				t.Errorf("tags = %v, want %d", tags, tt.wantTags)
			}

			txs, _ := store.ListTransactions(ctx)
			if len(txs) != tt.wantCreated {
				t.Fatalf("stored %d transactions, want %d", len(txs), tt.wantCreated)
			}
			if txs[0].Amount.Cents != -4250 {
				t.Errorf("expense amount = %d, want -4250", txs[0].Amount.Cents)
			}
			if len(txs[0].TagIDs) != 1 {
				t.Errorf("tag ids = %v", txs[0].TagIDs)
			}
		})
	}
}

type failingBatch struct {
	*memory.Store
}

func (failingBatch) CreateTransactionsFromRows(context.Context, []core.NewTransaction) ([]int64, error) {
	return nil, errors.New("disk full")
}

func TestImportService_BackendFailureCountsRows(t *testing.T) {
	svc := NewImportService(failingBatch{importFixture(t)}, nil)

	res, err := svc.Import(context.Background(), strings.NewReader(importCSV), csvimport.Options{CreateMissingTags: true})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Created != 0 || res.Failed != 3 {
		t.Errorf("created/failed = %d/%d, want 0/3", res.Created, res.Failed)
	}
	last := res.Errors[len(res.Errors)-1]
	if !strings.Contains(last, "disk full") {
		t.Errorf("last error = %q", last)
	}
}

func TestImportService_ParseErrorIsFatal(t *testing.T) {
	svc := NewImportService(importFixture(t), nil)

	_, err := svc.Import(context.Background(), strings.NewReader("date,account,category,amount\n"), csvimport.Options{})
	var pe *csvimport.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *csvimport.ParseError, got %v", err)
	}
	if !errors.Is(err, csvimport.ErrTooFewRows) {
		t.Errorf("expected ErrTooFewRows, got %v", err)
	}
}
