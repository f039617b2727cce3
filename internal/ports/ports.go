// Package ports declares the backend operations the finance engine consumes.
// Implementations live in internal/ports/memory and internal/storage.
package ports

import (
	"context"
	"fmt"

	"firefly/internal/core"
	"firefly/internal/invoice"
)

// Ports for outbound adapters. Lookups by ID return an error wrapping
// core.ErrNotFound when the record does not exist.
type (
	AccountStore interface {
		ListAccounts(ctx context.Context) ([]core.Account, error)
		CreateAccount(ctx context.Context, name string) (int64, error)
	}

	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		CreateCategory(ctx context.Context, name string, isExpense bool) (int64, error)
	}

	TransactionStore interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		// ListTransactionsByDateRange returns transactions dated within [start, end].
		ListTransactionsByDateRange(ctx context.Context, start, end int64) ([]core.Transaction, error)
		CreateTransaction(ctx context.Context, tx core.NewTransaction) (int64, error)
		// CreateTransactionsFromRows creates all rows or none.
		CreateTransactionsFromRows(ctx context.Context, rows []core.NewTransaction) ([]int64, error)
	}

	TagStore interface {
		ListTags(ctx context.Context) ([]core.Tag, error)
		CreateTag(ctx context.Context, name string) (int64, error)
		// DeleteTag also detaches the tag from every transaction.
		DeleteTag(ctx context.Context, id int64) error
	}

	BudgetStore interface {
		ListBudgets(ctx context.Context) ([]core.Budget, error)
		GetBudget(ctx context.Context, id int64) (core.Budget, error)
		// CreateBudget fails with core.ErrDuplicateMonth if the month already has a budget.
		CreateBudget(ctx context.Context, month core.MonthKey, limits []core.CategoryLimit, carryOver core.Money) (int64, error)
		UpdateBudget(ctx context.Context, id int64, month core.MonthKey, limits []core.CategoryLimit, carryOver core.Money) error
		DeleteBudget(ctx context.Context, id int64) error
		GetBudgetSummary(ctx context.Context, month core.MonthKey) (core.BudgetSummary, error)
	}

	ReportStore interface {
		ListReports(ctx context.Context) ([]core.Report, error)
		GetReport(ctx context.Context, id int64) (core.Report, error)
		CreateReport(ctx context.Context, r core.Report) (int64, error)
		UpdateReport(ctx context.Context, r core.Report) error
		DeleteReport(ctx context.Context, id int64) error
	}

	InvoiceStore interface {
		ListInvoices(ctx context.Context, f invoice.Filter) ([]invoice.Invoice, error)
		GetInvoice(ctx context.Context, id int64) (invoice.Invoice, error)
		CreateInvoice(ctx context.Context, inv invoice.Invoice) (int64, error)
		UpdateInvoice(ctx context.Context, inv invoice.Invoice) error
		DeleteInvoice(ctx context.Context, id int64) error
	}

	BankConnectionStore interface {
		ListBankConnections(ctx context.Context) ([]core.BankConnection, error)
		GetBankConnection(ctx context.Context, id int64) (core.BankConnection, error)
		CreateBankConnection(ctx context.Context, name, connectionType string) (int64, error)
		// UpdateBankConnection stores status, sync times and retry count.
		UpdateBankConnection(ctx context.Context, c core.BankConnection) error
		DeleteBankConnection(ctx context.Context, id int64) error
	}

	// Backend is the full set of operations.
	Backend interface {
		AccountStore
		CategoryStore
		TransactionStore
		TagStore
		BudgetStore
		ReportStore
		InvoiceStore
		BankConnectionStore
	}
)

// BackendError wraps a failure of a backend operation.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *BackendError) Unwrap() error { return e.Err }

// Wrap returns err as a *BackendError for op, or nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Op: op, Err: err}
}
