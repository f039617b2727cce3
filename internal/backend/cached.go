package backend

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"firefly/internal/cache"
	"firefly/internal/core"
	"firefly/internal/invoice"
	"firefly/internal/ports"
)

// Cached decorates a backend with a read cache. Reads are served from the
// cache when possible; successful writes invalidate the keys declared for
// them in the cache's invalidation map. Every failure is returned as a
// *ports.BackendError naming the operation.
type Cached struct {
	inner ports.Backend
	cache *cache.QueryCache[any]

	// gen counts writes. A read only stores its result when no write
	// finished while it was loading.
	mu  sync.Mutex
	gen uint64

	readThrough []cache.Key
}

// CachedOption configures a Cached backend.
type CachedOption func(*Cached)

// WithReadThrough never caches the given keys or anything below them. Use
// it for data that another process writes to the same store.
func WithReadThrough(keys ...cache.Key) CachedOption {
	return func(c *Cached) {
		c.readThrough = append(c.readThrough, keys...)
	}
}

// SharedKeys are the keys another process can make stale: the worker
// imports bank transactions, which move balances and budget actuals.
var SharedKeys = []cache.Key{cache.KeyTransactions, cache.KeyAccounts, cache.KeyBudgetSummary}

func NewCached(inner ports.Backend, qc *cache.QueryCache[any], opts ...CachedOption) *Cached {
	c := &Cached{inner: inner, cache: qc}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Unwrap returns the decorated backend.
func (c *Cached) Unwrap() ports.Backend { return c.inner }

func id(n int64) string { return strconv.FormatInt(n, 10) }

func (c *Cached) bypass(key cache.Key) bool {
	for _, k := range c.readThrough {
		if k.Covers(key) {
			return true
		}
	}
	return false
}

func (c *Cached) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// store caches v unless a write completed after gen was taken.
func (c *Cached) store(key cache.Key, gen uint64, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.cache.Set(key, v)
	}
}

func readList[T any](c *Cached, op string, key cache.Key, load func() ([]T, error)) ([]T, error) {
	if c.bypass(key) {
		out, err := load()
		return out, ports.Wrap(op, err)
	}
	if v, ok := c.cache.Get(key); ok {
		if out, ok := v.([]T); ok {
			return slices.Clone(out), nil
		}
	}
	gen := c.generation()
	out, err := load()
	if err != nil {
		return nil, ports.Wrap(op, err)
	}
	c.store(key, gen, slices.Clone(out))
	return out, nil
}

func readOne[T any](c *Cached, op string, key cache.Key, load func() (T, error)) (T, error) {
	if c.bypass(key) {
		out, err := load()
		return out, ports.Wrap(op, err)
	}
	if v, ok := c.cache.Get(key); ok {
		if out, ok := v.(T); ok {
			return out, nil
		}
	}
	gen := c.generation()
	out, err := load()
	if err != nil {
		var zero T
		return zero, ports.Wrap(op, err)
	}
	c.store(key, gen, out)
	return out, nil
}

func (c *Cached) written(op string, m cache.Mutation, err error, extra ...cache.Key) error {
	if err != nil {
		return ports.Wrap(op, err)
	}
	c.mu.Lock()
	c.gen++
	c.cache.Written(m, extra...)
	c.mu.Unlock()
	return nil
}

// Accounts

func (c *Cached) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return readList(c, "listAccounts", cache.KeyAccounts, func() ([]core.Account, error) {
		return c.inner.ListAccounts(ctx)
	})
}

func (c *Cached) CreateAccount(ctx context.Context, name string) (int64, error) {
	n, err := c.inner.CreateAccount(ctx, name)
	return n, c.written("createAccount", cache.CreateAccount, err)
}

// Categories

func (c *Cached) ListCategories(ctx context.Context) ([]core.Category, error) {
	return readList(c, "listCategories", cache.KeyCategories, func() ([]core.Category, error) {
		return c.inner.ListCategories(ctx)
	})
}

func (c *Cached) CreateCategory(ctx context.Context, name string, isExpense bool) (int64, error) {
	n, err := c.inner.CreateCategory(ctx, name, isExpense)
	return n, c.written("createCategory", cache.CreateCategory, err)
}

// Transactions

func (c *Cached) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return readList(c, "listTransactions", cache.KeyTransactions, func() ([]core.Transaction, error) {
		return c.inner.ListTransactions(ctx)
	})
}

func (c *Cached) ListTransactionsByDateRange(ctx context.Context, start, end int64) ([]core.Transaction, error) {
	key := cache.NewKey(cache.KeyTransactions, "range", id(start), id(end))
	return readList(c, "listTransactionsByDateRange", key, func() ([]core.Transaction, error) {
		return c.inner.ListTransactionsByDateRange(ctx, start, end)
	})
}

func (c *Cached) CreateTransaction(ctx context.Context, tx core.NewTransaction) (int64, error) {
	n, err := c.inner.CreateTransaction(ctx, tx)
	return n, c.written("createTransaction", cache.CreateTransaction, err)
}

func (c *Cached) CreateTransactionsFromRows(ctx context.Context, rows []core.NewTransaction) ([]int64, error) {
	ids, err := c.inner.CreateTransactionsFromRows(ctx, rows)
	if err := c.written("createTransactionsFromRows", cache.CreateTransactionsFromRows, err); err != nil {
		return nil, err
	}
	return ids, nil
}

// Tags

func (c *Cached) ListTags(ctx context.Context) ([]core.Tag, error) {
	return readList(c, "listTags", cache.KeyTags, func() ([]core.Tag, error) {
		return c.inner.ListTags(ctx)
	})
}

func (c *Cached) CreateTag(ctx context.Context, name string) (int64, error) {
	n, err := c.inner.CreateTag(ctx, name)
	return n, c.written("createTag", cache.CreateTag, err)
}

func (c *Cached) DeleteTag(ctx context.Context, tagID int64) error {
	return c.written("deleteTag", cache.DeleteTag, c.inner.DeleteTag(ctx, tagID))
}

// Budgets

func (c *Cached) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	return readList(c, "listBudgets", cache.KeyBudgets, func() ([]core.Budget, error) {
		return c.inner.ListBudgets(ctx)
	})
}

func (c *Cached) GetBudget(ctx context.Context, budgetID int64) (core.Budget, error) {
	return readOne(c, "getBudget", cache.NewKey(cache.KeyBudgets, id(budgetID)), func() (core.Budget, error) {
		return c.inner.GetBudget(ctx, budgetID)
	})
}

func (c *Cached) CreateBudget(ctx context.Context, month core.MonthKey, limits []core.CategoryLimit, carryOver core.Money) (int64, error) {
	n, err := c.inner.CreateBudget(ctx, month, limits, carryOver)
	return n, c.written("createBudget", cache.CreateBudget, err)
}

func (c *Cached) UpdateBudget(ctx context.Context, budgetID int64, month core.MonthKey, limits []core.CategoryLimit, carryOver core.Money) error {
	err := c.inner.UpdateBudget(ctx, budgetID, month, limits, carryOver)
	return c.written("updateBudget", cache.UpdateBudget, err, cache.NewKey(cache.KeyBudgets, id(budgetID)))
}

func (c *Cached) DeleteBudget(ctx context.Context, budgetID int64) error {
	return c.written("deleteBudget", cache.DeleteBudget, c.inner.DeleteBudget(ctx, budgetID))
}

func (c *Cached) GetBudgetSummary(ctx context.Context, month core.MonthKey) (core.BudgetSummary, error) {
	key := cache.NewKey(cache.KeyBudgetSummary, month.String())
	return readOne(c, "getBudgetSummary", key, func() (core.BudgetSummary, error) {
		return c.inner.GetBudgetSummary(ctx, month)
	})
}

// Reports

func (c *Cached) ListReports(ctx context.Context) ([]core.Report, error) {
	return readList(c, "listReports", cache.KeyReports, func() ([]core.Report, error) {
		return c.inner.ListReports(ctx)
	})
}

func (c *Cached) GetReport(ctx context.Context, reportID int64) (core.Report, error) {
	return readOne(c, "getReport", cache.NewKey(cache.KeyReports, id(reportID)), func() (core.Report, error) {
		return c.inner.GetReport(ctx, reportID)
	})
}

func (c *Cached) CreateReport(ctx context.Context, r core.Report) (int64, error) {
	n, err := c.inner.CreateReport(ctx, r)
	return n, c.written("createReport", cache.CreateReport, err)
}

func (c *Cached) UpdateReport(ctx context.Context, r core.Report) error {
	return c.written("updateReport", cache.UpdateReport, c.inner.UpdateReport(ctx, r))
}

func (c *Cached) DeleteReport(ctx context.Context, reportID int64) error {
	return c.written("deleteReport", cache.DeleteReport, c.inner.DeleteReport(ctx, reportID))
}

// Invoices are not cached: listing them also reconciles overdue status.

func (c *Cached) ListInvoices(ctx context.Context, f invoice.Filter) ([]invoice.Invoice, error) {
	out, err := c.inner.ListInvoices(ctx, f)
	return out, ports.Wrap("listInvoices", err)
}

func (c *Cached) GetInvoice(ctx context.Context, invoiceID int64) (invoice.Invoice, error) {
	out, err := c.inner.GetInvoice(ctx, invoiceID)
	return out, ports.Wrap("getInvoice", err)
}

func (c *Cached) CreateInvoice(ctx context.Context, inv invoice.Invoice) (int64, error) {
	n, err := c.inner.CreateInvoice(ctx, inv)
	return n, c.written("createInvoice", cache.CreateInvoice, err)
}

func (c *Cached) UpdateInvoice(ctx context.Context, inv invoice.Invoice) error {
	return c.written("updateInvoice", cache.UpdateInvoice, c.inner.UpdateInvoice(ctx, inv))
}

func (c *Cached) DeleteInvoice(ctx context.Context, invoiceID int64) error {
	return c.written("deleteInvoice", cache.DeleteInvoice, c.inner.DeleteInvoice(ctx, invoiceID))
}

// Bank connections change underneath the API when the worker syncs them, so
// they are read through.

func (c *Cached) ListBankConnections(ctx context.Context) ([]core.BankConnection, error) {
	out, err := c.inner.ListBankConnections(ctx)
	return out, ports.Wrap("listBankConnections", err)
}

func (c *Cached) GetBankConnection(ctx context.Context, connID int64) (core.BankConnection, error) {
	out, err := c.inner.GetBankConnection(ctx, connID)
	return out, ports.Wrap("getBankConnection", err)
}

func (c *Cached) CreateBankConnection(ctx context.Context, name, connectionType string) (int64, error) {
	n, err := c.inner.CreateBankConnection(ctx, name, connectionType)
	return n, c.written("createBankConnection", cache.CreateBankConnection, err)
}

func (c *Cached) UpdateBankConnection(ctx context.Context, conn core.BankConnection) error {
	return c.written("updateBankConnection", cache.UpdateBankConnection, c.inner.UpdateBankConnection(ctx, conn))
}

func (c *Cached) DeleteBankConnection(ctx context.Context, connID int64) error {
	return c.written("deleteBankConnection", cache.DeleteBankConnection, c.inner.DeleteBankConnection(ctx, connID))
}
