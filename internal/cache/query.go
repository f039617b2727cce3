package cache

import (
	"strings"
	"time"
)

// Key is a hierarchical query key such as "budgets" or "budgets/12".
// Invalidating a key also drops every key below it.
type Key string

const (
	KeyAccounts        Key = "accounts"
	KeyCategories      Key = "categories"
	KeyTransactions    Key = "transactions"
	KeyTags            Key = "tags"
	KeyBudgets         Key = "budgets"
	KeyBudgetSummary   Key = "budgetSummary"
	KeyReports         Key = "reports"
	KeyInvoices        Key = "invoices"
	KeyBankConnections Key = "bankConnections"
	KeySettings        Key = "settings"
)

// NewKey joins parts with "/".
func NewKey(root Key, parts ...string) Key {
	if len(parts) == 0 {
		return root
	}
	return Key(string(root) + "/" + strings.Join(parts, "/"))
}

// Covers reports whether other is k or lies below k.
func (k Key) Covers(other Key) bool {
	return other == k || strings.HasPrefix(string(other), string(k)+"/")
}

// Mutation names a write operation.
type Mutation string

const (
	CreateAccount              Mutation = "createAccount"
	CreateCategory             Mutation = "createCategory"
	CreateTransaction          Mutation = "createTransaction"
	CreateTransactionsFromRows Mutation = "createTransactionsFromRows"
	CreateTag                  Mutation = "createTag"
	DeleteTag                  Mutation = "deleteTag"
	CreateBudget               Mutation = "createBudget"
	UpdateBudget               Mutation = "updateBudget"
	DeleteBudget               Mutation = "deleteBudget"
	CreateReport               Mutation = "createReport"
	UpdateReport               Mutation = "updateReport"
	DeleteReport               Mutation = "deleteReport"
	CreateInvoice              Mutation = "createInvoice"
	UpdateInvoice              Mutation = "updateInvoice"
	DeleteInvoice              Mutation = "deleteInvoice"
	CreateBankConnection       Mutation = "createBankConnection"
	UpdateBankConnection       Mutation = "updateBankConnection"
	DeleteBankConnection       Mutation = "deleteBankConnection"
	UpdateSettings             Mutation = "updateSettings"
)

// InvalidationMap declares which keys each write makes stale.
type InvalidationMap map[Mutation][]Key

// DefaultInvalidations is the invalidation map for the finance backend.
// Transactions move account balances and budget actuals, so writing them
// also invalidates accounts and budget summaries.
var DefaultInvalidations = InvalidationMap{
	CreateAccount:              {KeyAccounts},
	CreateCategory:             {KeyCategories},
	CreateTransaction:          {KeyTransactions, KeyAccounts, KeyBudgetSummary},
	CreateTransactionsFromRows: {KeyTransactions, KeyAccounts, KeyBudgetSummary},
	CreateTag:                  {KeyTags},
	DeleteTag:                  {KeyTags, KeyTransactions},
	CreateBudget:               {KeyBudgets, KeyBudgetSummary},
	UpdateBudget:               {KeyBudgets, KeyBudgetSummary},
	DeleteBudget:               {KeyBudgets, KeyBudgetSummary},
	CreateReport:               {KeyReports},
	UpdateReport:               {KeyReports},
	DeleteReport:               {KeyReports},
	CreateInvoice:              {KeyInvoices},
	UpdateInvoice:              {KeyInvoices},
	DeleteInvoice:              {KeyInvoices},
	CreateBankConnection:       {KeyBankConnections},
	UpdateBankConnection:       {KeyBankConnections},
	DeleteBankConnection:       {KeyBankConnections},
	UpdateSettings:             {KeySettings},
}

// QueryCache is a keyed cache invalidated by writes through an InvalidationMap.
type QueryCache[T any] struct {
	store   Cache[T]
	onWrite InvalidationMap
}

// NewQueryCache wraps an LRU cache of the given size and TTL.
func NewQueryCache[T any](maxSize int, ttl time.Duration, onWrite InvalidationMap) *QueryCache[T] {
	return &QueryCache[T]{store: NewLRUCache[T](maxSize, ttl), onWrite: onWrite}
}

// NewQueryCacheWith uses an existing store.
func NewQueryCacheWith[T any](store Cache[T], onWrite InvalidationMap) *QueryCache[T] {
	return &QueryCache[T]{store: store, onWrite: onWrite}
}

func (q *QueryCache[T]) Get(key Key) (T, bool) { return q.store.Get(string(key)) }

func (q *QueryCache[T]) Set(key Key, v T) { q.store.Set(string(key), v) }

// Invalidate drops the keys and everything below them.
func (q *QueryCache[T]) Invalidate(keys ...Key) int {
	return q.store.DeleteFunc(func(stored string) bool {
		for _, k := range keys {
			if k.Covers(Key(stored)) {
				return true
			}
		}
		return false
	})
}

// Written applies the invalidation declared for m, plus any extra keys.
func (q *QueryCache[T]) Written(m Mutation, extra ...Key) int {
	keys := append(append([]Key(nil), q.onWrite[m]...), extra...)
	if len(keys) == 0 {
		return 0
	}
	return q.Invalidate(keys...)
}

// Size returns the number of cached entries.
func (q *QueryCache[T]) Size() int { return q.store.Size() }

// CleanExpired forwards to the store when it supports expiry.
func (q *QueryCache[T]) CleanExpired() int {
	if c, ok := q.store.(Cleaner); ok {
		return c.CleanExpired()
	}
	return 0
}
