// Package memory is an in-process Backend, seeded from a YAML file. It backs
// local development and doubles as a test fixture.
package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"firefly/internal/budget"
	"firefly/internal/core"
	"firefly/internal/invoice"
	"firefly/internal/ports"
)

var _ ports.Backend = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	now    func() time.Time
	engine budget.Engine

	nextID      int64
	accounts    []core.Account
	categories  []core.Category
	tags        []core.Tag
	txs         []core.Transaction
	budgets     []core.Budget
	reports     []core.Report
	invoices    []invoice.Invoice
	connections []core.BankConnection
}

// Option configures a Store.
type Option func(*Store)

// WithLocation sets the time zone used for month boundaries in budget summaries.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.engine.Location = loc }
}

// WithClock replaces time.Now for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) stamp() int64 { return s.now().UnixMilli() }

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, core.ErrNotFound)
}

// Accounts

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balances := make(map[int64]core.Money, len(s.accounts))
	for _, tx := range s.txs {
		balances[tx.AccountID] = balances[tx.AccountID].Add(tx.Amount)
	}
	out := make([]core.Account, len(s.accounts))
	for i, a := range s.accounts {
		a.Balance = balances[a.ID]
		out[i] = a
	}
	return out, nil
}

func (s *Store) CreateAccount(_ context.Context, name string) (int64, error) {
	a := core.Account{Name: strings.TrimSpace(name)}
	if err := a.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	s.accounts = append(s.accounts, a)
	return a.ID, nil
}

// Categories

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.categories...), nil
}

func (s *Store) CreateCategory(_ context.Context, name string, isExpense bool) (int64, error) {
	c := core.Category{Name: strings.TrimSpace(name), IsExpense: isExpense}
	if err := c.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.categories = append(s.categories, c)
	return c.ID, nil
}

// Transactions

func cloneTx(tx core.Transaction) core.Transaction {
	tx.TagIDs = append([]int64(nil), tx.TagIDs...)
	return tx
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.txs))
	for i, tx := range s.txs {
		out[i] = cloneTx(tx)
	}
	return out, nil
}

func (s *Store) ListTransactionsByDateRange(_ context.Context, start, end int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.txs {
		if tx.Date >= start && tx.Date <= end {
			out = append(out, cloneTx(tx))
		}
	}
	return out, nil
}

// checkTx verifies references; callers hold the lock.
func (s *Store) checkTx(n core.NewTransaction) error {
	if err := n.Validate(); err != nil {
		return err
	}
	if !s.hasAccount(n.AccountID) {
		return notFound("account", n.AccountID)
	}
	if !s.hasCategory(n.CategoryID) {
		return notFound("category", n.CategoryID)
	}
	for _, id := range n.TagIDs {
		if !s.hasTag(id) {
			return notFound("tag", id)
		}
	}
	return nil
}

func (s *Store) insertTx(n core.NewTransaction) int64 {
	tx := core.Transaction{
		ID:         s.id(),
		AccountID:  n.AccountID,
		CategoryID: n.CategoryID,
		Amount:     n.Amount,
		Date:       n.Date,
		TagIDs:     core.DedupeIDs(n.TagIDs),
	}
	s.txs = append(s.txs, tx)
	return tx.ID
}

func (s *Store) CreateTransaction(_ context.Context, n core.NewTransaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkTx(n); err != nil {
		return 0, err
	}
	return s.insertTx(n), nil
}

func (s *Store) CreateTransactionsFromRows(_ context.Context, rows []core.NewTransaction) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range rows {
		if err := s.checkTx(n); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	ids := make([]int64, len(rows))
	for i, n := range rows {
		ids[i] = s.insertTx(n)
	}
	return ids, nil
}

func (s *Store) hasAccount(id int64) bool {
	for _, a := range s.accounts {
		if a.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) hasCategory(id int64) bool {
	for _, c := range s.categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) hasTag(id int64) bool {
	for _, t := range s.tags {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Tags

func (s *Store) ListTags(_ context.Context) ([]core.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Tag(nil), s.tags...), nil
}

func (s *Store) CreateTag(_ context.Context, name string) (int64, error) {
	t := core.Tag{Name: strings.TrimSpace(name)}
	if err := t.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tags {
		if strings.EqualFold(existing.Name, t.Name) {
			return 0, fmt.Errorf("tag %q: %w", t.Name, core.ErrDuplicateName)
		}
	}
	t.ID = s.id()
	s.tags = append(s.tags, t)
	return t.ID, nil
}

func (s *Store) DeleteTag(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, t := range s.tags {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return notFound("tag", id)
	}
	s.tags = append(s.tags[:idx], s.tags[idx+1:]...)
	for i := range s.txs {
		kept := s.txs[i].TagIDs[:0]
		for _, tid := range s.txs[i].TagIDs {
			if tid != id {
				kept = append(kept, tid)
			}
		}
		s.txs[i].TagIDs = kept
	}
	return nil
}

// Budgets

func cloneBudget(b core.Budget) core.Budget {
	b.Limits = append([]core.CategoryLimit(nil), b.Limits...)
	return b
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Budget, len(s.budgets))
	for i, b := range s.budgets {
		out[i] = cloneBudget(b)
	}
	return out, nil
}

func (s *Store) GetBudget(_ context.Context, id int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.budgets {
		if b.ID == id {
			return cloneBudget(b), nil
		}
	}
	return core.Budget{}, notFound("budget", id)
}

func (s *Store) CreateBudget(_ context.Context, month core.MonthKey, limits []core.CategoryLimit, carryOver core.Money) (int64, error) {
	b := core.Budget{Month: month, Limits: append([]core.CategoryLimit(nil), limits...), CarryOver: carryOver}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := budget.FindByMonth(s.budgets, month); ok {
		return 0, fmt.Errorf("month %s: %w", month, core.ErrDuplicateMonth)
	}
	b.ID = s.id()
	s.budgets = append(s.budgets, b)
	return b.ID, nil
}

func (s *Store) UpdateBudget(_ context.Context, id int64, month core.MonthKey, limits []core.CategoryLimit, carryOver core.Money) error {
	b := core.Budget{ID: id, Month: month, Limits: append([]core.CategoryLimit(nil), limits...), CarryOver: carryOver}
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, existing := range s.budgets {
		if existing.ID == id {
			idx = i
		} else if existing.Month == month {
			return fmt.Errorf("month %s: %w", month, core.ErrDuplicateMonth)
		}
	}
	if idx < 0 {
		return notFound("budget", id)
	}
	s.budgets[idx] = b
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.budgets {
		if b.ID == id {
			s.budgets = append(s.budgets[:i], s.budgets[i+1:]...)
			return nil
		}
	}
	return notFound("budget", id)
}

func (s *Store) GetBudgetSummary(_ context.Context, month core.MonthKey) (core.BudgetSummary, error) {
	if err := month.Validate(); err != nil {
		return core.BudgetSummary{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Summary(month, s.budgets, s.txs, s.categories), nil
}

// Reports

func (s *Store) ListReports(_ context.Context) ([]core.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Report(nil), s.reports...), nil
}

func (s *Store) GetReport(_ context.Context, id int64) (core.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return core.Report{}, notFound("report", id)
}

func (s *Store) CreateReport(_ context.Context, r core.Report) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.id()
	r.CreatedAt = s.stamp()
	r.UpdatedAt = r.CreatedAt
	s.reports = append(s.reports, r)
	return r.ID, nil
}

func (s *Store) UpdateReport(_ context.Context, r core.Report) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.reports {
		if existing.ID == r.ID {
			r.CreatedAt = existing.CreatedAt
			r.UpdatedAt = s.stamp()
			s.reports[i] = r
			return nil
		}
	}
	return notFound("report", r.ID)
}

func (s *Store) DeleteReport(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.reports {
		if r.ID == id {
			s.reports = append(s.reports[:i], s.reports[i+1:]...)
			return nil
		}
	}
	return notFound("report", id)
}

// Invoices

func cloneInvoice(inv invoice.Invoice) invoice.Invoice {
	inv.Items = append([]invoice.LineItem(nil), inv.Items...)
	return inv
}

func (s *Store) ListInvoices(_ context.Context, f invoice.Filter) ([]invoice.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []invoice.Invoice
	for _, inv := range f.Apply(s.invoices) {
		out = append(out, cloneInvoice(inv))
	}
	return out, nil
}

func (s *Store) GetInvoice(_ context.Context, id int64) (invoice.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invoices {
		if inv.ID == id {
			return cloneInvoice(inv), nil
		}
	}
	return invoice.Invoice{}, notFound("invoice", id)
}

func (s *Store) prepareInvoice(inv *invoice.Invoice) error {
	if err := inv.Validate(); err != nil {
		return err
	}
	if err := inv.Recalculate(); err != nil {
		return err
	}
	for i := range inv.Items {
		if inv.Items[i].ID == 0 {
			inv.Items[i].ID = s.id()
		}
	}
	return nil
}

func (s *Store) CreateInvoice(_ context.Context, inv invoice.Invoice) (int64, error) {
	inv = cloneInvoice(inv)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.prepareInvoice(&inv); err != nil {
		return 0, err
	}
	inv.ID = s.id()
	if inv.Number == "" {
		inv.Number = invoice.NextNumber(core.MonthKeyOf(time.UnixMilli(inv.IssueDate).UTC()), s.invoices)
	}
	inv.CreatedAt = s.stamp()
	inv.UpdatedAt = inv.CreatedAt
	s.invoices = append(s.invoices, inv)
	return inv.ID, nil
}

func (s *Store) UpdateInvoice(_ context.Context, inv invoice.Invoice) error {
	inv = cloneInvoice(inv)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.invoices {
		if existing.ID != inv.ID {
			continue
		}
		if err := s.prepareInvoice(&inv); err != nil {
			return err
		}
		if inv.Number == "" {
			inv.Number = existing.Number
		}
		inv.CreatedAt = existing.CreatedAt
		inv.UpdatedAt = s.stamp()
		s.invoices[i] = inv
		return nil
	}
	return notFound("invoice", inv.ID)
}

func (s *Store) DeleteInvoice(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, inv := range s.invoices {
		if inv.ID == id {
			s.invoices = append(s.invoices[:i], s.invoices[i+1:]...)
			return nil
		}
	}
	return notFound("invoice", id)
}

// Bank connections

func (s *Store) ListBankConnections(_ context.Context) ([]core.BankConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.BankConnection(nil), s.connections...), nil
}

func (s *Store) GetBankConnection(_ context.Context, id int64) (core.BankConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.connections {
		if c.ID == id {
			return c, nil
		}
	}
	return core.BankConnection{}, notFound("bank connection", id)
}

func (s *Store) CreateBankConnection(_ context.Context, name, connectionType string) (int64, error) {
	c := core.BankConnection{Name: strings.TrimSpace(name), ConnectionType: connectionType, Status: core.StatusIdle{}}
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if c.ConnectionType == "" {
		c.ConnectionType = core.MockBankConnection
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	c.CreatedAt = s.stamp()
	s.connections = append(s.connections, c)
	return c.ID, nil
}

func (s *Store) UpdateBankConnection(_ context.Context, c core.BankConnection) error {
	if c.Status == nil {
		return errors.New("bank connection status is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.connections {
		if existing.ID == c.ID {
			existing.Status = c.Status
			existing.LastSync = c.LastSync
			existing.NextSync = c.NextSync
			existing.RetryAttempts = c.RetryAttempts
			s.connections[i] = existing
			return nil
		}
	}
	return notFound("bank connection", c.ID)
}

func (s *Store) DeleteBankConnection(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.connections {
		if c.ID == id {
			s.connections = append(s.connections[:i], s.connections[i+1:]...)
			return nil
		}
	}
	return notFound("bank connection", id)
}

// Seed is the YAML layout of a seed file.
type Seed struct {
	Accounts []struct {
		Name string `yaml:"name"`
	} `yaml:"accounts"`
	Categories []struct {
		Name    string `yaml:"name"`
		Expense bool   `yaml:"expense"`
	} `yaml:"categories"`
	Tags []string `yaml:"tags"`
}

// DefaultSeed is used when no seed file is available.
const DefaultSeed = `
accounts:
  - name: Checking
  - name: Savings
categories:
  - {name: Groceries, expense: true}
  - {name: Rent, expense: true}
  - {name: Utilities, expense: true}
  - {name: Salary, expense: false}
tags: [recurring]
`

// NewFromFile seeds a store from a YAML file, falling back to DefaultSeed when
// path is empty or missing. Duplicate and blank names are dropped.
func NewFromFile(path string, opts ...Option) (*Store, error) {
	data := []byte(DefaultSeed)
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			data = b
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read seed file: %w", err)
		}
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	s := New(opts...)
	ctx := context.Background()
	var names []string
	for _, a := range seed.Accounts {
		names = append(names, a.Name)
	}
	for _, n := range dedupe(names) {
		if _, err := s.CreateAccount(ctx, n); err != nil {
			return nil, err
		}
	}
	seen := map[string]bool{}
	for _, c := range seed.Categories {
		k := strings.ToLower(strings.TrimSpace(c.Name))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		if _, err := s.CreateCategory(ctx, c.Name, c.Expense); err != nil {
			return nil, err
		}
	}
	for _, n := range dedupe(seed.Tags) {
		if _, err := s.CreateTag(ctx, n); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// dedupe trims names and drops blanks and case-insensitive repeats, preserving order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		k := strings.ToLower(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}
