package core

import (
	"errors"
	"sort"
	"strings"
	"time"
)

const (
	CategoryBreakdown ReportType = "categoryBreakdown"
	IncomeVsExpenses  ReportType = "incomeVsExpenses"
)

type (
	ReportType string

	Money struct {
		Cents int64
	}

	Account struct {
		ID      int64
		Name    string
		Balance Money // running sum of the account's transactions, maintained by the backend
	}

	Category struct {
		ID        int64
		Name      string
		IsExpense bool
	}

	Tag struct {
		ID   int64
		Name string
	}

	Transaction struct {
		ID         int64
		AccountID  int64
		CategoryID int64
		Amount     Money // signed: expense negative, income positive
		Date       int64 // milliseconds since epoch
		TagIDs     []int64
	}

	// NewTransaction is a transaction creation request.
	NewTransaction struct {
		AccountID  int64
		CategoryID int64
		Amount     Money
		Date       int64
		TagIDs     []int64
	}

	CategoryLimit struct {
		CategoryID int64
		Limit      Money
	}

	Budget struct {
		ID        int64
		Month     MonthKey
		Limits    []CategoryLimit
		CarryOver Money
	}

	Report struct {
		ID        int64
		Name      string
		Type      ReportType
		Start     int64 // inclusive, ms
		End       int64 // inclusive, ms
		Filters   string
		CreatedAt int64
		UpdatedAt int64
	}

	UserSettings struct {
		Currency string
	}
)

var (
	ErrInvalidMonth        = errors.New("invalid month")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidDate         = errors.New("invalid date")
	ErrEmptyName           = errors.New("empty name")
	ErrNotFound            = errors.New("not found")
	ErrDuplicateMonth      = errors.New("budget already exists for month")
	ErrDuplicateName       = errors.New("name already exists")
	ErrUnknownCategory     = errors.New("unknown category")
	ErrIncomeCategoryLimit = errors.New("limits apply only to expense categories")
	ErrDuplicateLimit      = errors.New("duplicate category limit")
	ErrNegativeLimit       = errors.New("limit must not be negative")
	ErrInvalidReportType   = errors.New("invalid report type")
	ErrInvalidRange        = errors.New("end date must not be before start date")
)

// Millis converts t to milliseconds since epoch.
func Millis(t time.Time) int64 { return t.UnixMilli() }

// Time returns the transaction date as a UTC time.
func (t Transaction) Time() time.Time { return time.UnixMilli(t.Date).UTC() }

// HasTag reports whether the transaction carries the tag.
func (t Transaction) HasTag(id int64) bool {
	for _, tid := range t.TagIDs {
		if tid == id {
			return true
		}
	}
	return false
}

// SignedAmount applies the category sign convention to a magnitude:
// expense categories yield a negative amount, income categories a positive one.
func SignedAmount(cat Category, amount Money) Money {
	if cat.IsExpense {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

// DedupeIDs returns ids sorted with duplicates removed.
func DedupeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := make([]int64, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	return nil
}

func (a Account) Validate() error  { return validateName(a.Name) }
func (c Category) Validate() error { return validateName(c.Name) }
func (t Tag) Validate() error      { return validateName(t.Name) }

func (n NewTransaction) Validate() error {
	if n.AccountID <= 0 {
		return errors.New("account is required")
	}
	if n.CategoryID <= 0 {
		return errors.New("category is required")
	}
	if n.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if n.Date <= 0 {
		return ErrInvalidDate
	}
	return nil
}

func (rt ReportType) IsValid() bool {
	switch rt {
	case CategoryBreakdown, IncomeVsExpenses:
		return true
	}
	return false
}

func (r Report) Validate() error {
	if err := validateName(r.Name); err != nil {
		return err
	}
	if !r.Type.IsValid() {
		return ErrInvalidReportType
	}
	if r.End < r.Start {
		return ErrInvalidRange
	}
	return nil
}

func (b Budget) Validate() error {
	if err := b.Month.Validate(); err != nil {
		return err
	}
	seen := make(map[int64]bool, len(b.Limits))
	for _, l := range b.Limits {
		if seen[l.CategoryID] {
			return ErrDuplicateLimit
		}
		seen[l.CategoryID] = true
		if l.Limit.IsNegative() {
			return ErrNegativeLimit
		}
	}
	return nil
}

// TotalLimit sums the budget's category limits.
func (b Budget) TotalLimit() Money {
	var total Money
	for _, l := range b.Limits {
		total = total.Add(l.Limit)
	}
	return total
}

// LimitFor returns the limit for a category and whether one is set.
func (b Budget) LimitFor(categoryID int64) (Money, bool) {
	for _, l := range b.Limits {
		if l.CategoryID == categoryID {
			return l.Limit, true
		}
	}
	return Money{}, false
}

// CategoryIndex maps category IDs to categories for lookups during aggregation.
func CategoryIndex(cats []Category) map[int64]Category {
	m := make(map[int64]Category, len(cats))
	for _, c := range cats {
		m[c.ID] = c
	}
	return m
}
