package csvimport

import (
	"fmt"
	"strings"
	"time"

	"firefly/internal/core"
)

// dateLayouts are tried in order; all are interpreted in UTC.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// ParseDate parses the date column into milliseconds since epoch.
func ParseDate(s string) (int64, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, core.ErrInvalidDate
}

// Options tunes validation.
type Options struct {
	// CreateMissingTags accepts tag names with no match; the import workflow
	// creates them before submitting. Off by default: unknown tags are rejected
	// like unknown accounts and categories.
	CreateMissingTags bool
}

// ValidationResult lists every problem found in a row. A row is valid iff Errors is empty.
type ValidationResult struct {
	IsValid bool
	Errors  []string
}

// Reference is the snapshot of named records rows are resolved against.
type Reference struct {
	accounts   map[string][]core.Account
	categories map[string][]core.Category
	tags       map[string][]core.Tag
}

// NewReference indexes records by case-folded name.
func NewReference(accounts []core.Account, categories []core.Category, tags []core.Tag) *Reference {
	ref := &Reference{
		accounts:   make(map[string][]core.Account, len(accounts)),
		categories: make(map[string][]core.Category, len(categories)),
		tags:       make(map[string][]core.Tag, len(tags)),
	}
	for _, a := range accounts {
		k := fold(a.Name)
		ref.accounts[k] = append(ref.accounts[k], a)
	}
	for _, c := range categories {
		k := fold(c.Name)
		ref.categories[k] = append(ref.categories[k], c)
	}
	for _, t := range tags {
		k := fold(t.Name)
		ref.tags[k] = append(ref.tags[k], t)
	}
	return ref
}

// AddTag makes a newly created tag resolvable.
func (r *Reference) AddTag(t core.Tag) {
	k := fold(t.Name)
	r.tags[k] = append(r.tags[k], t)
}

// HasTag reports whether a tag with this name exists.
func (r *Reference) HasTag(name string) bool {
	return len(r.tags[fold(name)]) > 0
}

func fold(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Validate checks one row, accumulating all applicable errors.
func Validate(row Row, ref *Reference, opts Options) ValidationResult {
	var errs []string

	if row.Date == "" {
		errs = append(errs, "Date is required")
	} else if _, err := ParseDate(row.Date); err != nil {
		errs = append(errs, "Invalid date format")
	}

	if row.AccountName == "" {
		errs = append(errs, "Account name is required")
	} else {
		switch n := len(ref.accounts[fold(row.AccountName)]); {
		case n == 0:
			errs = append(errs, fmt.Sprintf("Account \"%s\" not found", row.AccountName))
		case n > 1:
			errs = append(errs, fmt.Sprintf("Account \"%s\" is ambiguous", row.AccountName))
		}
	}

	if row.CategoryName == "" {
		errs = append(errs, "Category name is required")
	} else {
		switch n := len(ref.categories[fold(row.CategoryName)]); {
		case n == 0:
			errs = append(errs, fmt.Sprintf("Category \"%s\" not found", row.CategoryName))
		case n > 1:
			errs = append(errs, fmt.Sprintf("Category \"%s\" is ambiguous", row.CategoryName))
		}
	}

	if row.Amount == "" {
		errs = append(errs, "Amount is required")
	} else if m, err := core.ParseAmount(row.Amount); err != nil || m.IsZero() {
		errs = append(errs, "Invalid amount")
	}

	if !opts.CreateMissingTags {
		for _, name := range row.TagNames() {
			if !ref.HasTag(name) {
				errs = append(errs, fmt.Sprintf("Tag \"%s\" not found", name))
			}
		}
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// ValidateAll validates rows independently; results pair one-to-one with rows.
func ValidateAll(rows []Row, ref *Reference, opts Options) []ValidationResult {
	out := make([]ValidationResult, len(rows))
	for i, row := range rows {
		out[i] = Validate(row, ref, opts)
	}
	return out
}

// MissingTags lists tag names referenced by rows that do not exist yet,
// deduplicated case-insensitively in first-seen order.
func MissingTags(rows []Row, ref *Reference) []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range rows {
		for _, name := range row.TagNames() {
			k := fold(name)
			if seen[k] || ref.HasTag(name) {
				continue
			}
			seen[k] = true
			out = append(out, name)
		}
	}
	return out
}

// Resolve maps a valid row to a creation request. The amount sign follows the
// category: expense categories produce negative amounts, income positive.
func Resolve(row Row, ref *Reference) (core.NewTransaction, error) {
	date, err := ParseDate(row.Date)
	if err != nil {
		return core.NewTransaction{}, err
	}
	accounts := ref.accounts[fold(row.AccountName)]
	if len(accounts) != 1 {
		return core.NewTransaction{}, fmt.Errorf("account %q: %w", row.AccountName, core.ErrNotFound)
	}
	cats := ref.categories[fold(row.CategoryName)]
	if len(cats) != 1 {
		return core.NewTransaction{}, fmt.Errorf("category %q: %w", row.CategoryName, core.ErrNotFound)
	}
	amount, err := core.ParseAmount(row.Amount)
	if err != nil {
		return core.NewTransaction{}, err
	}
	if amount.IsZero() {
		return core.NewTransaction{}, core.ErrInvalidAmount
	}

	var tagIDs []int64
	for _, name := range row.TagNames() {
		tags := ref.tags[fold(name)]
		if len(tags) == 0 {
			return core.NewTransaction{}, fmt.Errorf("tag %q: %w", name, core.ErrNotFound)
		}
		tagIDs = append(tagIDs, tags[0].ID)
	}

	return core.NewTransaction{
		AccountID:  accounts[0].ID,
		CategoryID: cats[0].ID,
		Amount:     core.SignedAmount(cats[0], amount),
		Date:       date,
		TagIDs:     core.DedupeIDs(tagIDs),
	}, nil
}
