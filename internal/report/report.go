package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"firefly/internal/core"
)

// ID is a record identifier that reads from JSON numbers or numeric strings
// and is written as a string.
type ID int64

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(id), 10))
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", string(b))
	}
	*id = ID(n)
	return nil
}

// Filters narrows the transactions a saved report covers. A nil or empty
// field does not filter. A transaction matches TagIDs if it carries any of them.
type Filters struct {
	CategoryID *ID  `json:"categoryId,omitempty"`
	AccountID  *ID  `json:"accountId,omitempty"`
	TagIDs     []ID `json:"tagIds,omitempty"`
}

// ParseFilters decodes a stored filter blob. Empty input means no filters.
func ParseFilters(raw string) (Filters, error) {
	var f Filters
	if strings.TrimSpace(raw) == "" || raw == "null" {
		return f, nil
	}
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return Filters{}, fmt.Errorf("parse report filters: %w", err)
	}
	return f, nil
}

// Encode returns the stored form; no filters encode as "".
func (f Filters) Encode() string {
	if f.IsEmpty() {
		return ""
	}
	b, _ := json.Marshal(f)
	return string(b)
}

func (f Filters) IsEmpty() bool {
	return f.CategoryID == nil && f.AccountID == nil && len(f.TagIDs) == 0
}

func (f Filters) Match(tx core.Transaction) bool {
	if f.CategoryID != nil && tx.CategoryID != int64(*f.CategoryID) {
		return false
	}
	if f.AccountID != nil && tx.AccountID != int64(*f.AccountID) {
		return false
	}
	if len(f.TagIDs) > 0 {
		for _, id := range f.TagIDs {
			if tx.HasTag(int64(id)) {
				return true
			}
		}
		return false
	}
	return true
}

// Apply keeps matching transactions, preserving order.
func (f Filters) Apply(txs []core.Transaction) []core.Transaction {
	if f.IsEmpty() {
		return txs
	}
	var out []core.Transaction
	for _, tx := range txs {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// CategoryTotal is a signed per-category sum with its transaction count.
type CategoryTotal struct {
	CategoryID int64
	Name       string
	Total      core.Money
	Count      int
}

// CategoryTotals sums every known category, income and expense alike, ordered
// by magnitude with first-seen order on ties.
func CategoryTotals(txs []core.Transaction, cats []core.Category) []CategoryTotal {
	index := core.CategoryIndex(cats)
	acc := newAccumulator()
	for _, tx := range txs {
		if _, ok := index[tx.CategoryID]; !ok {
			continue
		}
		acc.add(tx.CategoryID, tx.Amount)
	}
	out := make([]CategoryTotal, 0, len(acc.order))
	for _, id := range acc.order {
		out = append(out, CategoryTotal{CategoryID: id, Name: index[id].Name, Total: acc.totals[id], Count: acc.counts[id]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total.Abs().Cents > out[j].Total.Abs().Cents })
	return out
}

// Result is the output of running a saved report. Exactly one of the
// type-specific fields is set, matching Type.
type Result struct {
	Type             core.ReportType
	TransactionCount int
	Breakdown        []CategoryShare
	Totals           []CategoryTotal
	IncomeVsExpenses *IncomeExpenseSummary
}

// Run evaluates a saved report over a transaction snapshot: it applies the
// date window and filters, then the aggregation for the report's type.
func Run(r core.Report, txs []core.Transaction, cats []core.Category) (Result, error) {
	if err := r.Validate(); err != nil {
		return Result{}, err
	}
	filters, err := ParseFilters(r.Filters)
	if err != nil {
		return Result{}, err
	}
	scoped := filters.Apply(Window(txs, r.Start, r.End))
	res := Result{Type: r.Type, TransactionCount: len(scoped)}
	switch r.Type {
	case core.CategoryBreakdown:
		res.Breakdown = CategoryBreakdown(scoped, cats)
		res.Totals = CategoryTotals(scoped, cats)
	case core.IncomeVsExpenses:
		s := IncomeVsExpenses(scoped, cats)
		res.IncomeVsExpenses = &s
	}
	return res, nil
}
