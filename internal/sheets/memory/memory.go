package memory

import (
	"context"
	"fmt"
	"sync"

	"firefly/internal/sheets"
)

var _ sheets.TransactionExporter = (*Exporter)(nil)

// Exporter keeps the last export in memory. It stands in for Google Sheets
// in development and tests.
type Exporter struct {
	mu      sync.Mutex
	sheet   string
	records [][]string
	exports int
}

func New(sheet string) *Exporter {
	if sheet == "" {
		sheet = "Transactions"
	}
	return &Exporter{sheet: sheet}
}

// ExportTransactions replaces the stored matrix and returns a synthetic range.
func (e *Exporter) ExportTransactions(_ context.Context, records [][]string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records = cloneRecords(records)
	e.exports++
	return fmt.Sprintf("mem:%s!A1:%d", e.sheet, len(records)), nil
}

// Records returns a copy of the last exported matrix.
func (e *Exporter) Records() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneRecords(e.records)
}

// Exports counts completed exports.
func (e *Exporter) Exports() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exports
}

func cloneRecords(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = append([]string(nil), row...)
	}
	return out
}
