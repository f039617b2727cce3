package sheets

import (
	"context"
)

// Ports for outbound adapters.
type (
	// TransactionExporter replaces a sheet's contents with an export matrix,
	// header row first, and returns the range it wrote.
	TransactionExporter interface {
		ExportTransactions(ctx context.Context, records [][]string) (rangeRef string, err error)
	}
)
