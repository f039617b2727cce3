package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"firefly/internal/invoice"
	"firefly/internal/ports"
)

// InvoiceService saves invoices and keeps their overdue status current.
type InvoiceService struct {
	backend ports.Backend
	now     func() time.Time
}

func NewInvoiceService(backend ports.Backend, now func() time.Time) *InvoiceService {
	if now == nil {
		now = time.Now
	}
	return &InvoiceService{backend: backend, now: now}
}

// List returns the invoices matching f. Sent invoices past their due date
// are moved to Overdue and saved before filtering.
func (s *InvoiceService) List(ctx context.Context, f invoice.Filter) ([]invoice.Invoice, error) {
	all, err := s.backend.ListInvoices(ctx, invoice.Filter{})
	if err != nil {
		return nil, err
	}
	for i := range all {
		if err := s.refresh(ctx, &all[i]); err != nil {
			return nil, err
		}
	}
	return f.Apply(all), nil
}

func (s *InvoiceService) Get(ctx context.Context, id int64) (invoice.Invoice, error) {
	inv, err := s.backend.GetInvoice(ctx, id)
	if err != nil {
		return invoice.Invoice{}, err
	}
	if err := s.refresh(ctx, &inv); err != nil {
		return invoice.Invoice{}, err
	}
	return inv, nil
}

func (s *InvoiceService) refresh(ctx context.Context, inv *invoice.Invoice) error {
	if !inv.MarkOverdue(s.now()) {
		return nil
	}
	if err := s.backend.UpdateInvoice(ctx, *inv); err != nil {
		return fmt.Errorf("mark invoice %d overdue: %w", inv.ID, err)
	}
	slog.InfoContext(ctx, "Invoice marked overdue", "invoice_id", inv.ID, "number", inv.Number)
	return nil
}

// Save creates inv, or updates it when inv.ID is set. A missing status
// means Draft. Totals are always recomputed from the items.
func (s *InvoiceService) Save(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	if inv.Status == nil {
		inv.Status = invoice.Draft{}
	}
	if err := inv.Validate(); err != nil {
		return invoice.Invoice{}, invalid(err)
	}
	if err := inv.Recalculate(); err != nil {
		return invoice.Invoice{}, invalid(err)
	}

	if inv.ID == 0 {
		id, err := s.backend.CreateInvoice(ctx, inv)
		if err != nil {
			return invoice.Invoice{}, fmt.Errorf("create invoice: %w", err)
		}
		inv.ID = id
	} else if err := s.backend.UpdateInvoice(ctx, inv); err != nil {
		return invoice.Invoice{}, fmt.Errorf("update invoice: %w", err)
	}
	return s.backend.GetInvoice(ctx, inv.ID)
}

func (s *InvoiceService) Delete(ctx context.Context, id int64) error {
	return s.backend.DeleteInvoice(ctx, id)
}
