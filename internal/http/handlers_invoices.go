package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"firefly/internal/invoice"
	"firefly/internal/services"
)

type invoiceRequest struct {
	Number       string           `json:"number"`
	CustomerID   int64            `json:"customerId"`
	CustomerName string           `json:"customerName"`
	IssueDate    int64            `json:"issueDate"`
	DueDate      int64            `json:"dueDate"`
	Status       string           `json:"status"`
	Items        []lineItemJSON   `json:"items"`
	TaxRate      *decimal.Decimal `json:"taxRate"`
	Notes        string           `json:"notes"`
}

// invoice converts the request. A missing tax rate means the default rate;
// a missing status means Draft.
func (req invoiceRequest) invoice(id int64) (invoice.Invoice, error) {
	inv := invoice.Invoice{
		ID:           id,
		Number:       strings.TrimSpace(req.Number),
		CustomerID:   req.CustomerID,
		CustomerName: sanitizeInput(req.CustomerName),
		IssueDate:    req.IssueDate,
		DueDate:      req.DueDate,
		TaxRate:      invoice.DefaultTaxRate,
		Notes:        sanitizeInput(req.Notes),
	}
	if req.TaxRate != nil {
		inv.TaxRate = *req.TaxRate
	}
	if req.Status != "" {
		st, err := invoice.ParseStatus(req.Status)
		if err != nil {
			return inv, &services.ValidationError{Err: err}
		}
		inv.Status = st
	}
	for _, it := range req.Items {
		inv.Items = append(inv.Items, invoice.LineItem{
			ID:        it.ID,
			Name:      sanitizeInput(it.Name),
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return inv, nil
}

// handleListInvoices accepts ?status=, ?customerId=, ?start= and ?end=
// (issue date, ms).
func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f invoice.Filter
	var err error
	if v := strings.TrimSpace(q.Get("status")); v != "" {
		if f.Status, err = invoice.ParseStatus(v); err != nil {
			s.fail(w, r, "listInvoices", &requestError{msg: "invalid status filter", err: err})
			return
		}
	}
	if f.CustomerID, err = queryInt64(q, "customerId"); err != nil {
		s.fail(w, r, "listInvoices", err)
		return
	}
	if f.StartDate, err = queryInt64(q, "start"); err != nil {
		s.fail(w, r, "listInvoices", err)
		return
	}
	if f.EndDate, err = queryInt64(q, "end"); err != nil {
		s.fail(w, r, "listInvoices", err)
		return
	}

	list, err := s.invoices.List(r.Context(), f)
	if err != nil {
		s.fail(w, r, "listInvoices", err)
		return
	}
	out := make([]invoiceJSON, 0, len(list))
	for _, inv := range list {
		out = append(out, s.invoice(inv))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "getInvoice", err)
		return
	}
	inv, err := s.invoices.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, "getInvoice", err)
		return
	}
	writeJSON(w, http.StatusOK, s.invoice(inv))
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	s.saveInvoice(w, r, 0, http.StatusCreated)
}

func (s *Server) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "updateInvoice", err)
		return
	}
	s.saveInvoice(w, r, id, http.StatusOK)
}

func (s *Server) saveInvoice(w http.ResponseWriter, r *http.Request, id int64, status int) {
	var req invoiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "saveInvoice", err)
		return
	}
	inv, err := req.invoice(id)
	if err != nil {
		s.fail(w, r, "saveInvoice", err)
		return
	}
	saved, err := s.invoices.Save(r.Context(), inv)
	if err != nil {
		s.fail(w, r, "saveInvoice", err)
		return
	}
	writeJSON(w, status, s.invoice(saved))
}

func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		err = s.invoices.Delete(r.Context(), id)
	}
	if err != nil {
		s.fail(w, r, "deleteInvoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
