package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"firefly/internal/core"
)

type limitRequest struct {
	CategoryID int64           `json:"categoryId"`
	Limit      decimal.Decimal `json:"limit"`
}

type saveBudgetRequest struct {
	Limits []limitRequest `json:"limits"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.backend.ListBudgets(r.Context())
	if err != nil {
		s.fail(w, r, "listBudgets", err)
		return
	}
	out := make([]budgetJSON, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, s.budget(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "getBudget", err)
		return
	}
	b, err := s.backend.GetBudget(r.Context(), id)
	if err != nil {
		s.fail(w, r, "getBudget", err)
		return
	}
	writeJSON(w, http.StatusOK, s.budget(b))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		err = s.backend.DeleteBudget(r.Context(), id)
	}
	if err != nil {
		s.fail(w, r, "deleteBudget", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBudgetStatus reports spending against the limits of ?month=, which
// defaults to the current month.
func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	month, err := s.parseMonth(r.URL.Query().Get("month"))
	if err != nil {
		s.fail(w, r, "budgetStatus", err)
		return
	}
	view, err := s.budgets.Status(r.Context(), month)
	if err != nil {
		s.fail(w, r, "budgetStatus", err)
		return
	}
	writeJSON(w, http.StatusOK, s.budgetView(view))
}

// handleSaveBudget creates or replaces the budget of {month}.
func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request) {
	month, err := core.ParseMonthKey(chi.URLParam(r, "month"))
	if err != nil {
		s.fail(w, r, "saveBudget", err)
		return
	}
	var req saveBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "saveBudget", err)
		return
	}

	limits := make([]core.CategoryLimit, 0, len(req.Limits))
	for _, l := range req.Limits {
		m, err := core.MoneyFromDecimal(l.Limit)
		if err != nil {
			s.fail(w, r, "saveBudget", err)
			return
		}
		limits = append(limits, core.CategoryLimit{CategoryID: l.CategoryID, Limit: m})
	}

	b, err := s.budgets.Save(r.Context(), month, limits)
	if err != nil {
		s.fail(w, r, "saveBudget", err)
		return
	}
	writeJSON(w, http.StatusOK, s.budget(b))
}
