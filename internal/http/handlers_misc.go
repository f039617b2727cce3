package http

import (
	"context"
	"net/http"
	"time"

	"firefly/internal/log"
	"firefly/internal/settings"
)

type settingsJSON struct {
	Currency string `json:"currency"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	us, err := s.prefs.Get(r.Context())
	if err != nil {
		s.fail(w, r, "getSettings", err)
		return
	}
	writeJSON(w, http.StatusOK, settingsJSON{Currency: us.Currency})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsJSON
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "putSettings", err)
		return
	}
	us, err := settings.SetCurrency(r.Context(), s.prefs, req.Currency)
	if err != nil {
		s.fail(w, r, "putSettings", err)
		return
	}
	writeJSON(w, http.StatusOK, settingsJSON{Currency: us.Currency})
}

// handleDashboard aggregates ?start= to ?end= (ms). Both are optional; a
// missing end means no upper bound.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := queryInt64(q, "start")
	if err != nil {
		s.fail(w, r, "dashboard", err)
		return
	}
	end, err := queryInt64(q, "end")
	if err != nil {
		s.fail(w, r, "dashboard", err)
		return
	}
	d, err := s.dashboard.Dashboard(r.Context(), start, end)
	if err != nil {
		s.fail(w, r, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, s.dashboardDTO(d))
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": s.now().Sub(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that the backend answers within five seconds.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"backend": "ok"}
	status, code := "ready", http.StatusOK
	if err := s.ready(ctx); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		checks["backend"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":         status,
		"checks":         checks,
		"active_clients": s.limiter.ActiveClients(),
	})
}
