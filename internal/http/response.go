package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"firefly/internal/bank"
	"firefly/internal/core"
	"firefly/internal/csvimport"
	"firefly/internal/log"
	"firefly/internal/services"
	"firefly/internal/settings"
)

// envelope is the body of every JSON response.
type envelope struct {
	Data  any    `json:"data"`
	Error string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: msg})
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	var (
		reqErr   *requestError
		parseErr *csvimport.ParseError
	)
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, bank.ErrSyncInProgress),
		errors.Is(err, core.ErrDuplicateMonth),
		errors.Is(err, core.ErrDuplicateName):
		return http.StatusConflict
	case services.IsValidation(err),
		errors.As(err, &parseErr),
		errors.Is(err, settings.ErrInvalidCurrency),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrSheetsDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Server errors are logged and their
// details withheld from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, nil)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}
