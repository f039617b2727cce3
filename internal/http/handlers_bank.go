package http

import (
	"net/http"

	"firefly/internal/core"
)

type createBankConnectionRequest struct {
	Name           string `json:"name"`
	ConnectionType string `json:"connectionType"`
}

func (s *Server) handleListBankConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.bank.List(r.Context())
	if err != nil {
		s.fail(w, r, "listBankConnections", err)
		return
	}
	out := make([]bankConnectionJSON, 0, len(conns))
	for _, c := range conns {
		out = append(out, s.bankConnection(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBankConnection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "getBankConnection", err)
		return
	}
	c, err := s.bank.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, "getBankConnection", err)
		return
	}
	writeJSON(w, http.StatusOK, s.bankConnection(c))
}

func (s *Server) handleCreateBankConnection(w http.ResponseWriter, r *http.Request) {
	var req createBankConnectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "createBankConnection", err)
		return
	}
	c, err := s.bank.Create(r.Context(), sanitizeInput(req.Name), sanitizeInput(req.ConnectionType))
	if err != nil {
		s.fail(w, r, "createBankConnection", err)
		return
	}
	writeJSON(w, http.StatusCreated, s.bankConnection(c))
}

func (s *Server) handleDeleteBankConnection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		err = s.bank.Delete(r.Context(), id)
	}
	if err != nil {
		s.fail(w, r, "deleteBankConnection", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSyncBankConnection starts a sync. A queued sync answers 202 with the
// connection in progress; an inline one answers 200 with its outcome. A sync
// already running is a 409.
func (s *Server) handleSyncBankConnection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "syncBankConnection", err)
		return
	}
	c, err := s.bank.RequestSync(r.Context(), id)
	if err != nil {
		s.fail(w, r, "syncBankConnection", err)
		return
	}
	status := http.StatusOK
	if _, running := c.Status.(core.StatusInProgress); running {
		status = http.StatusAccepted
	}
	writeJSON(w, status, s.bankConnection(c))
}
