package http

import (
	"encoding/json"
	"net/http"

	"firefly/internal/core"
)

type reportRequest struct {
	Name    string          `json:"name"`
	Type    core.ReportType `json:"type"`
	Start   int64           `json:"start"`
	End     int64           `json:"end"`
	Filters json.RawMessage `json:"filters"`
}

func (req reportRequest) report(id int64) core.Report {
	return core.Report{
		ID:      id,
		Name:    sanitizeInput(req.Name),
		Type:    req.Type,
		Start:   req.Start,
		End:     req.End,
		Filters: string(req.Filters),
	}
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	list, err := s.backend.ListReports(r.Context())
	if err != nil {
		s.fail(w, r, "listReports", err)
		return
	}
	out := make([]reportJSON, 0, len(list))
	for _, rep := range list {
		out = append(out, reportDTO(rep))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "getReport", err)
		return
	}
	rep, err := s.backend.GetReport(r.Context(), id)
	if err != nil {
		s.fail(w, r, "getReport", err)
		return
	}
	writeJSON(w, http.StatusOK, reportDTO(rep))
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "createReport", err)
		return
	}
	rep, err := s.reports.Save(r.Context(), req.report(0))
	if err != nil {
		s.fail(w, r, "createReport", err)
		return
	}
	writeJSON(w, http.StatusCreated, reportDTO(rep))
}

func (s *Server) handleUpdateReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "updateReport", err)
		return
	}
	var req reportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "updateReport", err)
		return
	}
	rep, err := s.reports.Save(r.Context(), req.report(id))
	if err != nil {
		s.fail(w, r, "updateReport", err)
		return
	}
	writeJSON(w, http.StatusOK, reportDTO(rep))
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		err = s.backend.DeleteReport(r.Context(), id)
	}
	if err != nil {
		s.fail(w, r, "deleteReport", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReportResults(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "reportResults", err)
		return
	}
	rep, res, err := s.reports.Results(r.Context(), id)
	if err != nil {
		s.fail(w, r, "reportResults", err)
		return
	}
	writeJSON(w, http.StatusOK, s.reportResult(rep, res))
}
