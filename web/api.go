package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/robinvdvleuten/taxlots/forms"
	"github.com/robinvdvleuten/taxlots/gains"
	"github.com/robinvdvleuten/taxlots/lots"
	"github.com/robinvdvleuten/taxlots/session"
)

// writeJSONResponse writes a JSON response to the http.ResponseWriter.
// If encoding fails, it writes an error response.
func writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// current returns the last good result or writes 503 when there is none.
// Callers hold s.mu for reading.
func (s *Server) current(w http.ResponseWriter) *session.Result {
	if s.result == nil {
		msg := "report not loaded"
		if s.lastErr != nil {
			msg += ": " + s.lastErr.Error()
		}
		http.Error(w, msg, http.StatusServiceUnavailable)
	}
	return s.result
}

// handleGetReport handles GET /api/report.
//
// Query parameters:
//   - term: "short" or "long" limits the rows to one holding period.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := s.current(w)
	if res == nil {
		return
	}

	report := *res.Report
	switch term := r.URL.Query().Get("term"); term {
	case "":
	case string(gains.ShortTerm):
		report.Rows = nonNil(report.ShortTermRows())
	case string(gains.LongTerm):
		report.Rows = nonNil(report.LongTermRows())
	default:
		http.Error(w, "invalid term: "+term, http.StatusBadRequest)
		return
	}

	writeJSONResponse(w, &report)
}

func nonNil(rows []gains.Row) []gains.Row {
	if rows == nil {
		return []gains.Row{}
	}
	return rows
}

// LotsResponse is the JSON response of the lots endpoint.
type LotsResponse struct {
	Starting lots.Snapshot `json:"starting"`
	Leftover lots.Snapshot `json:"leftover"`
}

// handleGetLots handles GET /api/lots.
func (s *Server) handleGetLots(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := s.current(w)
	if res == nil {
		return
	}

	writeJSONResponse(w, &LotsResponse{
		Starting: res.Report.Starting,
		Leftover: res.Report.Leftover,
	})
}

// handleGetF8949 handles GET /api/forms/f8949.
//
// Query parameters:
//   - page: 1-based page number; all pages when omitted.
func (s *Server) handleGetF8949(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := s.current(w)
	if res == nil {
		return
	}

	pageParam := r.URL.Query().Get("page")
	if pageParam == "" {
		pages := res.F8949
		if pages == nil {
			pages = []*forms.F8949{}
		}
		writeJSONResponse(w, pages)
		return
	}

	page, err := strconv.Atoi(pageParam)
	if err != nil || page < 1 || page > len(res.F8949) {
		http.Error(w, "invalid page: "+pageParam, http.StatusNotFound)
		return
	}
	writeJSONResponse(w, res.F8949[page-1])
}

// handleGetScheduleD handles GET /api/forms/f1040sd.
func (s *Server) handleGetScheduleD(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := s.current(w)
	if res == nil {
		return
	}
	writeJSONResponse(w, res.ScheduleD)
}

// StatusResponse describes the server and its last reload.
type StatusResponse struct {
	Version   string   `json:"version"`
	CommitSHA string   `json:"commit_sha"`
	Files     []string `json:"files"`
	Loaded    bool     `json:"loaded"`
	Error     string   `json:"error,omitempty"`
}

// handleGetStatus handles GET /api/status.
func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := &StatusResponse{
		Version:   s.Version,
		CommitSHA: s.CommitSHA,
		Files:     s.historyFiles,
		Loaded:    s.result != nil,
	}
	if s.lastErr != nil {
		status.Error = s.lastErr.Error()
	}
	writeJSONResponse(w, status)
}
