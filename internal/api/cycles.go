package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-irrigation/internal/history"
)

// handleRunCycle runs one decision cycle synchronously and returns its
// report. 409 when a cycle is already running.
func (s *Server) handleRunCycle(w http.ResponseWriter, r *http.Request) {
	report, err := s.cycles.RunCycle(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleListCycles returns recorded cycle reports, most recent first.
//
// Query parameters: outcome, since (RFC 3339), limit, offset.
func (s *Server) handleListCycles(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "cycle history is not enabled")
		return
	}

	q := r.URL.Query()
	filter := history.Filter{Outcome: q.Get("outcome")}

	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = since
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, name+" must be a non-negative integer")
			return
		}
		*dst = n
	}

	result, err := s.history.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing cycle history failed", "error", err)
		writeInternalError(w, "failed to list cycle history")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
