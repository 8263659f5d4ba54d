package api

import (
	"net/http"
	"strconv"

	"github.com/beamlab/piezo-core/internal/steering"
)

// handleListAudit returns recorded operator commands, newest first.
//
// Query parameters:
//   - axis: filter by axis ("x" or "y")
//   - outcome: filter by outcome (accepted, rejected, failed)
//   - limit: max results (default 100)
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeInternalError(w, "command audit not configured")
		return
	}

	q := r.URL.Query()
	filter := steering.AuditFilter{
		Axis:    q.Get("axis"),
		Outcome: q.Get("outcome"),
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}

	entries, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list command audit", "error", err)
		writeInternalError(w, "failed to list command audit")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}
