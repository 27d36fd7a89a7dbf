package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/sensor-registry/internal/audit"
)

const msgAuditDisabled = "Audit trail is not enabled"

// handleListAudit returns paginated audit entries with optional filters.
//
// Query parameters:
//   - action: register or delete
//   - sensor_id: filter by sensor
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeError(w, http.StatusServiceUnavailable, msgAuditDisabled)
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{Action: q.Get("action")}

	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"sensor_id", &filter.SensorID},
		{"limit", &filter.Limit},
		{"offset", &filter.Offset},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, p.name+" must be an integer")
			return
		}
		*p.dst = n
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit entries", "error", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
