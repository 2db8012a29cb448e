package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/demml/scouter-server/internal/models"
)

func (s *Server) handleGetDriftAlerts(w http.ResponseWriter, r *http.Request) {
	id, err := identityFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	filter := models.AlertFilter{Identity: id, Limit: 100}

	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %q", raw))
			return
		}
		filter.Limit = limit
	}
	if raw := q.Get("limit_timestamp"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit_timestamp: %w", err))
			return
		}
		filter.SinceTimestamp = since
		filter.HasSince = true
	}
	if raw := q.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid active: %q", raw))
			return
		}
		filter.Active = &active
	}

	alerts, err := s.repo.GetDriftAlerts(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}
