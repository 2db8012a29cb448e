package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/demml/scouter-server/internal/models"
	"github.com/demml/scouter-server/internal/repository"
)

func (s *Server) handleInsertDriftRecord(w http.ResponseWriter, r *http.Request) {
	var rec models.DriftRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.InsertDriftRecord(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, statusPayload{Status: "success"})
}

func (s *Server) handleGetBinnedDriftRecords(w http.ResponseWriter, r *http.Request) {
	id, err := identityFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	window := r.URL.Query().Get("time_window")
	minutes, ok := repository.TimeWindowMinutes(window)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown time_window %q", window))
		return
	}

	maxPoints := 100
	if raw := r.URL.Query().Get("max_data_points"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid max_data_points: %q", raw))
			return
		}
		maxPoints = parsed
	}

	result, err := s.repo.GetBinnedDriftRecords(r.Context(), id, minutes, maxPoints)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func identityFromQuery(r *http.Request) (models.Identity, error) {
	q := r.URL.Query()
	id := models.Identity{
		Name:       q.Get("name"),
		Repository: q.Get("repository"),
		Version:    q.Get("version"),
	}
	if id.Name == "" || id.Repository == "" || id.Version == "" {
		return models.Identity{}, fmt.Errorf("name, repository and version query parameters are required")
	}
	return id, nil
}
