package api

import (
	"encoding/json"
	"net/http"

	"github.com/demml/scouter-server/internal/models"
)

type upsertProfileRequest struct {
	Name        string          `json:"name"`
	Repository  string          `json:"repository"`
	Version     string          `json:"version"`
	ProfileType string          `json:"profile_type"`
	Profile     json.RawMessage `json:"profile"`
	Schedule    string          `json:"schedule"`
}

func (s *Server) handleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	var req upsertProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	kind, err := models.ParseProfileKind(req.ProfileType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	profile := models.DriftProfile{
		Identity: models.Identity{
			Name:       req.Name,
			Repository: req.Repository,
			Version:    req.Version,
		},
		ProfileType: kind,
		Profile:     []byte(req.Profile),
		Schedule:    req.Schedule,
	}

	if err := s.repo.UpsertProfile(r.Context(), profile); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, statusPayload{Status: "success"})
}
