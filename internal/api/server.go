// Package api implements the HTTP Query API (spec.md §4.6/§6): read access
// to drift records and alerts, and profile registration, over gorilla/mux.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/demml/scouter-server/internal/repository"
)

// Server wires the HTTP routes to the storage engine.
type Server struct {
	repo   *repository.Repository
	log    *slog.Logger
	router *mux.Router
	http   *http.Server
}

// New builds a Server bound to addr (spec.md §6 API_ADDR, default ":8080").
func New(repo *repository.Repository, log *slog.Logger, addr string) *Server {
	s := &Server{repo: repo, log: log, router: mux.NewRouter()}
	s.registerRoutes()
	s.router.Use(withRequestID)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type statusPayload struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes body as JSON with the given status; 2xx bodies follow the
// teacher's {status:"success", ...} response convention.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes the spec's 5xx/4xx error envelope:
// {"status":"error","message":"..."}.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, statusPayload{Status: "error", Message: err.Error()})
}
