// Package api exposes the read-only status surface: persisted snapshots,
// gate state and health.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/pkg/config"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Server serves the read-only decision API. It never triggers a run;
// it only reads what the batch persisted.
type Server struct {
	cfg    *config.Config
	store  *cache.Store
	logger *logger.Logger
	router *mux.Router
}

// NewServer wires the routes.
func NewServer(cfg *config.Config, store *cache.Store, log *logger.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		logger: log.WithField("component", "api"),
		router: mux.NewRouter(),
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/snapshot/{date}", s.handleSnapshot).Methods(http.MethodGet)
	v1.HandleFunc("/gate/state", s.handleGateState).Methods(http.MethodGet)

	return s
}

// Router returns the configured router (tests mount it directly).
func (s *Server) Router() http.Handler { return s.router }

// ListenAndServe blocks serving on the configured port.
func (s *Server) ListenAndServe() error {
	addr := ":" + s.cfg.Port
	s.logger.WithField("addr", addr).Info("API server listening")

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"market": s.cfg.Market,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	if !datePattern.MatchString(date) {
		s.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	path := s.store.ReportPath(s.cfg.Market, fmt.Sprintf("snapshot_%s.json", date))
	var snap contracts.Snapshot
	if !cache.LoadJSON(path, &snap) {
		s.writeError(w, http.StatusNotFound, "no snapshot for "+date)
		return
	}

	s.writeJSON(w, http.StatusOK, &snap)
}

func (s *Server) handleGateState(w http.ResponseWriter, r *http.Request) {
	var state contracts.GateState
	if !cache.LoadJSON(s.cfg.Gate.StatePath, &state) {
		s.writeError(w, http.StatusNotFound, "gate state not initialized")
		return
	}

	s.writeJSON(w, http.StatusOK, &state)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("response encode failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]any{"error": msg})
}
