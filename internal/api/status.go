// Package api serves the read-only status endpoints an operator can
// poll while a run is in flight.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/bulksend/internal/domain"
	"github.com/ignite/bulksend/internal/quota"
)

// StatusSource is the engine surface the server reads. Both methods
// must be safe to call while the run is sending.
type StatusSource interface {
	Snapshot() domain.RunStatistics
	Phase() string
}

// Server exposes GET /healthz and GET /api/v1/status.
type Server struct {
	engine    StatusSource
	tracker   *quota.Tracker
	version   string
	startedAt time.Time
	handler   http.Handler
	server    *http.Server
}

func NewServer(engine StatusSource, tracker *quota.Tracker, version string) *Server {
	s := &Server{
		engine:    engine,
		tracker:   tracker,
		version:   version,
		startedAt: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)

	s.handler = r
	return s
}

// ListenAndServe blocks serving requests until Shutdown or a listener
// error.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// quotaStatus is the quota block of the status payload.
type quotaStatus struct {
	Date      string `json:"date"`
	SentToday int    `json:"sent_today"`
	Remaining int    `json:"remaining"`
	SoftLimit int    `json:"soft_limit"`
	HardLimit int    `json:"hard_limit"`
}

type statusResponse struct {
	Phase string               `json:"phase"`
	Run   domain.RunStatistics `json:"run"`
	Quota quotaStatus          `json:"quota"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := s.tracker.State()
	respondJSON(w, http.StatusOK, statusResponse{
		Phase: s.engine.Phase(),
		Run:   s.engine.Snapshot(),
		Quota: quotaStatus{
			Date:      state.Date,
			SentToday: state.CountSentToday,
			Remaining: s.tracker.Remaining(),
			SoftLimit: s.tracker.SoftLimit(),
			HardLimit: s.tracker.HardLimit(),
		},
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
