package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"rutosms/internal/archive"
	"rutosms/internal/constants"
	"rutosms/internal/metrics"
	"rutosms/internal/service"
	"rutosms/pkg/mqttbus"
	"rutosms/pkg/rutos"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server exposes the daemon's health, status and metrics over HTTP.
type Server struct {
	router  *mux.Router
	logger  *logrus.Logger
	api     rutos.Client
	bus     mqttbus.Client
	ledger  *service.Ledger
	sched   *service.DeletionScheduler
	archive *archive.Archive
	server  *http.Server
	started time.Time
}

// statusResponse is the payload of GET /status.
type statusResponse struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	BusConnected     bool    `json:"bus_connected"`
	LedgerSize       int     `json:"ledger_size"`
	PendingDeletions int     `json:"pending_deletions"`
	RouterTotal      *int    `json:"router_total,omitempty"`
	RouterError      string  `json:"router_error,omitempty"`
}

// NewServer creates the status server. arch may be nil, which disables the
// recent-messages endpoint.
func NewServer(port int, api rutos.Client, bus mqttbus.Client, ledger *service.Ledger, sched *service.DeletionScheduler, arch *archive.Archive, logger *logrus.Logger) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		logger:  logger,
		api:     api,
		bus:     bus,
		ledger:  ledger,
		sched:   sched,
		archive: arch,
		started: time.Now(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  constants.DefaultServerReadTimeoutSec * time.Second,
		WriteTimeout: constants.DefaultServerWriteTimeoutSec * time.Second,
		IdleTimeout:  constants.DefaultServerIdleTimeoutSec * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	if s.archive != nil {
		s.router.HandleFunc("/messages/recent", s.handleRecentMessages()).Methods(http.MethodGet)
	}
}

func (s *Server) Start() error {
	s.logger.Infof("Starting status server on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{
			UptimeSeconds:    time.Since(s.started).Seconds(),
			BusConnected:     s.bus.IsConnected(),
			LedgerSize:       s.ledger.Len(),
			PendingDeletions: s.sched.Len(),
		}

		if total, err := s.api.CountMessages(r.Context()); err != nil {
			resp.RouterError = err.Error()
		} else {
			resp.RouterTotal = &total
		}

		s.writeJSON(w, resp)
	}
}

func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		s.writeJSON(w, metrics.GetSnapshot())
	}
}

func (s *Server) handleRecentMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 || parsed > 500 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		records, err := s.archive.RecentMessages(r.Context(), limit)
		if err != nil {
			s.logger.WithError(err).Error("Failed to query archive")
			http.Error(w, "archive query failed", http.StatusInternalServerError)
			return
		}

		s.writeJSON(w, records)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}
