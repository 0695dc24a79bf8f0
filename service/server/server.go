// Package server exposes the resolution engine over HTTP for the wallet
// app. The engine itself stays pure; this layer owns request decoding, DTO
// validation, per-user store wiring, and the operational endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tucanapay/tucana/service/config"
	"github.com/tucanapay/tucana/service/engine"
	"github.com/tucanapay/tucana/service/learner"
	"github.com/tucanapay/tucana/service/metrics"
)

// Server is the HTTP server for the resolution service.
type Server struct {
	addr    string
	cfg     *config.Config
	rdb     *redis.Client
	metrics *metrics.Metrics
	logger  *slog.Logger
	server  *http.Server
}

// New creates a new HTTP server with the given dependencies.
// metrics is optional; if nil, the /metrics endpoint is disabled.
func New(cfg *config.Config, rdb *redis.Client, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:    cfg.ServerAddr,
		cfg:     cfg,
		rdb:     rdb,
		metrics: m,
		logger:  logger,
	}
}

// engineFor builds an engine bound to the given user's preference store.
// Engines are cheap: all heavy state lives in Redis and the shared metrics.
func (s *Server) engineFor(userID string) *engine.Engine {
	if userID == "" {
		userID = "default"
	}
	store := learner.NewRedisStore(s.rdb, userID)
	return engine.New(learner.New(store, s.metrics, s.logger), s.metrics, s.logger)
}

// Start starts the HTTP server and blocks until it exits.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.Handle("POST /api/v1/resolve", s.instrument("/api/v1/resolve",
		handleResolve(s.engineFor, s.logger)))
	mux.Handle("POST /api/v1/preselect", s.instrument("/api/v1/preselect",
		handlePreselect(s.engineFor, s.logger)))
	mux.Handle("POST /api/v1/can-send", s.instrument("/api/v1/can-send",
		handleCanSend(s.engineFor, s.logger)))
	mux.Handle("POST /api/v1/confirmation", s.instrument("/api/v1/confirmation",
		handleConfirmation(s.engineFor, s.logger)))
	mux.Handle("POST /api/v1/payments", s.instrument("/api/v1/payments",
		handleRecordPayment(s.engineFor, s.logger)))
	mux.Handle("GET /api/v1/preferences/{user}", s.instrument("/api/v1/preferences",
		handleGetPreferences(s.engineFor, s.logger)))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	handler := corsMiddleware(mux)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// instrument wraps a handler with the HTTP metrics middleware.
func (s *Server) instrument(name string, h http.Handler) http.Handler {
	return metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
