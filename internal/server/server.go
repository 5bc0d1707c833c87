// Package server exposes the HTTP surface: notification submission, status
// and metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"notifyd/internal/config"
	"notifyd/internal/dispatch"
	"notifyd/internal/domain"
	"notifyd/internal/ingest"
	"notifyd/internal/metrics"
)

// Server wires the ingest and dispatch layers behind an HTTP listener.
type Server struct {
	host         string
	port         int
	auth         config.AuthConfig
	maxBodyBytes int64

	ingestor   *ingest.Ingestor
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	version    string

	server *http.Server
}

func New(cfg *config.Config, ingestor *ingest.Ingestor, dispatcher *dispatch.Dispatcher, logger *slog.Logger, version string) *Server {
	return &Server{
		host:         cfg.Server.Host,
		port:         cfg.Server.Port,
		auth:         cfg.Server.Auth,
		maxBodyBytes: cfg.Ingest.MaxBodyBytes,
		ingestor:     ingestor,
		dispatcher:   dispatcher,
		logger:       logger,
		version:      version,
	}
}

// Handler builds the route table. Status and metrics are public; submission
// sits behind the auth gate.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /notify", s.requireAuth(s.handleNotify))
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /metrics", metrics.Collector.Handler())
	return mux
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("notification server starting", "addr", addr, "auth", s.auth.Required())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("notification server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("notification server: %w", err)
	}
}

func (s *Server) handleNotify(rw http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(rw, r.Body, s.maxBodyBytes)

	req, scratchDir, err := s.ingestor.Parse(r)
	if err != nil {
		s.respondError(rw, err)
		return
	}

	tag, err := s.dispatcher.Send(r.Context(), req)
	if err != nil {
		s.respondError(rw, err)
		return
	}

	s.logger.Info("notification accepted", "tag", tag, "scratchDir", scratchDir)
	rw.WriteHeader(http.StatusOK)
	fmt.Fprint(rw, "Notification sent successfully")
}

func (s *Server) handleStatus(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().Format(time.RFC3339),
	})
}

func (s *Server) respondError(rw http.ResponseWriter, err error) {
	if domain.IsClientError(err) {
		metrics.RequestsRejected.Inc()
		s.logger.Warn("request rejected", "err", err)
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Error("request failed", "err", err)
	http.Error(rw, err.Error(), http.StatusInternalServerError)
}
