// Package daemon exposes the localhost HTTP surface the browser
// extension talks to: event ingestion, screen-time reads, and the
// minimal account API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/soleren/tempo/internal/aggregate"
	"github.com/soleren/tempo/internal/auth"
	"github.com/soleren/tempo/internal/config"
	"github.com/soleren/tempo/internal/session"
	"github.com/soleren/tempo/internal/storage"
)

// Server wires the tracker, aggregator, store, and auth service behind
// the extension-facing HTTP API.
type Server struct {
	cfg     config.DaemonConfig
	tracker *session.Tracker
	agg     *aggregate.Aggregator
	store   storage.Store
	auth    *auth.Service
	logger  *slog.Logger
	version string
}

// NewServer creates a Server. logger may be nil.
func NewServer(cfg config.DaemonConfig, tracker *session.Tracker, agg *aggregate.Aggregator, store storage.Store, authsvc *auth.Service, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		tracker: tracker,
		agg:     agg,
		store:   store,
		auth:    authsvc,
		logger:  logger,
		version: version,
	}
}

// Routes builds the chi router for the daemon.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/status", s.handleStatus)

	r.Route("/api", func(r chi.Router) {
		r.Post("/events", s.handleEvents)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/validateToken", s.handleValidateToken)
			r.With(s.requireAuth).Get("/me", s.handleMe)
		})

		r.With(s.requireAuth).Get("/screentime", s.handleScreenTime)
	})

	return r
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then
// shuts it down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("daemon listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
