// Package server собирает HTTP-поверхность: маршруты, middleware-цепочку
// и жизненный цикл http.Server. Мутации ростера сюда не заходят — они
// живут в WebSocket-протоколе координатора.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iudanet/shiftsync/internal/coordinator"
	"github.com/iudanet/shiftsync/internal/registry"
	"github.com/iudanet/shiftsync/internal/server/handlers"
	"github.com/iudanet/shiftsync/internal/server/middleware"
	"github.com/iudanet/shiftsync/internal/store"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Options — зависимости и настройки HTTP-сервера
type Options struct {
	ListenAddr  string
	Version     string
	Store       *store.Store
	Registry    *registry.Registry
	Coordinator *coordinator.Coordinator
	Bridge      handlers.BridgeReporter
	Logger      *slog.Logger
	RateRPS     float64
	RateBurst   int
}

// Server владеет http.Server и умеет корректно останавливаться
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New собирает маршруты и middleware.
// Порядок цепочки: recovery снаружи, затем логирование, затем rate limit —
// отклоненные лимитером запросы тоже попадают в лог.
func New(opts Options) *Server {
	health := handlers.NewHealthHandler(opts.Logger, opts.Version)
	status := handlers.NewStatusHandler(opts.Logger, opts.Store, opts.Registry, opts.Bridge)
	roster := handlers.NewRosterHandler(opts.Logger, opts.Store)
	violations := handlers.NewViolationsHandler(opts.Logger, opts.Store)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", opts.Coordinator.HandleWS)
	mux.HandleFunc("GET /healthz", health.Health)
	mux.HandleFunc("GET /api/v1/status", status.Status)
	mux.HandleFunc("GET /api/v1/roster", roster.Roster)
	mux.HandleFunc("GET /api/v1/violations", violations.Violations)
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = middleware.RateLimitMiddleware(opts.RateRPS, opts.RateBurst, opts.Logger)(handler)
	handler = middleware.LoggingMiddleware(opts.Logger, "/healthz", "/metrics")(handler)
	handler = middleware.RecoveryMiddleware(opts.Logger)(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              opts.ListenAddr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: opts.Logger,
	}
}

// ListenAndServe обслуживает запросы до отмены контекста, затем
// корректно гасит сервер с таймаутом.
func (s *Server) ListenAndServe(ctx context.Context) error {
	serveErr := make(chan error, 1)

	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
