// Package server wires the room server's HTTP routes and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/sketchsync/internal/server/handlers"
	"github.com/iudanet/sketchsync/internal/server/middleware"
	"github.com/iudanet/sketchsync/internal/server/room"
)

// Значения по умолчанию
const (
	DefaultRateLimit       = 20
	DefaultShutdownTimeout = 10 * time.Second
)

// Config - параметры HTTP сервера
type Config struct {
	// JWT - nil отключает аутентификацию и выдачу токенов
	JWT             *handlers.JWTConfig
	Addr            string
	Version         string
	RateWindow      time.Duration
	ShutdownTimeout time.Duration
	RateLimit       int
}

// Server - HTTP сервер комнат
type Server struct {
	cfg     Config
	logger  *slog.Logger
	handler http.Handler
	limiter *middleware.RateLimiter
}

// New собирает маршруты сервера
func New(cfg Config, rooms *room.Manager, logger *slog.Logger) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		limiter: middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
	}
	s.handler = s.routes(rooms)
	return s
}

func (s *Server) routes(rooms *room.Manager) http.Handler {
	healthHandler := handlers.NewHealthHandler(s.logger, s.cfg.Version)
	roomHandler := handlers.NewRoomHandler(s.logger, rooms)

	router := mux.NewRouter()
	router.Use(
		middleware.RecoveryMiddleware(s.logger),
		middleware.LoggingMiddleware(s.logger, "/api/v1/health"),
	)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)

	if s.cfg.JWT != nil {
		tokenHandler := handlers.NewTokenHandler(s.logger, *s.cfg.JWT)
		auth := api.PathPrefix("/auth").Subrouter()
		auth.Use(middleware.RateLimitMiddleware(s.limiter, middleware.ByClientIP, s.logger))
		auth.HandleFunc("/token", tokenHandler.IssueToken).Methods(http.MethodPost)
	}

	roomRoutes := api.PathPrefix("/rooms/{room}").Subrouter()
	if s.cfg.JWT != nil {
		roomRoutes.Use(middleware.AuthMiddleware(s.logger, *s.cfg.JWT))
	}
	roomRoutes.Use(middleware.RateLimitMiddleware(s.limiter, middleware.ByUserID, s.logger))
	roomRoutes.HandleFunc("/ws", roomHandler.Serve).Methods(http.MethodGet)
	roomRoutes.HandleFunc("/records", roomHandler.Snapshot).Methods(http.MethodGet)

	return router
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.limiter.Stop()

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Server listening", "addr", ln.Addr().String(), "auth", s.cfg.JWT != nil)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}
