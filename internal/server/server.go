// Package server exposes the operator HTTP API over the service core:
// strategy toggles, scanner control, edge approval, swarm health, and trade
// history.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/solwatch/arbedge/internal/domain"
	"github.com/solwatch/arbedge/internal/server/handler"
	"github.com/solwatch/arbedge/internal/server/middleware"
	"github.com/solwatch/arbedge/internal/service"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication

	// RateLimit/RateWindow bound per-client request rates when a limiter
	// is available. RateLimit zero disables limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Server is the operator HTTP API for the edge engine.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes registered and the middleware chain
// (auth, rate limiting, logging, CORS) applied. limiter may be nil.
func New(cfg Config, core *service.Core, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	health := handler.NewHealthHandler()
	strategies := handler.NewStrategyHandler(core, logger)
	scanner := handler.NewScannerHandler(core, logger)
	edges := handler.NewEdgeHandler(core, logger)
	swarm := handler.NewSwarmHandler(core, logger)
	trades := handler.NewTradeHandler(core, logger)

	// Health check (no auth required once the chain sees an empty key, but
	// registered like every other route).
	mux.HandleFunc("GET /api/health", health.HealthCheck)

	// Strategy endpoints.
	mux.HandleFunc("GET /api/strategies", strategies.List)
	mux.HandleFunc("POST /api/strategies/toggle", strategies.ToggleAll)
	mux.HandleFunc("POST /api/strategies/{name}/toggle", strategies.Toggle)

	// Scanner endpoints.
	mux.HandleFunc("GET /api/scanner", scanner.Status)
	mux.HandleFunc("POST /api/scanner/start", scanner.Start)
	mux.HandleFunc("POST /api/scanner/stop", scanner.Stop)

	// Edge lifecycle endpoints.
	mux.HandleFunc("GET /api/edges", edges.List)
	mux.HandleFunc("GET /api/edges/{id}", edges.Get)
	mux.HandleFunc("POST /api/edges/{id}/approve", edges.Approve)
	mux.HandleFunc("POST /api/edges/{id}/reject", edges.Reject)
	mux.HandleFunc("POST /api/edges/{id}/execute", edges.Execute)

	// Swarm and capital endpoints.
	mux.HandleFunc("GET /api/swarm/health", swarm.Health)
	mux.HandleFunc("POST /api/swarm/unpause", swarm.Unpause)
	mux.HandleFunc("GET /api/capital", swarm.Capital)

	// Trade history.
	mux.HandleFunc("GET /api/trades", trades.List)

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}
	h = middleware.Logging(logger)(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware sets CORS headers for the allowed origins. No configured
// origins means allow all.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
