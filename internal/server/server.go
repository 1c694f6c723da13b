// Package server provides the HTTP server and routing for the risk engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/trustmycode/moex-agent-mcp/internal/config"
	"github.com/trustmycode/moex-agent-mcp/internal/modules/correlation"
	correlationhandlers "github.com/trustmycode/moex-agent-mcp/internal/modules/correlation/handlers"
	"github.com/trustmycode/moex-agent-mcp/internal/modules/metrics"
	metricshandlers "github.com/trustmycode/moex-agent-mcp/internal/modules/metrics/handlers"
	"github.com/trustmycode/moex-agent-mcp/internal/modules/rebalancing"
	rebalancinghandlers "github.com/trustmycode/moex-agent-mcp/internal/modules/rebalancing/handlers"
	"github.com/trustmycode/moex-agent-mcp/internal/modules/returns"
	returnshandlers "github.com/trustmycode/moex-agent-mcp/internal/modules/returns/handlers"
	"github.com/trustmycode/moex-agent-mcp/internal/modules/stress"
	stresshandlers "github.com/trustmycode/moex-agent-mcp/internal/modules/stress/handlers"
)

// Config holds server configuration
type Config struct {
	Log     zerolog.Logger
	Config  *config.Config
	Port    int
	DevMode bool
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    *config.Config
}

// New creates a new HTTP server with all module routes wired
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg.Config,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg.Log)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(log zerolog.Logger) {
	s.router.Get("/health", s.handleHealth)

	returnsService := returns.NewService(log)
	metricsService := metrics.NewService(s.cfg.TradingDaysPerYear, log)
	correlationService := correlation.NewService(log)
	stressService := stress.NewService(log)
	rebalancingService := rebalancing.NewService(log)

	s.router.Route("/api", func(r chi.Router) {
		returnshandlers.NewHandler(returnsService, log).RegisterRoutes(r)
		metricshandlers.NewHandler(metricsService, log).RegisterRoutes(r)
		correlationhandlers.NewHandler(correlationService, returnsService, log).RegisterRoutes(r)
		stresshandlers.NewHandler(stressService, stress.VarConfig{
			Confidence:            s.cfg.VarConfidence,
			HorizonDays:           s.cfg.VarHorizonDays,
			FallbackVolatilityPct: s.cfg.FallbackVolatilityPct,
		}, log).RegisterRoutes(r)
		rebalancinghandlers.NewHandler(rebalancingService, log).RegisterRoutes(r)
	})
}

// handleHealth responds to liveness probes
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Msg("HTTP request")
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
