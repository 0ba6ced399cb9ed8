// Package server provides the HTTP server and routing for the airdrop
// allocation checker.
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

	"github.com/aristath/odyssey/internal/config"
	"github.com/aristath/odyssey/internal/database"
	"github.com/aristath/odyssey/internal/modules/allocation"
	"github.com/aristath/odyssey/internal/modules/analytics"
	"github.com/aristath/odyssey/internal/modules/charts"
	"github.com/aristath/odyssey/internal/reliability"
)

// Config holds server configuration
type Config struct {
	Port              int
	Log               zerolog.Logger
	Config            *config.Config
	DevMode           bool
	AllocationsDB     *database.DB
	CacheDB           *database.DB
	AllocationService *allocation.Service
	AnalyticsService  *analytics.Service
	ChartBuilder      *charts.Builder
	R2BackupService   *reliability.R2BackupService // nil when backups are not configured
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	systemHandlers *SystemHandlers

	allocationHandler *allocation.Handler
	chartsHandler     *charts.Handler
	analyticsHandler  *analytics.Handler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	systemHandlers := NewSystemHandlers(
		cfg.Log,
		cfg.Config.DataDir,
		cfg.AllocationsDB,
		cfg.CacheDB,
		cfg.AllocationService,
		cfg.R2BackupService,
		cfg.Config.Backup.RetentionDays,
	)

	s := &Server{
		router:            chi.NewRouter(),
		log:               cfg.Log.With().Str("component", "server").Logger(),
		cfg:               cfg.Config,
		systemHandlers:    systemHandlers,
		allocationHandler: allocation.NewHandler(cfg.AllocationService, cfg.Log),
		chartsHandler:     charts.NewHandler(cfg.AllocationService, cfg.ChartBuilder, cfg.Log),
		analyticsHandler:  analytics.NewHandler(cfg.AnalyticsService, cfg.Log),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

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
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/allocations", func(r chi.Router) {
			r.Get("/search", s.allocationHandler.HandleSearch)
			r.Get("/table", s.allocationHandler.HandleTableInfo)
		})

		r.Route("/charts", func(r chi.Router) {
			r.Get("/distribution", s.chartsHandler.HandleDistribution)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/summary", s.analyticsHandler.HandleSummary)
		})

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
			r.Get("/disk", s.systemHandlers.HandleDiskUsage)
			r.Get("/backups", s.systemHandlers.HandleListBackups)
			r.Post("/backup", s.systemHandlers.HandleTriggerBackup)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router exposes the router for tests
func (s *Server) Router() http.Handler {
	return s.router
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
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
