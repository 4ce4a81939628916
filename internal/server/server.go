// Package server provides the HTTP server and routing for the
// inference service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/qbayes/internal/config"
	"github.com/aristath/qbayes/internal/database"
	"github.com/aristath/qbayes/internal/modules/bayes"
	bayeshandlers "github.com/aristath/qbayes/internal/modules/bayes/handlers"
	"github.com/aristath/qbayes/internal/modules/mahalanobis"
	mahalanobishandlers "github.com/aristath/qbayes/internal/modules/mahalanobis/handlers"
	noisehandlers "github.com/aristath/qbayes/internal/modules/noise/handlers"
	"github.com/aristath/qbayes/internal/modules/optimizer"
	optimizerhandlers "github.com/aristath/qbayes/internal/modules/optimizer/handlers"
	"github.com/aristath/qbayes/internal/modules/quantumbayes"
	quantumbayeshandlers "github.com/aristath/qbayes/internal/modules/quantumbayes/handlers"
	"github.com/aristath/qbayes/internal/modules/spectral"
	spectralhandlers "github.com/aristath/qbayes/internal/modules/spectral/handlers"
	"github.com/aristath/qbayes/internal/modules/state"
	statehandlers "github.com/aristath/qbayes/internal/modules/state/handlers"
)

// Config holds server configuration
type Config struct {
	Log         zerolog.Logger
	Config      *config.Config
	SnapshotsDB *database.DB

	BayesEngine *bayes.Engine
	Estimator   *mahalanobis.Estimator
	Scorer      *quantumbayes.Scorer
	Collapser   *quantumbayes.Collapser
	Cache       *spectral.Cache
	Optimizer   *optimizer.Optimizer
	StateRepo   *state.Repository
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	systemHandlers *SystemHandlers

	// Serializes access to the single-owner core components (estimator
	// audit trail, spectral cache, collapser records, state engine).
	mu sync.Mutex

	bayesEngine *bayes.Engine
	estimator   *mahalanobis.Estimator
	scorer      *quantumbayes.Scorer
	collapser   *quantumbayes.Collapser
	cache       *spectral.Cache
	optimizer   *optimizer.Optimizer
	stateRepo   *state.Repository
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		cfg:         cfg.Config,
		bayesEngine: cfg.BayesEngine,
		estimator:   cfg.Estimator,
		scorer:      cfg.Scorer,
		collapser:   cfg.Collapser,
		cache:       cfg.Cache,
		optimizer:   cfg.Optimizer,
		stateRepo:   cfg.StateRepo,
	}
	s.systemHandlers = NewSystemHandlers(cfg.Log, cfg.Config.DataDir, cfg.SnapshotsDB, cfg.Cache, &s.mu)

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
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
		noisehandlers.NewHandler(s.log).RegisterRoutes(r)
		bayeshandlers.NewHandler(s.bayesEngine, s.log).RegisterRoutes(r)
		mahalanobishandlers.NewHandler(s.estimator, &s.mu, s.log).RegisterRoutes(r)
		quantumbayeshandlers.NewHandler(s.scorer, s.collapser, &s.mu, s.log).RegisterRoutes(r)
		spectralhandlers.NewHandler(s.cache, &s.mu, s.log).RegisterRoutes(r)
		statehandlers.NewHandler(s.scorer, s.stateRepo, &s.mu, s.log).RegisterRoutes(r)
		optimizerhandlers.NewHandler(s.optimizer, &s.mu, s.log).RegisterRoutes(r)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Mutex exposes the component mutex for background jobs that share the
// single-owner core state.
func (s *Server) Mutex() *sync.Mutex {
	return &s.mu
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
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
