package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/medtext/radprep/internal/cache"
	"github.com/medtext/radprep/internal/config"
	"github.com/medtext/radprep/internal/events"
	"github.com/medtext/radprep/internal/logger"
	"github.com/medtext/radprep/internal/preprocess"
	"github.com/medtext/radprep/internal/security"
	"github.com/medtext/radprep/internal/web"
)

// Server exposes the preprocessing engine over HTTP
type Server struct {
	config    *config.Config
	logger    *logger.Logger
	engine    *preprocess.Engine
	hub       *events.Hub
	limiter   *security.RateLimiter
	results   *cache.ResultCache // nil when the Redis tier is disabled
	router    *mux.Router
	server    *http.Server
	startTime time.Time
}

// New creates a new server instance. results may be nil when the
// distributed cache is disabled.
func New(cfg *config.Config, log *logger.Logger, engine *preprocess.Engine, results *cache.ResultCache) *Server {
	hub := events.NewHub(&cfg.WebSocket, log.WithComponent("events").Logger)
	limiter := security.NewRateLimiter(&cfg.Security)

	router := mux.NewRouter()

	server := &Server{
		config:    cfg,
		logger:    log.WithComponent("server"),
		engine:    engine,
		hub:       hub,
		limiter:   limiter,
		results:   results,
		router:    router,
		startTime: time.Now(),
	}

	server.setupRoutes()

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Dashboard endpoint - embedded HTML
	s.router.HandleFunc("/", web.ServeDashboard).Methods("GET")
	s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods("GET")

	// API endpoints
	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.recoveryMiddleware)
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.Use(s.bodySizeMiddleware)

	api.HandleFunc("/preprocess", s.handlePreprocess).Methods("POST")
	api.HandleFunc("/rules/info", s.handleRuleInfo).Methods("GET")
	api.HandleFunc("/rules/reload", s.handleReload).Methods("POST")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")

	// WebSocket event stream for dashboards
	if s.config.WebSocket.Enabled {
		s.router.HandleFunc("/v1/events", s.handleEvents).Methods("GET")
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting radprep server",
		zap.Int("port", s.config.Server.Port),
		zap.String("rules_provider", s.config.Rules.Provider),
		zap.Bool("result_cache", s.results != nil),
		zap.Bool("websocket", s.config.WebSocket.Enabled),
	)

	go s.hub.Run()

	if s.config.Security.RateLimit.Enabled {
		s.limiter.StartCleanupRoutine()
	}

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping radprep server")
	s.limiter.Stop()
	return s.server.Shutdown(ctx)
}

// handleEvents upgrades dashboard connections to the event hub
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.hub.HandleWebSocket(w, r)
}

// Hub returns the event hub for broadcasting events
func (s *Server) Hub() *events.Hub {
	return s.hub
}
