package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/callwarden/callwarden/internal/config"
	"github.com/callwarden/callwarden/internal/dnc"
	"github.com/callwarden/callwarden/internal/engine"
	"github.com/callwarden/callwarden/internal/llm"
	"github.com/callwarden/callwarden/internal/logger"
	"github.com/callwarden/callwarden/internal/rules"
	"github.com/callwarden/callwarden/internal/store"
	"github.com/callwarden/callwarden/internal/web"
	"github.com/callwarden/callwarden/internal/websocket"
)

// Server is the HTTP surface of the compliance engine. The store, DNC
// registry, and WebSocket hub are optional and may be nil when disabled.
type Server struct {
	config       *config.Config
	logger       *logger.Logger
	catalog      *rules.Catalog
	orchestrator *engine.Orchestrator
	llmClient    *llm.Client
	alertStore   *store.Store
	dncRegistry  *dnc.Registry
	wsHub        *websocket.Hub
	router       *mux.Router
	server       *http.Server
	rateLimiter  *ipRateLimiter
}

// Deps collects the wired components the server serves
type Deps struct {
	Catalog      *rules.Catalog
	Orchestrator *engine.Orchestrator
	LLMClient    *llm.Client
	AlertStore   *store.Store
	DNCRegistry  *dnc.Registry
	WSHub        *websocket.Hub
}

// New creates the HTTP server and registers all routes
func New(cfg *config.Config, deps Deps, log *logger.Logger) *Server {
	s := &Server{
		config:       cfg,
		logger:       log.WithComponent("server"),
		catalog:      deps.Catalog,
		orchestrator: deps.Orchestrator,
		llmClient:    deps.LLMClient,
		alertStore:   deps.AlertStore,
		dncRegistry:  deps.DNCRegistry,
		wsHub:        deps.WSHub,
		router:       mux.NewRouter(),
	}

	if cfg.Server.RateLimit.Enabled {
		s.rateLimiter = newIPRateLimiter(cfg.Server.RateLimit.RequestsPerSec, cfg.Server.RateLimit.Burst)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/", web.ServeDashboard).Methods("GET")
	s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods("GET")

	if s.wsHub != nil {
		s.router.HandleFunc(s.config.WebSocket.Path, s.wsHub.HandleWebSocket).Methods("GET")
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)

	api.HandleFunc("/evaluate", s.handleEvaluate).Methods("POST")

	api.HandleFunc("/sessions", s.handleStartSession).Methods("POST")
	api.HandleFunc("/sessions/{call_id}", s.handleEndSession).Methods("DELETE")
	api.HandleFunc("/sessions/{call_id}/reset", s.handleResetSession).Methods("POST")

	api.HandleFunc("/alerts", s.handleGetAlerts).Methods("GET")
	api.HandleFunc("/alerts/export", s.handleExportAlerts).Methods("GET")
	api.HandleFunc("/analytics", s.handleAnalytics).Methods("GET")

	api.HandleFunc("/rules", s.handleGetRules).Methods("GET")
	api.HandleFunc("/rules/prompt", s.handleGetRulesPrompt).Methods("GET")

	api.HandleFunc("/llm/status", s.handleLLMStatus).Methods("GET")
	api.HandleFunc("/llm/model", s.handleSetLLMModel).Methods("PUT")
}

// Start begins serving. Blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("Starting CallWarden server",
		zap.Int("port", s.config.Server.Port),
		zap.Bool("store_enabled", s.alertStore != nil),
		zap.Bool("dnc_enabled", s.dncRegistry != nil),
		zap.Bool("websocket_enabled", s.wsHub != nil),
	)

	if s.wsHub != nil {
		go s.wsHub.Run()
	}

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping CallWarden server")
	return s.server.Shutdown(ctx)
}

// Router exposes the handler tree, mainly for tests
func (s *Server) Router() http.Handler {
	return s.router
}
