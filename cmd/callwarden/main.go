package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/callwarden/callwarden/internal/config"
	"github.com/callwarden/callwarden/internal/dnc"
	"github.com/callwarden/callwarden/internal/engine"
	"github.com/callwarden/callwarden/internal/llm"
	"github.com/callwarden/callwarden/internal/logger"
	"github.com/callwarden/callwarden/internal/rules"
	"github.com/callwarden/callwarden/internal/server"
	"github.com/callwarden/callwarden/internal/store"
	"github.com/callwarden/callwarden/internal/websocket"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("CallWarden %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if *healthCheck {
		performHealthCheck()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting CallWarden",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
	)

	// A broken rule catalog is fatal: evaluating against a partial catalog
	// would silently miss violations.
	catalog, err := rules.Default()
	if err != nil {
		log.Fatal("Failed to load rule catalog", zap.Error(err))
	}
	log.Info("Rule catalog loaded",
		zap.String("version", catalog.Version),
		zap.Int("rules", len(catalog.All())))

	llmClient := llm.NewClient(cfg.LLM.Endpoint, cfg.LLM.Model, cfg.LLM.Timeout, log)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if llmClient.CheckAvailability(ctx) {
		log.Info("Hosted evaluator ready", zap.String("model", cfg.LLM.Model))
	} else {
		log.Warn("Hosted evaluator unavailable, starting in rules-only mode")
	}
	cancel()

	sessions := engine.NewSessionManager(cfg.Engine.SessionTTL, log)
	sessions.StartCleanupRoutine()

	orchestrator := engine.NewOrchestrator(catalog, llmClient, sessions, log)

	deps := server.Deps{
		Catalog:      catalog,
		Orchestrator: orchestrator,
		LLMClient:    llmClient,
	}

	if cfg.Database.Enabled {
		alertStore, err := store.New(&cfg.Database, log)
		if err != nil {
			log.Fatal("Failed to initialize alert store", zap.Error(err))
		}
		defer alertStore.Close()
		deps.AlertStore = alertStore
	}

	if cfg.DNC.Enabled {
		registry, err := dnc.New(&cfg.DNC, log)
		if err != nil {
			log.Fatal("Failed to initialize DNC registry", zap.Error(err))
		}
		defer registry.Close()
		deps.DNCRegistry = registry
	}

	if cfg.WebSocket.Enabled {
		deps.WSHub = websocket.NewHub(&websocket.HubConfig{
			BroadcastAlerts:   cfg.WebSocket.Events.BroadcastAlerts,
			BroadcastSessions: cfg.WebSocket.Events.BroadcastSessions,
			BroadcastSystem:   cfg.WebSocket.Events.BroadcastSystem,
		}, log)
	}

	srv := server.New(cfg, deps, log)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}

		log.Info("Server shutdown complete")
	}
}

// performHealthCheck probes a locally running instance
func performHealthCheck() {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
