package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/callwarden/callwarden/internal/config"
	"github.com/callwarden/callwarden/internal/export"
	"github.com/callwarden/callwarden/internal/logger"
	"github.com/callwarden/callwarden/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "", "Configuration file path")
		outputFile = flag.String("output", "", "Output Parquet file path")
		startDate  = flag.String("start-date", "", "Start of the export range (RFC3339, default 30 days ago)")
		endDate    = flag.String("end-date", "", "End of the export range (RFC3339, default now)")
		agentID    = flag.String("agent-id", "", "Filter by agent id")
		severity   = flag.String("severity", "", "Filter by severity (low, medium, high)")
		ruleID     = flag.String("rule-id", "", "Filter by rule id")
	)
	flag.Parse()

	if *outputFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s --output alerts.parquet [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	alertStore, err := store.New(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to alert store", zap.Error(err))
	}
	defer alertStore.Close()

	if *startDate == "" {
		*startDate = time.Now().AddDate(0, 0, -30).Format(time.RFC3339)
	}
	if *endDate == "" {
		*endDate = time.Now().Format(time.RFC3339)
	}

	filter := store.AlertFilter{StartDate: startDate, EndDate: endDate}
	if *agentID != "" {
		filter.AgentID = agentID
	}
	if *severity != "" {
		filter.Severity = severity
	}
	if *ruleID != "" {
		filter.RuleID = ruleID
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	alerts, err := alertStore.GetAlerts(ctx, filter)
	if err != nil {
		log.Fatal("Failed to query alerts", zap.Error(err))
	}

	file, err := os.Create(*outputFile)
	if err != nil {
		log.Fatal("Failed to create output file", zap.Error(err))
	}
	defer file.Close()

	if err := export.WriteAlerts(file, alerts); err != nil {
		log.Fatal("Failed to write export", zap.Error(err))
	}

	log.Info("Export complete",
		zap.String("output", *outputFile),
		zap.Int("alerts", len(alerts)),
		zap.String("start_date", *startDate),
		zap.String("end_date", *endDate))
}
