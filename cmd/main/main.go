package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-cache/src/analysis"
	"market-cache/src/cache"
	"market-cache/src/config"
	"market-cache/src/data_source/yahoo"
	"market-cache/src/interfaces"
	"market-cache/src/logger"
	"market-cache/src/network"
	"market-cache/src/server"
	"market-cache/src/storage"
	"market-cache/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(conf.LogLevel, conf.Name)

	// Persistent tier
	var store interfaces.IRecordStore

	switch conf.Storage.DBType {
	case "postgres":
		store, err = storage.NewPostgresRecordStore(conf.MConfig, appLogger)
	default:
		// Default to SQLite
		store, err = storage.NewSQLiteRecordStore(conf.MConfig, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init store: %v", err)
	}
	if err := store.Initialize(); err != nil {
		// A dead store is not fatal: the orchestrator degrades to
		// memory-only and keeps serving
		appLogger.Error("Store unavailable, running memory-only: %v", err)
		store = nil
	}

	// Orchestrator with both memory tiers
	orch := cache.NewOrchestrator(conf.CandleCache, conf.IndicatorCache, store, appLogger)

	// Fetch layer and indicator engine
	netManager := network.NewNetworkManager(conf.MConfig, logger.NewLogger(conf.LogLevel, "Network"))
	fetcher := yahoo.NewYahooFinanceSource(conf.MConfig, netManager, logger.NewLogger(conf.LogLevel, "Yahoo"))
	indicators := analysis.NewIndicatorEngine(logger.NewLogger(conf.LogLevel, "Indicators"))

	// API surface; the hub receives write-path events
	srv := server.NewAPIServer(conf.MConfig, orch, fetcher, indicators, logger.NewLogger(conf.LogLevel, "Server"))
	orch.SetExchange(srv)

	// Background cleanup of expired entries and stale rows
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := utils.NewCleanupScheduler(
		time.Duration(conf.Storage.CleanupIntervalMinutes)*time.Minute,
		store,
		logger.NewLogger(conf.LogLevel, "Cleanup"),
	)
	scheduler.Register("candle tier", orch.CandleTier())
	scheduler.Register("indicator tier", orch.IndicatorTier())
	scheduler.Start(ctx)

	// Serve until signalled
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	appLogger.Info("%s started on %s:%d (storage: %s)", conf.Name, conf.Host, conf.Port, conf.Storage.DBType)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	appLogger.Info("Shutting down...")
	scheduler.Stop()
	if store != nil {
		if err := store.Close(); err != nil {
			appLogger.Error("Store close error: %v", err)
		}
	}
}
