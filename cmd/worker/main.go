package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"stocksync/internal/app"
	"stocksync/internal/config"
	"stocksync/internal/logger"
	"stocksync/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// Initialize logger
	logger := logger.New(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	if len(cfg.KafkaBrokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer a.Close()

	// Initialize worker
	w := worker.New(cfg, a.Sync, logger)

	// Start worker; returns once ctx is cancelled
	logger.Info("Starting worker...")
	w.Start(ctx)

	w.Stop()
}
