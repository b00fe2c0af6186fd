package main

import (
	"context"
	"errors"
	"os"
	"time"

	"budgetwise/internal/cli"
	applog "budgetwise/internal/log"
	"budgetwise/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		applog.Default().Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	logger.Info("Starting budget-worker", applog.FieldBackend, cfg.DataBackend)

	rt, err := cli.InitRuntime(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize runtime", "error", err)
		os.Exit(1)
	}

	anomalyWorker := worker.NewAnomalyWorker(rt.Cache, rt.Backend.Users, cfg.ScanConcurrency, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if err := rt.Close(); err != nil {
			logger.Error("Failed to release backend", "error", err)
		}
	})
	ctx = applog.WithContext(ctx, logger)

	// Catch transfers recorded while the worker was down
	logger.Info("Performing startup anomaly scan...")
	if err := anomalyWorker.StartupScan(ctx); err != nil {
		logger.Error("Failed startup anomaly scan", "error", err)
		// Don't exit - continue with normal operation
	}

	if rt.Backend.AMQP != nil {
		go func() {
			err := rt.Backend.AMQP.ConsumeTransferCompleted(ctx, anomalyWorker.HandleTransferCompleted)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - no broker configured")
	}

	cli.WaitForShutdown(ctx, done)
}
