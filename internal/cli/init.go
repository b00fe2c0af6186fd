// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/budgetctl and cmd/budget-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budgetwise/internal/backend"
	"budgetwise/internal/cache"
	"budgetwise/internal/config"
	applog "budgetwise/internal/log"
)

// SetupLogger builds the logger described by cfg and installs it as the
// process default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logger := applog.New(cfg.LogConfig(component))
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Runtime bundles what both binaries build at startup.
type Runtime struct {
	Config  *config.Config
	Logger  *applog.Logger
	Backend *backend.BackendResult
	Cache   *cache.TransactionCache
	Cleanup *cache.Manager
}

// InitRuntime opens the configured backend and puts a transaction cache in
// front of it. Cache cleanup runs until Close.
func InitRuntime(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*Runtime, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", backendCfg.Type, err)
	}

	txCache := cache.NewTransactionCache(res.Reader, res.Budgets, cache.Options{
		MaxEntries: cfg.CacheMaxEntries,
		Logger:     logger,
	})
	manager := cache.NewManager(logger)
	manager.Register(txCache.Cleaners()...)
	manager.StartCleanup(cfg.CacheCleanupInterval)

	return &Runtime{
		Config:  cfg,
		Logger:  logger,
		Backend: res,
		Cache:   txCache,
		Cleanup: manager,
	}, nil
}

// Close stops cache cleanup and releases the backend.
func (r *Runtime) Close() error {
	r.Cleanup.Stop()
	return r.Backend.Close()
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
