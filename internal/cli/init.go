// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/caixa, cmd/caixa-worker, and cmd/caixa-import.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"caixa/internal/backend"
	"caixa/internal/config"
	"caixa/internal/log"
	"caixa/internal/services"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the default logger. LOG_FORMAT=json switches to the JSON handler.
func SetupLogger(level, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: component,
		JSON:      strings.EqualFold(os.Getenv("LOG_FORMAT"), "json"),
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// ValidateConfig exits the process when cfg is invalid.
func ValidateConfig(logger *log.Logger, cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err,
			log.FieldOperation, log.OpValidate)
		os.Exit(1)
	}
}

// InitBackend opens the configured data source.
// Returns the backend or exits the process on failure.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return result
}

// ServiceConfig maps the application config onto the report service tunables.
func ServiceConfig(cfg *config.Config) services.ReportServiceConfig {
	sc := services.DefaultReportServiceConfig()
	if cfg.FetchConcurrency > 0 {
		sc.FetchConcurrency = cfg.FetchConcurrency
	}
	if !cfg.OpenBalanceThreshold.IsNegative() {
		sc.OpenThreshold = cfg.OpenBalanceThreshold
	}
	if cfg.TransferCategoryPrefix != "" {
		sc.TransferPrefix = cfg.TransferCategoryPrefix
	}
	return sc
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
