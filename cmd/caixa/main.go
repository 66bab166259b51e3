package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"caixa/internal/amqp"
	"caixa/internal/cache"
	"caixa/internal/cli"
	"caixa/internal/config"
	"caixa/internal/core"
	apphttp "caixa/internal/http"
	"caixa/internal/log"
	"caixa/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentApp)
	cli.ValidateConfig(logger, cfg)

	ctx, stop := cli.SignalContext(logger.Slog())
	defer stop()

	store := cli.InitBackend(ctx, logger, cfg)
	defer store.Close()
	logger.Info("Initialized data backend", "backend", cfg.DataBackend)

	// Finished reports are cached per filter; the janitor evicts expired ones.
	reportCache := cache.NewLRUCache[core.Report](cfg.ReportCacheSize, cfg.ReportCacheTTL)
	janitor := cache.NewJanitor(logger.WithComponent(log.ComponentCache).Slog())
	janitor.Register(reportCache)
	janitor.Start(cfg.ReportCacheTTL)
	defer janitor.Stop()

	opts := []services.Option{
		services.WithCache(reportCache),
		services.WithTitleWriter(store.Store),
		services.WithLogger(logger.WithComponent(log.ComponentReport).Slog()),
	}

	// AMQP is optional; without it refresh requests answer 503.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.Logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		opts = append(opts, services.WithPublisher(amqpClient))
		logger.Info("AMQP publisher enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	svc := services.NewReportService(store.Store, store.Store, cli.ServiceConfig(cfg), opts...)

	srv := apphttp.NewServer(":"+cfg.Port, svc, logger.Logger,
		apphttp.WithReadyCheck("store", func(ctx context.Context) error {
			_, err := store.Store.LoadReference(ctx)
			return err
		}))

	go func() {
		logger.Info("Starting caixa server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
