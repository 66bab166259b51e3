package main

import (
	"context"
	"errors"
	"os"

	"caixa/internal/amqp"
	"caixa/internal/cli"
	"caixa/internal/config"
	"caixa/internal/core"
	"caixa/internal/export/xlsx"
	"caixa/internal/log"
	"caixa/internal/services"
	gsheet "caixa/internal/sheets/google"
	"caixa/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker)
	cli.ValidateConfig(logger, cfg)

	logger.Info("Starting caixa-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger.Slog())
	defer stop()

	store := cli.InitBackend(ctx, logger, cfg)
	defer store.Close()

	// Report writers: every configured destination receives each report.
	var writers []worker.ReportWriter
	if cfg.XLSXOutputDir != "" {
		w, err := xlsx.NewWriter(cfg.XLSXOutputDir, logger.WithComponent(log.ComponentXLSX).Slog())
		if err != nil {
			logger.Error("Failed to initialize XLSX writer", log.FieldError, err)
			os.Exit(1)
		}
		writers = append(writers, w)
		logger.Info("XLSX writer enabled", "dir", cfg.XLSXOutputDir)
	}
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleCredentialsFile,
		}, logger.WithComponent(log.ComponentSheets).Slog())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		writers = append(writers, sheetsClient)
		logger.Info("Google Sheets writer enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	svc := services.NewReportService(store.Store, store.Store, cli.ServiceConfig(cfg),
		services.WithPublisher(amqpClient),
		services.WithLogger(logger.WithComponent(log.ComponentReport).Slog()))

	reportWorker := worker.NewReportWorker(svc, logger.Logger, writers...)

	// A schedule enqueues a refresh of the default report; the consumer
	// below picks it up like any other request.
	if cfg.ReportSchedule != "" {
		scheduler, err := worker.NewScheduler(ctx, cfg.ReportSchedule, func(ctx context.Context) error {
			_, err := svc.RequestRefresh(ctx, core.Filter{})
			return err
		}, logger.Logger)
		if err != nil {
			logger.Error("Failed to initialize scheduler", log.FieldError, err)
			os.Exit(1)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	go func() {
		if err := amqpClient.ConsumeWithReconnect(ctx, reportWorker.HandleReportRequest); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Worker shutdown complete", log.FieldOperation, log.OpShutdown)
}
