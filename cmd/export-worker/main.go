package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finledger/internal/cli"
	applog "finledger/internal/log"
	"finledger/internal/sheets"
	gsheet "finledger/internal/sheets/google"
	mem "finledger/internal/sheets/memory"
	"finledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting export-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend != "sqlite" {
		// the worker reads the state the server persisted
		logger.Error("export-worker requires DATA_BACKEND=sqlite", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	repo := cli.OpenRepository(logger, cfg)
	defer repo.Close()

	var writer sheets.ReportWriter
	if cfg.SheetsEnabled() {
		client, err := gsheet.NewClient(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, gsheet.Credentials{
			JSON: cfg.GoogleServiceAccountJSON,
			File: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.LogError(context.Background(), "Failed to initialize Google Sheets client", err,
				applog.ErrorTypeConfiguration, applog.OpStartup)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets export enabled",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
	} else {
		writer = mem.New()
		logger.Info("Google Sheets disabled - reports are kept in memory only")
	}

	amqpClient := cli.OpenAMQP(logger, cfg, true)
	defer amqpClient.Close()

	reportWorker := worker.NewReportWorker(repo, writer)

	parent, stop := context.WithCancel(context.Background())
	defer stop()
	ctx, done := cli.GracefulShutdown(parent, logger, 30*time.Second, nil)

	// catch up on changes announced while the worker was down
	if err := reportWorker.StartupExport(ctx); err != nil {
		logger.LogError(ctx, "Startup export failed", err, applog.ErrorTypeNetwork, applog.OpExport)
	}

	go func() {
		err := amqpClient.ConsumeLedgerChanges(ctx, reportWorker.HandleLedgerChanged)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.LogError(ctx, "Message consumption failed", err, applog.ErrorTypeNetwork, applog.OpExport)
		}
		stop()
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("export-worker stopped")
}
