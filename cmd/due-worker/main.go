package main

import (
	"context"
	"os"
	"time"

	"finledger/internal/cli"
	applog "finledger/internal/log"
	"finledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentDues)
	logger.Info("Starting due-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend != "sqlite" {
		logger.Error("due-worker requires DATA_BACKEND=sqlite", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	repo := cli.OpenRepository(logger, cfg)
	defer repo.Close()

	amqpClient := cli.OpenAMQP(logger, cfg, true)
	defer amqpClient.Close()

	processor := services.NewDueProcessor(
		services.RepositoryFixedCosts(repo),
		amqpClient,
		services.DueProcessorConfig{
			Interval: cfg.DueCheckInterval,
			Horizon:  cfg.DueHorizon,
		},
	)

	ctx, done := cli.GracefulShutdown(context.Background(), logger, 30*time.Second, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Warn("Due processor stop failed", applog.FieldError, err)
		}
	})

	logger.Info("Due processor configured",
		"interval", cfg.DueCheckInterval,
		"horizon", cfg.DueHorizon,
		"sqlite_db", cfg.SQLiteDBPath)

	if err := processor.Start(ctx); err != nil {
		logger.LogError(ctx, "Failed to start due processor", err, applog.ErrorTypeInternal, applog.OpStartup)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("due-worker stopped")
}
