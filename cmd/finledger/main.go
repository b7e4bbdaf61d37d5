package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finledger/internal/cache"
	"finledger/internal/cli"
	apphttp "finledger/internal/http"
	applog "finledger/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.OpenRepository(logger, cfg)
	amqpClient := cli.OpenAMQP(logger, cfg, false)

	svc := cli.LoadLedger(context.Background(), logger, cfg, repo, cli.Publisher(amqpClient))

	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache).Slog())
	svc.RegisterCaches(cacheManager)
	cleanupEvery := cfg.ReportCacheTTL
	if cleanupEvery <= 0 {
		cleanupEvery = 5 * time.Minute
	}
	cacheManager.StartCleanup(cleanupEvery)

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		DueHorizon:         cfg.DueHorizon,
		Logger:             logger,
	})
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(context.Background(), logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cacheManager.Stop()
		// flushes queued change events before the broker goes away
		if err := svc.Close(); err != nil {
			logger.Error("Ledger close error", applog.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err)
			}
		}
	})

	logger.Info("Starting finledger server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp", cfg.AMQPEnabled(),
		applog.FieldVersion, svc.Version())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
