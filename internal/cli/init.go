// Package cli holds the start-up steps shared by the finledger binaries.
package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finledger/internal/amqp"
	"finledger/internal/config"
	"finledger/internal/ledger"
	applog "finledger/internal/log"
	"finledger/internal/services"
	"finledger/internal/storage"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT
// (text or json) and installs it as the slog default.
func SetupLogger(component string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Component = component
	cfg.Level = applog.ParseLevel(os.Getenv("LOG_LEVEL"))
	cfg.JSON = strings.EqualFold(os.Getenv("LOG_FORMAT"), "json")
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.LogError(context.Background(), "Configuration validation failed", err,
			applog.ErrorTypeConfiguration, applog.OpStartup)
		os.Exit(1)
	}
	return cfg
}

// OpenRepository opens the snapshot repository selected by DATA_BACKEND.
// Exits the process on failure.
func OpenRepository(logger *applog.Logger, cfg *config.Config) storage.SnapshotRepository {
	if cfg.DataBackend == "memory" {
		logger.Info("Using in-memory ledger storage, state is lost on exit")
		return storage.NewMemoryRepository()
	}
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger.WithComponent(applog.ComponentStorage).Slog())
	if err != nil {
		logger.LogError(context.Background(), "Failed to initialize SQLite repository", err,
			applog.ErrorTypeDatabase, applog.OpStartup, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	logger.Info("SQLite repository ready", "path", cfg.SQLiteDBPath)
	return repo
}

// OpenAMQP connects to the broker when AMQP_URL is set. With required unset
// a connection failure is logged and nil is returned.
func OpenAMQP(logger *applog.Logger, cfg *config.Config, required bool) *amqp.Client {
	if !cfg.AMQPEnabled() {
		if required {
			logger.Error("AMQP_URL is required for this process")
			os.Exit(1)
		}
		logger.Info("AMQP disabled, no events will be published")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPDueQueue)
	if err != nil {
		if required {
			logger.LogError(context.Background(), "Failed to initialize AMQP client", err,
				applog.ErrorTypeNetwork, applog.OpStartup)
			os.Exit(1)
		}
		logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		return nil
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
	return client
}

// Publisher converts a possibly nil client to a ChangePublisher, keeping a
// nil client a nil interface.
func Publisher(client *amqp.Client) services.ChangePublisher {
	if client == nil {
		return nil
	}
	return client
}

// LoadLedger builds the ledger service over repo and restores the stored
// state. Exits the process when the stored state cannot be read.
func LoadLedger(ctx context.Context, logger *applog.Logger, cfg *config.Config, repo storage.SnapshotRepository, publisher services.ChangePublisher) *services.LedgerService {
	store := ledger.New(ledger.WithLogger(logger.WithComponent(applog.ComponentLedger).Slog()))
	reports := services.NewReportCache(cfg.ReportCacheSize, cfg.ReportCacheTTL)
	svc := services.NewLedgerService(store, repo, publisher, reports, logger.Slog())
	if err := svc.Load(ctx); err != nil {
		logger.LogError(ctx, "Failed to load ledger", err, applog.ErrorTypeDatabase, applog.OpStartup)
		os.Exit(1)
	}
	if err := svc.Verify(); err != nil {
		// keep serving; the replay check is reported, not repaired
		logger.LogError(ctx, "Stored ledger failed replay verification", err,
			applog.ErrorTypeInvariant, applog.OpStartup)
	}
	logger.Info("Ledger loaded",
		applog.FieldVersion, svc.Version(),
		"transactions", len(svc.Transactions()))
	return svc
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that is cancelled on SIGINT, SIGTERM or cancellation of
// parent, and a channel closed once cleanup has run.
func GracefulShutdown(parent context.Context, logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
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
