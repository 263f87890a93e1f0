// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/cashflow, cmd/cashflow-worker, and cmd/cashflow-mcp.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"cashflow/internal/backend"
	"cashflow/internal/config"
	applog "cashflow/internal/log"
	"cashflow/internal/services"
)

// ShutdownTimeout bounds graceful shutdown of every binary.
const ShutdownTimeout = 30 * time.Second

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration, builds the logger writing to w
// and validates the configuration. It exits the process on failure.
func LoadAndValidateConfig(w io.Writer, component string) (*config.Config, *applog.Logger) {
	cfg, err := config.Load()
	if err != nil {
		applog.Setup(w, "info", "text", component).Error("Failed to load configuration", applog.FieldError, err)
		os.Exit(1)
	}
	logger := applog.Setup(w, cfg.LogLevel, cfg.LogFormat, component)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitBackend opens the configured store. withEvents controls whether the
// broker is dialed. It exits the process on failure.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config, withEvents bool) *backend.BackendResult {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	if !withEvents {
		backendCfg.AMQPURL = ""
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// ReportSettings maps the reporting section of the configuration.
func ReportSettings(cfg *config.Config) services.ReportSettings {
	settings := services.DefaultReportSettings()
	if cfg.IncomeHistoryMonths > 0 {
		settings.IncomeHistoryMonths = cfg.IncomeHistoryMonths
	}
	if cfg.VolatilityStableBelow > 0 {
		settings.Thresholds.StableBelow = decimal.NewFromFloat(cfg.VolatilityStableBelow)
	}
	if cfg.VolatilityVolatileBelow > 0 {
		settings.Thresholds.VolatileBelow = decimal.NewFromFloat(cfg.VolatilityVolatileBelow)
	}
	if cfg.RecentTransactions > 0 {
		settings.RecentTransactions = cfg.RecentTransactions
	}
	return settings
}

// GracefulShutdown waits for SIGINT or SIGTERM in the background, then runs
// cleanup with a context bounded by timeout. The returned context is
// cancelled once cleanup has returned, and done is closed after that.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		}

		cancel()
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
