package main

import (
	"context"
	"os"

	"cashflow/internal/cli"
	exportsheets "cashflow/internal/export/sheets"
	apphttp "cashflow/internal/http"
	applog "cashflow/internal/log"
	"cashflow/internal/middleware/ratelimit"
	"cashflow/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(os.Stdout, applog.ComponentApp)

	res := cli.InitBackend(context.Background(), logger, cfg, true)

	var publisher services.TransactionPublisher
	if res.AMQP != nil {
		publisher = res.AMQP
	}
	ledgerSvc := services.NewLedgerService(res.Store, publisher, logger.WithComponent(applog.ComponentLedger), res.Cleanup)
	reports := services.NewReportService(res.Store, cli.ReportSettings(cfg), logger.WithComponent(applog.ComponentReports))

	opts := apphttp.Options{
		Logger:         logger,
		Ready:          readiness(res.Store),
		RequestTimeout: cfg.RequestTimeout.Duration,
		RateLimit: ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			Burst:             cfg.RateLimitBurst,
		},
	}
	if cfg.ExportEnabled() {
		exporter, err := exportsheets.New(context.Background(), exportsheets.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger.WithComponent(applog.ComponentExport))
		if err != nil {
			logger.Error("Failed to initialize spreadsheet export", applog.FieldError, err)
			_ = ledgerSvc.Close()
			os.Exit(1)
		}
		opts.Exporter = exporter
		logger.Info("Spreadsheet export enabled", "sheet", cfg.GoogleSheetName)
	}

	srv := apphttp.NewServer(":"+cfg.Port, ledgerSvc, reports, opts)

	ctx, done := cli.GracefulShutdown(logger, cli.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting cashflow server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		_ = ledgerSvc.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	if err := ledgerSvc.Close(); err != nil {
		logger.Error("Failed to release backend", applog.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}

// readiness pings stores that can lose their connection.
func readiness(store any) func(context.Context) error {
	pinger, ok := store.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return pinger.Ping
}
