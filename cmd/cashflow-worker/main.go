package main

import (
	"context"
	"os"

	"cashflow/internal/cli"
	applog "cashflow/internal/log"
	"cashflow/internal/services"
	"cashflow/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(os.Stdout, applog.ComponentWorker)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the budget alert worker")
		os.Exit(1)
	}

	res := cli.InitBackend(context.Background(), logger, cfg, true)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to release backend", applog.FieldError, err)
		}
	}()
	if res.AMQP == nil {
		logger.Error("Message broker unavailable", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		_ = res.Cleanup()
		os.Exit(1)
	}

	reports := services.NewReportService(res.Store, cli.ReportSettings(cfg), logger.WithComponent(applog.ComponentReports))
	alerts := worker.NewBudgetAlertWorker(reports, logger)

	ctx, done := cli.GracefulShutdown(logger, cli.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := alerts.Stop(shutdownCtx); err != nil {
			logger.Error("Worker shutdown error", applog.FieldError, err)
		}
	})

	if err := alerts.Start(ctx, res.AMQP); err != nil {
		logger.Error("Failed to start budget alert worker", applog.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}
	logger.Info("Budget alert worker started", "queue", cfg.AMQPQueue)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
