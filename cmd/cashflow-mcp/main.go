// Command cashflow-mcp exposes the read-only reports as MCP tools over stdio.
package main

import (
	"context"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"cashflow/internal/cli"
	applog "cashflow/internal/log"
	"cashflow/internal/mcptools"
	"cashflow/internal/services"
)

var version = "dev"

func main() {
	cli.LoadEnvFile()
	// stdout carries the protocol, so logs go to stderr.
	cfg, logger := cli.LoadAndValidateConfig(os.Stderr, applog.ComponentMCP)

	res := cli.InitBackend(context.Background(), logger, cfg, false)
	defer res.Cleanup()

	reports := services.NewReportService(res.Store, cli.ReportSettings(cfg), logger.WithComponent(applog.ComponentReports))

	s := server.NewMCPServer("cashflow", version, server.WithToolCapabilities(false))
	mcptools.New(reports, time.Now).Register(s)

	logger.Info("Serving MCP tools on stdio", "version", version)
	if err := server.ServeStdio(s); err != nil {
		logger.Error("MCP server error", applog.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}
}
