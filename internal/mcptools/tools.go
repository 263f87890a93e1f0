// Package mcptools exposes the cashflow reports as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"cashflow/internal/core"
	"cashflow/internal/reporting"
	"cashflow/internal/services"
)

// Reports is the report surface the tools call.
type Reports interface {
	Cashflow(ctx context.Context, req services.CashflowRequest) (reporting.CashflowReport, error)
	BudgetMonitor(ctx context.Context, req services.MonitorRequest) (reporting.BudgetMonitorReport, error)
	BudgetPeriod(ctx context.Context, req services.PeriodRequest) (reporting.BudgetPeriodReport, error)
	Dashboard(ctx context.Context, req services.DashboardRequest) (reporting.DashboardResponse, error)
	Intelligence(ctx context.Context, req services.IntelligenceRequest) (reporting.IntelligenceReport, error)
}

// Tools binds the reports to a clock for the default month.
type Tools struct {
	reports Reports
	now     func() time.Time
}

func New(reports Reports, now func() time.Time) *Tools {
	if now == nil {
		now = time.Now
	}
	return &Tools{reports: reports, now: now}
}

// Register adds all cashflow tools to the server.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(cashflowTool(), t.handleCashflow)
	s.AddTool(budgetMonitorTool(), t.handleBudgetMonitor)
	s.AddTool(budgetPeriodTool(), t.handleBudgetPeriod)
	s.AddTool(dashboardTool(), t.handleDashboard)
	s.AddTool(intelligenceTool(), t.handleIntelligence)
}

func monthOption() mcp.ToolOption {
	return mcp.WithString("month", mcp.Description("Month (YYYY-MM). Defaults to the current month."))
}

func accountOption() mcp.ToolOption {
	return mcp.WithNumber("account", mcp.Description("Restrict to one account id. Omit for all accounts."))
}

func modeOption() mcp.ToolOption {
	return mcp.WithString("mode",
		mcp.Description("leaf counts only a category's own transactions; rollup adds a root's children to the root."),
		mcp.Enum("leaf", "rollup"),
	)
}

func cashflowTool() mcp.Tool {
	return mcp.NewTool("cashflow_report",
		mcp.WithDescription("Day by day cashflow of a month: opening balance, income, expense and running balance for every day, plus month totals."),
		monthOption(),
		accountOption(),
		mcp.WithString("as_of", mcp.Description("Live preview cut-off (YYYY-MM-DD). Balances after this day are left empty.")),
	)
}

func budgetMonitorTool() mcp.Tool {
	return mcp.NewTool("budget_monitor",
		mcp.WithDescription("Budget against actual spending for every category of a month, with the resolved budget, remaining amount and whether it is exceeded."),
		monthOption(),
		modeOption(),
		accountOption(),
	)
}

func budgetPeriodTool() mcp.Tool {
	return mcp.NewTool("budget_period",
		mcp.WithDescription("Budgets pro-rated to a pay period inside one month, compared with spending in that period."),
		mcp.WithString("from", mcp.Required(), mcp.Description("First day of the period (YYYY-MM-DD)")),
		mcp.WithString("to", mcp.Required(), mcp.Description("Last day of the period (YYYY-MM-DD), same month as from")),
		modeOption(),
		accountOption(),
	)
}

func dashboardTool() mcp.Tool {
	return mcp.NewTool("dashboard",
		mcp.WithDescription("Month KPIs compared with the previous month, budget rows and the most recent transactions."),
		monthOption(),
		modeOption(),
		accountOption(),
	)
}

func intelligenceTool() mcp.Tool {
	return mcp.NewTool("intelligence",
		mcp.WithDescription("Month-end forecast: projected spending per budget with risk level, burn rate, days until the balance reaches zero and income volatility."),
		monthOption(),
		modeOption(),
		accountOption(),
		mcp.WithString("as_of", mcp.Description("Forecast date (YYYY-MM-DD). Defaults to today.")),
	)
}

func (t *Tools) handleCashflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	month, accountID, err := t.scope(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	asOf, err := optionalDate(request, "as_of")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(t.reports.Cashflow(ctx, services.CashflowRequest{Month: month, AccountID: accountID, AsOf: asOf}))
}

func (t *Tools) handleBudgetMonitor(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	month, accountID, err := t.scope(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode, err := reporting.ParseMode(mcp.ParseString(request, "mode", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(t.reports.BudgetMonitor(ctx, services.MonitorRequest{Month: month, Mode: mode, AccountID: accountID}))
}

func (t *Tools) handleBudgetPeriod(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fromStr, err := request.RequireString("from")
	if err != nil {
		return mcp.NewToolResultError("from is required"), nil
	}
	toStr, err := request.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError("to is required"), nil
	}
	from, err := core.ParseDate(fromStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := core.ParseDate(toStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode, err := reporting.ParseMode(mcp.ParseString(request, "mode", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(t.reports.BudgetPeriod(ctx, services.PeriodRequest{From: from, To: to, Mode: mode, AccountID: account(request)}))
}

func (t *Tools) handleDashboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	month, accountID, err := t.scope(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode, err := reporting.ParseMode(mcp.ParseString(request, "mode", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(t.reports.Dashboard(ctx, services.DashboardRequest{Month: month, Mode: mode, AccountID: accountID}))
}

func (t *Tools) handleIntelligence(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	month, accountID, err := t.scope(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode, err := reporting.ParseMode(mcp.ParseString(request, "mode", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	asOf, err := optionalDate(request, "as_of")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(t.reports.Intelligence(ctx, services.IntelligenceRequest{Month: month, Mode: mode, AccountID: accountID, AsOf: asOf}))
}

func (t *Tools) scope(request mcp.CallToolRequest) (core.Month, *int64, error) {
	month := core.MonthOf(t.now())
	if s := mcp.ParseString(request, "month", ""); s != "" {
		m, err := core.ParseMonth(s)
		if err != nil {
			return core.Month{}, nil, err
		}
		month = m
	}
	return month, account(request), nil
}

// account treats a missing or non-positive id as all accounts.
func account(request mcp.CallToolRequest) *int64 {
	id := int64(mcp.ParseInt(request, "account", 0))
	if id <= 0 {
		return nil
	}
	return &id
}

func optionalDate(request mcp.CallToolRequest, key string) (*core.Date, error) {
	s := mcp.ParseString(request, key, "")
	if s == "" {
		return nil, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &d, nil
}

// jsonResult turns a report or its error into a tool result. Report errors
// are tool errors, not protocol errors.
func jsonResult(report any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
