package mcptools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"cashflow/internal/core"
	"cashflow/internal/reporting"
	"cashflow/internal/services"
)

type fakeReports struct {
	cashflow     services.CashflowRequest
	monitor      services.MonitorRequest
	period       services.PeriodRequest
	dashboard    services.DashboardRequest
	intelligence services.IntelligenceRequest
	err          error
}

func (f *fakeReports) Cashflow(_ context.Context, req services.CashflowRequest) (reporting.CashflowReport, error) {
	f.cashflow = req
	return reporting.CashflowReport{Month: req.Month, ClosingBalance: core.MustMoney("12.50")}, f.err
}

func (f *fakeReports) BudgetMonitor(_ context.Context, req services.MonitorRequest) (reporting.BudgetMonitorReport, error) {
	f.monitor = req
	return reporting.BudgetMonitorReport{}, f.err
}

func (f *fakeReports) BudgetPeriod(_ context.Context, req services.PeriodRequest) (reporting.BudgetPeriodReport, error) {
	f.period = req
	return reporting.BudgetPeriodReport{}, f.err
}

func (f *fakeReports) Dashboard(_ context.Context, req services.DashboardRequest) (reporting.DashboardResponse, error) {
	f.dashboard = req
	return reporting.DashboardResponse{}, f.err
}

func (f *fakeReports) Intelligence(_ context.Context, req services.IntelligenceRequest) (reporting.IntelligenceReport, error) {
	f.intelligence = req
	return reporting.IntelligenceReport{}, f.err
}

func request(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want mcp.TextContent", res.Content[0])
	}
	return text.Text
}

func newTools(f *fakeReports) *Tools {
	return New(f, func() time.Time { return time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC) })
}

func TestHandleCashflow(t *testing.T) {
	f := &fakeReports{}
	tools := newTools(f)

	res, err := tools.handleCashflow(context.Background(), request("cashflow_report", map[string]any{
		"month":   "2026-02",
		"account": float64(3),
		"as_of":   "2026-02-14",
	}))
	if err != nil {
		t.Fatalf("handleCashflow() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("handleCashflow() tool error: %s", resultText(t, res))
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(resultText(t, res)), &body); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if body["closingBalance"] != "12.50" || body["month"] != "2026-02" {
		t.Errorf("result = %v", body)
	}
	if f.cashflow.AccountID == nil || *f.cashflow.AccountID != 3 {
		t.Errorf("account = %v, want 3", f.cashflow.AccountID)
	}
	if f.cashflow.AsOf == nil || f.cashflow.AsOf.String() != "2026-02-14" {
		t.Errorf("asOf = %v, want 2026-02-14", f.cashflow.AsOf)
	}
}

func TestHandlers_Defaults(t *testing.T) {
	f := &fakeReports{}
	tools := newTools(f)
	ctx := context.Background()
	march := core.Month{Year: 2026, Month: time.March}

	if _, err := tools.handleBudgetMonitor(ctx, request("budget_monitor", nil)); err != nil {
		t.Fatal(err)
	}
	if f.monitor.Month != march || f.monitor.Mode != reporting.Leaf || f.monitor.AccountID != nil {
		t.Errorf("monitor request = %+v, want March, leaf, all accounts", f.monitor)
	}

	if _, err := tools.handleDashboard(ctx, request("dashboard", map[string]any{"mode": "rollup"})); err != nil {
		t.Fatal(err)
	}
	if f.dashboard.Mode != reporting.Rollup {
		t.Errorf("dashboard mode = %v, want rollup", f.dashboard.Mode)
	}

	if _, err := tools.handleIntelligence(ctx, request("intelligence", nil)); err != nil {
		t.Fatal(err)
	}
	if f.intelligence.AsOf != nil {
		t.Errorf("intelligence asOf = %v, want nil so the service uses today", f.intelligence.AsOf)
	}
}

func TestHandlers_ToolErrors(t *testing.T) {
	f := &fakeReports{}
	tools := newTools(f)
	ctx := context.Background()

	tests := []struct {
		name    string
		handler server.ToolHandlerFunc
		args    map[string]any
		want    string
	}{
		{"bad month", tools.handleCashflow, map[string]any{"month": "March"}, "invalid month"},
		{"bad mode", tools.handleBudgetMonitor, map[string]any{"mode": "tree"}, "invalid rollup mode"},
		{"period missing from", tools.handleBudgetPeriod, map[string]any{"to": "2026-03-15"}, "from is required"},
		{"period bad date", tools.handleBudgetPeriod, map[string]any{"from": "2026-03-01", "to": "15/03"}, "invalid date"},
		{"bad as_of", tools.handleIntelligence, map[string]any{"as_of": "yesterday"}, "as_of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.handler(ctx, request(tt.name, tt.args))
			if err != nil {
				t.Fatalf("handler returned protocol error %v", err)
			}
			if !res.IsError {
				t.Fatal("IsError = false, want true")
			}
			if got := resultText(t, res); !strings.Contains(got, tt.want) {
				t.Errorf("error text = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestHandleBudgetPeriod_ServiceError(t *testing.T) {
	f := &fakeReports{err: reporting.ErrRangeSpansMonths}
	tools := newTools(f)

	res, err := tools.handleBudgetPeriod(context.Background(), request("budget_period", map[string]any{
		"from": "2026-02-20",
		"to":   "2026-03-05",
	}))
	if err != nil {
		t.Fatalf("handleBudgetPeriod() error = %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "spans more than one month") {
		t.Errorf("result = %+v, want range error", res)
	}
	if !f.period.From.Equal(core.NewDate(2026, time.February, 20)) {
		t.Errorf("from = %v", f.period.From)
	}
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		tool     mcp.Tool
		name     string
		required []string
	}{
		{cashflowTool(), "cashflow_report", nil},
		{budgetMonitorTool(), "budget_monitor", nil},
		{budgetPeriodTool(), "budget_period", []string{"from", "to"}},
		{dashboardTool(), "dashboard", nil},
		{intelligenceTool(), "intelligence", nil},
	}
	for _, tt := range tests {
		if tt.tool.Name != tt.name {
			t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.name)
		}
		if tt.tool.Description == "" {
			t.Errorf("tool %s has no description", tt.name)
		}
		if len(tt.tool.InputSchema.Required) != len(tt.required) {
			t.Errorf("tool %s required = %v, want %v", tt.name, tt.tool.InputSchema.Required, tt.required)
		}
		if _, ok := tt.tool.InputSchema.Properties["account"]; !ok {
			t.Errorf("tool %s has no account parameter", tt.name)
		}
	}
}

func TestBudgetMonitorToolDescription(t *testing.T) {
	desc := strings.ToLower(budgetMonitorTool().Description)
	for _, want := range []string{"budget", "remaining", "exceeded"} {
		if !strings.Contains(desc, want) {
			t.Errorf("budget_monitor description = %q, want it to mention %q", desc, want)
		}
	}
	if strings.Contains(desc, "percentage") {
		t.Errorf("budget_monitor description = %q, monitor rows carry no percentage", desc)
	}
}
