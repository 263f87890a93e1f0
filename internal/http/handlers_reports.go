package http

import (
	"net/http"

	"cashflow/internal/core"
	"cashflow/internal/services"
)

// reportScope is the month, mode and account shared by most report routes.
type reportScope struct {
	month     core.Month
	accountID *int64
}

func (s *Server) parseScope(r *http.Request) (reportScope, error) {
	q := r.URL.Query()
	month, err := ParseMonthParam(q, "month", s.now())
	if err != nil {
		return reportScope{}, err
	}
	accountID, err := ParseIDParam(q, "account")
	if err != nil {
		return reportScope{}, err
	}
	return reportScope{month: month, accountID: accountID}, nil
}

func (s *Server) cashflowRequest(r *http.Request) (services.CashflowRequest, error) {
	scope, err := s.parseScope(r)
	if err != nil {
		return services.CashflowRequest{}, err
	}
	asOf, err := ParseOptionalDateParam(r.URL.Query(), "asOf")
	if err != nil {
		return services.CashflowRequest{}, err
	}
	return services.CashflowRequest{Month: scope.month, AccountID: scope.accountID, AsOf: asOf}, nil
}

func (s *Server) handleCashflowReport(w http.ResponseWriter, r *http.Request) {
	req, err := s.cashflowRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.reports.Cashflow(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(report).Write(w)
}

func (s *Server) handleBudgetMonitorReport(w http.ResponseWriter, r *http.Request) {
	scope, err := s.parseScope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	mode, err := ParseModeParam(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.reports.BudgetMonitor(r.Context(), services.MonitorRequest{Month: scope.month, Mode: mode, AccountID: scope.accountID})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(report).Write(w)
}

func (s *Server) handleBudgetPeriodReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := ParseDateParam(q, "from")
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := ParseDateParam(q, "to")
	if err != nil {
		writeError(w, r, err)
		return
	}
	mode, err := ParseModeParam(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	accountID, err := ParseIDParam(q, "account")
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.reports.BudgetPeriod(r.Context(), services.PeriodRequest{From: from, To: to, Mode: mode, AccountID: accountID})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(report).Write(w)
}

func (s *Server) handleDashboardReport(w http.ResponseWriter, r *http.Request) {
	scope, err := s.parseScope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	mode, err := ParseModeParam(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.reports.Dashboard(r.Context(), services.DashboardRequest{Month: scope.month, Mode: mode, AccountID: scope.accountID})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(report).Write(w)
}

func (s *Server) handleIntelligenceReport(w http.ResponseWriter, r *http.Request) {
	scope, err := s.parseScope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	mode, err := ParseModeParam(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	asOf, err := ParseOptionalDateParam(q, "asOf")
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.reports.Intelligence(r.Context(), services.IntelligenceRequest{
		Month:     scope.month,
		Mode:      mode,
		AccountID: scope.accountID,
		AsOf:      asOf,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(report).Write(w)
}

type exportResponse struct {
	Month core.Month `json:"month"`
	Range string     `json:"range"`
}

func (s *Server) handleExportCashflow(w http.ResponseWriter, r *http.Request) {
	req, err := s.cashflowRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.reports.Cashflow(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rng, err := s.exporter.ExportCashflow(r.Context(), report)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(exportResponse{Month: report.Month, Range: rng}).Write(w)
}
