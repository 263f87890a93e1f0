package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"cashflow/internal/core"
	"cashflow/internal/ledger"
	applog "cashflow/internal/log"
	"cashflow/internal/reporting"
)

// ReportReader is the read side of the ledger the reports are built from.
type ReportReader interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListBudgets(ctx context.Context, month core.Month) ([]core.Budget, error)
	ListMonthConfigs(ctx context.Context, month core.Month) ([]core.MonthConfig, error)
	ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, error)
}

// ReportSettings tune the derived reports.
type ReportSettings struct {
	IncomeHistoryMonths int
	Thresholds          reporting.VolatilityThresholds
	RecentTransactions  int
	// Now is the clock used for the default intelligence cut-off.
	Now func() time.Time
}

func DefaultReportSettings() ReportSettings {
	return ReportSettings{
		IncomeHistoryMonths: reporting.DefaultIncomeHistoryMonths,
		Thresholds:          reporting.DefaultVolatilityThresholds(),
		RecentTransactions:  reporting.DefaultRecentTransactions,
		Now:                 time.Now,
	}
}

type (
	CashflowRequest struct {
		Month     core.Month
		AccountID *int64
		AsOf      *core.Date
	}

	MonitorRequest struct {
		Month     core.Month
		Mode      reporting.Mode
		AccountID *int64
	}

	PeriodRequest struct {
		From      core.Date
		To        core.Date
		Mode      reporting.Mode
		AccountID *int64
	}

	DashboardRequest struct {
		Month     core.Month
		Mode      reporting.Mode
		AccountID *int64
	}

	IntelligenceRequest struct {
		Month     core.Month
		Mode      reporting.Mode
		AccountID *int64
		// AsOf defaults to today.
		AsOf *core.Date
	}
)

// ReportService loads report inputs from the ledger and runs the builders.
type ReportService struct {
	reader   ReportReader
	settings ReportSettings
	logger   *applog.StructuredLogger
}

func NewReportService(reader ReportReader, settings ReportSettings, logger *applog.Logger) *ReportService {
	if settings.Now == nil {
		settings.Now = time.Now
	}
	if settings.IncomeHistoryMonths <= 0 {
		settings.IncomeHistoryMonths = reporting.DefaultIncomeHistoryMonths
	}
	if settings.RecentTransactions <= 0 {
		settings.RecentTransactions = reporting.DefaultRecentTransactions
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentReports)
	}
	return &ReportService{
		reader:   reader,
		settings: settings,
		logger:   applog.NewStructuredLogger(logger),
	}
}

// monthData is everything one month's reports read.
type monthData struct {
	categories   []core.Category
	budgets      []core.Budget
	configs      []core.MonthConfig
	transactions []core.Transaction
}

func (d monthData) settings(month core.Month, accountID *int64) (incomeBase, opening core.Money) {
	return reporting.MonthSettings(d.configs, month, accountID)
}

func (s *ReportService) loadMonth(ctx context.Context, month core.Month, accountID *int64) (monthData, error) {
	var data monthData
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cats, err := s.reader.ListCategories(ctx)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		data.categories = cats
		return nil
	})
	g.Go(func() error {
		budgets, err := s.reader.ListBudgets(ctx, month)
		if err != nil {
			return fmt.Errorf("list budgets %s: %w", month, err)
		}
		data.budgets = budgets
		return nil
	})
	g.Go(func() error {
		configs, err := s.reader.ListMonthConfigs(ctx, month)
		if err != nil {
			return fmt.Errorf("list month configs %s: %w", month, err)
		}
		data.configs = configs
		return nil
	})
	g.Go(func() error {
		txs, err := s.monthTransactions(ctx, month, accountID)
		if err != nil {
			return err
		}
		data.transactions = txs
		return nil
	})

	if err := g.Wait(); err != nil {
		return monthData{}, err
	}
	return data, nil
}

func (s *ReportService) monthTransactions(ctx context.Context, month core.Month, accountID *int64) ([]core.Transaction, error) {
	f := ledger.MonthFilter(month)
	f.AccountID = accountID
	txs, err := s.reader.ListTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions %s: %w", month, err)
	}
	return txs, nil
}

// previousCashflow builds the cashflow of the month before, for comparisons.
func (s *ReportService) previousCashflow(ctx context.Context, month core.Month, accountID *int64) (reporting.CashflowReport, error) {
	prev := month.Prev()
	var (
		configs []core.MonthConfig
		txs     []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		configs, err = s.reader.ListMonthConfigs(gctx, prev)
		if err != nil {
			return fmt.Errorf("list month configs %s: %w", prev, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		txs, err = s.monthTransactions(gctx, prev, accountID)
		return err
	})
	if err := g.Wait(); err != nil {
		return reporting.CashflowReport{}, err
	}
	_, opening := reporting.MonthSettings(configs, prev, accountID)
	return reporting.BuildCashflow(reporting.CashflowInput{
		Month:          prev,
		AccountID:      accountID,
		OpeningBalance: opening,
		Transactions:   txs,
	})
}

// incomeHistory returns the income totals of the n months before month,
// oldest first. Months without any transaction in scope are not samples.
func (s *ReportService) incomeHistory(ctx context.Context, month core.Month, accountID *int64, n int) ([]core.Money, error) {
	totals := make([]*core.Money, n)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		m := month.Add(i - n)
		g.Go(func() error {
			txs, err := s.monthTransactions(ctx, m, accountID)
			if err != nil {
				return err
			}
			if len(txs) == 0 {
				return nil
			}
			total := reporting.SumSpend(txs, reporting.AnyCategory(), m.Range(), reporting.KindIncome)
			totals[i] = &total
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	history := make([]core.Money, 0, n)
	for _, t := range totals {
		if t != nil {
			history = append(history, *t)
		}
	}
	return history, nil
}

func (s *ReportService) logBuilt(ctx context.Context, report string, month core.Month, mode string, accountID *int64, start time.Time) {
	s.logger.LogReportBuilt(ctx, report, month.String(), mode, accountID, time.Since(start).Milliseconds())
}

// Cashflow builds the daily cashflow of a month.
func (s *ReportService) Cashflow(ctx context.Context, req CashflowRequest) (reporting.CashflowReport, error) {
	start := time.Now()
	if err := req.Month.Validate(); err != nil {
		return reporting.CashflowReport{}, err
	}
	data, err := s.loadMonth(ctx, req.Month, req.AccountID)
	if err != nil {
		return reporting.CashflowReport{}, err
	}
	_, opening := data.settings(req.Month, req.AccountID)
	report, err := reporting.BuildCashflow(reporting.CashflowInput{
		Month:          req.Month,
		AccountID:      req.AccountID,
		OpeningBalance: opening,
		Transactions:   data.transactions,
		AsOf:           req.AsOf,
	})
	if err != nil {
		return reporting.CashflowReport{}, fmt.Errorf("build cashflow: %w", err)
	}
	s.logBuilt(ctx, "cashflow", req.Month, "", req.AccountID, start)
	return report, nil
}

// BudgetMonitor builds budget usage for a month.
func (s *ReportService) BudgetMonitor(ctx context.Context, req MonitorRequest) (reporting.BudgetMonitorReport, error) {
	start := time.Now()
	if err := req.Month.Validate(); err != nil {
		return reporting.BudgetMonitorReport{}, err
	}
	data, err := s.loadMonth(ctx, req.Month, req.AccountID)
	if err != nil {
		return reporting.BudgetMonitorReport{}, err
	}
	report, err := s.monitor(req, data)
	if err != nil {
		return reporting.BudgetMonitorReport{}, err
	}
	s.logBuilt(ctx, "budget_monitor", req.Month, req.Mode.String(), req.AccountID, start)
	return report, nil
}

func (s *ReportService) monitor(req MonitorRequest, data monthData) (reporting.BudgetMonitorReport, error) {
	incomeBase, _ := data.settings(req.Month, req.AccountID)
	report, err := reporting.BuildBudgetMonitor(reporting.MonitorInput{
		Month:        req.Month,
		Mode:         req.Mode,
		AccountID:    req.AccountID,
		IncomeBase:   incomeBase,
		Categories:   data.categories,
		Budgets:      data.budgets,
		Transactions: data.transactions,
	})
	if err != nil {
		return reporting.BudgetMonitorReport{}, fmt.Errorf("build budget monitor: %w", err)
	}
	return report, nil
}

// BudgetPeriod builds budget usage for a sub-range of one month.
func (s *ReportService) BudgetPeriod(ctx context.Context, req PeriodRequest) (reporting.BudgetPeriodReport, error) {
	start := time.Now()
	r, err := reporting.PeriodRange(req.From, req.To)
	if err != nil {
		return reporting.BudgetPeriodReport{}, err
	}
	month := r.From.MonthOf()
	data, err := s.loadMonth(ctx, month, req.AccountID)
	if err != nil {
		return reporting.BudgetPeriodReport{}, err
	}
	incomeBase, _ := data.settings(month, req.AccountID)
	report, err := reporting.BuildBudgetPeriod(reporting.PeriodInput{
		From:         req.From,
		To:           req.To,
		Mode:         req.Mode,
		AccountID:    req.AccountID,
		IncomeBase:   incomeBase,
		Categories:   data.categories,
		Budgets:      data.budgets,
		Transactions: data.transactions,
	})
	if err != nil {
		return reporting.BudgetPeriodReport{}, fmt.Errorf("build budget period: %w", err)
	}
	s.logBuilt(ctx, "budget_period", month, req.Mode.String(), req.AccountID, start)
	return report, nil
}

// Dashboard combines the month's cashflow, its comparison with the previous
// month, the budget monitor and the latest transactions.
func (s *ReportService) Dashboard(ctx context.Context, req DashboardRequest) (reporting.DashboardResponse, error) {
	start := time.Now()
	if err := req.Month.Validate(); err != nil {
		return reporting.DashboardResponse{}, err
	}

	var (
		data     monthData
		previous reporting.CashflowReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = s.loadMonth(gctx, req.Month, req.AccountID)
		return err
	})
	g.Go(func() error {
		var err error
		previous, err = s.previousCashflow(gctx, req.Month, req.AccountID)
		return err
	})
	if err := g.Wait(); err != nil {
		return reporting.DashboardResponse{}, err
	}

	_, opening := data.settings(req.Month, req.AccountID)
	current, err := reporting.BuildCashflow(reporting.CashflowInput{
		Month:          req.Month,
		AccountID:      req.AccountID,
		OpeningBalance: opening,
		Transactions:   data.transactions,
	})
	if err != nil {
		return reporting.DashboardResponse{}, fmt.Errorf("build cashflow: %w", err)
	}
	budgets, err := s.monitor(MonitorRequest{Month: req.Month, Mode: req.Mode, AccountID: req.AccountID}, data)
	if err != nil {
		return reporting.DashboardResponse{}, err
	}

	resp, err := reporting.BuildDashboard(reporting.DashboardInput{
		Current:      current,
		Previous:     previous,
		Budgets:      budgets,
		Transactions: data.transactions,
		RecentLimit:  s.settings.RecentTransactions,
	})
	if err != nil {
		return reporting.DashboardResponse{}, fmt.Errorf("build dashboard: %w", err)
	}
	s.logBuilt(ctx, "dashboard", req.Month, req.Mode.String(), req.AccountID, start)
	return resp, nil
}

// Intelligence forecasts the month from the transactions up to AsOf.
func (s *ReportService) Intelligence(ctx context.Context, req IntelligenceRequest) (reporting.IntelligenceReport, error) {
	start := time.Now()
	if err := req.Month.Validate(); err != nil {
		return reporting.IntelligenceReport{}, err
	}
	asOf := core.DateOf(s.settings.Now())
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	var (
		data    monthData
		history []core.Money
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = s.loadMonth(gctx, req.Month, req.AccountID)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.incomeHistory(gctx, req.Month, req.AccountID, s.settings.IncomeHistoryMonths)
		return err
	})
	if err := g.Wait(); err != nil {
		return reporting.IntelligenceReport{}, err
	}

	incomeBase, opening := data.settings(req.Month, req.AccountID)
	report, err := reporting.BuildIntelligence(reporting.IntelligenceInput{
		Month:          req.Month,
		AsOf:           asOf,
		Mode:           req.Mode,
		AccountID:      req.AccountID,
		OpeningBalance: opening,
		IncomeBase:     incomeBase,
		Categories:     data.categories,
		Budgets:        data.budgets,
		Transactions:   data.transactions,
		IncomeHistory:  history,
		Thresholds:     s.settings.Thresholds,
	})
	if err != nil {
		return reporting.IntelligenceReport{}, fmt.Errorf("build intelligence: %w", err)
	}
	s.logBuilt(ctx, "intelligence", req.Month, req.Mode.String(), req.AccountID, start)
	return report, nil
}
