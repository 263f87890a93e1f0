package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	applog "cashflow/internal/log"
	"cashflow/internal/middleware/ratelimit"
	"cashflow/internal/middleware/security"
	"cashflow/internal/middleware/trace"
	"cashflow/internal/reporting"
	"cashflow/internal/services"
)

// CashflowExporter publishes a cashflow report somewhere outside the API.
type CashflowExporter interface {
	ExportCashflow(ctx context.Context, report reporting.CashflowReport) (string, error)
}

// Options tune a Server. Zero values fall back to defaults.
type Options struct {
	Logger         *applog.Logger
	Exporter       CashflowExporter
	Ready          func(context.Context) error
	RateLimit      ratelimit.Config
	RequestTimeout time.Duration
	Now            func() time.Time
}

type Server struct {
	http.Server
	ledger   *services.LedgerService
	reports  *services.ReportService
	exporter CashflowExporter
	ready    func(context.Context) error
	logger   *applog.Logger
	now      func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, ledgerSvc *services.LedgerService, reports *services.ReportService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	detector := security.NewDetector()

	s := &Server{
		ledger:   ledgerSvc,
		reports:  reports,
		exporter: opts.Exporter,
		ready:    opts.Ready,
		logger:   logger,
		now:      opts.Now,
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		detector: detector,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP, logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("PATCH /api/accounts/{id}", s.handleRenameAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/month-configs", s.handleListMonthConfigs)
	mux.HandleFunc("PUT /api/month-configs", s.handleSaveMonthConfig)
	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("PUT /api/budgets", s.handleUpsertBudget)

	mux.HandleFunc("GET /api/reports/cashflow", s.handleCashflowReport)
	mux.HandleFunc("GET /api/reports/budget-monitor", s.handleBudgetMonitorReport)
	mux.HandleFunc("GET /api/reports/budget-period", s.handleBudgetPeriodReport)
	mux.HandleFunc("GET /api/reports/dashboard", s.handleDashboardReport)
	mux.HandleFunc("GET /api/reports/intelligence", s.handleIntelligenceReport)

	if s.exporter != nil {
		mux.HandleFunc("POST /api/exports/cashflow", s.handleExportCashflow)
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(detector.ExtractClientIP, ratelimit.WritesOnly, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.NewFields().
				WithClientIP(detector.ExtractClientIP(r)).
				WithHTTPRequest(r.Method, r.URL.Path, "", "", "").ToSlice()...)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})

	s.Server = http.Server{
		Addr: addr,
		Handler: chain(mux,
			s.tracer.Middleware,
			applog.Middleware(logger),
			applog.ComponentMiddleware(applog.ComponentHTTP),
			applog.RequestIDMiddleware(trace.RequestID),
			headers.Middleware,
			detector.Middleware(logger),
			limit,
			timeoutMiddleware(opts.RequestTimeout),
		),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       opts.RequestTimeout,
		WriteTimeout:      opts.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// chain wraps h so the first middleware is outermost.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Shutdown gracefully shuts down the server and its background cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// ListenAndServe serves until Shutdown; a clean shutdown returns nil.
func (s *Server) ListenAndServe() error {
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
