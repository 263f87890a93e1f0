// Package worker consumes ledger events outside the request path.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cashflow/internal/amqp"
	"cashflow/internal/core"
	applog "cashflow/internal/log"
	"cashflow/internal/reporting"
	"cashflow/internal/services"
)

// MonitorBuilder builds the budget monitor a transaction may have pushed over budget.
type MonitorBuilder interface {
	BudgetMonitor(ctx context.Context, req services.MonitorRequest) (reporting.BudgetMonitorReport, error)
}

// Consumer delivers transaction.recorded messages until ctx is done.
type Consumer interface {
	ConsumeTransactionRecorded(ctx context.Context, handler amqp.Handler) error
}

// Alert is one exceeded budget row touched by a transaction.
type Alert struct {
	Month      core.Month
	CategoryID int64
	Name       string
	Budget     core.Money
	Spent      core.Money
}

// BudgetAlertWorker recomputes the rollup monitor for every recorded
// transaction and warns about exceeded rows of its category or parent.
type BudgetAlertWorker struct {
	reports MonitorBuilder
	logger  *applog.Logger
	// OnAlert, when set, receives every alert after it is logged.
	OnAlert func(Alert)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
	err     error
}

func NewBudgetAlertWorker(reports MonitorBuilder, logger *applog.Logger) *BudgetAlertWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	}
	return &BudgetAlertWorker{reports: reports, logger: logger}
}

// HandleTransactionRecorded processes one message. Storage failures are
// returned so the message is requeued; messages the engine rejects are logged
// and dropped.
func (w *BudgetAlertWorker) HandleTransactionRecorded(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	month, err := msg.ParsedMonth()
	if err != nil {
		w.logger.WarnContext(ctx, "Dropping message with invalid month", applog.FieldMessageID, msg.MessageID, applog.FieldError, err)
		return nil
	}
	if msg.Type != string(core.Expense) {
		return nil
	}

	report, err := w.reports.BudgetMonitor(ctx, services.MonitorRequest{Month: month, Mode: reporting.Rollup})
	if err != nil {
		if isEngineError(err) {
			w.logger.WarnContext(ctx, "Dropping message the monitor cannot evaluate",
				applog.FieldMessageID, msg.MessageID, applog.FieldMonth, msg.Month, applog.FieldError, err)
			return nil
		}
		return fmt.Errorf("budget monitor %s: %w", month, err)
	}

	for _, a := range Alerts(report, msg.CategoryID) {
		w.logger.WarnContext(ctx, "Budget exceeded",
			applog.FieldMonth, a.Month.String(),
			applog.FieldCategoryID, a.CategoryID,
			"category", a.Name,
			"budget", a.Budget.String(),
			"spent", a.Spent.String(),
			applog.FieldTransactionID, msg.TransactionID)
		if w.OnAlert != nil {
			w.OnAlert(a)
		}
	}
	return nil
}

func isEngineError(err error) bool {
	for _, target := range []error{
		reporting.ErrUnknownCategory,
		reporting.ErrDuplicateBudget,
		core.ErrInvalidMonth,
		core.ErrCategoryTooDeep,
		core.ErrUnknownParent,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Alerts returns the exceeded rows for categoryID and for its parent.
func Alerts(report reporting.BudgetMonitorReport, categoryID int64) []Alert {
	touched := map[int64]bool{categoryID: true}
	for _, row := range report.Rows {
		if row.CategoryID == categoryID && row.ParentID != nil {
			touched[*row.ParentID] = true
		}
	}

	var alerts []Alert
	for _, row := range report.Rows {
		if !row.IsExceeded || !touched[row.CategoryID] || row.BudgetResolved == nil {
			continue
		}
		alerts = append(alerts, Alert{
			Month:      report.Month,
			CategoryID: row.CategoryID,
			Name:       row.Name,
			Budget:     *row.BudgetResolved,
			Spent:      row.Spent,
		})
	}
	return alerts
}

// Start consumes messages in the background. Returns an error if already running.
func (w *BudgetAlertWorker) Start(ctx context.Context, consumer Consumer) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("budget alert worker is already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.doneCh = make(chan struct{})
	w.err = nil
	w.mu.Unlock()

	go func() {
		defer close(w.doneCh)
		err := consumer.ConsumeTransactionRecorded(ctx, w.HandleTransactionRecorded)
		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "Consumer stopped", applog.FieldError, err)
		}
		w.mu.Lock()
		w.err = err
		w.running = false
		w.mu.Unlock()
	}()

	slog.InfoContext(ctx, "Budget alert worker started")
	return nil
}

// Stop cancels consumption and waits for it to finish.
func (w *BudgetAlertWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	cancel, done := w.cancel, w.doneCh
	w.mu.Unlock()

	cancel()

	select {
	case <-done:
		slog.InfoContext(ctx, "Budget alert worker stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Budget alert worker stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the worker is currently consuming
func (w *BudgetAlertWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
