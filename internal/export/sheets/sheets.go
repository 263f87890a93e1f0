// Package sheets exports cashflow reports into a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cashflow/internal/core"
	applog "cashflow/internal/log"
	"cashflow/internal/reporting"
)

var ErrNotConfigured = errors.New("spreadsheet export not configured")

// Header is the first row of every exported sheet.
var Header = []any{"Date", "Income", "Expense", "Net", "Balance", "Transactions"}

// ValuesWriter replaces the contents of a sheet range.
type ValuesWriter interface {
	Replace(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
}

// Config selects the target spreadsheet and credentials. CredentialsJSON
// wins over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Exporter writes reports to one sheet of one spreadsheet.
type Exporter struct {
	writer        ValuesWriter
	spreadsheetID string
	sheet         string
	logger        *applog.Logger
}

// New connects to the Sheets API with service account credentials.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, ErrNotConfigured
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithWriter(&serviceWriter{svc: svc}, cfg, logger), nil
}

// NewWithWriter builds an exporter over any ValuesWriter.
func NewWithWriter(w ValuesWriter, cfg Config, logger *applog.Logger) *Exporter {
	if logger == nil {
		logger = applog.Discard()
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Cashflow"
	}
	return &Exporter{
		writer:        w,
		spreadsheetID: cfg.SpreadsheetID,
		sheet:         sheet,
		logger:        logger.WithComponent(applog.ComponentExport),
	}
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: missing service account credentials", ErrNotConfigured)
	}
}

// ExportCashflow overwrites the sheet with the report and returns the A1
// range written.
func (e *Exporter) ExportCashflow(ctx context.Context, report reporting.CashflowReport) (string, error) {
	rows := CashflowRows(report)
	rng := fmt.Sprintf("%s!A1", quoteSheet(e.sheet))
	if err := e.writer.Replace(ctx, e.spreadsheetID, rng, rows); err != nil {
		e.logger.ErrorContext(ctx, "Cashflow export failed", applog.NewFields().
			WithReport("cashflow", report.Month.String(), "", report.AccountID).
			WithOperation(applog.OpExport).
			WithError(err).ToSlice()...)
		return "", fmt.Errorf("export cashflow %s: %w", report.Month, err)
	}
	e.logger.InfoContext(ctx, "Cashflow exported",
		applog.FieldMonth, report.Month.String(),
		"range", rng,
		"rows", len(rows))
	return rng, nil
}

// CashflowRows lays the report out as header, opening balance, one row per
// calendar day and a totals row. Days after a live preview cut-off have an
// empty balance.
func CashflowRows(r reporting.CashflowReport) [][]any {
	byDate := make(map[string]reporting.CashflowDay, len(r.Days))
	for _, d := range r.Days {
		byDate[d.Date.String()] = d
	}

	rows := make([][]any, 0, len(r.Series)+3)
	rows = append(rows, Header)
	rows = append(rows, []any{"Opening", "", "", "", r.OpeningBalance.String(), ""})

	count := 0
	for _, p := range r.Series {
		d, ok := byDate[p.Date.String()]
		income, expense, net := core.Zero, core.Zero, core.Zero
		if ok {
			income, expense, net = d.Income, d.Expense, d.Net
			count += d.Count
		}
		balance := ""
		if p.Balance != nil {
			balance = p.Balance.String()
		}
		rows = append(rows, []any{p.Date.String(), income.String(), expense.String(), net.String(), balance, d.Count})
	}

	rows = append(rows, []any{"Total", r.TotalIncome.String(), r.TotalExpense.String(), r.Net.String(), r.ClosingBalance.String(), count})
	return rows
}

// quoteSheet wraps sheet names that A1 notation cannot take bare.
func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '!") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

type serviceWriter struct {
	svc *gsheet.Service
}

func (w *serviceWriter) Replace(ctx context.Context, spreadsheetID, rng string, rows [][]any) error {
	sheet := rng
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		sheet = rng[:i]
	}
	if _, err := w.svc.Spreadsheets.Values.Clear(spreadsheetID, sheet, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", sheet, err)
	}
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := w.svc.Spreadsheets.Values.Update(spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}
