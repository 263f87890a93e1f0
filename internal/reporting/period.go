package reporting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
)

// RatioPlaces is the precision periodRatio is reported with. Period budgets
// are computed from the exact fraction, not from the reported ratio.
const RatioPlaces = 4

type PeriodInput struct {
	From         core.Date
	To           core.Date
	Mode         Mode
	AccountID    *int64
	IncomeBase   core.Money
	Categories   []core.Category
	Budgets      []core.Budget
	Transactions []core.Transaction
}

type PeriodRow struct {
	CategoryID    int64      `json:"categoryId"`
	Name          string     `json:"name"`
	ParentID      *int64     `json:"parentId"`
	Level         int        `json:"level"`
	MonthlyBudget core.Money `json:"monthlyBudget"`
	PeriodBudget  core.Money `json:"periodBudget"`
	Spent         core.Money `json:"spent"`
	Remaining     core.Money `json:"remaining"`
	IsExceeded    bool       `json:"isExceeded"`
}

type PeriodTotals struct {
	PeriodBudget core.Money `json:"periodBudget"`
	Spent        core.Money `json:"spent"`
	Remaining    core.Money `json:"remaining"`
	IsExceeded   bool       `json:"isExceeded"`
}

type BudgetPeriodReport struct {
	DateFrom    core.Date       `json:"dateFrom"`
	DateTo      core.Date       `json:"dateTo"`
	Month       core.Month      `json:"month"`
	Mode        Mode            `json:"mode"`
	AccountID   *int64          `json:"account"`
	PeriodDays  int             `json:"periodDays"`
	DaysInMonth int             `json:"daysInMonth"`
	PeriodRatio decimal.Decimal `json:"periodRatio"`
	Totals      PeriodTotals    `json:"totals"`
	Rows        []PeriodRow     `json:"rows"`
}

// PeriodRange validates a pay-period range. The range must lie inside one
// calendar month and from must not be after to.
func PeriodRange(from, to core.Date) (core.DateRange, error) {
	if from.IsZero() || to.IsZero() {
		return core.DateRange{}, core.ErrInvalidDate
	}
	if to.Before(from) {
		return core.DateRange{}, fmt.Errorf("%s..%s: %w", from, to, ErrInvalidRange)
	}
	if from.MonthOf() != to.MonthOf() {
		return core.DateRange{}, fmt.Errorf("%s..%s: %w", from, to, ErrRangeSpansMonths)
	}
	return core.DateRange{From: from, To: to}, nil
}

// BuildBudgetPeriod pro-rates the budgets of the range's month to the range
// and reports spend inside the range against them.
func BuildBudgetPeriod(in PeriodInput) (BudgetPeriodReport, error) {
	r, err := PeriodRange(in.From, in.To)
	if err != nil {
		return BudgetPeriodReport{}, err
	}
	month := in.From.MonthOf()
	tree, err := core.BuildCategoryTree(in.Categories)
	if err != nil {
		return BudgetPeriodReport{}, err
	}
	txs := FilterAccount(in.Transactions, in.AccountID)
	if err := checkCategories(txs, tree, r); err != nil {
		return BudgetPeriodReport{}, err
	}
	byCategory, _, err := budgetsForMonth(in.Budgets, month, tree)
	if err != nil {
		return BudgetPeriodReport{}, err
	}

	periodDays := decimal.NewFromInt(int64(r.Days()))
	daysInMonth := decimal.NewFromInt(int64(month.Days()))
	resolver := NewResolver(tree, in.Mode)

	report := BudgetPeriodReport{
		DateFrom:    r.From,
		DateTo:      r.To,
		Month:       month,
		Mode:        in.Mode,
		AccountID:   in.AccountID,
		PeriodDays:  r.Days(),
		DaysInMonth: month.Days(),
		PeriodRatio: core.SafeDiv(periodDays, daysInMonth).Round(RatioPlaces),
		Rows:        make([]PeriodRow, 0),
	}

	for _, node := range tree.Flatten() {
		b, ok := byCategory[node.ID]
		if !ok {
			continue
		}
		monthly := ResolveBudget(b, in.IncomeBase)
		periodBudget := monthly.MulRatio(periodDays, daysInMonth)
		spent := SumSpend(txs, resolver.Scope(node.ID), r, KindExpense)
		remaining := periodBudget.Sub(spent)
		report.Rows = append(report.Rows, PeriodRow{
			CategoryID:    node.ID,
			Name:          node.Name,
			ParentID:      node.ParentID,
			Level:         node.Level,
			MonthlyBudget: monthly,
			PeriodBudget:  periodBudget,
			Spent:         spent,
			Remaining:     remaining,
			IsExceeded:    remaining.IsNegative(),
		})
		report.Totals.PeriodBudget = report.Totals.PeriodBudget.Add(periodBudget)
	}

	report.Totals.Spent = SumSpend(txs, AnyCategory(), r, KindExpense)
	report.Totals.Remaining = report.Totals.PeriodBudget.Sub(report.Totals.Spent)
	report.Totals.IsExceeded = report.Totals.Remaining.IsNegative()
	return report, nil
}
