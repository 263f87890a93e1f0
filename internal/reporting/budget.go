package reporting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
)

var hundred = decimal.NewFromInt(100)

// ResolveBudget converts a budget rule into a currency amount. Percent rules
// resolve against incomeBase; a zero income base gives 0.00.
func ResolveBudget(b core.Budget, incomeBase core.Money) core.Money {
	if b.RuleType == core.RulePercent {
		return incomeBase.Percent(b.Value)
	}
	return core.Round(b.Value)
}

// PercentSummary reports how much of the income base is allocated by
// percent budgets.
type PercentSummary struct {
	TotalPercent     decimal.Decimal `json:"totalPercent"`
	IsOverAllocated  bool            `json:"isOverAllocated"`
	RemainingPercent decimal.Decimal `json:"remainingPercent"`
}

// SummarizePercent sums the value of every percent budget in budgets.
func SummarizePercent(budgets []core.Budget) PercentSummary {
	total := decimal.Zero
	for _, b := range budgets {
		if b.RuleType == core.RulePercent {
			total = total.Add(b.Value)
		}
	}
	return PercentSummary{
		TotalPercent:     total,
		IsOverAllocated:  total.GreaterThan(hundred),
		RemainingPercent: hundred.Sub(total),
	}
}

// budgetsForMonth keeps the budgets of month keyed by category. A second
// budget for the same category, or a budget for an unknown category, is an error.
func budgetsForMonth(budgets []core.Budget, month core.Month, tree core.CategoryTree) (map[int64]core.Budget, []core.Budget, error) {
	byCategory := make(map[int64]core.Budget)
	var inMonth []core.Budget
	for _, b := range budgets {
		if b.Month != month {
			continue
		}
		if !tree.Has(b.CategoryID) {
			return nil, nil, fmt.Errorf("budget %d for category %d: %w", b.ID, b.CategoryID, ErrUnknownCategory)
		}
		if _, dup := byCategory[b.CategoryID]; dup {
			return nil, nil, fmt.Errorf("category %d month %s: %w", b.CategoryID, month, ErrDuplicateBudget)
		}
		byCategory[b.CategoryID] = b
		inMonth = append(inMonth, b)
	}
	return byCategory, inMonth, nil
}

// MonthSettings returns the income base and opening balance for month. With a
// nil accountID the values of every account are summed. Missing configs count as zero.
func MonthSettings(configs []core.MonthConfig, month core.Month, accountID *int64) (incomeBase, opening core.Money) {
	for _, c := range configs {
		if c.Month != month {
			continue
		}
		if accountID != nil && c.AccountID != *accountID {
			continue
		}
		incomeBase = incomeBase.Add(c.IncomeBase)
		opening = opening.Add(c.OpeningBalance)
	}
	return incomeBase, opening
}
