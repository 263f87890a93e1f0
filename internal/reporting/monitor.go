package reporting

import (
	"github.com/shopspring/decimal"

	"cashflow/internal/core"
)

type MonitorInput struct {
	Month        core.Month
	Mode         Mode
	AccountID    *int64
	IncomeBase   core.Money
	Categories   []core.Category
	Budgets      []core.Budget
	Transactions []core.Transaction
}

// MonitorRow is the budget usage of one category. Budget fields are nil when
// the category has no budget for the month.
type MonitorRow struct {
	CategoryID     int64            `json:"categoryId"`
	Name           string           `json:"name"`
	ParentID       *int64           `json:"parentId"`
	Level          int              `json:"level"`
	RuleType       *core.RuleType   `json:"ruleType"`
	RuleValue      *decimal.Decimal `json:"ruleValue"`
	BudgetResolved *core.Money      `json:"budgetResolved"`
	Spent          core.Money       `json:"spent"`
	Remaining      *core.Money      `json:"remaining"`
	IsExceeded     bool             `json:"isExceeded"`
}

type MonitorTotals struct {
	BudgetResolved core.Money  `json:"budgetResolved"`
	Spent          core.Money  `json:"spent"`
	Remaining      *core.Money `json:"remaining"`
	IsExceeded     bool        `json:"isExceeded"`
}

type BudgetMonitorReport struct {
	Month          core.Month     `json:"month"`
	Mode           Mode           `json:"mode"`
	AccountID      *int64         `json:"account"`
	IncomeBase     core.Money     `json:"incomeBase"`
	Totals         MonitorTotals  `json:"totals"`
	PercentSummary PercentSummary `json:"percentSummary"`
	Rows           []MonitorRow   `json:"rows"`
}

// BuildBudgetMonitor reports budget against spend for every category with a
// budget or with spend in its scope. Rows follow the category tree order.
// Totals count every transaction once, whatever the mode.
func BuildBudgetMonitor(in MonitorInput) (BudgetMonitorReport, error) {
	if err := in.Month.Validate(); err != nil {
		return BudgetMonitorReport{}, err
	}
	tree, err := core.BuildCategoryTree(in.Categories)
	if err != nil {
		return BudgetMonitorReport{}, err
	}
	month := in.Month.Range()
	txs := FilterAccount(in.Transactions, in.AccountID)
	if err := checkCategories(txs, tree, month); err != nil {
		return BudgetMonitorReport{}, err
	}
	byCategory, inMonth, err := budgetsForMonth(in.Budgets, in.Month, tree)
	if err != nil {
		return BudgetMonitorReport{}, err
	}

	resolver := NewResolver(tree, in.Mode)
	report := BudgetMonitorReport{
		Month:          in.Month,
		Mode:           in.Mode,
		AccountID:      in.AccountID,
		IncomeBase:     in.IncomeBase,
		PercentSummary: SummarizePercent(inMonth),
		Rows:           make([]MonitorRow, 0),
	}

	for _, node := range tree.Flatten() {
		spent := SumSpend(txs, resolver.Scope(node.ID), month, KindExpense)
		b, hasBudget := byCategory[node.ID]
		if !hasBudget && spent.IsZero() {
			continue
		}
		row := MonitorRow{
			CategoryID: node.ID,
			Name:       node.Name,
			ParentID:   node.ParentID,
			Level:      node.Level,
			Spent:      spent,
		}
		if hasBudget {
			rule, value := b.RuleType, b.Value
			resolved := ResolveBudget(b, in.IncomeBase)
			remaining := resolved.Sub(spent)
			row.RuleType = &rule
			row.RuleValue = &value
			row.BudgetResolved = &resolved
			row.Remaining = &remaining
			row.IsExceeded = remaining.IsNegative()
			report.Totals.BudgetResolved = report.Totals.BudgetResolved.Add(resolved)
		}
		report.Rows = append(report.Rows, row)
	}

	report.Totals.Spent = SumSpend(txs, AnyCategory(), month, KindExpense)
	if len(byCategory) > 0 {
		remaining := report.Totals.BudgetResolved.Sub(report.Totals.Spent)
		report.Totals.Remaining = &remaining
		report.Totals.IsExceeded = remaining.IsNegative()
	}
	return report, nil
}
