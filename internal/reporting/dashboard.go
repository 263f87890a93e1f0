package reporting

import (
	"fmt"
	"sort"

	"cashflow/internal/core"
)

// DefaultRecentTransactions is the number of recent transactions shown when
// the caller does not choose one.
const DefaultRecentTransactions = 10

type DashboardInput struct {
	Current  CashflowReport
	Previous CashflowReport
	Budgets  BudgetMonitorReport
	// Transactions are the candidates for the recent list, usually the month's.
	Transactions []core.Transaction
	RecentLimit  int
}

type DashboardResponse struct {
	Month              core.Month         `json:"month"`
	AccountID          *int64             `json:"account"`
	KPIs               KPIs               `json:"kpis"`
	KPIsCompare        MonthComparison    `json:"kpisCompare"`
	Budgets            []MonitorRow       `json:"budgets"`
	BudgetTotals       MonitorTotals      `json:"budgetTotals"`
	RecentTransactions []core.Transaction `json:"recentTransactions"`
}

// BuildDashboard assembles the dashboard from already built reports. The
// previous report must be for the month before the current one.
func BuildDashboard(in DashboardInput) (DashboardResponse, error) {
	month := in.Current.Month
	if in.Previous.Month != month.Prev() {
		return DashboardResponse{}, fmt.Errorf("dashboard for %s: previous report is for %s: %w", month, in.Previous.Month, core.ErrInvalidMonth)
	}
	if in.Budgets.Month != month {
		return DashboardResponse{}, fmt.Errorf("dashboard for %s: budget report is for %s: %w", month, in.Budgets.Month, core.ErrInvalidMonth)
	}
	current := KPIsOf(in.Current)
	return DashboardResponse{
		Month:              month,
		AccountID:          in.Current.AccountID,
		KPIs:               current,
		KPIsCompare:        CompareMonths(month, current, KPIsOf(in.Previous)),
		Budgets:            in.Budgets.Rows,
		BudgetTotals:       in.Budgets.Totals,
		RecentTransactions: RecentTransactions(FilterAccount(in.Transactions, in.Current.AccountID), in.RecentLimit),
	}, nil
}

// RecentTransactions returns the latest limit transactions, newest date
// first and higher id first within a day. A limit <= 0 uses the default.
func RecentTransactions(txs []core.Transaction, limit int) []core.Transaction {
	if limit <= 0 {
		limit = DefaultRecentTransactions
	}
	sorted := make([]core.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.After(sorted[j].Date)
		}
		return sorted[i].ID > sorted[j].ID
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
