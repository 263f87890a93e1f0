package reporting

import (
	"cashflow/internal/core"
)

// CashflowInput is everything the cashflow walk needs for one month.
type CashflowInput struct {
	Month          core.Month
	AccountID      *int64
	OpeningBalance core.Money
	Transactions   []core.Transaction
	// AsOf turns on the live preview: the daily series stops after this day.
	AsOf *core.Date
}

// CashflowDay is one day with at least one transaction.
type CashflowDay struct {
	Date    core.Date  `json:"date"`
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Net     core.Money `json:"net"`
	Balance core.Money `json:"balance"`
	Count   int        `json:"count"`
}

// BalancePoint is the end-of-day balance of every day of the month. Balance is
// nil for days after the live preview cut-off.
type BalancePoint struct {
	Date    core.Date   `json:"date"`
	Balance *core.Money `json:"balance"`
}

type CashflowReport struct {
	Month          core.Month     `json:"month"`
	AccountID      *int64         `json:"account"`
	AsOf           *core.Date     `json:"asOf,omitempty"`
	OpeningBalance core.Money     `json:"openingBalance"`
	ClosingBalance core.Money     `json:"closingBalance"`
	TotalIncome    core.Money     `json:"totalIncome"`
	TotalExpense   core.Money     `json:"totalExpense"`
	Net            core.Money     `json:"net"`
	Days           []CashflowDay  `json:"days"`
	Series         []BalancePoint `json:"series"`
}

// BuildCashflow walks the month day by day from the opening balance.
func BuildCashflow(in CashflowInput) (CashflowReport, error) {
	if err := in.Month.Validate(); err != nil {
		return CashflowReport{}, err
	}
	txs := FilterAccount(in.Transactions, in.AccountID)
	daily := DailyTotals(txs, AnyCategory(), in.Month)

	report := CashflowReport{
		Month:          in.Month,
		AccountID:      in.AccountID,
		AsOf:           in.AsOf,
		OpeningBalance: in.OpeningBalance,
		Days:           make([]CashflowDay, 0),
		Series:         make([]BalancePoint, 0, len(daily)),
	}

	balance := in.OpeningBalance
	for i, d := range daily {
		date := in.Month.Day(i + 1)
		net := d.Income.Sub(d.Expense)
		balance = balance.Add(net)
		report.TotalIncome = report.TotalIncome.Add(d.Income)
		report.TotalExpense = report.TotalExpense.Add(d.Expense)

		if d.Count > 0 {
			report.Days = append(report.Days, CashflowDay{
				Date:    date,
				Income:  d.Income,
				Expense: d.Expense,
				Net:     net,
				Balance: balance,
				Count:   d.Count,
			})
		}

		point := BalancePoint{Date: date}
		if in.AsOf == nil || !date.After(*in.AsOf) {
			b := balance
			point.Balance = &b
		}
		report.Series = append(report.Series, point)
	}

	report.ClosingBalance = balance
	report.Net = report.TotalIncome.Sub(report.TotalExpense)
	return report, nil
}
