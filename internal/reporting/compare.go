package reporting

import (
	"github.com/shopspring/decimal"

	"cashflow/internal/core"
)

// PercentPlaces is the precision of deltaPct.
const PercentPlaces = 2

// KPIs are the headline numbers of one month.
type KPIs struct {
	Income         core.Money `json:"income"`
	Expense        core.Money `json:"expense"`
	Net            core.Money `json:"net"`
	OpeningBalance core.Money `json:"openingBalance"`
	ClosingBalance core.Money `json:"closingBalance"`
}

// KPIsOf extracts the KPIs of a cashflow report.
func KPIsOf(r CashflowReport) KPIs {
	return KPIs{
		Income:         r.TotalIncome,
		Expense:        r.TotalExpense,
		Net:            r.Net,
		OpeningBalance: r.OpeningBalance,
		ClosingBalance: r.ClosingBalance,
	}
}

// Delta compares one KPI across two months. DeltaPct is nil when the
// previous value is zero.
type Delta struct {
	Current  core.Money       `json:"current"`
	Previous core.Money       `json:"previous"`
	Delta    core.Money       `json:"delta"`
	DeltaPct *decimal.Decimal `json:"deltaPct"`
}

// DeltaOf computes current - previous and its percentage of previous.
// A negative previous value is used as is.
func DeltaOf(current, previous core.Money) Delta {
	d := Delta{Current: current, Previous: previous, Delta: current.Sub(previous)}
	if !previous.IsZero() {
		pct := d.Delta.Decimal().Mul(hundred).Div(previous.Decimal()).Round(PercentPlaces)
		d.DeltaPct = &pct
	}
	return d
}

type MonthComparison struct {
	Month         core.Month `json:"month"`
	PreviousMonth core.Month `json:"previousMonth"`
	Current       KPIs       `json:"current"`
	Previous      KPIs       `json:"previous"`
	Income        Delta      `json:"income"`
	Expense       Delta      `json:"expense"`
	Net           Delta      `json:"net"`
}

// CompareMonths compares month against the calendar month before it.
func CompareMonths(month core.Month, current, previous KPIs) MonthComparison {
	return MonthComparison{
		Month:         month,
		PreviousMonth: month.Prev(),
		Current:       current,
		Previous:      previous,
		Income:        DeltaOf(current.Income, previous.Income),
		Expense:       DeltaOf(current.Expense, previous.Expense),
		Net:           DeltaOf(current.Net, previous.Net),
	}
}
