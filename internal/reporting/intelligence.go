package reporting

import (
	"math"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
)

// DefaultIncomeHistoryMonths is how many previous months feed the income
// volatility classification.
const DefaultIncomeHistoryMonths = 3

type RiskLevel string

const (
	RiskOK       RiskLevel = "ok"
	RiskWarning  RiskLevel = "warning"
	RiskCritical RiskLevel = "critical"
)

type VolatilityLabel string

const (
	InsufficientData VolatilityLabel = "insufficient_data"
	Stable           VolatilityLabel = "stable"
	Volatile         VolatilityLabel = "volatile"
	HighlyVolatile   VolatilityLabel = "highly_volatile"
)

// VolatilityThresholds maps a coefficient of variation (in percent) to a
// label: below StableBelow is stable, below VolatileBelow is volatile, the
// rest is highly volatile.
type VolatilityThresholds struct {
	StableBelow   decimal.Decimal
	VolatileBelow decimal.Decimal
}

func DefaultVolatilityThresholds() VolatilityThresholds {
	return VolatilityThresholds{
		StableBelow:   decimal.NewFromInt(15),
		VolatileBelow: decimal.NewFromInt(35),
	}
}

// Classify labels a coefficient of variation. The mapping is monotonic in cv.
func (t VolatilityThresholds) Classify(cv decimal.Decimal) VolatilityLabel {
	switch {
	case cv.LessThan(t.StableBelow):
		return Stable
	case cv.LessThan(t.VolatileBelow):
		return Volatile
	default:
		return HighlyVolatile
	}
}

type IntelligenceInput struct {
	Month          core.Month
	AsOf           core.Date
	Mode           Mode
	AccountID      *int64
	OpeningBalance core.Money
	IncomeBase     core.Money
	Categories     []core.Category
	Budgets        []core.Budget
	Transactions   []core.Transaction
	// IncomeHistory holds the income totals of previous months, oldest first.
	IncomeHistory []core.Money
	// Thresholds defaults to DefaultVolatilityThresholds when zero.
	Thresholds VolatilityThresholds
}

type BudgetRisk struct {
	CategoryID          int64      `json:"categoryId"`
	Name                string     `json:"name"`
	Budget              core.Money `json:"budget"`
	SpentToDate         core.Money `json:"spentToDate"`
	ExpectedSpendToDate core.Money `json:"expectedSpendToDate"`
	ProjectedSpend      core.Money `json:"projectedSpend"`
	ProjectedOverrun    core.Money `json:"projectedOverrun"`
	Level               RiskLevel  `json:"level"`
}

type IncomeVolatility struct {
	Label                  VolatilityLabel  `json:"label"`
	Samples                int              `json:"samples"`
	Mean                   *core.Money      `json:"mean"`
	StdDev                 *core.Money      `json:"stdDev"`
	CoefficientOfVariation *decimal.Decimal `json:"coefficientOfVariation"`
}

// IntelligenceReport is a short-horizon outlook of the month. Forecasts are
// linear extrapolations of the month-to-date burn rate.
type IntelligenceReport struct {
	Month            core.Month       `json:"month"`
	AsOf             core.Date        `json:"asOf"`
	AccountID        *int64           `json:"account"`
	DaysInMonth      int              `json:"daysInMonth"`
	DaysElapsed      int              `json:"daysElapsed"`
	DaysRemaining    int              `json:"daysRemaining"`
	OpeningBalance   core.Money       `json:"openingBalance"`
	IncomeToDate     core.Money       `json:"incomeToDate"`
	ExpenseToDate    core.Money       `json:"expenseToDate"`
	CurrentBalance   core.Money       `json:"currentBalance"`
	DailyBurnRate    core.Money       `json:"dailyBurnRate"`
	ForecastBalance  core.Money       `json:"forecastBalance"`
	DaysUntilZero    *int             `json:"daysUntilZero"`
	BudgetRisks      []BudgetRisk     `json:"budgetRisks"`
	IncomeVolatility IncomeVolatility `json:"incomeVolatility"`
}

// DaysElapsed counts the days of month up to and including asOf, clamped to
// the month.
func DaysElapsed(month core.Month, asOf core.Date) int {
	switch {
	case asOf.Before(month.First()):
		return 0
	case asOf.After(month.Last()):
		return month.Days()
	default:
		return asOf.Day()
	}
}

// BuildIntelligence projects the month from the transactions up to AsOf.
func BuildIntelligence(in IntelligenceInput) (IntelligenceReport, error) {
	if err := in.Month.Validate(); err != nil {
		return IntelligenceReport{}, err
	}
	if err := in.AsOf.Validate(); err != nil {
		return IntelligenceReport{}, err
	}
	tree, err := core.BuildCategoryTree(in.Categories)
	if err != nil {
		return IntelligenceReport{}, err
	}
	txs := FilterAccount(in.Transactions, in.AccountID)
	if err := checkCategories(txs, tree, in.Month.Range()); err != nil {
		return IntelligenceReport{}, err
	}
	byCategory, _, err := budgetsForMonth(in.Budgets, in.Month, tree)
	if err != nil {
		return IntelligenceReport{}, err
	}
	thresholds := in.Thresholds
	if thresholds.StableBelow.IsZero() && thresholds.VolatileBelow.IsZero() {
		thresholds = DefaultVolatilityThresholds()
	}

	days := in.Month.Days()
	elapsed := DaysElapsed(in.Month, in.AsOf)
	remaining := days - elapsed
	mtd := core.DateRange{From: in.Month.First(), To: in.Month.First().AddDays(elapsed - 1)}

	report := IntelligenceReport{
		Month:          in.Month,
		AsOf:           in.AsOf,
		AccountID:      in.AccountID,
		DaysInMonth:    days,
		DaysElapsed:    elapsed,
		DaysRemaining:  remaining,
		OpeningBalance: in.OpeningBalance,
		BudgetRisks:    make([]BudgetRisk, 0),
	}
	if elapsed > 0 {
		report.IncomeToDate = SumSpend(txs, AnyCategory(), mtd, KindIncome)
		report.ExpenseToDate = SumSpend(txs, AnyCategory(), mtd, KindExpense)
	}
	report.CurrentBalance = in.OpeningBalance.Add(report.IncomeToDate).Sub(report.ExpenseToDate)

	elapsedD := decimal.NewFromInt(int64(elapsed))
	burn := core.SafeDiv(report.ExpenseToDate.Decimal(), elapsedD)
	report.DailyBurnRate = core.Round(burn)
	report.ForecastBalance = core.Round(report.CurrentBalance.Decimal().Sub(burn.Mul(decimal.NewFromInt(int64(remaining)))))
	report.DaysUntilZero = daysUntilZero(report.CurrentBalance, burn)

	resolver := NewResolver(tree, in.Mode)
	daysD := decimal.NewFromInt(int64(days))
	for _, node := range tree.Flatten() {
		b, ok := byCategory[node.ID]
		if !ok {
			continue
		}
		budget := ResolveBudget(b, in.IncomeBase)
		var spent core.Money
		if elapsed > 0 {
			spent = SumSpend(txs, resolver.Scope(node.ID), mtd, KindExpense)
		}
		projected := spent.MulRatio(daysD, elapsedD)
		overrun := projected.Sub(budget)
		if overrun.IsNegative() {
			overrun = core.Zero
		}
		report.BudgetRisks = append(report.BudgetRisks, BudgetRisk{
			CategoryID:          node.ID,
			Name:                node.Name,
			Budget:              budget,
			SpentToDate:         spent,
			ExpectedSpendToDate: budget.MulRatio(elapsedD, daysD),
			ProjectedSpend:      projected,
			ProjectedOverrun:    overrun,
			Level:               riskLevel(budget, spent, projected),
		})
	}

	report.IncomeVolatility = IncomeVolatilityOf(in.IncomeHistory, thresholds)
	return report, nil
}

// riskLevel ranks an already exceeded budget above a merely projected overrun.
func riskLevel(budget, spent, projected core.Money) RiskLevel {
	switch {
	case spent.GreaterThan(budget):
		return RiskCritical
	case projected.GreaterThan(budget):
		return RiskWarning
	default:
		return RiskOK
	}
}

// daysUntilZero is nil when the balance is not depleting. A balance already at
// or below zero gives 0.
func daysUntilZero(balance core.Money, burn decimal.Decimal) *int {
	if !burn.IsPositive() {
		return nil
	}
	n := 0
	if balance.IsPositive() {
		n = int(balance.Decimal().Div(burn).Floor().IntPart())
	}
	return &n
}

// IncomeVolatilityOf classifies the coefficient of variation (population
// standard deviation over mean, in percent) of monthly income totals. Fewer
// than two samples or a zero mean leave the label at insufficient data.
func IncomeVolatilityOf(history []core.Money, t VolatilityThresholds) IncomeVolatility {
	v := IncomeVolatility{Label: InsufficientData, Samples: len(history)}
	if len(history) < 2 {
		return v
	}
	n := decimal.NewFromInt(int64(len(history)))
	sum := decimal.Zero
	for _, m := range history {
		sum = sum.Add(m.Decimal())
	}
	mean := sum.Div(n)
	if mean.IsZero() {
		return v
	}
	variance := decimal.Zero
	for _, m := range history {
		diff := m.Decimal().Sub(mean)
		variance = variance.Add(diff.Mul(diff))
	}
	variance = variance.Div(n)
	std := decimal.NewFromFloat(math.Sqrt(variance.InexactFloat64()))

	cv := std.Div(mean.Abs()).Mul(hundred).Round(PercentPlaces)
	meanM, stdM := core.Round(mean), core.Round(std)
	v.Mean = &meanM
	v.StdDev = &stdM
	v.CoefficientOfVariation = &cv
	v.Label = t.Classify(cv)
	return v
}
