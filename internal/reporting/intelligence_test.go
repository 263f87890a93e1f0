package reporting

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
)

func intelligenceInput(asOf core.Date) IntelligenceInput {
	feb := month(2025, 2)
	return IntelligenceInput{
		Month:          feb,
		AsOf:           asOf,
		OpeningBalance: core.MustMoney("10000"),
		IncomeBase:     core.MustMoney("20000"),
		Categories:     testCategories(),
		Budgets: []core.Budget{
			{ID: 1, CategoryID: 2, Month: feb, RuleType: core.RuleFixed, Value: decimal.NewFromInt(3000)},
			{ID: 2, CategoryID: 3, Month: feb, RuleType: core.RuleFixed, Value: decimal.NewFromInt(500)},
			{ID: 3, CategoryID: 21, Month: feb, RuleType: core.RulePercent, Value: decimal.NewFromInt(10)},
		},
		Transactions: []core.Transaction{
			expense(1, day(2025, 2, 2), 2, "1200"),
			expense(2, day(2025, 2, 9), 2, "800"),
			expense(3, day(2025, 2, 5), 3, "600"),
			expense(4, day(2025, 2, 6), 21, "100"),
			expense(5, day(2025, 2, 20), 2, "5000"),
		},
	}
}

func riskFor(t *testing.T, risks []BudgetRisk, id int64) BudgetRisk {
	t.Helper()
	for _, r := range risks {
		if r.CategoryID == id {
			return r
		}
	}
	t.Fatalf("no budget risk for category %d", id)
	return BudgetRisk{}
}

func TestBuildIntelligenceForecast(t *testing.T) {
	got, err := BuildIntelligence(intelligenceInput(day(2025, 2, 10)))
	if err != nil {
		t.Fatalf("BuildIntelligence() error = %v", err)
	}
	if got.DaysElapsed != 10 || got.DaysRemaining != 18 {
		t.Errorf("DaysElapsed, DaysRemaining = %d, %d, want 10, 18", got.DaysElapsed, got.DaysRemaining)
	}
	// The Feb 20 expense is after the as-of date.
	assertMoney(t, "ExpenseToDate", got.ExpenseToDate, "2700.00")
	assertMoney(t, "CurrentBalance", got.CurrentBalance, "7300.00")
	assertMoney(t, "DailyBurnRate", got.DailyBurnRate, "270.00")
	assertMoney(t, "ForecastBalance", got.ForecastBalance, "2440.00")
	if got.DaysUntilZero == nil || *got.DaysUntilZero != 27 {
		t.Errorf("DaysUntilZero = %v, want 27", got.DaysUntilZero)
	}
}

func TestBuildIntelligenceBudgetRisk(t *testing.T) {
	got, err := BuildIntelligence(intelligenceInput(day(2025, 2, 10)))
	if err != nil {
		t.Fatalf("BuildIntelligence() error = %v", err)
	}

	groceries := riskFor(t, got.BudgetRisks, 2)
	assertMoney(t, "SpentToDate", groceries.SpentToDate, "2000.00")
	assertMoney(t, "ExpectedSpendToDate", groceries.ExpectedSpendToDate, "1071.43")
	assertMoney(t, "ProjectedSpend", groceries.ProjectedSpend, "5600.00")
	assertMoney(t, "ProjectedOverrun", groceries.ProjectedOverrun, "2600.00")
	if groceries.Level != RiskWarning {
		t.Errorf("groceries Level = %s, want %s", groceries.Level, RiskWarning)
	}

	dining := riskFor(t, got.BudgetRisks, 3)
	if dining.Level != RiskCritical {
		t.Errorf("dining Level = %s, want %s", dining.Level, RiskCritical)
	}

	fuel := riskFor(t, got.BudgetRisks, 21)
	assertMoney(t, "fuel Budget", fuel.Budget, "2000.00")
	assertMoney(t, "fuel ProjectedSpend", fuel.ProjectedSpend, "280.00")
	assertMoney(t, "fuel ProjectedOverrun", fuel.ProjectedOverrun, "0.00")
	if fuel.Level != RiskOK {
		t.Errorf("fuel Level = %s, want %s", fuel.Level, RiskOK)
	}
}

func TestBuildIntelligenceBeforeMonthStarts(t *testing.T) {
	got, err := BuildIntelligence(intelligenceInput(day(2025, 1, 15)))
	if err != nil {
		t.Fatalf("BuildIntelligence() error = %v", err)
	}
	if got.DaysElapsed != 0 || got.DaysRemaining != 28 {
		t.Errorf("DaysElapsed, DaysRemaining = %d, %d, want 0, 28", got.DaysElapsed, got.DaysRemaining)
	}
	assertMoney(t, "DailyBurnRate", got.DailyBurnRate, "0.00")
	assertMoney(t, "ForecastBalance", got.ForecastBalance, "10000.00")
	if got.DaysUntilZero != nil {
		t.Errorf("DaysUntilZero = %d, want nil", *got.DaysUntilZero)
	}
	for _, r := range got.BudgetRisks {
		if !r.ProjectedSpend.IsZero() || r.Level != RiskOK {
			t.Errorf("risk %d = %+v, want zero projection and ok", r.CategoryID, r)
		}
	}
}

func TestBuildIntelligenceAfterMonthEnds(t *testing.T) {
	got, err := BuildIntelligence(intelligenceInput(day(2025, 3, 3)))
	if err != nil {
		t.Fatalf("BuildIntelligence() error = %v", err)
	}
	if got.DaysElapsed != 28 || got.DaysRemaining != 0 {
		t.Errorf("DaysElapsed, DaysRemaining = %d, %d, want 28, 0", got.DaysElapsed, got.DaysRemaining)
	}
	if !got.ForecastBalance.Equal(got.CurrentBalance) {
		t.Errorf("ForecastBalance = %s, want CurrentBalance %s", got.ForecastBalance, got.CurrentBalance)
	}
}

func TestBuildIntelligenceOverdrawn(t *testing.T) {
	in := intelligenceInput(day(2025, 2, 10))
	in.OpeningBalance = core.MustMoney("1000")
	got, err := BuildIntelligence(in)
	if err != nil {
		t.Fatalf("BuildIntelligence() error = %v", err)
	}
	if got.DaysUntilZero == nil || *got.DaysUntilZero != 0 {
		t.Errorf("DaysUntilZero = %v, want 0 for a negative balance", got.DaysUntilZero)
	}
}

func TestBuildIntelligenceErrors(t *testing.T) {
	in := intelligenceInput(core.Date{})
	if _, err := BuildIntelligence(in); err == nil {
		t.Error("BuildIntelligence() with zero as-of error = nil, want error")
	}
	in = intelligenceInput(day(2025, 2, 10))
	in.Transactions = append(in.Transactions, expense(9, day(2025, 2, 1), 404, "1"))
	if _, err := BuildIntelligence(in); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("BuildIntelligence() error = %v, want ErrUnknownCategory", err)
	}
}

func TestIncomeVolatilityOf(t *testing.T) {
	tests := []struct {
		name    string
		history []string
		want    VolatilityLabel
		wantCV  string
	}{
		{"no data", nil, InsufficientData, ""},
		{"one month", []string{"1000"}, InsufficientData, ""},
		{"constant", []string{"1000", "1000", "1000"}, Stable, "0"},
		{"low spread", []string{"900", "1100"}, Stable, "10"},
		{"medium spread", []string{"800", "1200"}, Volatile, "20"},
		{"high spread", []string{"100", "300"}, HighlyVolatile, "50"},
		{"all zero", []string{"0", "0", "0"}, InsufficientData, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var history []core.Money
			for _, h := range tt.history {
				history = append(history, core.MustMoney(h))
			}
			got := IncomeVolatilityOf(history, DefaultVolatilityThresholds())
			if got.Label != tt.want {
				t.Errorf("Label = %s, want %s", got.Label, tt.want)
			}
			if got.Samples != len(tt.history) {
				t.Errorf("Samples = %d, want %d", got.Samples, len(tt.history))
			}
			if tt.wantCV == "" {
				if got.CoefficientOfVariation != nil {
					t.Errorf("CoefficientOfVariation = %s, want nil", got.CoefficientOfVariation)
				}
				return
			}
			if got.CoefficientOfVariation == nil || !got.CoefficientOfVariation.Equal(decimal.RequireFromString(tt.wantCV)) {
				t.Errorf("CoefficientOfVariation = %v, want %s", got.CoefficientOfVariation, tt.wantCV)
			}
		})
	}
}

func TestVolatilityThresholdsMonotonic(t *testing.T) {
	th := DefaultVolatilityThresholds()
	rank := map[VolatilityLabel]int{Stable: 0, Volatile: 1, HighlyVolatile: 2}
	prev := -1
	for cv := 0; cv <= 100; cv++ {
		r := rank[th.Classify(decimal.NewFromInt(int64(cv)))]
		if r < prev {
			t.Fatalf("Classify(%d) went from rank %d to %d", cv, prev, r)
		}
		prev = r
	}
	if th.Classify(decimal.NewFromInt(15)) != Volatile {
		t.Errorf("Classify(15) = %s, want %s", th.Classify(decimal.NewFromInt(15)), Volatile)
	}
}

func TestBuildIntelligenceIdempotent(t *testing.T) {
	in := intelligenceInput(day(2025, 2, 10))
	in.IncomeHistory = []core.Money{core.MustMoney("19000"), core.MustMoney("21000")}
	a, err := BuildIntelligence(in)
	if err != nil {
		t.Fatalf("BuildIntelligence() error = %v", err)
	}
	b, _ := BuildIntelligence(in)
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if !bytes.Equal(ja, jb) {
		t.Errorf("BuildIntelligence() not idempotent:\n%s\n%s", ja, jb)
	}
}
