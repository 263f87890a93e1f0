package reporting

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
)

func periodInput(from, to core.Date) PeriodInput {
	m := from.MonthOf()
	return PeriodInput{
		From:       from,
		To:         to,
		IncomeBase: core.MustMoney("65000"),
		Categories: testCategories(),
		Budgets: []core.Budget{
			{ID: 1, CategoryID: 2, Month: m, RuleType: core.RuleFixed, Value: decimal.NewFromInt(1000)},
			{ID: 2, CategoryID: 3, Month: m, RuleType: core.RulePercent, Value: decimal.RequireFromString("7.3")},
		},
		Transactions: []core.Transaction{
			expense(1, from, 2, "250"),
			expense(2, to, 2, "300"),
			expense(3, to.AddDays(1), 2, "9999"),
		},
	}
}

func TestBuildBudgetPeriodHalfMonth(t *testing.T) {
	got, err := BuildBudgetPeriod(periodInput(day(2025, 2, 1), day(2025, 2, 14)))
	if err != nil {
		t.Fatalf("BuildBudgetPeriod() error = %v", err)
	}
	if got.PeriodDays != 14 || got.DaysInMonth != 28 {
		t.Errorf("PeriodDays, DaysInMonth = %d, %d, want 14, 28", got.PeriodDays, got.DaysInMonth)
	}
	if !got.PeriodRatio.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("PeriodRatio = %s, want 0.5", got.PeriodRatio)
	}
	groceries := got.Rows[1]
	if groceries.CategoryID != 2 {
		t.Fatalf("Rows[1].CategoryID = %d, want 2", groceries.CategoryID)
	}
	assertMoney(t, "PeriodBudget", groceries.PeriodBudget, "500.00")
	assertMoney(t, "Spent", groceries.Spent, "550.00")
	assertMoney(t, "Remaining", groceries.Remaining, "-50.00")
	if !groceries.IsExceeded {
		t.Error("IsExceeded = false, want true")
	}
}

func TestBuildBudgetPeriodRoundsOnce(t *testing.T) {
	got, err := BuildBudgetPeriod(periodInput(day(2025, 3, 1), day(2025, 3, 10)))
	if err != nil {
		t.Fatalf("BuildBudgetPeriod() error = %v", err)
	}
	if !got.PeriodRatio.Equal(decimal.RequireFromString("0.3226")) {
		t.Errorf("PeriodRatio = %s, want 0.3226", got.PeriodRatio)
	}
	// 1000 × 10/31 = 322.580645...; the reported 0.3226 would give 322.60.
	assertMoney(t, "PeriodBudget", got.Rows[1].PeriodBudget, "322.58")
}

func TestBuildBudgetPeriodFullMonthEqualsMonthly(t *testing.T) {
	months := []core.Month{month(2024, 2), month(2025, 2), month(2025, 4), month(2025, 12)}
	for _, m := range months {
		t.Run(m.String(), func(t *testing.T) {
			got, err := BuildBudgetPeriod(periodInput(m.First(), m.Last()))
			if err != nil {
				t.Fatalf("BuildBudgetPeriod() error = %v", err)
			}
			if !got.PeriodRatio.Equal(decimal.NewFromInt(1)) {
				t.Errorf("PeriodRatio = %s, want 1", got.PeriodRatio)
			}
			for _, row := range got.Rows {
				if !row.PeriodBudget.Equal(row.MonthlyBudget) {
					t.Errorf("category %d PeriodBudget = %s, want %s", row.CategoryID, row.PeriodBudget, row.MonthlyBudget)
				}
			}
		})
	}
}

func TestBuildBudgetPeriodTotals(t *testing.T) {
	got, err := BuildBudgetPeriod(periodInput(day(2025, 2, 1), day(2025, 2, 28)))
	if err != nil {
		t.Fatalf("BuildBudgetPeriod() error = %v", err)
	}
	// 1000 + 7.3% of 65000
	assertMoney(t, "Totals.PeriodBudget", got.Totals.PeriodBudget, "5745.00")
	assertMoney(t, "Totals.Spent", got.Totals.Spent, "550.00")
	assertMoney(t, "Totals.Remaining", got.Totals.Remaining, "5195.00")
}

func TestBuildBudgetPeriodRejectsBadRanges(t *testing.T) {
	tests := []struct {
		name     string
		from, to core.Date
		want     error
	}{
		{"spans months", day(2025, 1, 25), day(2025, 2, 5), ErrRangeSpansMonths},
		{"spans years", day(2024, 12, 31), day(2025, 1, 1), ErrRangeSpansMonths},
		{"reversed", day(2025, 2, 10), day(2025, 2, 1), ErrInvalidRange},
		{"missing from", core.Date{}, day(2025, 2, 1), core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildBudgetPeriod(PeriodInput{From: tt.from, To: tt.to, Categories: testCategories()})
			if !errors.Is(err, tt.want) {
				t.Errorf("BuildBudgetPeriod() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBuildBudgetPeriodSingleDay(t *testing.T) {
	got, err := BuildBudgetPeriod(periodInput(day(2025, 2, 14), day(2025, 2, 14)))
	if err != nil {
		t.Fatalf("BuildBudgetPeriod() error = %v", err)
	}
	if got.PeriodDays != 1 {
		t.Errorf("PeriodDays = %d, want 1", got.PeriodDays)
	}
	// 1000 / 28 = 35.714...
	assertMoney(t, "PeriodBudget", got.Rows[1].PeriodBudget, "35.71")
}

func TestBuildBudgetPeriodIdempotent(t *testing.T) {
	in := periodInput(day(2025, 3, 1), day(2025, 3, 10))
	a, err := BuildBudgetPeriod(in)
	if err != nil {
		t.Fatalf("BuildBudgetPeriod() error = %v", err)
	}
	b, _ := BuildBudgetPeriod(in)
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if !bytes.Equal(ja, jb) {
		t.Errorf("BuildBudgetPeriod() not idempotent:\n%s\n%s", ja, jb)
	}
}
