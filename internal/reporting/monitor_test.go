package reporting

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
)

func groceriesInput(amounts ...string) MonitorInput {
	feb := month(2025, 2)
	in := MonitorInput{
		Month:      feb,
		Mode:       Leaf,
		IncomeBase: core.MustMoney("65000"),
		Categories: testCategories(),
		Budgets: []core.Budget{
			{ID: 1, CategoryID: 2, Month: feb, RuleType: core.RulePercent, Value: decimal.NewFromInt(20)},
		},
	}
	for i, a := range amounts {
		in.Transactions = append(in.Transactions, expense(int64(i+1), day(2025, 2, i+1), 2, a))
	}
	return in
}

func findRow(t *testing.T, rows []MonitorRow, id int64) MonitorRow {
	t.Helper()
	for _, r := range rows {
		if r.CategoryID == id {
			return r
		}
	}
	t.Fatalf("no row for category %d", id)
	return MonitorRow{}
}

func TestBuildBudgetMonitorGroceriesScenario(t *testing.T) {
	got, err := BuildBudgetMonitor(groceriesInput("5000", "6400"))
	if err != nil {
		t.Fatalf("BuildBudgetMonitor() error = %v", err)
	}
	row := findRow(t, got.Rows, 2)
	assertMoneyPtr(t, "BudgetResolved", row.BudgetResolved, "13000.00")
	assertMoney(t, "Spent", row.Spent, "11400.00")
	assertMoneyPtr(t, "Remaining", row.Remaining, "1600.00")
	if row.IsExceeded {
		t.Error("IsExceeded = true, want false")
	}

	got, err = BuildBudgetMonitor(groceriesInput("5000", "6400", "2000"))
	if err != nil {
		t.Fatalf("BuildBudgetMonitor() error = %v", err)
	}
	row = findRow(t, got.Rows, 2)
	assertMoney(t, "Spent", row.Spent, "13400.00")
	assertMoneyPtr(t, "Remaining", row.Remaining, "-400.00")
	if !row.IsExceeded {
		t.Error("IsExceeded = false, want true")
	}
	assertMoneyPtr(t, "Totals.Remaining", got.Totals.Remaining, "-400.00")
	if !got.Totals.IsExceeded {
		t.Error("Totals.IsExceeded = false, want true")
	}
}

func TestBuildBudgetMonitorRowsWithoutBudget(t *testing.T) {
	in := groceriesInput("100")
	in.Transactions = append(in.Transactions, expense(9, day(2025, 2, 9), 21, "40"))

	got, err := BuildBudgetMonitor(in)
	if err != nil {
		t.Fatalf("BuildBudgetMonitor() error = %v", err)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2 (Groceries, Fuel)", len(got.Rows))
	}
	fuel := findRow(t, got.Rows, 21)
	if fuel.BudgetResolved != nil || fuel.Remaining != nil || fuel.IsExceeded {
		t.Errorf("Fuel row = %+v, want nil budget fields", fuel)
	}
	// Tree order: Food before Transport, Groceries under Food.
	if got.Rows[0].CategoryID != 2 || got.Rows[1].CategoryID != 21 {
		t.Errorf("row order = %d, %d, want 2, 21", got.Rows[0].CategoryID, got.Rows[1].CategoryID)
	}
	assertMoney(t, "Totals.Spent", got.Totals.Spent, "140.00")
	assertMoney(t, "Totals.BudgetResolved", got.Totals.BudgetResolved, "13000.00")
}

func TestBuildBudgetMonitorNoBudgets(t *testing.T) {
	in := groceriesInput("100")
	in.Budgets = nil
	got, err := BuildBudgetMonitor(in)
	if err != nil {
		t.Fatalf("BuildBudgetMonitor() error = %v", err)
	}
	if got.Totals.Remaining != nil {
		t.Errorf("Totals.Remaining = %s, want nil", got.Totals.Remaining)
	}
	if got.Totals.IsExceeded {
		t.Error("Totals.IsExceeded = true, want false")
	}
}

func TestBuildBudgetMonitorRollupConservation(t *testing.T) {
	feb := month(2025, 2)
	txs := []core.Transaction{
		expense(1, day(2025, 2, 1), 1, "10.10"),
		expense(2, day(2025, 2, 2), 2, "20.20"),
		expense(3, day(2025, 2, 3), 3, "30.30"),
		expense(4, day(2025, 2, 4), 20, "1.00"),
		expense(5, day(2025, 2, 5), 21, "2.00"),
		income(6, day(2025, 2, 6), 10, "5000"),
	}
	base := MonitorInput{Month: feb, Categories: testCategories(), Transactions: txs}

	leafIn := base
	leafIn.Mode = Leaf
	leaf, err := BuildBudgetMonitor(leafIn)
	if err != nil {
		t.Fatalf("BuildBudgetMonitor(leaf) error = %v", err)
	}
	rollupIn := base
	rollupIn.Mode = Rollup
	rollup, err := BuildBudgetMonitor(rollupIn)
	if err != nil {
		t.Fatalf("BuildBudgetMonitor(rollup) error = %v", err)
	}

	tree, _ := core.BuildCategoryTree(testCategories())
	for _, root := range tree.Roots {
		want := core.Zero
		for _, r := range leaf.Rows {
			if r.CategoryID == root.ID || (r.ParentID != nil && *r.ParentID == root.ID) {
				want = want.Add(r.Spent)
			}
		}
		if want.IsZero() {
			continue
		}
		got := findRow(t, rollup.Rows, root.ID).Spent
		if !got.Equal(want) {
			t.Errorf("rollup spent(%s) = %s, want %s", root.Name, got, want)
		}
	}

	if !leaf.Totals.Spent.Equal(rollup.Totals.Spent) {
		t.Errorf("Totals.Spent leaf = %s, rollup = %s, want equal", leaf.Totals.Spent, rollup.Totals.Spent)
	}
	assertMoney(t, "rollup Totals.Spent", rollup.Totals.Spent, "63.60")
}

func TestBuildBudgetMonitorPercentSummary(t *testing.T) {
	in := groceriesInput()
	in.Budgets = append(in.Budgets,
		core.Budget{ID: 2, CategoryID: 3, Month: in.Month, RuleType: core.RulePercent, Value: decimal.NewFromInt(85)},
		core.Budget{ID: 3, CategoryID: 21, Month: in.Month, RuleType: core.RuleFixed, Value: decimal.NewFromInt(300)},
		core.Budget{ID: 4, CategoryID: 1, Month: in.Month.Prev(), RuleType: core.RulePercent, Value: decimal.NewFromInt(50)},
	)
	got, err := BuildBudgetMonitor(in)
	if err != nil {
		t.Fatalf("BuildBudgetMonitor() error = %v", err)
	}
	if !got.PercentSummary.TotalPercent.Equal(decimal.NewFromInt(105)) {
		t.Errorf("TotalPercent = %s, want 105", got.PercentSummary.TotalPercent)
	}
	if !got.PercentSummary.IsOverAllocated {
		t.Error("IsOverAllocated = false, want true")
	}
	if len(got.Rows) != 3 {
		t.Errorf("len(Rows) = %d, want 3", len(got.Rows))
	}
}

func TestBuildBudgetMonitorErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*MonitorInput)
		want   error
	}{
		{"duplicate budget", func(in *MonitorInput) {
			in.Budgets = append(in.Budgets, core.Budget{ID: 2, CategoryID: 2, Month: in.Month, RuleType: core.RuleFixed, Value: decimal.NewFromInt(1)})
		}, ErrDuplicateBudget},
		{"budget for unknown category", func(in *MonitorInput) {
			in.Budgets = append(in.Budgets, core.Budget{ID: 2, CategoryID: 404, Month: in.Month, RuleType: core.RuleFixed, Value: decimal.NewFromInt(1)})
		}, ErrUnknownCategory},
		{"transaction for unknown category", func(in *MonitorInput) {
			in.Transactions = append(in.Transactions, expense(99, day(2025, 2, 2), 404, "1"))
		}, ErrUnknownCategory},
		{"category too deep", func(in *MonitorInput) {
			in.Categories = append(in.Categories, core.Category{ID: 50, Name: "Organic", ParentID: ptr(int64(2))})
		}, core.ErrCategoryTooDeep},
		{"dangling parent", func(in *MonitorInput) {
			in.Categories = append(in.Categories, core.Category{ID: 50, Name: "Orphan", ParentID: ptr(int64(777))})
		}, core.ErrUnknownParent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := groceriesInput("10")
			tt.mutate(&in)
			_, err := BuildBudgetMonitor(in)
			if !errors.Is(err, tt.want) {
				t.Errorf("BuildBudgetMonitor() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBuildBudgetMonitorIgnoresOtherMonths(t *testing.T) {
	in := groceriesInput("100")
	in.Transactions = append(in.Transactions, expense(50, day(2025, 3, 1), 404, "9999"))
	got, err := BuildBudgetMonitor(in)
	if err != nil {
		t.Fatalf("BuildBudgetMonitor() error = %v", err)
	}
	assertMoney(t, "Totals.Spent", got.Totals.Spent, "100.00")
}

func TestBuildBudgetMonitorJSON(t *testing.T) {
	in := groceriesInput("5000", "6400")
	a, err := BuildBudgetMonitor(in)
	if err != nil {
		t.Fatalf("BuildBudgetMonitor() error = %v", err)
	}
	b, _ := BuildBudgetMonitor(in)
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if !bytes.Equal(ja, jb) {
		t.Errorf("BuildBudgetMonitor() not idempotent")
	}
	for _, want := range []string{`"budgetResolved":"13000.00"`, `"remaining":"1600.00"`, `"mode":"leaf"`} {
		if !bytes.Contains(ja, []byte(want)) {
			t.Errorf("json = %s, want it to contain %s", ja, want)
		}
	}
}
