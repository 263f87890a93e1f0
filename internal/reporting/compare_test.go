package reporting

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
)

func TestDeltaOf(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		previous  string
		wantDelta string
		wantPct   string // empty means nil
	}{
		{"growth", "1200", "1000", "200.00", "20"},
		{"decline", "750", "1000", "-250.00", "-25"},
		{"previous zero", "500", "0", "500.00", ""},
		{"both zero", "0", "0", "0.00", ""},
		{"rounds to two places", "1000", "3000", "-2000.00", "-66.67"},
		{"negative previous", "100", "-200", "300.00", "-150"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeltaOf(core.MustMoney(tt.current), core.MustMoney(tt.previous))
			assertMoney(t, "Delta", got.Delta, tt.wantDelta)
			if tt.wantPct == "" {
				if got.DeltaPct != nil {
					t.Errorf("DeltaPct = %s, want nil", got.DeltaPct)
				}
				return
			}
			if got.DeltaPct == nil {
				t.Fatalf("DeltaPct = nil, want %s", tt.wantPct)
			}
			if !got.DeltaPct.Equal(decimal.RequireFromString(tt.wantPct)) {
				t.Errorf("DeltaPct = %s, want %s", got.DeltaPct, tt.wantPct)
			}
		})
	}
}

func TestCompareMonths(t *testing.T) {
	current := KPIs{Income: core.MustMoney("65000"), Expense: core.MustMoney("3200"), Net: core.MustMoney("61800")}
	previous := KPIs{Income: core.MustMoney("0"), Expense: core.MustMoney("1600"), Net: core.MustMoney("-1600")}

	got := CompareMonths(month(2025, 1), current, previous)
	if got.PreviousMonth != month(2024, 12) {
		t.Errorf("PreviousMonth = %s, want 2024-12", got.PreviousMonth)
	}
	if got.Income.DeltaPct != nil {
		t.Errorf("Income.DeltaPct = %s, want nil", got.Income.DeltaPct)
	}
	assertMoney(t, "Expense.Delta", got.Expense.Delta, "1600.00")

	b, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	s := string(b)
	if strings.Contains(s, "Inf") || strings.Contains(s, "NaN") {
		t.Errorf("json = %s, want no Inf or NaN", s)
	}
	if !strings.Contains(s, `"deltaPct":null`) {
		t.Errorf("json = %s, want a null deltaPct", s)
	}
}
