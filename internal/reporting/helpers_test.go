package reporting

import (
	"testing"
	"time"

	"cashflow/internal/core"
)

func ptr[T any](v T) *T { return &v }

func money(t *testing.T, s string) core.Money {
	t.Helper()
	m, err := core.ParseMoney(s)
	if err != nil {
		t.Fatalf("ParseMoney(%q) error = %v", s, err)
	}
	return m
}

func month(y int, m int) core.Month {
	return core.Month{Year: y, Month: time.Month(m)}
}

func day(y, m, d int) core.Date {
	return core.NewDate(y, time.Month(m), d)
}

func expense(id int64, date core.Date, category int64, amount string) core.Transaction {
	return core.Transaction{ID: id, Date: date, Type: core.Expense, Amount: core.MustMoney(amount), AccountID: 1, CategoryID: category}
}

func income(id int64, date core.Date, category int64, amount string) core.Transaction {
	return core.Transaction{ID: id, Date: date, Type: core.Income, Amount: core.MustMoney(amount), AccountID: 1, CategoryID: category}
}

// Food(1) > Groceries(2), Dining(3); Salary(10); Transport(20) > Fuel(21)
func testCategories() []core.Category {
	return []core.Category{
		{ID: 1, Name: "Food"},
		{ID: 2, Name: "Groceries", ParentID: ptr(int64(1))},
		{ID: 3, Name: "Dining", ParentID: ptr(int64(1))},
		{ID: 10, Name: "Salary"},
		{ID: 20, Name: "Transport"},
		{ID: 21, Name: "Fuel", ParentID: ptr(int64(20))},
	}
}

func assertMoney(t *testing.T, name string, got core.Money, want string) {
	t.Helper()
	if got.String() != want {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

func assertMoneyPtr(t *testing.T, name string, got *core.Money, want string) {
	t.Helper()
	if got == nil {
		t.Errorf("%s = nil, want %s", name, want)
		return
	}
	assertMoney(t, name, *got, want)
}
