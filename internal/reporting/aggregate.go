package reporting

import (
	"fmt"

	"cashflow/internal/core"
)

// Kind selects which transaction types an aggregate counts.
type Kind int

const (
	KindExpense Kind = iota
	KindIncome
	KindBoth
)

func (k Kind) matches(t core.TransactionType) bool {
	switch k {
	case KindExpense:
		return t == core.Expense
	case KindIncome:
		return t == core.Income
	default:
		return true
	}
}

// SumSpend sums the amounts of transactions whose category is in scope, whose
// date is inside r (inclusive, by calendar day) and whose type matches kind.
func SumSpend(txs []core.Transaction, scope Scope, r core.DateRange, kind Kind) core.Money {
	total := core.Zero
	for _, tx := range txs {
		if !kind.matches(tx.Type) || !scope.Contains(tx.CategoryID) || !r.Contains(tx.Date) {
			continue
		}
		total = total.Add(tx.Amount)
	}
	return total
}

// DayTotals is the income and expense of one calendar day.
type DayTotals struct {
	Income  core.Money
	Expense core.Money
	Count   int
}

// DailyTotals buckets the transactions of month by day. Index 0 is day 1.
func DailyTotals(txs []core.Transaction, scope Scope, month core.Month) []DayTotals {
	days := make([]DayTotals, month.Days())
	for _, tx := range txs {
		if !month.Contains(tx.Date) || !scope.Contains(tx.CategoryID) {
			continue
		}
		d := &days[tx.Date.Day()-1]
		switch tx.Type {
		case core.Income:
			d.Income = d.Income.Add(tx.Amount)
		case core.Expense:
			d.Expense = d.Expense.Add(tx.Amount)
		}
		d.Count++
	}
	return days
}

// FilterAccount keeps the transactions of one account. A nil accountID keeps all.
func FilterAccount(txs []core.Transaction, accountID *int64) []core.Transaction {
	if accountID == nil {
		return txs
	}
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.AccountID == *accountID {
			out = append(out, tx)
		}
	}
	return out
}

// checkCategories verifies every transaction inside r references a known category.
func checkCategories(txs []core.Transaction, tree core.CategoryTree, r core.DateRange) error {
	for _, tx := range txs {
		if r.Contains(tx.Date) && !tree.Has(tx.CategoryID) {
			return fmt.Errorf("transaction %d category %d: %w", tx.ID, tx.CategoryID, ErrUnknownCategory)
		}
	}
	return nil
}
