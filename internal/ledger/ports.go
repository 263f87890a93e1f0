package ledger

import (
	"context"
	"errors"

	"cashflow/internal/core"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Ports for the data-access layer. Reports are built from what they return;
// nothing here stores a derived balance.
type (
	AccountStore interface {
		ListAccounts(ctx context.Context) ([]core.Account, error)
		GetAccount(ctx context.Context, id int64) (core.Account, error)
		CreateAccount(ctx context.Context, name string) (core.Account, error)
		RenameAccount(ctx context.Context, id int64, name string) (core.Account, error)
		// DeleteAccount removes the account with its transactions and month configs.
		DeleteAccount(ctx context.Context, id int64) error
	}

	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		// CreateCategory rejects a parent that is itself a child.
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	}

	TransactionStore interface {
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id int64) error
	}

	MonthConfigStore interface {
		ListMonthConfigs(ctx context.Context, month core.Month) ([]core.MonthConfig, error)
		// SaveMonthConfig inserts or replaces the config of (account, month).
		SaveMonthConfig(ctx context.Context, c core.MonthConfig) (core.MonthConfig, error)
	}

	BudgetStore interface {
		ListBudgets(ctx context.Context, month core.Month) ([]core.Budget, error)
		// UpsertBudget keeps at most one budget per (category, month).
		UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	}

	Store interface {
		AccountStore
		CategoryStore
		TransactionStore
		MonthConfigStore
		BudgetStore
	}
)

// TransactionFilter narrows ListTransactions. Zero fields do not filter.
type TransactionFilter struct {
	From       core.Date
	To         core.Date
	AccountID  *int64
	CategoryID *int64
	Limit      int
}

// MonthFilter selects every transaction of month.
func MonthFilter(month core.Month) TransactionFilter {
	return TransactionFilter{From: month.First(), To: month.Last()}
}

// Match reports whether tx passes the filter, ignoring Limit.
func (f TransactionFilter) Match(tx core.Transaction) bool {
	if !f.From.IsZero() && tx.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(f.To) {
		return false
	}
	if f.AccountID != nil && tx.AccountID != *f.AccountID {
		return false
	}
	if f.CategoryID != nil && tx.CategoryID != *f.CategoryID {
		return false
	}
	return true
}
