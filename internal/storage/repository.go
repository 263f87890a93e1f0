package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
	"cashflow/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// mapError translates driver errors into ledger and core sentinels.
func mapError(what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ledger.ErrNotFound)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%s: %w", what, ledger.ErrNotFound)
	case strings.Contains(msg, "category nesting deeper"):
		return fmt.Errorf("%s: %w", what, core.ErrCategoryTooDeep)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w", what, ledger.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]core.Account, len(rows))
	for i, a := range rows {
		out[i] = core.Account{ID: a.ID, Name: a.Name}
	}
	return out, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	a, err := r.queries.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, mapError(fmt.Sprintf("account %d", id), err)
	}
	return core.Account{ID: a.ID, Name: a.Name}, nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, name string) (core.Account, error) {
	acct := core.Account{Name: strings.TrimSpace(name)}
	if err := acct.Validate(); err != nil {
		return core.Account{}, err
	}
	a, err := r.queries.CreateAccount(ctx, acct.Name)
	if err != nil {
		return core.Account{}, mapError("create account", err)
	}
	slog.InfoContext(ctx, "Account created", "account_id", a.ID)
	return core.Account{ID: a.ID, Name: a.Name}, nil
}

func (r *SQLiteRepository) RenameAccount(ctx context.Context, id int64, name string) (core.Account, error) {
	acct := core.Account{ID: id, Name: strings.TrimSpace(name)}
	if err := acct.Validate(); err != nil {
		return core.Account{}, err
	}
	a, err := r.queries.RenameAccount(ctx, id, acct.Name)
	if err != nil {
		return core.Account{}, mapError(fmt.Sprintf("account %d", id), err)
	}
	return core.Account{ID: a.ID, Name: a.Name}, nil
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteAccount(ctx, id)
	if err != nil {
		return mapError(fmt.Sprintf("delete account %d", id), err)
	}
	if n == 0 {
		return fmt.Errorf("account %d: %w", id, ledger.ErrNotFound)
	}
	slog.InfoContext(ctx, "Account deleted with its transactions and month configs", "account_id", id)
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return toCategories(rows), nil
}

func toCategories(rows []Category) []core.Category {
	out := make([]core.Category, len(rows))
	for i, c := range rows {
		out[i] = core.Category{ID: c.ID, Name: c.Name}
		if c.ParentID.Valid {
			parent := c.ParentID.Int64
			out[i].ParentID = &parent
		}
	}
	return out
}

// CreateCategory checks the parent inside the insert transaction. The
// depth trigger in the schema rejects anything that slips past it.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Category{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	existing, err := q.ListCategories(ctx)
	if err != nil {
		return core.Category{}, fmt.Errorf("list categories: %w", err)
	}
	if err := ledger.CheckParent(c, toCategories(existing)); err != nil {
		return core.Category{}, err
	}

	var parent sql.NullInt64
	if c.ParentID != nil {
		parent = sql.NullInt64{Int64: *c.ParentID, Valid: true}
	}
	row, err := q.CreateCategory(ctx, c.Name, parent)
	if err != nil {
		return core.Category{}, mapError("create category", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Category{}, fmt.Errorf("commit: %w", err)
	}
	return toCategories([]Category{row})[0], nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	arg := ListTransactionsParams{Limit: int64(f.Limit)}
	if !f.From.IsZero() {
		arg.From = f.From.String()
	}
	if !f.To.IsZero() {
		arg.To = f.To.String()
	}
	if f.AccountID != nil {
		arg.AccountID = sql.NullInt64{Int64: *f.AccountID, Valid: true}
	}
	if f.CategoryID != nil {
		arg.CategoryID = sql.NullInt64{Int64: *f.CategoryID, Valid: true}
	}
	rows, err := r.queries.ListTransactions(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := toTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func toTransaction(row Transaction) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", row.ID, err)
	}
	return core.Transaction{
		ID:         row.ID,
		Date:       date,
		Type:       core.TransactionType(row.Type),
		Amount:     core.MoneyFromCents(row.AmountCents),
		AccountID:  row.AccountID,
		CategoryID: row.CategoryID,
		Note:       row.Note,
		CreatedBy:  row.CreatedBy,
	}, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, mapError(fmt.Sprintf("transaction %d", id), err)
	}
	return toTransaction(row)
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	row, err := r.queries.CreateTransaction(ctx, Transaction{
		Date:        t.Date.String(),
		Type:        string(t.Type),
		AmountCents: t.Amount.Cents(),
		AccountID:   t.AccountID,
		CategoryID:  t.CategoryID,
		Note:        t.Note,
		CreatedBy:   t.CreatedBy,
	})
	if err != nil {
		return core.Transaction{}, mapError(fmt.Sprintf("create transaction (account %d, category %d)", t.AccountID, t.CategoryID), err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"type", row.Type,
		"amount_cents", row.AmountCents,
		"date", row.Date,
		"account_id", row.AccountID,
		"category_id", row.CategoryID)

	return toTransaction(row)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return mapError(fmt.Sprintf("delete transaction %d", id), err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, ledger.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListMonthConfigs(ctx context.Context, month core.Month) ([]core.MonthConfig, error) {
	rows, err := r.queries.ListMonthConfigs(ctx, month.String())
	if err != nil {
		return nil, fmt.Errorf("list month configs %s: %w", month, err)
	}
	out := make([]core.MonthConfig, len(rows))
	for i, c := range rows {
		out[i] = core.MonthConfig{
			AccountID:      c.AccountID,
			Month:          month,
			IncomeBase:     core.MoneyFromCents(c.IncomeBaseCents),
			OpeningBalance: core.MoneyFromCents(c.OpeningBalanceCents),
		}
	}
	return out, nil
}

func (r *SQLiteRepository) SaveMonthConfig(ctx context.Context, c core.MonthConfig) (core.MonthConfig, error) {
	if err := c.Validate(); err != nil {
		return core.MonthConfig{}, err
	}
	err := r.queries.UpsertMonthConfig(ctx, MonthConfig{
		AccountID:           c.AccountID,
		Month:               c.Month.String(),
		IncomeBaseCents:     c.IncomeBase.Cents(),
		OpeningBalanceCents: c.OpeningBalance.Cents(),
	})
	if err != nil {
		return core.MonthConfig{}, mapError(fmt.Sprintf("save month config (account %d, %s)", c.AccountID, c.Month), err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, month core.Month) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgets(ctx, month.String())
	if err != nil {
		return nil, fmt.Errorf("list budgets %s: %w", month, err)
	}
	out := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		b, err := toBudget(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func toBudget(row Budget) (core.Budget, error) {
	month, err := core.ParseMonth(row.Month)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %d: %w", row.ID, err)
	}
	value, err := decimal.NewFromString(row.Value)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %d value %q: %w", row.ID, row.Value, core.ErrInvalidBudgetValue)
	}
	return core.Budget{
		ID:         row.ID,
		CategoryID: row.CategoryID,
		Month:      month,
		RuleType:   core.RuleType(row.RuleType),
		Value:      value,
	}, nil
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	row, err := r.queries.UpsertBudget(ctx, Budget{
		CategoryID: b.CategoryID,
		Month:      b.Month.String(),
		RuleType:   string(b.RuleType),
		Value:      b.Value.String(),
	})
	if err != nil {
		return core.Budget{}, mapError(fmt.Sprintf("upsert budget (category %d, %s)", b.CategoryID, b.Month), err)
	}
	return toBudget(row)
}
