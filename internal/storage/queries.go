package storage

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Account struct {
	ID   int64
	Name string
}

type Category struct {
	ID       int64
	Name     string
	ParentID sql.NullInt64
}

type Transaction struct {
	ID          int64
	Date        string
	Type        string
	AmountCents int64
	AccountID   int64
	CategoryID  int64
	Note        string
	CreatedBy   string
}

type MonthConfig struct {
	AccountID           int64
	Month               string
	IncomeBaseCents     int64
	OpeningBalanceCents int64
}

type Budget struct {
	ID         int64
	CategoryID int64
	Month      string
	RuleType   string
	Value      string
}

const listAccounts = `SELECT id, name FROM accounts ORDER BY id`

func (q *Queries) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		var i Account
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getAccount = `SELECT id, name FROM accounts WHERE id = ?`

func (q *Queries) GetAccount(ctx context.Context, id int64) (Account, error) {
	var i Account
	err := q.db.QueryRowContext(ctx, getAccount, id).Scan(&i.ID, &i.Name)
	return i, err
}

const createAccount = `INSERT INTO accounts (name) VALUES (?) RETURNING id, name`

func (q *Queries) CreateAccount(ctx context.Context, name string) (Account, error) {
	var i Account
	err := q.db.QueryRowContext(ctx, createAccount, name).Scan(&i.ID, &i.Name)
	return i, err
}

const renameAccount = `UPDATE accounts SET name = ? WHERE id = ? RETURNING id, name`

func (q *Queries) RenameAccount(ctx context.Context, id int64, name string) (Account, error) {
	var i Account
	err := q.db.QueryRowContext(ctx, renameAccount, name, id).Scan(&i.ID, &i.Name)
	return i, err
}

const deleteAccount = `DELETE FROM accounts WHERE id = ?`

func (q *Queries) DeleteAccount(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteAccount, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listCategories = `SELECT id, name, parent_id FROM categories ORDER BY id`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.Name, &i.ParentID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createCategory = `INSERT INTO categories (name, parent_id) VALUES (?, ?) RETURNING id, name, parent_id`

func (q *Queries) CreateCategory(ctx context.Context, name string, parentID sql.NullInt64) (Category, error) {
	var i Category
	err := q.db.QueryRowContext(ctx, createCategory, name, parentID).Scan(&i.ID, &i.Name, &i.ParentID)
	return i, err
}

const transactionColumns = `id, date, type, amount_cents, account_id, category_id, note, created_by`

type ListTransactionsParams struct {
	From       string
	To         string
	AccountID  sql.NullInt64
	CategoryID sql.NullInt64
	Limit      int64
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	var (
		where []string
		args  []interface{}
	)
	if arg.From != "" {
		where = append(where, "date >= ?")
		args = append(args, arg.From)
	}
	if arg.To != "" {
		where = append(where, "date <= ?")
		args = append(args, arg.To)
	}
	if arg.AccountID.Valid {
		where = append(where, "account_id = ?")
		args = append(args, arg.AccountID.Int64)
	}
	if arg.CategoryID.Valid {
		where = append(where, "category_id = ?")
		args = append(args, arg.CategoryID.Int64)
	}
	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, id"
	if arg.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, arg.Limit)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var i Transaction
	err := row.Scan(&i.ID, &i.Date, &i.Type, &i.AmountCents, &i.AccountID, &i.CategoryID, &i.Note, &i.CreatedBy)
	return i, err
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const createTransaction = `INSERT INTO transactions (date, type, amount_cents, account_id, category_id, note, created_by)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

func (q *Queries) CreateTransaction(ctx context.Context, arg Transaction) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, createTransaction,
		arg.Date, arg.Type, arg.AmountCents, arg.AccountID, arg.CategoryID, arg.Note, arg.CreatedBy))
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listMonthConfigs = `SELECT account_id, month, income_base_cents, opening_balance_cents
FROM month_configs WHERE month = ? ORDER BY account_id`

func (q *Queries) ListMonthConfigs(ctx context.Context, month string) ([]MonthConfig, error) {
	rows, err := q.db.QueryContext(ctx, listMonthConfigs, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthConfig
	for rows.Next() {
		var i MonthConfig
		if err := rows.Scan(&i.AccountID, &i.Month, &i.IncomeBaseCents, &i.OpeningBalanceCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertMonthConfig = `INSERT INTO month_configs (account_id, month, income_base_cents, opening_balance_cents)
VALUES (?, ?, ?, ?)
ON CONFLICT (account_id, month) DO UPDATE SET
    income_base_cents = excluded.income_base_cents,
    opening_balance_cents = excluded.opening_balance_cents,
    updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertMonthConfig(ctx context.Context, arg MonthConfig) error {
	_, err := q.db.ExecContext(ctx, upsertMonthConfig, arg.AccountID, arg.Month, arg.IncomeBaseCents, arg.OpeningBalanceCents)
	return err
}

const listBudgets = `SELECT id, category_id, month, rule_type, value FROM budgets WHERE month = ? ORDER BY id`

func (q *Queries) ListBudgets(ctx context.Context, month string) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Budget
	for rows.Next() {
		var i Budget
		if err := rows.Scan(&i.ID, &i.CategoryID, &i.Month, &i.RuleType, &i.Value); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertBudget = `INSERT INTO budgets (category_id, month, rule_type, value)
VALUES (?, ?, ?, ?)
ON CONFLICT (category_id, month) DO UPDATE SET
    rule_type = excluded.rule_type,
    value = excluded.value,
    updated_at = CURRENT_TIMESTAMP
RETURNING id, category_id, month, rule_type, value`

func (q *Queries) UpsertBudget(ctx context.Context, arg Budget) (Budget, error) {
	var i Budget
	err := q.db.QueryRowContext(ctx, upsertBudget, arg.CategoryID, arg.Month, arg.RuleType, arg.Value).
		Scan(&i.ID, &i.CategoryID, &i.Month, &i.RuleType, &i.Value)
	return i, err
}
