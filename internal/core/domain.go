package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	RuleFixed   RuleType = "fixed"
	RulePercent RuleType = "percent"
)

type (
	TransactionType string

	RuleType string

	Account struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	Transaction struct {
		ID         int64           `json:"id"`
		Date       Date            `json:"date"`
		Type       TransactionType `json:"type"`
		Amount     Money           `json:"amount"`
		AccountID  int64           `json:"account"`
		CategoryID int64           `json:"category"`
		Note       string          `json:"note,omitempty"`
		CreatedBy  string          `json:"created_by,omitempty"`
	}

	// MonthConfig holds per account and month settings. A missing config is
	// equivalent to one with both values at 0.00.
	MonthConfig struct {
		AccountID      int64 `json:"account"`
		Month          Month `json:"month"`
		IncomeBase     Money `json:"income_base"`
		OpeningBalance Money `json:"opening_balance"`
	}

	// Budget is a spending rule for one category in one month. Value is a
	// currency amount for fixed rules and a 0-100 percentage for percent rules.
	Budget struct {
		ID         int64           `json:"id"`
		CategoryID int64           `json:"category"`
		Month      Month           `json:"month"`
		RuleType   RuleType        `json:"rule_type"`
		Value      decimal.Decimal `json:"value"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidRuleType    = errors.New("invalid budget rule type")
	ErrInvalidBudgetValue = errors.New("invalid budget value")
	ErrEmptyName          = errors.New("empty name")
	ErrMissingAccount     = errors.New("missing account")
	ErrMissingCategory    = errors.New("missing category")
	ErrNoteTooLong        = errors.New("note too long (max 200 characters)")
	ErrCategoryTooDeep    = errors.New("category nesting deeper than one level")
	ErrUnknownParent      = errors.New("category parent does not exist")
)

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

// ParseTransactionType accepts the type case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}

func (r RuleType) Validate() error {
	switch r {
	case RuleFixed, RulePercent:
		return nil
	default:
		return ErrInvalidRuleType
	}
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.AccountID <= 0 {
		return ErrMissingAccount
	}
	if t.CategoryID <= 0 {
		return ErrMissingCategory
	}
	if len(t.Note) > 200 {
		return ErrNoteTooLong
	}
	return nil
}

func (c MonthConfig) Validate() error {
	if c.AccountID <= 0 {
		return ErrMissingAccount
	}
	if err := c.Month.Validate(); err != nil {
		return err
	}
	if c.IncomeBase.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (b Budget) Validate() error {
	if b.CategoryID <= 0 {
		return ErrMissingCategory
	}
	if err := b.Month.Validate(); err != nil {
		return err
	}
	if err := b.RuleType.Validate(); err != nil {
		return err
	}
	if b.Value.IsNegative() {
		return ErrInvalidBudgetValue
	}
	if b.RuleType == RulePercent && b.Value.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidBudgetValue
	}
	return nil
}
