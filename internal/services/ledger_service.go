package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cashflow/internal/core"
	"cashflow/internal/ledger"
	applog "cashflow/internal/log"
)

// TransactionPublisher announces stored transactions to other processes.
type TransactionPublisher interface {
	PublishTransactionRecorded(ctx context.Context, tx core.Transaction) error
}

// LedgerService orchestrates ledger writes across storage and AMQP.
type LedgerService struct {
	store     ledger.Store
	publisher TransactionPublisher
	logger    *applog.StructuredLogger
	closers   []func() error
}

// NewLedgerService wires the store with an optional publisher. closers run
// on Close in order.
func NewLedgerService(store ledger.Store, publisher TransactionPublisher, logger *applog.Logger, closers ...func() error) *LedgerService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentLedger)
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    applog.NewStructuredLogger(logger),
		closers:   closers,
	}
}

// Store exposes the underlying store for read paths.
func (s *LedgerService) Store() ledger.Store { return s.store }

func (s *LedgerService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *LedgerService) CreateAccount(ctx context.Context, name string) (core.Account, error) {
	name = strings.TrimSpace(name)
	if err := (core.Account{Name: name}).Validate(); err != nil {
		return core.Account{}, err
	}
	a, err := s.store.CreateAccount(ctx, name)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

func (s *LedgerService) RenameAccount(ctx context.Context, id int64, name string) (core.Account, error) {
	name = strings.TrimSpace(name)
	if err := (core.Account{Name: name}).Validate(); err != nil {
		return core.Account{}, err
	}
	a, err := s.store.RenameAccount(ctx, id, name)
	if err != nil {
		return core.Account{}, fmt.Errorf("rename account %d: %w", id, err)
	}
	return a, nil
}

// DeleteAccount removes the account together with its transactions and month configs.
func (s *LedgerService) DeleteAccount(ctx context.Context, id int64) error {
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("delete account %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Account deleted", applog.FieldAccountID, id)
	return nil
}

// ListCategories returns the categories in tree order with their level.
func (s *LedgerService) ListCategories(ctx context.Context) ([]core.FlatCategory, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	tree, err := core.BuildCategoryTree(cats)
	if err != nil {
		return nil, fmt.Errorf("build category tree: %w", err)
	}
	return tree.Flatten(), nil
}

func (s *LedgerService) CreateCategory(ctx context.Context, name string, parentID *int64) (core.Category, error) {
	c := core.Category{Name: strings.TrimSpace(name), ParentID: parentID}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return created, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// RecordTransaction stores the transaction and publishes transaction.recorded.
// A publish failure is logged and does not fail the write.
func (s *LedgerService) RecordTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx.Note = strings.TrimSpace(tx.Note)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	stored, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.logger.LogTransactionRecorded(ctx, stored.ID, string(stored.Type), stored.Amount.Cents(), stored.AccountID, stored.CategoryID)

	if err := s.publish(ctx, stored); err != nil {
		s.logger.LogError(ctx, "Failed to publish transaction event", err, applog.ComponentAMQP, applog.OpPublish,
			applog.NewFields().WithTransaction(stored.ID, string(stored.Type), stored.Amount.Cents(), stored.AccountID, stored.CategoryID))
	}
	return stored, nil
}

func (s *LedgerService) publish(ctx context.Context, tx core.Transaction) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping transaction event")
		return nil
	}
	return s.publisher.PublishTransactionRecorded(ctx, tx)
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return nil
}

func (s *LedgerService) ListMonthConfigs(ctx context.Context, month core.Month) ([]core.MonthConfig, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}
	configs, err := s.store.ListMonthConfigs(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("list month configs: %w", err)
	}
	return configs, nil
}

func (s *LedgerService) SaveMonthConfig(ctx context.Context, c core.MonthConfig) (core.MonthConfig, error) {
	if err := c.Validate(); err != nil {
		return core.MonthConfig{}, err
	}
	saved, err := s.store.SaveMonthConfig(ctx, c)
	if err != nil {
		return core.MonthConfig{}, fmt.Errorf("save month config: %w", err)
	}
	return saved, nil
}

func (s *LedgerService) ListBudgets(ctx context.Context, month core.Month) ([]core.Budget, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}
	budgets, err := s.store.ListBudgets(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

// UpsertBudget creates or replaces the budget of (category, month).
func (s *LedgerService) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	saved, err := s.store.UpsertBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return saved, nil
}

// Close releases storage and messaging resources.
func (s *LedgerService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if c == nil {
			continue
		}
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close ledger service: %w", err)
	}
	return nil
}
