// Package memory is an in-process ledger store used by tests and the default
// backend. Data does not survive a restart.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"cashflow/internal/core"
	"cashflow/internal/ledger"
)

type configKey struct {
	account int64
	month   core.Month
}

type budgetKey struct {
	category int64
	month    core.Month
}

type Store struct {
	mu           sync.RWMutex
	nextID       int64
	accounts     map[int64]core.Account
	categories   []core.Category
	transactions map[int64]core.Transaction
	configs      map[configKey]core.MonthConfig
	budgets      map[budgetKey]core.Budget
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		accounts:     make(map[int64]core.Account),
		transactions: make(map[int64]core.Transaction),
		configs:      make(map[configKey]core.MonthConfig),
		budgets:      make(map[budgetKey]core.Budget),
	}
}

// NewFromFiles seeds accounts and categories from seed_accounts.txt and
// seed_categories.txt in base. A category line is either "Root" or
// "Root/Child". Missing files fall back to a small default set.
func NewFromFiles(base string) (*Store, error) {
	accounts := readLines(filepath.Join(base, "seed_accounts.txt"))
	categories := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(accounts) == 0 {
		accounts = []string{"Checking"}
	}
	if len(categories) == 0 {
		categories = []string{"Income/Salary", "Food/Groceries", "Food/Dining", "Home/Rent", "Transport/Fuel"}
	}

	s := New()
	ctx := context.Background()
	for _, name := range accounts {
		if _, err := s.CreateAccount(ctx, name); err != nil {
			return nil, fmt.Errorf("seed account %q: %w", name, err)
		}
	}
	roots := make(map[string]int64)
	for _, line := range categories {
		rootName, childName, hasChild := strings.Cut(line, "/")
		rootName = strings.TrimSpace(rootName)
		rootID, ok := roots[rootName]
		if !ok {
			root, err := s.CreateCategory(ctx, core.Category{Name: rootName})
			if err != nil {
				return nil, fmt.Errorf("seed category %q: %w", rootName, err)
			}
			rootID = root.ID
			roots[rootName] = rootID
		}
		if !hasChild {
			continue
		}
		parent := rootID
		if _, err := s.CreateCategory(ctx, core.Category{Name: strings.TrimSpace(childName), ParentID: &parent}); err != nil {
			return nil, fmt.Errorf("seed category %q: %w", line, err)
		}
	}
	return s, nil
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetAccount(_ context.Context, id int64) (core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, fmt.Errorf("account %d: %w", id, ledger.ErrNotFound)
	}
	return a, nil
}

func (s *Store) CreateAccount(_ context.Context, name string) (core.Account, error) {
	a := core.Account{Name: strings.TrimSpace(name)}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) RenameAccount(_ context.Context, id int64, name string) (core.Account, error) {
	a := core.Account{ID: id, Name: strings.TrimSpace(name)}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return core.Account{}, fmt.Errorf("account %d: %w", id, ledger.ErrNotFound)
	}
	s.accounts[id] = a
	return a, nil
}

func (s *Store) DeleteAccount(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return fmt.Errorf("account %d: %w", id, ledger.ErrNotFound)
	}
	delete(s.accounts, id)
	for txID, tx := range s.transactions {
		if tx.AccountID == id {
			delete(s.transactions, txID)
		}
	}
	for k := range s.configs {
		if k.account == id {
			delete(s.configs, k)
		}
	}
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Category(nil), s.categories...), nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ledger.CheckParent(c, s.categories); err != nil {
		return core.Category{}, err
	}
	c.ID = s.id()
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) hasCategory(id int64) bool {
	for _, c := range s.categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) ListTransactions(_ context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, 0)
	for _, tx := range s.transactions {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, ledger.ErrNotFound)
	}
	return tx, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[tx.AccountID]; !ok {
		return core.Transaction{}, fmt.Errorf("account %d: %w", tx.AccountID, ledger.ErrNotFound)
	}
	if !s.hasCategory(tx.CategoryID) {
		return core.Transaction{}, fmt.Errorf("category %d: %w", tx.CategoryID, ledger.ErrNotFound)
	}
	tx.ID = s.id()
	s.transactions[tx.ID] = tx
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return fmt.Errorf("transaction %d: %w", id, ledger.ErrNotFound)
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) ListMonthConfigs(_ context.Context, month core.Month) ([]core.MonthConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.MonthConfig, 0)
	for k, c := range s.configs {
		if k.month == month {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

func (s *Store) SaveMonthConfig(_ context.Context, c core.MonthConfig) (core.MonthConfig, error) {
	if err := c.Validate(); err != nil {
		return core.MonthConfig{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[c.AccountID]; !ok {
		return core.MonthConfig{}, fmt.Errorf("account %d: %w", c.AccountID, ledger.ErrNotFound)
	}
	s.configs[configKey{account: c.AccountID, month: c.Month}] = c
	return c, nil
}

func (s *Store) ListBudgets(_ context.Context, month core.Month) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Budget, 0)
	for k, b := range s.budgets {
		if k.month == month {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasCategory(b.CategoryID) {
		return core.Budget{}, fmt.Errorf("category %d: %w", b.CategoryID, ledger.ErrNotFound)
	}
	key := budgetKey{category: b.CategoryID, month: b.Month}
	if existing, ok := s.budgets[key]; ok {
		b.ID = existing.ID
	} else {
		b.ID = s.id()
	}
	s.budgets[key] = b
	return b, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
