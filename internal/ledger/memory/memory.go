package memory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"budgetwise/internal/core"
	"budgetwise/internal/ledger"
	"budgetwise/internal/ledger/csvfile"
)

// Ensure interface conformance
var (
	_ ledger.TransactionReader = (*Store)(nil)
	_ ledger.UserLister        = (*Store)(nil)
	_ ledger.TransactionWriter = (*Store)(nil)
	_ ledger.BudgetStore       = (*Store)(nil)
)

// Store keeps the whole ledger and the budget overrides in memory.
type Store struct {
	mu      sync.Mutex
	items   []core.TransactionRecord
	budgets map[string]float64
}

func New(records []core.TransactionRecord) *Store {
	return &Store{
		items:   append([]core.TransactionRecord(nil), records...),
		budgets: map[string]float64{},
	}
}

// NewFromFiles seeds the store from base/transactions.csv and
// base/budgets.csv when present. Missing files give an empty store.
func NewFromFiles(base string) *Store {
	s := New(readSeed(filepath.Join(base, "transactions.csv")))
	budgets := csvfile.NewBudgetFile(filepath.Join(base, "budgets.csv"))
	users, _ := s.ListUsers(context.Background())
	for _, u := range users {
		if v, ok, err := budgets.Load(context.Background(), u); err == nil && ok {
			s.budgets[u] = v
		}
	}
	return s
}

func (s *Store) ReadTransactions(_ context.Context, username string) ([]core.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.TransactionRecord
	for _, r := range s.items {
		if r.AccountUsername == username {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ListUsers(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	var users []string
	for _, r := range s.items {
		if _, ok := seen[r.AccountUsername]; ok {
			continue
		}
		seen[r.AccountUsername] = struct{}{}
		users = append(users, r.AccountUsername)
	}
	return users, nil
}

// Record stores the transaction and returns a synthetic row reference.
func (s *Store) Record(_ context.Context, tx core.TransactionRecord) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, tx)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

func (s *Store) Load(_ context.Context, username string) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.budgets[username]
	return v, ok, nil
}

func (s *Store) Save(_ context.Context, username string, value float64) error {
	if value < 0 {
		return core.ErrNegativeBudget
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[username] = value
	return nil
}

func (s *Store) Clear(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.budgets, username)
	return nil
}

func readSeed(path string) []core.TransactionRecord {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	records, skipped := csvfile.ParseTransactions(f)
	if len(skipped) > 0 {
		slog.Warn("Skipped malformed seed rows", "path", path, "count", len(skipped))
	}
	return records
}
