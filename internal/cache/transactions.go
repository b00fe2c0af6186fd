package cache

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"budgetwise/internal/clock"
	"budgetwise/internal/core"
	"budgetwise/internal/ledger"
	applog "budgetwise/internal/log"
)

const (
	// DefaultTTL bounds how long a user's transactions and custom budget are
	// served without going back to the ledger.
	DefaultTTL = 5 * time.Minute

	// DefaultMaxEntries bounds the number of users held per cache.
	DefaultMaxEntries = 1024
)

// Options configures a TransactionCache. Zero values fall back to defaults.
type Options struct {
	TTL        time.Duration
	MaxEntries int
	Clock      clock.Clock
	Logger     *applog.Logger
}

type override struct {
	value float64
	ok    bool
}

// TransactionCache memoizes per-user ledger reads and custom budget
// overrides. Reads, refills and writes for one user are serialized by a
// per-user lock; different users never contend.
type TransactionCache struct {
	reader  ledger.TransactionReader
	budgets ledger.BudgetStore
	logger  *applog.Logger

	transactions *LRUCache[[]core.TransactionRecord]
	overrides    *LRUCache[override]
	locks        keyedMutex
}

func NewTransactionCache(reader ledger.TransactionReader, budgets ledger.BudgetStore, opts Options) *TransactionCache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = applog.Default()
	}
	return &TransactionCache{
		reader:       reader,
		budgets:      budgets,
		logger:       opts.Logger.WithComponent(applog.ComponentCache),
		transactions: NewLRUCacheWithClock[[]core.TransactionRecord](opts.MaxEntries, opts.TTL, opts.Clock),
		overrides:    NewLRUCacheWithClock[override](opts.MaxEntries, opts.TTL, opts.Clock),
		locks:        keyedMutex{locks: map[string]*refLock{}},
	}
}

// Cleaners exposes the underlying caches for a cleanup Manager.
func (c *TransactionCache) Cleaners() []Cleaner {
	return []Cleaner{c.transactions, c.overrides}
}

// Transactions returns the user's ledger rows. A read failure yields an
// empty list and is not cached, so the next call retries.
func (c *TransactionCache) Transactions(ctx context.Context, username string) []core.TransactionRecord {
	unlock := c.locks.Lock(username)
	defer unlock()

	if txs, ok := c.transactions.Get(username); ok {
		return slices.Clone(txs)
	}

	txs, err := c.reader.ReadTransactions(ctx, username)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to read transactions, using empty ledger",
			applog.NewFields().WithUser(username).WithOperation(applog.OpRead).WithError(err).ToSlice()...)
		return []core.TransactionRecord{}
	}
	if txs == nil {
		txs = []core.TransactionRecord{}
	}
	c.warnUnparseable(ctx, username, txs)
	c.transactions.Set(username, txs)

	c.logger.DebugContext(ctx, "Transactions cache refilled",
		applog.NewFields().WithUser(username).With(applog.FieldCount, len(txs)).ToSlice()...)

	return slices.Clone(txs)
}

// warnUnparseable logs each row whose timestamp cannot be parsed. Such rows
// stay in the snapshot and every aggregation skips them.
func (c *TransactionCache) warnUnparseable(ctx context.Context, username string, txs []core.TransactionRecord) {
	for _, tx := range txs {
		if _, err := tx.Time(); err != nil {
			c.logger.WarnContext(ctx, "Transaction has unparseable timestamp, it will be skipped",
				applog.NewFields().
					WithUser(username).
					WithTransaction(string(tx.Operation), tx.Amount, tx.Timestamp).
					WithError(err).
					ToSlice()...)
		}
	}
}

// InvalidateTransactions drops the user's cached rows so the next read goes
// to the ledger.
func (c *TransactionCache) InvalidateTransactions(username string) {
	unlock := c.locks.Lock(username)
	defer unlock()
	c.transactions.Delete(username)
}

// CustomBudget returns the user's override. Absence is cached like a value;
// a store failure is reported as absence and not cached.
func (c *TransactionCache) CustomBudget(ctx context.Context, username string) (float64, bool) {
	unlock := c.locks.Lock(username)
	defer unlock()

	if o, ok := c.overrides.Get(username); ok {
		return o.value, o.ok
	}

	v, ok, err := c.budgets.Load(ctx, username)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to load custom budget, assuming none",
			applog.NewFields().WithUser(username).WithOperation(applog.OpRead).WithError(err).ToSlice()...)
		return 0, false
	}
	if ok && !validBudget(v) {
		c.logger.WarnContext(ctx, "Ignoring invalid stored custom budget",
			applog.NewFields().WithUser(username).With(applog.FieldAmount, fmt.Sprint(v)).ToSlice()...)
		v, ok = 0, false
	}
	c.overrides.Set(username, override{value: v, ok: ok})
	return v, ok
}

// SetCustomBudget persists the override and then updates the cache.
func (c *TransactionCache) SetCustomBudget(ctx context.Context, username string, value float64) error {
	if !validBudget(value) {
		return core.ErrNegativeBudget
	}
	unlock := c.locks.Lock(username)
	defer unlock()

	if err := c.budgets.Save(ctx, username, value); err != nil {
		c.logger.ErrorContext(ctx, "Failed to save custom budget",
			applog.NewFields().WithUser(username).WithOperation(applog.OpUpdate).WithError(err).ToSlice()...)
		return fmt.Errorf("%w: save custom budget: %v", core.ErrPersistenceUnavailable, err)
	}
	c.overrides.Set(username, override{value: value, ok: true})

	c.logger.InfoContext(ctx, "Custom budget set",
		applog.NewFields().WithUser(username).With(applog.FieldAmount, value).ToSlice()...)
	return nil
}

// ClearCustomBudget removes the override from the store and the cache.
func (c *TransactionCache) ClearCustomBudget(ctx context.Context, username string) error {
	unlock := c.locks.Lock(username)
	defer unlock()

	if err := c.budgets.Clear(ctx, username); err != nil {
		c.logger.ErrorContext(ctx, "Failed to clear custom budget",
			applog.NewFields().WithUser(username).WithOperation(applog.OpDelete).WithError(err).ToSlice()...)
		return fmt.Errorf("%w: clear custom budget: %v", core.ErrPersistenceUnavailable, err)
	}
	c.overrides.Set(username, override{})

	c.logger.InfoContext(ctx, "Custom budget cleared", applog.NewFields().WithUser(username).ToSlice()...)
	return nil
}

// validBudget reports whether v is a usable override: finite and >= 0.
func validBudget(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// keyedMutex hands out one mutex per key and forgets it once nobody holds
// or waits for it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
