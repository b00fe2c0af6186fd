package cache

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwise/internal/clock"
	"budgetwise/internal/core"
	applog "budgetwise/internal/log"
)

type countingReader struct {
	calls atomic.Int32
	err   error
	rows  map[string][]core.TransactionRecord
	delay time.Duration
}

func (r *countingReader) ReadTransactions(_ context.Context, username string) ([]core.TransactionRecord, error) {
	r.calls.Add(1)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.rows[username], nil
}

type fakeBudgets struct {
	mu      sync.Mutex
	values  map[string]float64
	loads   int
	loadErr error
	saveErr error
}

func newFakeBudgets() *fakeBudgets {
	return &fakeBudgets{values: map[string]float64{}}
}

func (b *fakeBudgets) Load(_ context.Context, username string) (float64, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loads++
	if b.loadErr != nil {
		return 0, false, b.loadErr
	}
	v, ok := b.values[username]
	return v, ok, nil
}

func (b *fakeBudgets) Save(_ context.Context, username string, value float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return b.saveErr
	}
	b.values[username] = value
	return nil
}

func (b *fakeBudgets) Clear(_ context.Context, username string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return b.saveErr
	}
	delete(b.values, username)
	return nil
}

func (b *fakeBudgets) loadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads
}

var start = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestCache(reader *countingReader, budgets *fakeBudgets, clk clock.Clock) *TransactionCache {
	return NewTransactionCache(reader, budgets, Options{Clock: clk, Logger: applog.Discard()})
}

func aliceRows() map[string][]core.TransactionRecord {
	return map[string][]core.TransactionRecord{
		"alice": {
			{AccountUsername: "alice", Operation: core.Income, Amount: 1000, Timestamp: "2025/03/01"},
			{AccountUsername: "alice", Operation: core.Expense, Amount: 20, Timestamp: "2025/03/02"},
		},
	}
}

func TestTransactions_CachedUntilTTL(t *testing.T) {
	clk := clock.NewManual(start)
	reader := &countingReader{rows: aliceRows()}
	c := newTestCache(reader, newFakeBudgets(), clk)
	ctx := context.Background()

	require.Len(t, c.Transactions(ctx, "alice"), 2)
	require.Len(t, c.Transactions(ctx, "alice"), 2)
	assert.EqualValues(t, 1, reader.calls.Load())

	clk.Advance(DefaultTTL - time.Second)
	c.Transactions(ctx, "alice")
	assert.EqualValues(t, 1, reader.calls.Load(), "still fresh just before TTL")

	clk.Advance(time.Second)
	c.Transactions(ctx, "alice")
	assert.EqualValues(t, 2, reader.calls.Load(), "expired exactly at TTL")
}

func TestTransactions_ReturnsCopy(t *testing.T) {
	reader := &countingReader{rows: aliceRows()}
	c := newTestCache(reader, newFakeBudgets(), clock.NewManual(start))
	ctx := context.Background()

	first := c.Transactions(ctx, "alice")
	first[0].Amount = 999

	again := c.Transactions(ctx, "alice")
	assert.Equal(t, 1000.0, again[0].Amount)
}

func TestTransactions_ReadFailureYieldsEmptyAndRetries(t *testing.T) {
	reader := &countingReader{err: errors.New("disk gone")}
	c := newTestCache(reader, newFakeBudgets(), clock.NewManual(start))
	ctx := context.Background()

	txs := c.Transactions(ctx, "alice")
	assert.NotNil(t, txs)
	assert.Empty(t, txs)

	c.Transactions(ctx, "alice")
	assert.EqualValues(t, 2, reader.calls.Load(), "failures must not be cached")
}

func TestTransactions_Invalidate(t *testing.T) {
	reader := &countingReader{rows: aliceRows()}
	c := newTestCache(reader, newFakeBudgets(), clock.NewManual(start))
	ctx := context.Background()

	c.Transactions(ctx, "alice")
	c.InvalidateTransactions("alice")
	c.Transactions(ctx, "alice")

	assert.EqualValues(t, 2, reader.calls.Load())
}

func TestTransactions_ConcurrentMissesReadOnce(t *testing.T) {
	reader := &countingReader{rows: aliceRows(), delay: 20 * time.Millisecond}
	c := newTestCache(reader, newFakeBudgets(), clock.NewManual(start))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Len(t, c.Transactions(ctx, "alice"), 2)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, reader.calls.Load())
}

func TestCustomBudget_LazyAndCachedIncludingAbsence(t *testing.T) {
	clk := clock.NewManual(start)
	budgets := newFakeBudgets()
	c := newTestCache(&countingReader{}, budgets, clk)
	ctx := context.Background()

	_, ok := c.CustomBudget(ctx, "alice")
	assert.False(t, ok)
	_, ok = c.CustomBudget(ctx, "alice")
	assert.False(t, ok)
	assert.Equal(t, 1, budgets.loadCount())

	// a write behind the cache's back is only seen after expiry
	budgets.values["alice"] = 700
	_, ok = c.CustomBudget(ctx, "alice")
	assert.False(t, ok)

	clk.Advance(DefaultTTL)
	v, ok := c.CustomBudget(ctx, "alice")
	assert.True(t, ok)
	assert.Equal(t, 700.0, v)
}

func TestCustomBudget_SetAndClearUpdateCacheSynchronously(t *testing.T) {
	budgets := newFakeBudgets()
	c := newTestCache(&countingReader{}, budgets, clock.NewManual(start))
	ctx := context.Background()

	_, ok := c.CustomBudget(ctx, "alice")
	require.False(t, ok)

	require.NoError(t, c.SetCustomBudget(ctx, "alice", 1500))
	v, ok := c.CustomBudget(ctx, "alice")
	assert.True(t, ok)
	assert.Equal(t, 1500.0, v)
	assert.Equal(t, 1500.0, budgets.values["alice"], "persisted immediately")

	require.NoError(t, c.ClearCustomBudget(ctx, "alice"))
	_, ok = c.CustomBudget(ctx, "alice")
	assert.False(t, ok)
	assert.NotContains(t, budgets.values, "alice")
	assert.Equal(t, 1, budgets.loadCount())
}

func TestCustomBudget_RejectsNegative(t *testing.T) {
	c := newTestCache(&countingReader{}, newFakeBudgets(), clock.NewManual(start))

	err := c.SetCustomBudget(context.Background(), "alice", -5)
	assert.ErrorIs(t, err, core.ErrNegativeBudget)
}

func TestCustomBudget_PersistenceFailures(t *testing.T) {
	budgets := newFakeBudgets()
	c := newTestCache(&countingReader{}, budgets, clock.NewManual(start))
	ctx := context.Background()

	budgets.saveErr = errors.New("read-only fs")
	err := c.SetCustomBudget(ctx, "alice", 100)
	assert.ErrorIs(t, err, core.ErrPersistenceUnavailable)
	_, ok := c.CustomBudget(ctx, "alice")
	assert.False(t, ok, "cache untouched on failed save")

	budgets.loadErr = errors.New("locked")
	c2 := newTestCache(&countingReader{}, budgets, clock.NewManual(start))
	_, ok = c2.CustomBudget(ctx, "bob")
	assert.False(t, ok)
	c2.CustomBudget(ctx, "bob")
	assert.Equal(t, 3, budgets.loadCount(), "load failures are not cached")
}

func TestCustomBudget_NonFiniteStoredValueIsAbsent(t *testing.T) {
	budgets := newFakeBudgets()
	budgets.values["alice"] = math.NaN()
	budgets.values["bob"] = math.Inf(1)
	budgets.values["carol"] = -10
	c := newTestCache(&countingReader{}, budgets, clock.NewManual(start))
	ctx := context.Background()

	for _, user := range []string{"alice", "bob", "carol"} {
		v, ok := c.CustomBudget(ctx, user)
		assert.False(t, ok, user)
		assert.Zero(t, v, user)
	}
}

func TestTransactions_LogsUnparseableTimestampOncePerRefill(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Writer: &buf, Format: "json", Level: slog.LevelDebug})
	reader := &countingReader{rows: map[string][]core.TransactionRecord{
		"alice": {
			{AccountUsername: "alice", Operation: core.Income, Amount: 1000, Timestamp: "2025/03/01"},
			{AccountUsername: "alice", Operation: core.Expense, Amount: 20, Timestamp: "03-02-2025"},
		},
	}}
	c := NewTransactionCache(reader, newFakeBudgets(), Options{Clock: clock.NewManual(start), Logger: logger})
	ctx := context.Background()

	txs := c.Transactions(ctx, "alice")
	assert.Len(t, txs, 2, "rows with bad timestamps stay in the snapshot")
	c.Transactions(ctx, "alice")

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "unparseable timestamp"))
	assert.Contains(t, out, `"tx_time":"03-02-2025"`)
	assert.Contains(t, out, `"user":"alice"`)
}

func TestCleanersEvictExpired(t *testing.T) {
	clk := clock.NewManual(start)
	c := newTestCache(&countingReader{rows: aliceRows()}, newFakeBudgets(), clk)
	ctx := context.Background()

	c.Transactions(ctx, "alice")
	c.CustomBudget(ctx, "alice")

	m := NewManager(applog.Discard())
	m.Register(c.Cleaners()...)
	assert.Zero(t, m.CleanNow())

	clk.Advance(DefaultTTL)
	assert.Equal(t, 2, m.CleanNow())
	m.Stop()
}
