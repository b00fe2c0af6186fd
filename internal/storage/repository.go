package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"budgetwise/internal/core"
	"budgetwise/internal/ledger"

	_ "modernc.org/sqlite"
)

var (
	_ ledger.TransactionReader = (*SQLiteRepository)(nil)
	_ ledger.TransactionWriter = (*SQLiteRepository)(nil)
	_ ledger.UserLister        = (*SQLiteRepository)(nil)
	_ ledger.BudgetStore       = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Record implements ledger.TransactionWriter
func (r *SQLiteRepository) Record(ctx context.Context, tx core.TransactionRecord) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	amountCents, err := toCents(tx.Amount)
	if err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		Username:    tx.AccountUsername,
		Operation:   string(tx.Operation),
		AmountCents: amountCents,
		OccurredAt:  tx.Timestamp,
		Category:    tx.Category,
		Type:        tx.Type,
		Merchant:    tx.Merchant,
		Remark:      tx.Remark,
	})
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"user", row.Username,
		"operation", row.Operation,
		"amount_cents", row.AmountCents)

	return strconv.FormatInt(row.ID, 10), nil
}

// ReadTransactions implements ledger.TransactionReader
func (r *SQLiteRepository) ReadTransactions(ctx context.Context, username string) ([]core.TransactionRecord, error) {
	rows, err := r.queries.ListTransactionsByUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", username, err)
	}

	out := make([]core.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		op, err := core.ParseOperation(row.Operation)
		if err != nil {
			slog.WarnContext(ctx, "Skipping stored transaction with unknown operation",
				"id", row.ID, "operation", row.Operation)
			continue
		}
		out = append(out, core.TransactionRecord{
			AccountUsername: row.Username,
			Operation:       op,
			Amount:          fromCents(row.AmountCents),
			Timestamp:       row.OccurredAt,
			Category:        row.Category,
			Type:            row.Type,
			Merchant:        row.Merchant,
			Remark:          row.Remark,
		})
	}
	return out, nil
}

// ListUsers implements ledger.UserLister
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]string, error) {
	users, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Load implements ledger.BudgetStore
func (r *SQLiteRepository) Load(ctx context.Context, username string) (float64, bool, error) {
	b, err := r.queries.GetCustomBudget(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get custom budget: %w", err)
	}
	return fromCents(b.ValueCents), true, nil
}

// Save implements ledger.BudgetStore
func (r *SQLiteRepository) Save(ctx context.Context, username string, value float64) error {
	if value < 0 {
		return core.ErrNegativeBudget
	}
	valueCents, err := toCents(value)
	if err != nil {
		return err
	}
	err = r.queries.UpsertCustomBudget(ctx, UpsertCustomBudgetParams{
		Username:   username,
		ValueCents: valueCents,
		UpdatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("upsert custom budget: %w", err)
	}

	slog.InfoContext(ctx, "Custom budget saved to SQLite", "user", username, "value", value)
	return nil
}

// Clear implements ledger.BudgetStore
func (r *SQLiteRepository) Clear(ctx context.Context, username string) error {
	if err := r.queries.DeleteCustomBudget(ctx, username); err != nil {
		return fmt.Errorf("delete custom budget: %w", err)
	}
	return nil
}

var maxCents = decimal.NewFromInt(math.MaxInt64)

// toCents converts an amount to integer cents. Non-finite amounts and
// amounts whose cents do not fit in an int64 are ErrInvalidAmount.
func toCents(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, core.ErrInvalidAmount
	}
	cents := decimal.NewFromFloat(amount).Shift(2).Round(0)
	if cents.Abs().GreaterThan(maxCents) {
		return 0, core.ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

func fromCents(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}
