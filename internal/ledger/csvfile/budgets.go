package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"budgetwise/internal/core"
)

// BudgetFile stores custom budget overrides as "username,value" rows. The
// whole file is rewritten on every change through a temp file and rename.
type BudgetFile struct {
	mu   sync.Mutex
	path string
}

func NewBudgetFile(path string) *BudgetFile {
	return &BudgetFile{path: path}
}

func (b *BudgetFile) Load(ctx context.Context, username string) (float64, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.read(ctx)
	if err != nil {
		return 0, false, err
	}
	v, ok := entries[username]
	return v, ok, nil
}

func (b *BudgetFile) Save(ctx context.Context, username string, value float64) error {
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return core.ErrNegativeBudget
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.read(ctx)
	if err != nil {
		return err
	}
	entries[username] = value
	return b.write(entries)
}

func (b *BudgetFile) Clear(ctx context.Context, username string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.read(ctx)
	if err != nil {
		return err
	}
	if _, ok := entries[username]; !ok {
		return nil
	}
	delete(entries, username)
	return b.write(entries)
}

func (b *BudgetFile) read(ctx context.Context) (map[string]float64, error) {
	entries := map[string]float64{}
	f, err := os.Open(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open budgets %s: %w", b.path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read budgets %s: %w", b.path, err)
	}
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		user := strings.TrimSpace(row[0])
		v, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) || user == "" {
			slog.WarnContext(ctx, "Skipping malformed budget row", "path", b.path, "row", row)
			continue
		}
		entries[user] = v
	}
	return entries, nil
}

func (b *BudgetFile) write(entries map[string]float64) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create budgets directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".budgets-*.csv")
	if err != nil {
		return fmt.Errorf("create temp budgets file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	for user, v := range entries {
		if err := w.Write([]string{user, strconv.FormatFloat(v, 'f', -1, 64)}); err != nil {
			tmp.Close()
			return fmt.Errorf("write budgets: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush budgets: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp budgets file: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("replace budgets file: %w", err)
	}
	return nil
}
