// Package csvfile implements the ledger ports on top of plain CSV files: a
// transactions file with one row per ledger entry and a budgets file with
// one "username,value" row per custom budget override.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"budgetwise/internal/core"
	"budgetwise/internal/ledger"
)

// Column names recognised in the header row. The first alias is the one
// written by Record when the file is created.
var columnAliases = map[string][]string{
	colUsername:  {"username", "user name", "account", "account username"},
	colOperation: {"operation", "operation performed"},
	colAmount:    {"amount"},
	colTimestamp: {"time", "payment time", "timestamp", "date"},
	colMerchant:  {"merchant", "merchant name"},
	colType:      {"type"},
	colRemark:    {"remark", "note"},
	colCategory:  {"category"},
}

const (
	colUsername  = "username"
	colOperation = "operation"
	colAmount    = "amount"
	colTimestamp = "time"
	colMerchant  = "merchant"
	colType      = "type"
	colRemark    = "remark"
	colCategory  = "category"
)

// defaultColumns is the positional layout used for header-less files.
var defaultColumns = []string{colUsername, colOperation, colAmount, colTimestamp, colMerchant, colType, colRemark, colCategory}

// Ensure interface conformance
var (
	_ ledger.TransactionReader = (*Ledger)(nil)
	_ ledger.UserLister        = (*Ledger)(nil)
	_ ledger.TransactionWriter = (*Ledger)(nil)
	_ ledger.BudgetStore       = (*BudgetFile)(nil)
)

// Ledger reads and appends transactions in a CSV file.
type Ledger struct {
	mu   sync.Mutex
	path string
}

func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// ReadTransactions returns the rows of username in file order. A missing
// file is an empty ledger.
func (l *Ledger) ReadTransactions(ctx context.Context, username string) ([]core.TransactionRecord, error) {
	all, err := l.readAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.TransactionRecord, 0, len(all))
	for _, r := range all {
		if r.AccountUsername == username {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListUsers returns each username once, in order of first appearance.
func (l *Ledger) ListUsers(ctx context.Context) ([]string, error) {
	all, err := l.readAll(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var users []string
	for _, r := range all {
		if _, ok := seen[r.AccountUsername]; ok {
			continue
		}
		seen[r.AccountUsername] = struct{}{}
		users = append(users, r.AccountUsername)
	}
	return users, nil
}

// Record appends tx to the file, writing a header first if the file is new.
func (l *Ledger) Record(ctx context.Context, tx core.TransactionRecord) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return "", fmt.Errorf("create ledger directory: %w", err)
	}
	_, statErr := os.Stat(l.path)
	isNew := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(defaultColumns); err != nil {
			return "", fmt.Errorf("write header: %w", err)
		}
	}
	row := []string{
		tx.AccountUsername,
		string(tx.Operation),
		strconv.FormatFloat(tx.Amount, 'f', 2, 64),
		tx.Timestamp,
		tx.Merchant,
		tx.Type,
		tx.Remark,
		tx.Category,
	}
	if err := w.Write(row); err != nil {
		return "", fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush ledger: %w", err)
	}

	slog.DebugContext(ctx, "Transaction appended to CSV ledger",
		"path", l.path,
		"user", tx.AccountUsername,
		"operation", tx.Operation)

	return fmt.Sprintf("csv:%s", tx.Timestamp), nil
}

func (l *Ledger) readAll(ctx context.Context) ([]core.TransactionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", l.path, err)
	}
	defer f.Close()

	records, skipped := ParseTransactions(f)
	for _, e := range skipped {
		slog.WarnContext(ctx, "Skipping malformed ledger row", "path", l.path, "error", e)
	}
	return records, nil
}

// ParseTransactions reads CSV rows into records. Rows that cannot be turned
// into a record (bad amount, unknown operation, missing columns) are skipped
// and reported in the second return value with their physical line; they
// never abort the read. A failing underlying reader ends the read.
// Timestamps are kept verbatim: the engine skips unparseable ones itself.
func ParseTransactions(r io.Reader) ([]core.TransactionRecord, []error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		out     []core.TransactionRecord
		skipped []error
		index   map[string]int
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped = append(skipped, err)
				continue
			}
			// the underlying reader failed; nothing more can be read
			skipped = append(skipped, fmt.Errorf("read: %w", err))
			break
		}
		line, _ := cr.FieldPos(0)
		if isBlank(row) {
			continue
		}
		if index == nil {
			if idx, ok := headerIndex(row); ok {
				index = idx
				continue
			}
			index = positionalIndex()
		}
		rec, err := toRecord(row, index)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		out = append(out, rec)
	}
	return out, skipped
}

func toRecord(row []string, index map[string]int) (core.TransactionRecord, error) {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	username := get(colUsername)
	if username == "" {
		return core.TransactionRecord{}, core.ErrEmptyUsername
	}
	op, err := core.ParseOperation(get(colOperation))
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("%w: %q", err, get(colOperation))
	}
	amount, err := core.ParseAmount(get(colAmount))
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("%w: %q", err, get(colAmount))
	}
	return core.TransactionRecord{
		AccountUsername: username,
		Operation:       op,
		Amount:          amount,
		Timestamp:       get(colTimestamp),
		Merchant:        get(colMerchant),
		Type:            get(colType),
		Remark:          get(colRemark),
		Category:        get(colCategory),
	}, nil
}

func headerIndex(row []string) (map[string]int, bool) {
	idx := map[string]int{}
	for i, cell := range row {
		name := strings.ToLower(strings.TrimSpace(cell))
		for col, aliases := range columnAliases {
			for _, a := range aliases {
				if name == a {
					idx[col] = i
				}
			}
		}
	}
	_, hasUser := idx[colUsername]
	_, hasOp := idx[colOperation]
	return idx, hasUser && hasOp
}

func positionalIndex() map[string]int {
	idx := make(map[string]int, len(defaultColumns))
	for i, col := range defaultColumns {
		idx[col] = i
	}
	return idx
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
