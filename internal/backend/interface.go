package backend

import (
	"context"

	"budgetwise/internal/amqp"
	"budgetwise/internal/ledger"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the ledger ports of one backend, the optional AMQP
// client and a cleanup function releasing both.
type BackendResult struct {
	Reader  ledger.TransactionReader
	Writer  ledger.TransactionWriter
	Users   ledger.UserLister
	Budgets ledger.BudgetStore

	// AMQP is nil when no broker is configured or it could not be reached.
	AMQP *amqp.Client

	Cleanup CleanupFunc
}

// Close runs the cleanup function if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// CSV specific; the budgets file also backs the sheets overrides
	CSVTransactionsFile string
	CSVBudgetsFile      string

	// SQLite specific
	SQLiteDBPath string

	// AMQP, optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	CSVBackend    BackendType = "csv"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, CSVBackend, SQLiteBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
