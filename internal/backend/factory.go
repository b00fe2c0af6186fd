package backend

import (
	"context"
	"errors"
	"fmt"

	"budgetwise/internal/amqp"
	"budgetwise/internal/ledger/csvfile"
	gsheet "budgetwise/internal/ledger/google"
	"budgetwise/internal/ledger/memory"
	applog "budgetwise/internal/log"
	"budgetwise/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger

	// dialAMQP is replaced in tests.
	dialAMQP func(url, exchange, queue string) (*amqp.Client, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Default()
	}
	return &DefaultFactory{
		logger:   logger.WithComponent(applog.ComponentBackend),
		dialAMQP: amqp.NewClient,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case MemoryBackend:
		result = f.createMemoryBackend(config)
	case CSVBackend:
		result = f.createCSVBackend(config)
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case SheetsBackend:
		result, err = f.createSheetsBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachAMQP(result, config)
	return result, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) *BackendResult {
	var store *memory.Store
	if config.DataDirectory != "" {
		store = memory.NewFromFiles(config.DataDirectory)
	} else {
		store = memory.New(nil)
	}

	f.logger.Info("Initialized memory backend", "data_directory", config.DataDirectory)

	return &BackendResult{
		Reader:  store,
		Writer:  store,
		Users:   store,
		Budgets: store,
	}
}

func (f *DefaultFactory) createCSVBackend(config Config) *BackendResult {
	ledgerFile := csvfile.NewLedger(config.CSVTransactionsFile)
	budgets := csvfile.NewBudgetFile(config.CSVBudgetsFile)

	f.logger.Info("Initialized CSV backend",
		"transactions_file", config.CSVTransactionsFile,
		"budgets_file", config.CSVBudgetsFile)

	return &BackendResult{
		Reader:  ledgerFile,
		Writer:  ledgerFile,
		Users:   ledgerFile,
		Budgets: budgets,
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Reader:  sqliteRepo,
		Writer:  sqliteRepo,
		Users:   sqliteRepo,
		Budgets: sqliteRepo,
		Cleanup: sqliteRepo.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.NewClient(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName, gsheet.Credentials{
		JSON: config.GoogleServiceAccountJSON,
		File: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	budgets := csvfile.NewBudgetFile(config.CSVBudgetsFile)

	f.logger.Info("Initialized Google Sheets backend",
		"sheet", config.GoogleSheetName,
		"budgets_file", config.CSVBudgetsFile)

	return &BackendResult{
		Reader:  cli,
		Writer:  cli,
		Users:   cli,
		Budgets: budgets,
	}, nil
}

// attachAMQP connects to the broker when one is configured. A broker that
// cannot be reached leaves the backend usable without transfer events.
func (f *DefaultFactory) attachAMQP(result *BackendResult, config Config) {
	if config.AMQPURL == "" {
		return
	}

	client, err := f.dialAMQP(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without transfer events", "error", err)
		return
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	result.AMQP = client
	storeCleanup := result.Cleanup
	result.Cleanup = func() error {
		var errs []error
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close amqp client: %w", err))
		}
		if storeCleanup != nil {
			if err := storeCleanup(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
