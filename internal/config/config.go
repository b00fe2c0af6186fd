package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	applog "budgetwise/internal/log"
)

type Config struct {
	// Backend selection
	DataBackend string
	DataDir     string

	// CSV files
	CSVTransactionsFile string
	CSVBudgetsFile      string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Cache
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	// Worker
	ScanConcurrency int

	// Logging
	LogLevel  string
	LogFormat string
}

var validBackends = []string{"memory", "csv", "sqlite", "sheets"}

func Load() *Config {
	dataDir := getEnv("DATA_DIR", "./data")

	cfg := &Config{
		DataBackend: getEnv("DATA_BACKEND", "memory"),
		DataDir:     dataDir,

		CSVTransactionsFile: getEnv("CSV_TRANSACTIONS_FILE", filepath.Join(dataDir, "transactions.csv")),
		CSVBudgetsFile:      getEnv("CSV_BUDGETS_FILE", filepath.Join(dataDir, "budgets.csv")),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", filepath.Join(dataDir, "budgetwise.db")),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgetwise"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transfer_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),

		CacheMaxEntries:      getEnvInt("CACHE_MAX_ENTRIES", 1024),
		CacheCleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", time.Minute),

		ScanConcurrency: getEnvInt("SCAN_CONCURRENCY", 4),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate data backend
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "csv":
		if c.CSVTransactionsFile == "" {
			errors = append(errors, "CSV transactions file cannot be empty when using csv backend")
		}
		if c.CSVBudgetsFile == "" {
			errors = append(errors, "CSV budgets file cannot be empty when using csv backend")
		}

	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if msg := ensureDir(c.SQLiteDBPath); msg != "" {
			errors = append(errors, msg)
		}

	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
		// overrides of the sheets backend live in the CSV budgets file
		if c.CSVBudgetsFile == "" {
			errors = append(errors, "CSV budgets file cannot be empty when using sheets backend")
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate cache configuration
	if c.CacheMaxEntries < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache max entries %d: must be at least 1", c.CacheMaxEntries))
	} else if c.CacheMaxEntries > 1_000_000 {
		errors = append(errors, fmt.Sprintf("invalid cache max entries %d: must be at most 1000000", c.CacheMaxEntries))
	}

	if c.CacheCleanupInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache cleanup interval %v: must be at least 1 second", c.CacheCleanupInterval))
	} else if c.CacheCleanupInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache cleanup interval %v: must be at most 24 hours", c.CacheCleanupInterval))
	}

	// Validate worker configuration
	if c.ScanConcurrency < 1 || c.ScanConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid scan concurrency %d: must be between 1 and 64", c.ScanConcurrency))
	}

	// Validate logging
	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// LogConfig returns the logging setup described by the configuration.
func (c *Config) LogConfig(component string) applog.Config {
	cfg := applog.DefaultConfig()
	if level, err := applog.ParseLevel(c.LogLevel); err == nil {
		cfg.Level = level
	}
	cfg.Format = c.LogFormat
	cfg.Component = component
	return cfg
}

// ensureDir checks that the parent directory of path exists or can be
// created, returning a problem description or "".
func ensureDir(path string) string {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Sprintf("cannot create directory '%s': %v", dir, err)
		}
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
