package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwise/internal/config"
	"budgetwise/internal/core"
	applog "budgetwise/internal/log"
)

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("SCAN_CONCURRENCY", "")

	cfg, err := LoadAndValidateConfig()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.DataBackend)

	t.Setenv("DATA_BACKEND", "postgres")
	_, err = LoadAndValidateConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid data backend 'postgres'")
}

func TestInitRuntime_CSVBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := &config.Config{
		DataBackend:          "csv",
		DataDir:              dir,
		CSVTransactionsFile:  filepath.Join(dir, "transactions.csv"),
		CSVBudgetsFile:       filepath.Join(dir, "budgets.csv"),
		CacheMaxEntries:      16,
		CacheCleanupInterval: time.Minute,
		ScanConcurrency:      2,
		LogLevel:             "info",
		LogFormat:            "text",
	}

	rt, err := InitRuntime(ctx, cfg, applog.Discard())
	require.NoError(t, err)
	defer rt.Close()

	_, err = rt.Backend.Writer.Record(ctx, core.TransactionRecord{
		AccountUsername: "alice", Operation: core.Income, Amount: 1000, Timestamp: "2025/04/01",
	})
	require.NoError(t, err)

	txs := rt.Cache.Transactions(ctx, "alice")
	assert.Len(t, txs, 1)

	require.NoError(t, rt.Cache.SetCustomBudget(ctx, "alice", 250))
	v, ok := rt.Cache.CustomBudget(ctx, "alice")
	assert.True(t, ok)
	assert.Equal(t, 250.0, v)
}

func TestInitRuntime_InvalidBackend(t *testing.T) {
	_, err := InitRuntime(context.Background(), &config.Config{DataBackend: "postgres"}, applog.Discard())
	assert.Error(t, err)
}

func TestSetupLogger_UsesConfiguredFormat(t *testing.T) {
	cfg := &config.Config{LogLevel: "debug", LogFormat: "json"}
	logger := SetupLogger(cfg, applog.ComponentWorker)
	defer applog.SetDefault(applog.New(applog.DefaultConfig()))

	assert.Equal(t, applog.ComponentWorker, logger.Component())

	var buf bytes.Buffer
	lc := cfg.LogConfig(applog.ComponentWorker)
	lc.Writer = &buf
	applog.New(lc).Debug("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}
