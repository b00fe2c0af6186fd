package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Writer: &buf, Component: ComponentCache})

	logger.Info("refilled", NewFields().WithUser("alice").With(FieldCount, 3).ToSlice()...)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "refilled", entry["msg"])
	assert.Equal(t, ComponentCache, entry[FieldComponent])
	assert.Equal(t, "alice", entry[FieldUser])
	assert.EqualValues(t, 3, entry[FieldCount])
}

func TestWithComponent_DoesNotDuplicate(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Writer: &buf})

	base.WithComponent(ComponentWorker).Warn("alert")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, ComponentWorker, entry[FieldComponent])
	assert.Equal(t, ComponentApp, base.Component())
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Writer: &buf})

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Error("shown", NewFields().WithError(errors.New("boom")).ToSlice()...)
	assert.Contains(t, buf.String(), "boom")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	logger := Discard().WithComponent(ComponentBudget)
	ctx := WithContext(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))
	assert.Equal(t, ComponentApp, FromContext(context.Background()).Component())
}
