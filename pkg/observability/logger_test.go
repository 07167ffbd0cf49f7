package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("creates text logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: "info", Format: LogFormatText, Output: &buf})

		logger.Info("queued", "method", "POST")

		assert.Contains(t, buf.String(), "queued")
		assert.Contains(t, buf.String(), "method=POST")
	})

	t.Run("creates JSON logger with service attributes", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{
			Level:          "info",
			Format:         LogFormatJSON,
			Output:         &buf,
			ServiceName:    "logmyjob",
			ServiceVersion: "1.2.3",
		})

		logger.Info("drain finished", "processed", 2)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "drain finished", entry["msg"])
		assert.Equal(t, "logmyjob", entry["service"])
		assert.Equal(t, "1.2.3", entry["version"])
		assert.EqualValues(t, 2, entry["processed"])
	})

	t.Run("respects log level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: "warn", Output: &buf})

		logger.Info("hidden")
		logger.Warn("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})
}

func TestLogger_ContextIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "debug", Format: LogFormatJSON, Output: &buf})

	ctx := WithCorrelationID(context.Background(), "corr-1")
	ctx = WithRequestID(ctx, "req-1")
	logger.With("component", "replay").InfoContext(ctx, "replaying")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "corr-1", entry[CorrelationIDKey])
	assert.Equal(t, "req-1", entry[RequestIDKey])
	assert.Equal(t, "replay", entry["component"])
}

func TestWithCorrelationID_GeneratesWhenEmpty(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "")
	assert.Len(t, CorrelationIDFromContext(ctx), 36)
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestLogConfigFor(t *testing.T) {
	dev := LogConfigFor("development", "debug", "logmyjob")
	assert.Equal(t, LogFormatText, dev.Format)
	assert.False(t, dev.AddSource)

	prod := LogConfigFor("production", "info", "logmyjob-worker")
	assert.Equal(t, LogFormatJSON, prod.Format)
	assert.True(t, prod.AddSource)
	assert.Equal(t, "logmyjob-worker", prod.ServiceName)
}
