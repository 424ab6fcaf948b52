package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNew_JSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	log := New(&buf, "info", "json")
	log.Debug("hidden")
	log.Info("sent messages from outbox table", "partition_key", "orders")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "sent messages from outbox table", line["msg"])
	assert.Equal(t, "orders", line["partition_key"])
}

func TestNew_TextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	New(&buf, "debug", "text").Debug("obtaining lock failed", "status", "deadlocked")

	assert.Contains(t, buf.String(), "status=deadlocked")
	assert.Contains(t, buf.String(), "level=DEBUG")
}
