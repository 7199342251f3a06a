package observability_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sifterlab/sifter/pkg/observability"
)

func TestNewLogger_TextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger, err := observability.NewLogger(&buf, "info", observability.LogFormatText)
	require.NoError(t, err)

	logger.Info("session started", "workers", 4)

	assert.Contains(t, buf.String(), "session started")
	assert.Contains(t, buf.String(), "workers=4")
}

func TestNewLogger_JSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger, err := observability.NewLogger(&buf, "warn", observability.LogFormatJSON)
	require.NoError(t, err)

	logger.Warn("dangling reference", "event", 7)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "dangling reference", entry["msg"])
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger, err := observability.NewLogger(&buf, "error", observability.LogFormatText)
	require.NoError(t, err)

	logger.Info("suppressed")
	assert.Empty(t, buf.String())

	logger.Error("surfaced")
	assert.Contains(t, buf.String(), "surfaced")
}

func TestNewLogger_RejectsUnknownSettings(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	_, err := observability.NewLogger(&buf, "loud", observability.LogFormatText)
	require.Error(t, err)

	_, err = observability.NewLogger(&buf, "info", "xml")
	require.Error(t, err)
}
