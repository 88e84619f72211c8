package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/gi8lino/tasklens/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	t.Run("json with debug", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := logging.SetupLogger(logging.LogFormatJSON, true, &buf)
		logger.Debug("cache hit", "key", "items.json")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "cache hit", rec["msg"])
		assert.Equal(t, "items.json", rec["key"])
	})

	t.Run("text without debug drops debug records", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := logging.SetupLogger(logging.LogFormatText, false, &buf)
		logger.Debug("hidden")
		logger.Info("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "msg=shown")
	})
}
