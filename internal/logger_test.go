package internal

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "prod", "warn")

	logger.Info("hidden")
	logger.Warn("shown", "order_id", 42)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.EqualValues(t, 42, entry["order_id"])
}

func TestNewLogger_DevIsText(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "dev", "debug").Debug("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
