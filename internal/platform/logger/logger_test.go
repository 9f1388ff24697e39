package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSON_MergesBaseAndCallFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Info, Format: FormatJSON, App: "crm", Output: &buf})

	l.With(map[string]any{"component": "claims"}).Info("lead claimed", map[string]any{
		"entity_id": "lead-1",
		"":          "ignored",
	})

	var got map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &got))
	assert.Equal(t, "crm", got["app"])
	assert.Equal(t, "claims", got["component"])
	assert.Equal(t, "lead-1", got["entity_id"])
	assert.Equal(t, "lead claimed", got["msg"])
	assert.Equal(t, "info", got["level"])
	assert.Contains(t, got, "ts")
	assert.NotContains(t, got, "")
}

func TestLogger_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Warn, Format: FormatText, Output: &buf})

	l.Debug("hidden", nil)
	l.Info("hidden too", nil)
	l.Warn("shown", map[string]any{"k": "v"})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, "shown"))
	assert.Contains(t, out, "k=v")
}

func TestParseLevelAndFormat(t *testing.T) {
	assert.Equal(t, Debug, ParseLevel("DEBUG"))
	assert.Equal(t, Warn, ParseLevel("warning"))
	assert.Equal(t, Info, ParseLevel("nope"))
	assert.Equal(t, FormatJSON, ParseFormat(" json "))
	assert.Equal(t, FormatText, ParseFormat(""))
}
