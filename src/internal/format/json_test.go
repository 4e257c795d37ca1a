// FILE: logtrace/src/internal/format/json_test.go
package format

import (
	"encoding/json"
	"strings"
	"testing"

	"logtrace/src/internal/config"
	"logtrace/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormatter_Format(t *testing.T) {
	logger := newTestLogger()
	formatter, err := NewJSONFormatter(&config.JSONFormatterOptions{IncludeRaw: true}, logger)
	require.NoError(t, err)

	line := core.ParsedLine{
		Raw:        `2024-01-01 10:00:05 [abc12345] [INFO] 200 | 1.2s | POST /v1/messages | done`,
		Timestamp:  "2024-01-01 10:00:05",
		Level:      "info",
		RequestID:  "abc12345",
		StatusCode: 200,
		Latency:    "1.2s",
		Method:     "POST",
		Path:       "/v1/messages",
		Message:    "done",
	}

	output, err := formatter.Format(line)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(output), "\n"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(output, &decoded))
	assert.Equal(t, "2024-01-01 10:00:05", decoded["timestamp"])
	assert.Equal(t, "info", decoded["level"])
	assert.Equal(t, "abc12345", decoded["request_id"])
	assert.Equal(t, float64(200), decoded["status_code"])
	assert.Equal(t, "POST", decoded["method"])
	assert.Equal(t, "/v1/messages", decoded["path"])
	assert.Equal(t, "done", decoded["message"])
	assert.Equal(t, line.Raw, decoded["raw"])
}

func TestJSONFormatter_OmitsEmptyFields(t *testing.T) {
	formatter, err := NewJSONFormatter(&config.JSONFormatterOptions{IncludeRaw: true}, newTestLogger())
	require.NoError(t, err)

	output, err := formatter.Format(core.ParsedLine{Raw: "plain text", Message: "plain text"})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(output, &decoded))
	assert.NotContains(t, decoded, "timestamp")
	assert.NotContains(t, decoded, "level")
	assert.NotContains(t, decoded, "status_code")
	// Message is always present
	assert.Equal(t, "plain text", decoded["message"])
}

func TestJSONFormatter_ExcludeRaw(t *testing.T) {
	formatter, err := NewJSONFormatter(&config.JSONFormatterOptions{IncludeRaw: false}, newTestLogger())
	require.NoError(t, err)

	output, err := formatter.Format(core.ParsedLine{Raw: "secret raw line", Message: "msg"})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(output, &decoded))
	assert.NotContains(t, decoded, "raw")
}

func TestJSONFormatter_Pretty(t *testing.T) {
	formatter, err := NewJSONFormatter(&config.JSONFormatterOptions{Pretty: true, IncludeRaw: true}, newTestLogger())
	require.NoError(t, err)

	output, err := formatter.Format(core.ParsedLine{Raw: "x", Message: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(output), "\n  ")
}

func TestJSONFormatter_FormatBatch(t *testing.T) {
	formatter, err := NewJSONFormatter(&config.JSONFormatterOptions{IncludeRaw: true}, newTestLogger())
	require.NoError(t, err)

	lines := []core.ParsedLine{
		{Raw: "one", Message: "one"},
		{Raw: "two", Message: "two"},
	}

	output, err := formatter.FormatBatch(lines)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(output, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "one", decoded[0]["message"])
	assert.Equal(t, "two", decoded[1]["message"])
}
