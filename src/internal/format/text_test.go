// FILE: logtrace/src/internal/format/text_test.go
package format

import (
	"testing"

	"logtrace/src/internal/config"
	"logtrace/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextFormatter(t *testing.T) {
	logger := newTestLogger()

	t.Run("InvalidTemplate", func(t *testing.T) {
		opts := &config.TextFormatterOptions{Template: "{{ .Timestamp | InvalidFunc }}"}
		_, err := NewTextFormatter(opts, logger)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid template")
	})

	t.Run("DefaultTemplate", func(t *testing.T) {
		f, err := NewTextFormatter(nil, logger)
		require.NoError(t, err)
		assert.Equal(t, "text", f.Name())
	})
}

func TestTextFormatter_Format(t *testing.T) {
	logger := newTestLogger()

	line := core.ParsedLine{
		Raw:        "2024-01-01 10:00:05 [ERROR] 500 | POST /v1/messages | upstream failed",
		Timestamp:  "2024-01-01 10:00:05",
		Level:      "error",
		StatusCode: 500,
		Method:     "POST",
		Path:       "/v1/messages",
		Message:    "upstream failed",
	}

	t.Run("DefaultTemplate", func(t *testing.T) {
		f, err := NewTextFormatter(nil, logger)
		require.NoError(t, err)

		output, err := f.Format(line)
		require.NoError(t, err)
		assert.Equal(t, "2024-01-01 10:00:05 [ERROR] upstream failed\n", string(output))
	})

	t.Run("CustomTemplate", func(t *testing.T) {
		opts := &config.TextFormatterOptions{
			Template: "{{.Method}} {{.Path}} -> {{.StatusCode}}",
		}
		f, err := NewTextFormatter(opts, logger)
		require.NoError(t, err)

		output, err := f.Format(line)
		require.NoError(t, err)
		assert.Equal(t, "POST /v1/messages -> 500\n", string(output))
	})

	t.Run("EmptyLevelDefaultsToInfo", func(t *testing.T) {
		opts := &config.TextFormatterOptions{Template: "{{.Level}}"}
		f, err := NewTextFormatter(opts, logger)
		require.NoError(t, err)

		output, err := f.Format(core.ParsedLine{Raw: "no level here", Message: "no level here"})
		require.NoError(t, err)
		assert.Equal(t, "info\n", string(output))
	})

	t.Run("RawPassthroughTemplate", func(t *testing.T) {
		opts := &config.TextFormatterOptions{Template: "{{.Raw}}"}
		f, err := NewTextFormatter(opts, logger)
		require.NoError(t, err)

		output, err := f.Format(line)
		require.NoError(t, err)
		assert.Equal(t, line.Raw+"\n", string(output))
	})
}
