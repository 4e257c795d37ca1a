// FILE: logtrace/src/internal/format/json.go
package format

import (
	"encoding/json"
	"fmt"

	"logtrace/src/internal/config"
	"logtrace/src/internal/core"

	"github.com/lixenwraith/log"
)

// JSONFormatter produces structured JSON output from parsed lines.
type JSONFormatter struct {
	config *config.JSONFormatterOptions
	logger *log.Logger
}

// NewJSONFormatter creates a new JSON formatter from configuration options.
func NewJSONFormatter(opts *config.JSONFormatterOptions, logger *log.Logger) (*JSONFormatter, error) {
	if opts == nil {
		opts = &config.JSONFormatterOptions{IncludeRaw: true}
	}
	return &JSONFormatter{
		config: opts,
		logger: logger,
	}, nil
}

// Format transforms a single parsed line into a JSON byte slice. Empty
// structured fields are omitted; the raw line is included unless disabled.
func (f *JSONFormatter) Format(line core.ParsedLine) ([]byte, error) {
	if !f.config.IncludeRaw {
		line.Raw = ""
	}

	var result []byte
	var err error
	if f.config.Pretty {
		result, err = json.MarshalIndent(line, "", "  ")
	} else {
		result, err = json.Marshal(line)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	// Add newline
	return append(result, '\n'), nil
}

// Name returns the formatter's type name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// FormatBatch transforms a slice of parsed lines into a single JSON array.
func (f *JSONFormatter) FormatBatch(lines []core.ParsedLine) ([]byte, error) {
	batch := make([]json.RawMessage, 0, len(lines))

	for _, line := range lines {
		formatted, err := f.Format(line)
		if err != nil {
			f.logger.Warn("msg", "Failed to format line in batch",
				"component", "json_formatter",
				"error", err)
			continue
		}

		// Remove the trailing newline for array elements
		if len(formatted) > 0 && formatted[len(formatted)-1] == '\n' {
			formatted = formatted[:len(formatted)-1]
		}

		batch = append(batch, formatted)
	}

	if f.config.Pretty {
		return json.MarshalIndent(batch, "", "  ")
	}
	return json.Marshal(batch)
}
