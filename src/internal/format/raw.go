// FILE: logtrace/src/internal/format/raw.go
package format

import (
	"logtrace/src/internal/core"

	"github.com/lixenwraith/log"
)

// Outputs the original line as-is with a newline
type RawFormatter struct {
	logger *log.Logger
}

// Creates a new raw formatter
func NewRawFormatter(logger *log.Logger) (*RawFormatter, error) {
	return &RawFormatter{
		logger: logger,
	}, nil
}

// Returns the raw line with a newline appended
func (f *RawFormatter) Format(line core.ParsedLine) ([]byte, error) {
	return append([]byte(line.Raw), '\n'), nil
}

// Returns the formatter name
func (f *RawFormatter) Name() string {
	return "raw"
}
