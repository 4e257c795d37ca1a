// FILE: logtrace/src/internal/format/format.go
package format

import (
	"fmt"

	"logtrace/src/internal/config"
	"logtrace/src/internal/core"

	"github.com/lixenwraith/log"
)

// Formatter defines the interface for transforming a parsed line into a byte slice.
type Formatter interface {
	// Format takes a parsed line and returns the formatted output.
	Format(line core.ParsedLine) ([]byte, error)

	// Name returns the formatter type name
	Name() string
}

// New creates a new Formatter based on the provided configuration.
func New(cfg config.FormatConfig, logger *log.Logger) (Formatter, error) {
	// Default to raw if no format specified
	name := cfg.Format
	if name == "" {
		name = "raw"
	}

	switch name {
	case "json":
		return NewJSONFormatter(cfg.JSON, logger)
	case "text":
		return NewTextFormatter(cfg.Text, logger)
	case "raw":
		return NewRawFormatter(logger)
	default:
		return nil, fmt.Errorf("unknown formatter type: %s", name)
	}
}
