// FILE: logtrace/src/internal/source/source.go
package source

import (
	"fmt"
	"time"

	"logtrace/src/internal/config"
	"logtrace/src/internal/core"

	"github.com/lixenwraith/log"
)

// Represents an input data stream
type Source interface {
	// Returns a channel that receives log entries
	Subscribe() <-chan core.LogEntry

	// Begins reading from the source
	Start() error

	// Gracefully shuts down the source
	Stop()

	// Returns source statistics
	GetStats() SourceStats
}

// Contains statistics about a source
type SourceStats struct {
	Type           string
	TotalEntries   uint64
	DroppedEntries uint64
	StartTime      time.Time
	LastEntryTime  time.Time
	Details        map[string]any
}

// New creates a source from its pipeline configuration.
func New(cfg config.SourceConfig, logger *log.Logger) (Source, error) {
	switch cfg.Type {
	case "stdin":
		return NewStdinSource(cfg.Options, logger)
	case "file":
		return NewFileSource(cfg.Options, logger)
	case "directory":
		return NewDirectorySource(cfg.Options, logger)
	case "http":
		return NewHTTPSource(cfg.Options, logger)
	case "tcp":
		return NewTCPSource(cfg.Options, logger)
	default:
		return nil, fmt.Errorf("unknown source type: %q", cfg.Type)
	}
}

// Option values decoded from TOML arrive as int64, CLI overrides as
// float64 or int. These helpers normalize.
func toInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}
