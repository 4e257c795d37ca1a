// FILE: logtrace/src/internal/sink/sink.go
package sink

import (
	"context"
	"fmt"
	"time"

	"logtrace/src/internal/config"
	"logtrace/src/internal/core"
	"logtrace/src/internal/format"

	"github.com/lixenwraith/log"
)

// Sink represents an output destination for parsed log records
type Sink interface {
	// Input returns the channel for sending records to this sink
	Input() chan<- core.ParsedLine

	// Start begins processing records
	Start(ctx context.Context) error

	// Stop gracefully shuts down the sink
	Stop()

	// GetStats returns sink statistics
	GetStats() SinkStats
}

// SinkStats contains statistics about a sink
type SinkStats struct {
	Type           string
	TotalProcessed uint64
	StartTime      time.Time
	LastProcessed  time.Time
	Details        map[string]any
}

// New creates a sink from its pipeline configuration, wiring in the
// formatter declared on the sink.
func New(cfg config.SinkConfig, logger *log.Logger) (Sink, error) {
	formatter, err := format.New(cfg.Format, logger)
	if err != nil {
		return nil, fmt.Errorf("sink formatter: %w", err)
	}

	switch cfg.Type {
	case "stdout":
		return NewStdoutSink(cfg.Options, logger, formatter)
	case "stderr":
		return NewStderrSink(cfg.Options, logger, formatter)
	case "file":
		return NewFileSink(cfg.Options, logger, formatter)
	default:
		return nil, fmt.Errorf("unknown sink type: %q", cfg.Type)
	}
}

// Helper for option values decoded from TOML (int64) or CLI (int/float64)
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
