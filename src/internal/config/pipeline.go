// FILE: logtrace/src/internal/config/pipeline.go
package config

import (
	"fmt"
	"strings"
)

// PipelineConfig represents one ingestion pipeline: sources feed raw lines
// through filters into the parser and record store.
type PipelineConfig struct {
	// Pipeline identifier (used in logs and stats)
	Name string `toml:"name"`

	// Data sources for this pipeline
	Sources []SourceConfig `toml:"sources"`

	// Filter configuration, applied to raw lines before parsing
	Filters []FilterConfig `toml:"filters"`

	// Optional output sinks receiving parsed records
	Sinks []SinkConfig `toml:"sinks"`

	// Rate limiting applied at ingestion
	RateLimit *RateLimitConfig `toml:"rate_limit"`
}

// SourceConfig represents an input data source
type SourceConfig struct {
	// Source type: "directory", "file", "stdin", "http", "tcp"
	Type string `toml:"type"`

	// Type-specific configuration options
	Options map[string]any `toml:"options"`
}

// SinkConfig represents an output destination
type SinkConfig struct {
	// Sink type: "file", "stdout", "stderr"
	Type string `toml:"type"`

	// Type-specific configuration options
	Options map[string]any `toml:"options"`

	// Output format for this sink
	Format FormatConfig `toml:"format"`
}

func validateSource(pipelineName string, sourceIndex int, cfg *SourceConfig) error {
	if cfg.Type == "" {
		return fmt.Errorf("pipeline '%s' source[%d]: missing type", pipelineName, sourceIndex)
	}

	switch cfg.Type {
	case "directory", "file":
		path, ok := cfg.Options["path"].(string)
		if !ok || path == "" {
			return fmt.Errorf("pipeline '%s' source[%d]: %s source requires 'path' option",
				pipelineName, sourceIndex, cfg.Type)
		}
		if strings.Contains(path, "..") {
			return fmt.Errorf("pipeline '%s' source[%d]: path contains directory traversal",
				pipelineName, sourceIndex)
		}
		if interval, ok := cfg.Options["check_interval_ms"]; ok {
			if intVal, ok := toInt(interval); ok {
				if intVal < 10 {
					return fmt.Errorf("pipeline '%s' source[%d]: check interval too small: %d ms (min: 10ms)",
						pipelineName, sourceIndex, intVal)
				}
			} else {
				return fmt.Errorf("pipeline '%s' source[%d]: invalid check_interval_ms type",
					pipelineName, sourceIndex)
			}
		}

	case "stdin":
		// No specific validation needed for stdin

	case "http":
		port, ok := toInt(cfg.Options["port"])
		if !ok || port < 1 || port > 65535 {
			return fmt.Errorf("pipeline '%s' source[%d]: invalid or missing HTTP port",
				pipelineName, sourceIndex)
		}
		if ingestPath, ok := cfg.Options["ingest_path"].(string); ok {
			if !strings.HasPrefix(ingestPath, "/") {
				return fmt.Errorf("pipeline '%s' source[%d]: ingest path must start with /: %s",
					pipelineName, sourceIndex, ingestPath)
			}
		}

	case "tcp":
		port, ok := toInt(cfg.Options["port"])
		if !ok || port < 1 || port > 65535 {
			return fmt.Errorf("pipeline '%s' source[%d]: invalid or missing TCP port",
				pipelineName, sourceIndex)
		}

	default:
		return fmt.Errorf("pipeline '%s' source[%d]: unknown source type '%s'",
			pipelineName, sourceIndex, cfg.Type)
	}

	return nil
}

func validateSink(pipelineName string, sinkIndex int, cfg *SinkConfig) error {
	if cfg.Type == "" {
		return fmt.Errorf("pipeline '%s' sink[%d]: missing type", pipelineName, sinkIndex)
	}

	switch cfg.Type {
	case "file":
		directory, ok := cfg.Options["directory"].(string)
		if !ok || directory == "" {
			return fmt.Errorf("pipeline '%s' sink[%d]: file sink requires 'directory' option",
				pipelineName, sinkIndex)
		}
		name, ok := cfg.Options["name"].(string)
		if !ok || name == "" {
			return fmt.Errorf("pipeline '%s' sink[%d]: file sink requires 'name' option",
				pipelineName, sinkIndex)
		}
		if maxSize, ok := toInt(cfg.Options["max_size_mb"]); ok {
			if maxSize < 1 {
				return fmt.Errorf("pipeline '%s' sink[%d]: max_size_mb must be positive: %d",
					pipelineName, sinkIndex, maxSize)
			}
		}
		if maxTotalSize, ok := toInt(cfg.Options["max_total_size_mb"]); ok {
			if maxTotalSize < 0 {
				return fmt.Errorf("pipeline '%s' sink[%d]: max_total_size_mb cannot be negative: %d",
					pipelineName, sinkIndex, maxTotalSize)
			}
		}
		if retention, ok := toFloat(cfg.Options["retention_hours"]); ok {
			if retention < 0 {
				return fmt.Errorf("pipeline '%s' sink[%d]: retention_hours cannot be negative: %f",
					pipelineName, sinkIndex, retention)
			}
		}

	case "stdout", "stderr":
		// No specific validation needed for console sinks

	default:
		return fmt.Errorf("pipeline '%s' sink[%d]: unknown sink type '%s'",
			pipelineName, sinkIndex, cfg.Type)
	}

	return validateFormat(pipelineName, sinkIndex, &cfg.Format)
}

// toInt normalizes the numeric types TOML decoding can produce.
func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
