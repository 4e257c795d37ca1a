// FILE: logtrace/src/internal/config/filter.go
package config

import (
	"fmt"
	"regexp"
)

// Filter behavior constants
const (
	FilterTypeInclude = "include"
	FilterTypeExclude = "exclude"
	FilterLogicOr     = "or"
	FilterLogicAnd    = "and"
)

// FilterConfig defines one regex filter applied to raw lines.
type FilterConfig struct {
	// Filter type: "include" (default) or "exclude"
	Type string `toml:"type"`

	// Pattern combination logic: "or" (default) or "and"
	Logic string `toml:"logic"`

	// Regex patterns matched against the raw line
	Patterns []string `toml:"patterns"`
}

func validateFilter(pipelineName string, filterIndex int, cfg *FilterConfig) error {
	switch cfg.Type {
	case FilterTypeInclude, FilterTypeExclude, "":
		// Valid types
	default:
		return fmt.Errorf("pipeline '%s' filter[%d]: invalid type '%s' (must be 'include' or 'exclude')",
			pipelineName, filterIndex, cfg.Type)
	}

	switch cfg.Logic {
	case FilterLogicOr, FilterLogicAnd, "":
		// Valid logic
	default:
		return fmt.Errorf("pipeline '%s' filter[%d]: invalid logic '%s' (must be 'or' or 'and')",
			pipelineName, filterIndex, cfg.Logic)
	}

	// Empty patterns is valid - passes everything
	for i, pattern := range cfg.Patterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("pipeline '%s' filter[%d] pattern[%d] '%s': invalid regex: %w",
				pipelineName, filterIndex, i, pattern, err)
		}
	}

	return nil
}
