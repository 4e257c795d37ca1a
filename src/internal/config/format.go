// FILE: logtrace/src/internal/config/format.go
package config

import "fmt"

// FormatConfig selects and configures an output formatter.
type FormatConfig struct {
	// Formatter type: "raw" (default), "json", "text"
	Format string `toml:"format"`

	JSON *JSONFormatterOptions `toml:"json"`
	Text *TextFormatterOptions `toml:"text"`
}

// JSONFormatterOptions configures the JSON formatter.
type JSONFormatterOptions struct {
	// Indent output for human consumption
	Pretty bool `toml:"pretty"`

	// Include the original raw line in the output
	IncludeRaw bool `toml:"include_raw"`
}

// TextFormatterOptions configures the template-based text formatter.
type TextFormatterOptions struct {
	// Go text/template over the parsed fields, e.g.
	// "{{.Timestamp}} [{{ToUpper .Level}}] {{.Message}}"
	Template string `toml:"template"`
}

func validateFormat(pipelineName string, sinkIndex int, cfg *FormatConfig) error {
	switch cfg.Format {
	case "", "raw", "json", "text":
		return nil
	default:
		return fmt.Errorf("pipeline '%s' sink[%d]: unknown format '%s'",
			pipelineName, sinkIndex, cfg.Format)
	}
}
