// FILE: logtrace/src/internal/format/text.go
package format

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"logtrace/src/internal/config"
	"logtrace/src/internal/core"

	"github.com/lixenwraith/log"
)

// Produces human-readable text output using templates
type TextFormatter struct {
	config   *config.TextFormatterOptions
	template *template.Template
	logger   *log.Logger
}

// Creates a new text formatter
func NewTextFormatter(opts *config.TextFormatterOptions, logger *log.Logger) (*TextFormatter, error) {
	if opts == nil {
		opts = &config.TextFormatterOptions{}
	}
	if opts.Template == "" {
		opts.Template = "{{.Timestamp}} [{{ToUpper .Level}}] {{.Message}}"
	}

	f := &TextFormatter{
		config: opts,
		logger: logger,
	}

	// Create template with helper functions
	funcMap := template.FuncMap{
		"ToUpper":   strings.ToUpper,
		"ToLower":   strings.ToLower,
		"TrimSpace": strings.TrimSpace,
	}

	tmpl, err := template.New("line").Funcs(funcMap).Parse(opts.Template)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	f.template = tmpl
	return f, nil
}

// Formats the parsed line using the template
func (f *TextFormatter) Format(line core.ParsedLine) ([]byte, error) {
	// Prepare data for template
	data := map[string]any{
		"Raw":        line.Raw,
		"Timestamp":  line.Timestamp,
		"Level":      line.Level,
		"Source":     line.Source,
		"RequestID":  line.RequestID,
		"StatusCode": line.StatusCode,
		"Latency":    line.Latency,
		"IP":         line.IP,
		"Method":     line.Method,
		"Path":       line.Path,
		"Message":    line.Message,
	}

	// Set default level if empty
	if data["Level"] == "" {
		data["Level"] = "info"
	}

	var buf bytes.Buffer
	if err := f.template.Execute(&buf, data); err != nil {
		// Fallback: return a basic formatted message
		f.logger.Debug("msg", "Template execution failed, using fallback",
			"component", "text_formatter",
			"error", err)

		fallback := fmt.Sprintf("%s [%s] %s\n",
			line.Timestamp,
			strings.ToUpper(line.Level),
			line.Message)
		return []byte(fallback), nil
	}

	// Ensure newline at end
	result := buf.Bytes()
	if len(result) == 0 || result[len(result)-1] != '\n' {
		result = append(result, '\n')
	}

	return result, nil
}

// Returns the formatter name
func (f *TextFormatter) Name() string {
	return "text"
}
