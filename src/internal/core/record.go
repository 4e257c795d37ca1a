// FILE: logtrace/src/internal/core/record.go
package core

// ParsedLine is the structured interpretation of one raw log line.
// Every field except Raw and Message is optional; the zero value of a field
// means the corresponding token was not found in the line.
type ParsedLine struct {
	// Raw is the original line text, preserved verbatim.
	Raw string `json:"raw,omitempty"`

	// Timestamp is the extracted date-time string, unnormalized
	// (e.g. "2024-01-01 10:00:00" or "2024/01/01 - 10:00:00").
	Timestamp string `json:"timestamp,omitempty"`

	// Level is the normalized severity: trace, debug, info, warn, error, fatal.
	Level string `json:"level,omitempty"`

	// Source is the bracketed origin tag, e.g. "gin_logger.go:94".
	Source string `json:"source,omitempty"`

	// RequestID is the 8-hex-digit correlation token. An all-dash
	// placeholder in the line leaves this empty.
	RequestID string `json:"request_id,omitempty"`

	// StatusCode is the HTTP status, always within [100,599] when set.
	StatusCode int `json:"status_code,omitempty"`

	// Latency is the compact duration token, e.g. "12.4ms" or "1m2.3s".
	Latency string `json:"latency,omitempty"`

	// IP is an IPv4 or IPv6 literal.
	IP string `json:"ip,omitempty"`

	// Method is one of the standard HTTP verbs.
	Method string `json:"method,omitempty"`

	// Path is the first whitespace-delimited token following the method.
	Path string `json:"path,omitempty"`

	// Message is the residual text after all structured fields are removed.
	// A line with no recognizable structure keeps its trimmed text here.
	Message string `json:"message"`
}

// HasTimestamp reports whether a timestamp token was extracted.
func (p ParsedLine) HasTimestamp() bool { return p.Timestamp != "" }

// IsRequest reports whether the line looks like an HTTP request log
// (a method and path were extracted).
func (p ParsedLine) IsRequest() bool { return p.Method != "" && p.Path != "" }

// Failed reports whether the line records a failed request (status >= 400).
// The second return is false when no status code was extracted.
func (p ParsedLine) Failed() (bool, bool) {
	if p.StatusCode == 0 {
		return false, false
	}
	return p.StatusCode >= 400, true
}
