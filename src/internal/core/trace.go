// FILE: logtrace/src/internal/core/trace.go
package core

// Confidence is the coarse tier of how strongly a trace candidate is
// supported by the available signals.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// TraceCandidate pairs the selected log line with one usage detail.
// Candidate lists are recomputed per request and never persisted.
type TraceCandidate struct {
	Detail UsageDetail `json:"detail"`

	// Score is the summed signal agreement under the active policy.
	Score int `json:"score"`

	Confidence Confidence `json:"confidence"`

	// TimeDeltaMS is the absolute distance between the log line and the
	// usage event, nil when either timestamp is unparseable.
	TimeDeltaMS *int64 `json:"time_delta_ms"`

	// SourceName is the display name of the credential behind the detail,
	// filled by enrichment when a lookup table is supplied.
	SourceName string `json:"source_name,omitempty"`
	SourceType string `json:"source_type,omitempty"`
}
