// FILE: logtrace/src/internal/core/usage.go
package core

// UsageDetail is one billed telemetry event for an upstream model call,
// produced by the gateway's usage collector. Consumed read-only; the
// resolver never mutates a detail.
type UsageDetail struct {
	// TimestampMS is the event time in epoch milliseconds.
	TimestampMS int64 `json:"timestamp_ms"`

	// Method and Path identify the gateway endpoint the call went through.
	// Either may be empty when the collector did not record them.
	Method string `json:"endpoint_method,omitempty"`
	Path   string `json:"endpoint_path,omitempty"`

	// Model is the upstream model name, e.g. "gpt-4o".
	Model string `json:"model_name,omitempty"`

	// Source is the usage source marker recorded by the collector.
	Source string `json:"source,omitempty"`

	// AuthIndex identifies the credential used for the call.
	AuthIndex string `json:"auth_index,omitempty"`

	// Failed marks the call as unsuccessful.
	Failed bool `json:"failed"`
}

// CredentialInfo is display metadata for one credential, keyed by
// normalized auth index. Lookup only; it never affects ranking.
type CredentialInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}
