// FILE: logtrace/src/internal/config/usage.go
package config

import (
	"fmt"
	"net/url"
)

// UsageConfig configures the gateway usage telemetry client.
type UsageConfig struct {
	// Gateway management API base URL, e.g. "http://127.0.0.1:9090"
	Endpoint string `toml:"endpoint"`

	// Management API key sent as a bearer token
	APIKey string `toml:"api_key"`

	// Request timeout in milliseconds
	TimeoutMS int `toml:"timeout_ms"`

	// Usage snapshot cache TTL in seconds
	UsageTTLSeconds int `toml:"usage_ttl_seconds"`

	// Credential table cache TTL in seconds
	CredentialTTLSeconds int `toml:"credential_ttl_seconds"`
}

// Enabled reports whether a gateway endpoint is configured. Trace
// resolution degrades to empty candidate lists when disabled.
func (c UsageConfig) Enabled() bool {
	return c.Endpoint != ""
}

func validateUsage(cfg *UsageConfig) error {
	if cfg.Endpoint == "" {
		return nil
	}

	parsed, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid usage endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("usage endpoint must use http or https scheme")
	}

	if cfg.TimeoutMS < 0 {
		return fmt.Errorf("usage timeout_ms cannot be negative")
	}
	if cfg.UsageTTLSeconds < 0 {
		return fmt.Errorf("usage_ttl_seconds cannot be negative")
	}
	if cfg.CredentialTTLSeconds < 0 {
		return fmt.Errorf("credential_ttl_seconds cannot be negative")
	}

	return nil
}
