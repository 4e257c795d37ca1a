// FILE: logtrace/src/internal/config/server.go
package config

import "fmt"

// ServerConfig configures the query/stream API server.
type ServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`

	// Endpoint paths
	StatusPath string `toml:"status_path"`
	LogsPath   string `toml:"logs_path"`
	TracePath  string `toml:"trace_path"`
	StreamPath string `toml:"stream_path"`

	// TLS Configuration
	TLS *TLSConfig `toml:"tls"`

	// Authentication
	Auth *AuthConfig `toml:"auth"`

	// Rate limiting
	RateLimit *RateLimitConfig `toml:"rate_limit"`
}

func validateServer(cfg *ServerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Port)
	}

	for name, path := range map[string]string{
		"status_path": cfg.StatusPath,
		"logs_path":   cfg.LogsPath,
		"trace_path":  cfg.TracePath,
		"stream_path": cfg.StreamPath,
	} {
		if path != "" && path[0] != '/' {
			return fmt.Errorf("server %s must start with /: %s", name, path)
		}
	}

	if err := validateTLS(cfg.TLS); err != nil {
		return fmt.Errorf("server tls: %w", err)
	}
	if err := validateAuth(cfg.Auth); err != nil {
		return fmt.Errorf("server auth: %w", err)
	}
	if err := validateRateLimit(cfg.RateLimit); err != nil {
		return fmt.Errorf("server rate limit: %w", err)
	}

	return nil
}
