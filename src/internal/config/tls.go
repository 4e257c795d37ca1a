// FILE: logtrace/src/internal/config/tls.go
package config

import (
	"fmt"
	"os"
)

type TLSConfig struct {
	Enabled  bool   `toml:"enabled"`
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`

	// TLS version constraints: "TLS1.2", "TLS1.3"
	MinVersion string `toml:"min_version"`
}

func validateTLS(cfg *TLSConfig) error {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return fmt.Errorf("TLS enabled but cert/key files not specified")
	}

	if _, err := os.Stat(cfg.CertFile); err != nil {
		return fmt.Errorf("cert_file is not accessible: %w", err)
	}
	if _, err := os.Stat(cfg.KeyFile); err != nil {
		return fmt.Errorf("key_file is not accessible: %w", err)
	}

	switch cfg.MinVersion {
	case "", "TLS1.2", "TLS1.3":
		// Valid versions
	default:
		return fmt.Errorf("invalid TLS min_version: %s", cfg.MinVersion)
	}

	return nil
}
