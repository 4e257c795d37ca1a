// FILE: logtrace/src/internal/config/limit.go
package config

import (
	"fmt"
	"net"
	"strings"
)

// RateLimitConfig defines request rate limiting.
type RateLimitConfig struct {
	// Enable rate limiting
	Enabled bool `toml:"enabled"`

	// Requests per second per client
	RequestsPerSecond float64 `toml:"requests_per_second"`

	// Burst size (token bucket)
	BurstSize int `toml:"burst_size"`

	// Response when rate limited
	ResponseCode    int    `toml:"response_code"`    // Default: 429
	ResponseMessage string `toml:"response_message"` // Default: "Rate limit exceeded"

	// IP-based access control
	IPWhitelist []string `toml:"ip_whitelist"`
	IPBlacklist []string `toml:"ip_blacklist"`
}

func validateRateLimit(cfg *RateLimitConfig) error {
	if cfg == nil {
		return nil
	}

	if cfg.RequestsPerSecond < 0 {
		return fmt.Errorf("rate limit requests_per_second cannot be negative")
	}
	if cfg.BurstSize < 0 {
		return fmt.Errorf("rate limit burst_size cannot be negative")
	}

	// Validate CIDR notation; bare IPs are accepted as /32 or /128
	for _, list := range [][]string{cfg.IPWhitelist, cfg.IPBlacklist} {
		for _, cidr := range list {
			candidate := cidr
			if !strings.Contains(candidate, "/") {
				if net.ParseIP(candidate) != nil {
					continue
				}
				return fmt.Errorf("invalid IP access list entry: %s", cidr)
			}
			if _, _, err := net.ParseCIDR(candidate); err != nil {
				return fmt.Errorf("invalid IP access list entry: %s", cidr)
			}
		}
	}

	return nil
}
