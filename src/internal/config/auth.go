// FILE: logtrace/src/internal/config/auth.go
package config

import "fmt"

type AuthConfig struct {
	// Authentication type: "none", "basic", "bearer"
	Type string `toml:"type"`

	// Basic auth
	BasicAuth *BasicAuthConfig `toml:"basic_auth"`

	// Bearer token auth
	BearerAuth *BearerAuthConfig `toml:"bearer_auth"`
}

type BasicAuthConfig struct {
	// Static users (for simple deployments)
	Users []BasicAuthUser `toml:"users"`

	// Realm for WWW-Authenticate header
	Realm string `toml:"realm"`
}

type BasicAuthUser struct {
	Username string `toml:"username"`
	// Password hash (bcrypt)
	PasswordHash string `toml:"password_hash"`
}

type BearerAuthConfig struct {
	// Static tokens
	Tokens []string `toml:"tokens"`

	// JWT validation
	JWT *JWTConfig `toml:"jwt"`
}

type JWTConfig struct {
	// Static signing key for HMAC validation
	SigningKey string `toml:"signing_key"`

	// Expected issuer
	Issuer string `toml:"issuer"`

	// Expected audience
	Audience string `toml:"audience"`
}

func validateAuth(auth *AuthConfig) error {
	if auth == nil {
		return nil
	}

	validTypes := map[string]bool{"none": true, "basic": true, "bearer": true, "": true}
	if !validTypes[auth.Type] {
		return fmt.Errorf("invalid auth type: %s", auth.Type)
	}

	if auth.Type == "basic" && auth.BasicAuth == nil {
		return fmt.Errorf("basic auth type specified but config missing")
	}

	if auth.Type == "bearer" && auth.BearerAuth == nil {
		return fmt.Errorf("bearer auth type specified but config missing")
	}

	return nil
}
