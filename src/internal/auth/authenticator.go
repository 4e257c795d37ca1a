// FILE: logtrace/src/internal/auth/authenticator.go
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"logtrace/src/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lixenwraith/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// Prevent unbounded map growth
const maxAuthTrackedIPs = 10000

// Authenticator handles API server authentication
type Authenticator struct {
	config       *config.AuthConfig
	logger       *log.Logger
	basicUsers   map[string]string // username -> password hash
	bearerTokens map[string]bool   // token -> valid
	jwtParser    *jwt.Parser
	jwtKeyFunc   jwt.Keyfunc
	mu           sync.RWMutex

	// Session tracking
	sessions  map[string]*Session
	sessionMu sync.RWMutex

	// Brute-force protection
	ipAuthAttempts map[string]*ipAuthState
	authMu         sync.RWMutex
}

// Per-IP auth attempt tracking
type ipAuthState struct {
	limiter      *rate.Limiter
	failCount    int
	lastAttempt  time.Time
	blockedUntil time.Time
}

// Session represents an authenticated connection
type Session struct {
	ID           string
	Username     string
	Method       string // basic, bearer, jwt
	RemoteAddr   string
	CreatedAt    time.Time
	LastActivity time.Time
	Metadata     map[string]any
}

// New creates a new authenticator from config. A nil return with nil error
// means authentication is disabled.
func New(cfg *config.AuthConfig, logger *log.Logger) (*Authenticator, error) {
	if cfg == nil || cfg.Type == "none" || cfg.Type == "" {
		return nil, nil
	}

	a := &Authenticator{
		config:         cfg,
		logger:         logger,
		basicUsers:     make(map[string]string),
		bearerTokens:   make(map[string]bool),
		sessions:       make(map[string]*Session),
		ipAuthAttempts: make(map[string]*ipAuthState),
	}

	// Initialize Basic Auth users
	if cfg.Type == "basic" && cfg.BasicAuth != nil {
		for _, user := range cfg.BasicAuth.Users {
			a.basicUsers[user.Username] = user.PasswordHash
		}
	}

	// Initialize Bearer tokens
	if cfg.Type == "bearer" && cfg.BearerAuth != nil {
		for _, token := range cfg.BearerAuth.Tokens {
			a.bearerTokens[token] = true
		}

		// Setup JWT validation if configured
		if cfg.BearerAuth.JWT != nil && cfg.BearerAuth.JWT.SigningKey != "" {
			a.jwtParser = jwt.NewParser(
				jwt.WithValidMethods([]string{"HS256", "HS384", "HS512", "RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}),
				jwt.WithLeeway(5*time.Second),
				jwt.WithExpirationRequired(),
			)

			key := []byte(cfg.BearerAuth.JWT.SigningKey)
			a.jwtKeyFunc = func(token *jwt.Token) (any, error) {
				return key, nil
			}
		}
	}

	// Start session cleanup
	go a.sessionCleanup()

	// Start auth attempt cleanup
	go a.authAttemptCleanup()

	logger.Info("msg", "Authenticator initialized",
		"component", "auth",
		"type", cfg.Type)

	return a, nil
}

// Check and enforce rate limits
func (a *Authenticator) checkRateLimit(remoteAddr string) error {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		ip = remoteAddr // Fallback for malformed addresses
	}

	a.authMu.Lock()
	defer a.authMu.Unlock()

	state, exists := a.ipAuthAttempts[ip]
	now := time.Now()

	if !exists {
		// Check map size limit before creating new entry
		if len(a.ipAuthAttempts) >= maxAuthTrackedIPs {
			// Sample a handful of entries and evict the oldest
			const sampleSize = 20
			var oldestIP string
			oldestTime := now

			sampled := 0
			for sampledIP, sampledState := range a.ipAuthAttempts {
				if sampledState.lastAttempt.Before(oldestTime) {
					oldestIP = sampledIP
					oldestTime = sampledState.lastAttempt
				}
				sampled++
				if sampled >= sampleSize {
					break
				}
			}

			if oldestIP != "" {
				delete(a.ipAuthAttempts, oldestIP)
				a.logger.Debug("msg", "Evicted old auth attempt state",
					"component", "auth",
					"evicted_ip", oldestIP,
					"last_seen", oldestTime)
			}
		}

		// 5 attempts per minute, burst of 3
		state = &ipAuthState{
			limiter:     rate.NewLimiter(rate.Every(12*time.Second), 3),
			lastAttempt: now,
		}
		a.ipAuthAttempts[ip] = state
	}

	// Check if IP is temporarily blocked
	if now.Before(state.blockedUntil) {
		remaining := state.blockedUntil.Sub(now)
		a.logger.Warn("msg", "IP temporarily blocked",
			"component", "auth",
			"ip", ip,
			"remaining", remaining)
		return fmt.Errorf("temporarily blocked, try again in %v", remaining.Round(time.Second))
	}

	// Check rate limit
	if !state.limiter.Allow() {
		state.failCount++

		// Only set new blockedUntil if not already blocked
		if state.blockedUntil.IsZero() || now.After(state.blockedUntil) {
			// Progressive blocking: 2^failCount minutes, capped
			blockMinutes := 1 << min(state.failCount, 6)
			state.blockedUntil = now.Add(time.Duration(blockMinutes) * time.Minute)

			a.logger.Warn("msg", "Rate limit exceeded, blocking IP",
				"component", "auth",
				"ip", ip,
				"fail_count", state.failCount,
				"block_duration", time.Duration(blockMinutes)*time.Minute)
		}

		return fmt.Errorf("rate limit exceeded")
	}

	state.lastAttempt = now
	return nil
}

// Record failed attempt
func (a *Authenticator) recordFailure(remoteAddr string) {
	ip, _, _ := net.SplitHostPort(remoteAddr)
	if ip == "" {
		ip = remoteAddr
	}

	a.authMu.Lock()
	defer a.authMu.Unlock()

	if state, exists := a.ipAuthAttempts[ip]; exists {
		state.failCount++
		state.lastAttempt = time.Now()
	}
}

// Reset failure count on success
func (a *Authenticator) recordSuccess(remoteAddr string) {
	ip, _, _ := net.SplitHostPort(remoteAddr)
	if ip == "" {
		ip = remoteAddr
	}

	a.authMu.Lock()
	defer a.authMu.Unlock()

	if state, exists := a.ipAuthAttempts[ip]; exists {
		state.failCount = 0
		state.blockedUntil = time.Time{}
	}
}

// AuthenticateHTTP handles HTTP authentication headers
func (a *Authenticator) AuthenticateHTTP(authHeader, remoteAddr string) (*Session, error) {
	if a == nil {
		return &Session{
			ID:         generateSessionID(),
			Method:     "none",
			RemoteAddr: remoteAddr,
			CreatedAt:  time.Now(),
		}, nil
	}

	// Check rate limit
	if err := a.checkRateLimit(remoteAddr); err != nil {
		return nil, err
	}

	var session *Session
	var err error

	switch a.config.Type {
	case "basic":
		session, err = a.authenticateBasic(authHeader, remoteAddr)
	case "bearer":
		session, err = a.authenticateBearer(authHeader, remoteAddr)
	default:
		err = fmt.Errorf("unsupported auth type: %s", a.config.Type)
	}

	if err != nil {
		a.recordFailure(remoteAddr)
		return nil, err
	}

	a.recordSuccess(remoteAddr)
	return session, nil
}

// AuthenticateTCP handles the line-based AUTH handshake used by TCP
// sources. Basic auth validates username/password; bearer auth expects
// the token as the credential with any username.
func (a *Authenticator) AuthenticateTCP(username, credential, remoteAddr string) (*Session, error) {
	if a == nil {
		return &Session{
			ID:         generateSessionID(),
			Method:     "none",
			RemoteAddr: remoteAddr,
			CreatedAt:  time.Now(),
		}, nil
	}

	if err := a.checkRateLimit(remoteAddr); err != nil {
		return nil, err
	}

	var session *Session
	var err error

	switch a.config.Type {
	case "basic":
		session, err = a.validateBasicAuth(username, credential, remoteAddr)
	case "bearer":
		session, err = a.validateToken(credential, remoteAddr)
	default:
		err = fmt.Errorf("unsupported auth type: %s", a.config.Type)
	}

	if err != nil {
		a.recordFailure(remoteAddr)
		return nil, err
	}

	a.recordSuccess(remoteAddr)
	return session, nil
}

func (a *Authenticator) authenticateBasic(authHeader, remoteAddr string) (*Session, error) {
	if !strings.HasPrefix(authHeader, "Basic ") {
		return nil, fmt.Errorf("invalid basic auth header")
	}

	payload, err := base64.StdEncoding.DecodeString(authHeader[6:])
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding")
	}

	parts := strings.SplitN(string(payload), ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid credentials format")
	}

	return a.validateBasicAuth(parts[0], parts[1], remoteAddr)
}

func (a *Authenticator) validateBasicAuth(username, password, remoteAddr string) (*Session, error) {
	a.mu.RLock()
	expectedHash, exists := a.basicUsers[username]
	a.mu.RUnlock()

	if !exists {
		// Perform bcrypt anyway to prevent timing attacks
		bcrypt.CompareHashAndPassword([]byte("$2a$10$dummy.hash.to.prevent.timing.attacks"), []byte(password))
		return nil, fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(expectedHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	session := &Session{
		ID:           generateSessionID(),
		Username:     username,
		Method:       "basic",
		RemoteAddr:   remoteAddr,
		CreatedAt:    time.Now(),
		LastActivity: time.Now(),
	}

	a.storeSession(session)
	return session, nil
}

func (a *Authenticator) authenticateBearer(authHeader, remoteAddr string) (*Session, error) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, fmt.Errorf("invalid bearer auth header")
	}

	token := authHeader[7:]
	return a.validateToken(token, remoteAddr)
}

func (a *Authenticator) validateToken(token, remoteAddr string) (*Session, error) {
	// Check static tokens first
	a.mu.RLock()
	isStatic := a.bearerTokens[token]
	a.mu.RUnlock()

	if isStatic {
		session := &Session{
			ID:           generateSessionID(),
			Method:       "bearer",
			RemoteAddr:   remoteAddr,
			CreatedAt:    time.Now(),
			LastActivity: time.Now(),
			Metadata:     map[string]any{"token_type": "static"},
		}
		a.storeSession(session)
		return session, nil
	}

	// Try JWT validation if configured
	if a.jwtParser != nil && a.jwtKeyFunc != nil {
		claims := jwt.MapClaims{}
		parsedToken, err := a.jwtParser.ParseWithClaims(token, claims, a.jwtKeyFunc)
		if err != nil {
			return nil, fmt.Errorf("JWT validation failed: %w", err)
		}

		if !parsedToken.Valid {
			return nil, fmt.Errorf("invalid JWT token")
		}

		// Explicit expiration check
		if exp, ok := claims["exp"].(float64); ok {
			if time.Now().Unix() > int64(exp) {
				return nil, fmt.Errorf("token expired")
			}
		} else {
			// Reject tokens without expiration
			return nil, fmt.Errorf("token missing expiration claim")
		}

		// Check not-before claim
		if nbf, ok := claims["nbf"].(float64); ok {
			if time.Now().Unix() < int64(nbf) {
				return nil, fmt.Errorf("token not yet valid")
			}
		}

		// Check issuer if configured
		if a.config.BearerAuth.JWT.Issuer != "" {
			if iss, ok := claims["iss"].(string); !ok || iss != a.config.BearerAuth.JWT.Issuer {
				return nil, fmt.Errorf("invalid token issuer")
			}
		}

		// Check audience if configured
		if a.config.BearerAuth.JWT.Audience != "" {
			// Handle both string and []string audience formats
			audValid := false
			switch aud := claims["aud"].(type) {
			case string:
				audValid = aud == a.config.BearerAuth.JWT.Audience
			case []any:
				for _, aa := range aud {
					if audStr, ok := aa.(string); ok && audStr == a.config.BearerAuth.JWT.Audience {
						audValid = true
						break
					}
				}
			}
			if !audValid {
				return nil, fmt.Errorf("invalid token audience")
			}
		}

		username := ""
		if sub, ok := claims["sub"].(string); ok {
			username = sub
		}

		session := &Session{
			ID:           generateSessionID(),
			Username:     username,
			Method:       "jwt",
			RemoteAddr:   remoteAddr,
			CreatedAt:    time.Now(),
			LastActivity: time.Now(),
			Metadata:     map[string]any{"claims": claims},
		}
		a.storeSession(session)
		return session, nil
	}

	return nil, fmt.Errorf("invalid token")
}

func (a *Authenticator) storeSession(session *Session) {
	a.sessionMu.Lock()
	a.sessions[session.ID] = session
	a.sessionMu.Unlock()

	a.logger.Info("msg", "Session created",
		"component", "auth",
		"session_id", session.ID,
		"username", session.Username,
		"method", session.Method,
		"remote_addr", session.RemoteAddr)
}

func (a *Authenticator) sessionCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		a.sessionMu.Lock()
		now := time.Now()
		for id, session := range a.sessions {
			if now.Sub(session.LastActivity) > 30*time.Minute {
				delete(a.sessions, id)
				a.logger.Debug("msg", "Session expired",
					"component", "auth",
					"session_id", id)
			}
		}
		a.sessionMu.Unlock()
	}
}

// Cleanup old auth attempts
func (a *Authenticator) authAttemptCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		a.authMu.Lock()
		now := time.Now()
		for ip, state := range a.ipAuthAttempts {
			// Remove entries older than 1 hour with no recent activity
			if now.Sub(state.lastAttempt) > time.Hour {
				delete(a.ipAuthAttempts, ip)
			}
		}
		a.authMu.Unlock()
	}
}

func generateSessionID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// Fallback to a less secure method if crypto/rand fails
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}

// ValidateSession checks if a session is still valid
func (a *Authenticator) ValidateSession(sessionID string) bool {
	if a == nil {
		return true
	}

	a.sessionMu.RLock()
	session, exists := a.sessions[sessionID]
	a.sessionMu.RUnlock()

	if !exists {
		return false
	}

	// Update activity
	a.sessionMu.Lock()
	session.LastActivity = time.Now()
	a.sessionMu.Unlock()

	return true
}

// GetStats returns authentication statistics
func (a *Authenticator) GetStats() map[string]any {
	if a == nil {
		return map[string]any{"enabled": false}
	}

	a.sessionMu.RLock()
	sessionCount := len(a.sessions)
	a.sessionMu.RUnlock()

	return map[string]any{
		"enabled":         true,
		"type":            a.config.Type,
		"active_sessions": sessionCount,
		"basic_users":     len(a.basicUsers),
		"static_tokens":   len(a.bearerTokens),
	}
}
