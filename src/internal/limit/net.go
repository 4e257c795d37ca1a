// FILE: logtrace/src/internal/limit/net.go
package limit

import (
	"context"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"logtrace/src/internal/config"

	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"
)

// DenialReason indicates why a request was denied
type DenialReason string

const (
	ReasonAllowed        DenialReason = ""
	ReasonBlacklisted    DenialReason = "IP denied by blacklist"
	ReasonNotWhitelisted DenialReason = "IP not in whitelist"
	ReasonRateLimited    DenialReason = "Rate limit exceeded"
	ReasonInvalidIP      DenialReason = "Invalid IP address"
)

// NetLimiter enforces IP access lists and per-client rate limits for the
// API server.
type NetLimiter struct {
	config config.RateLimitConfig
	logger *log.Logger

	// IP Access Control Lists
	ipWhitelist []*net.IPNet
	ipBlacklist []*net.IPNet

	// Per-IP limiters
	ipLimiters map[string]*ipLimiter
	ipMu       sync.Mutex

	// Statistics
	totalRequests      atomic.Uint64
	blockedByBlacklist atomic.Uint64
	blockedByWhitelist atomic.Uint64
	blockedByRateLimit atomic.Uint64
	blockedByInvalidIP atomic.Uint64

	// Lifecycle management
	ctx         context.Context
	cancel      context.CancelFunc
	cleanupDone chan struct{}
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewNetLimiter creates a net limiter. Returns nil when neither access
// lists nor rate limiting are configured; a nil limiter allows everything.
func NewNetLimiter(cfg *config.RateLimitConfig, logger *log.Logger) *NetLimiter {
	if cfg == nil {
		return nil
	}

	hasACL := len(cfg.IPWhitelist) > 0 || len(cfg.IPBlacklist) > 0
	if !hasACL && !cfg.Enabled {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	l := &NetLimiter{
		config:      *cfg,
		logger:      logger,
		ipWhitelist: make([]*net.IPNet, 0),
		ipBlacklist: make([]*net.IPNet, 0),
		ipLimiters:  make(map[string]*ipLimiter),
		ctx:         ctx,
		cancel:      cancel,
		cleanupDone: make(chan struct{}),
	}

	l.parseIPLists(cfg)

	// Stale limiter cleanup only matters when rate limiting is on
	if cfg.Enabled {
		go l.cleanupLoop()
	} else {
		close(l.cleanupDone)
	}

	logger.Info("msg", "Net limiter initialized",
		"component", "netlimit",
		"acl_enabled", hasACL,
		"rate_limiting", cfg.Enabled,
		"whitelist_rules", len(l.ipWhitelist),
		"blacklist_rules", len(l.ipBlacklist),
		"requests_per_second", cfg.RequestsPerSecond,
		"burst_size", cfg.BurstSize)

	return l
}

// parseIPLists parses and validates IP whitelist/blacklist
func (l *NetLimiter) parseIPLists(cfg *config.RateLimitConfig) {
	for _, entry := range cfg.IPWhitelist {
		if ipNet := l.parseIPEntry(entry, "whitelist"); ipNet != nil {
			l.ipWhitelist = append(l.ipWhitelist, ipNet)
		}
	}

	for _, entry := range cfg.IPBlacklist {
		if ipNet := l.parseIPEntry(entry, "blacklist"); ipNet != nil {
			l.ipBlacklist = append(l.ipBlacklist, ipNet)
		}
	}
}

// parseIPEntry parses a single IP or CIDR entry
func (l *NetLimiter) parseIPEntry(entry, listType string) *net.IPNet {
	// Handle single IP
	if !strings.Contains(entry, "/") {
		ip := net.ParseIP(entry)
		if ip == nil {
			l.logger.Warn("msg", "Invalid IP entry",
				"component", "netlimit",
				"list", listType,
				"entry", entry)
			return nil
		}
		if v4 := ip.To4(); v4 != nil {
			return &net.IPNet{IP: v4, Mask: net.CIDRMask(32, 32)}
		}
		return &net.IPNet{IP: ip, Mask: net.CIDRMask(128, 128)}
	}

	// Parse CIDR
	_, ipNet, err := net.ParseCIDR(entry)
	if err != nil {
		l.logger.Warn("msg", "Invalid CIDR entry",
			"component", "netlimit",
			"list", listType,
			"entry", entry,
			"error", err)
		return nil
	}

	return ipNet
}

// checkIPAccess checks if an IP is allowed by ACLs
func (l *NetLimiter) checkIPAccess(ip net.IP) DenialReason {
	// Blacklist first, deny takes precedence
	for _, ipNet := range l.ipBlacklist {
		if ipNet.Contains(ip) {
			l.blockedByBlacklist.Add(1)
			l.logger.Debug("msg", "IP denied by blacklist",
				"component", "netlimit",
				"ip", ip.String(),
				"rule", ipNet.String())
			return ReasonBlacklisted
		}
	}

	// If whitelist is configured, IP must be in it
	if len(l.ipWhitelist) > 0 {
		for _, ipNet := range l.ipWhitelist {
			if ipNet.Contains(ip) {
				return ReasonAllowed
			}
		}
		l.blockedByWhitelist.Add(1)
		l.logger.Debug("msg", "IP not in whitelist",
			"component", "netlimit",
			"ip", ip.String())
		return ReasonNotWhitelisted
	}

	return ReasonAllowed
}

// CheckHTTP checks if an HTTP request should be allowed
func (l *NetLimiter) CheckHTTP(remoteAddr string) (allowed bool, statusCode int, message string) {
	if l == nil {
		return true, 0, ""
	}

	l.totalRequests.Add(1)

	// Parse IP address; addresses without a port are accepted as-is
	ipStr, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		ipStr = remoteAddr
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		l.blockedByInvalidIP.Add(1)
		l.logger.Warn("msg", "Failed to parse IP",
			"component", "netlimit",
			"remote_addr", remoteAddr)
		return false, 403, string(ReasonInvalidIP)
	}

	// Check IP access control
	if reason := l.checkIPAccess(ip); reason != ReasonAllowed {
		return false, 403, string(reason)
	}

	// If rate limiting is not enabled, allow
	if !l.config.Enabled {
		return true, 0, ""
	}

	if !l.allowRate(ip.String()) {
		l.blockedByRateLimit.Add(1)
		statusCode = l.config.ResponseCode
		if statusCode == 0 {
			statusCode = 429
		}
		message = l.config.ResponseMessage
		if message == "" {
			message = string(ReasonRateLimited)
		}
		return false, statusCode, message
	}

	return true, 0, ""
}

// CheckTCP checks if a TCP connection should be allowed
func (l *NetLimiter) CheckTCP(remoteAddr net.Addr) bool {
	if l == nil {
		return true
	}

	l.totalRequests.Add(1)

	tcpAddr, ok := remoteAddr.(*net.TCPAddr)
	if !ok {
		l.blockedByInvalidIP.Add(1)
		return false
	}

	if reason := l.checkIPAccess(tcpAddr.IP); reason != ReasonAllowed {
		return false
	}

	if !l.config.Enabled {
		return true
	}

	if !l.allowRate(tcpAddr.IP.String()) {
		l.blockedByRateLimit.Add(1)
		return false
	}

	return true
}

// allowRate consumes one token from the per-IP limiter.
func (l *NetLimiter) allowRate(ipStr string) bool {
	l.ipMu.Lock()
	lim, exists := l.ipLimiters[ipStr]
	if !exists {
		burst := l.config.BurstSize
		if burst <= 0 {
			burst = 1
		}
		lim = &ipLimiter{
			limiter: rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), burst),
		}
		l.ipLimiters[ipStr] = lim
	}
	lim.lastSeen = time.Now()
	l.ipMu.Unlock()

	return lim.limiter.Allow()
}

// cleanupLoop evicts limiters for IPs not seen recently.
func (l *NetLimiter) cleanupLoop() {
	defer close(l.cleanupDone)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-10 * time.Minute)
			l.ipMu.Lock()
			for ip, lim := range l.ipLimiters {
				if lim.lastSeen.Before(cutoff) {
					delete(l.ipLimiters, ip)
				}
			}
			l.ipMu.Unlock()
		}
	}
}

// Shutdown stops the cleanup goroutine.
func (l *NetLimiter) Shutdown() {
	if l == nil {
		return
	}

	l.logger.Info("msg", "Shutting down net limiter", "component", "netlimit")
	l.cancel()

	select {
	case <-l.cleanupDone:
	case <-time.After(2 * time.Second):
		l.logger.Warn("msg", "Cleanup goroutine shutdown timeout", "component", "netlimit")
	}
}

// GetStats returns limiter statistics.
func (l *NetLimiter) GetStats() map[string]any {
	if l == nil {
		return map[string]any{"enabled": false}
	}

	l.ipMu.Lock()
	trackedIPs := len(l.ipLimiters)
	l.ipMu.Unlock()

	return map[string]any{
		"enabled":              true,
		"total_requests":       l.totalRequests.Load(),
		"blocked_by_blacklist": l.blockedByBlacklist.Load(),
		"blocked_by_whitelist": l.blockedByWhitelist.Load(),
		"blocked_by_rate":      l.blockedByRateLimit.Load(),
		"blocked_by_invalid":   l.blockedByInvalidIP.Load(),
		"tracked_ips":          trackedIPs,
	}
}
