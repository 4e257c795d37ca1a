// FILE: logtrace/src/internal/limit/net_test.go
package limit

import (
	"testing"

	"logtrace/src/internal/config"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func TestNewNetLimiter_NilWhenUnconfigured(t *testing.T) {
	assert.Nil(t, NewNetLimiter(nil, newTestLogger()))
	assert.Nil(t, NewNetLimiter(&config.RateLimitConfig{}, newTestLogger()))
}

func TestNetLimiter_NilAllowsEverything(t *testing.T) {
	var l *NetLimiter
	allowed, code, msg := l.CheckHTTP("10.0.0.1:12345")
	assert.True(t, allowed)
	assert.Equal(t, 0, code)
	assert.Empty(t, msg)
}

func TestNetLimiter_Blacklist(t *testing.T) {
	l := NewNetLimiter(&config.RateLimitConfig{
		IPBlacklist: []string{"10.0.0.0/8"},
	}, newTestLogger())
	require.NotNil(t, l)
	defer l.Shutdown()

	allowed, code, msg := l.CheckHTTP("10.1.2.3:555")
	assert.False(t, allowed)
	assert.Equal(t, 403, code)
	assert.Equal(t, string(ReasonBlacklisted), msg)

	allowed, _, _ = l.CheckHTTP("192.168.1.1:555")
	assert.True(t, allowed)
}

func TestNetLimiter_Whitelist(t *testing.T) {
	l := NewNetLimiter(&config.RateLimitConfig{
		IPWhitelist: []string{"192.168.1.0/24", "::1"},
	}, newTestLogger())
	require.NotNil(t, l)
	defer l.Shutdown()

	allowed, _, _ := l.CheckHTTP("192.168.1.50:80")
	assert.True(t, allowed)

	allowed, _, _ = l.CheckHTTP("[::1]:80")
	assert.True(t, allowed)

	allowed, code, msg := l.CheckHTTP("8.8.8.8:80")
	assert.False(t, allowed)
	assert.Equal(t, 403, code)
	assert.Equal(t, string(ReasonNotWhitelisted), msg)
}

func TestNetLimiter_BlacklistBeatsWhitelist(t *testing.T) {
	l := NewNetLimiter(&config.RateLimitConfig{
		IPWhitelist: []string{"10.0.0.0/8"},
		IPBlacklist: []string{"10.0.0.5"},
	}, newTestLogger())
	require.NotNil(t, l)
	defer l.Shutdown()

	allowed, _, msg := l.CheckHTTP("10.0.0.5:1")
	assert.False(t, allowed)
	assert.Equal(t, string(ReasonBlacklisted), msg)
}

func TestNetLimiter_RateLimit(t *testing.T) {
	l := NewNetLimiter(&config.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 1,
		BurstSize:         2,
	}, newTestLogger())
	require.NotNil(t, l)
	defer l.Shutdown()

	// Burst of 2 passes, third is limited
	allowed, _, _ := l.CheckHTTP("1.2.3.4:10")
	assert.True(t, allowed)
	allowed, _, _ = l.CheckHTTP("1.2.3.4:10")
	assert.True(t, allowed)
	allowed, code, msg := l.CheckHTTP("1.2.3.4:10")
	assert.False(t, allowed)
	assert.Equal(t, 429, code)
	assert.Equal(t, string(ReasonRateLimited), msg)

	// A different client has its own bucket
	allowed, _, _ = l.CheckHTTP("5.6.7.8:10")
	assert.True(t, allowed)
}

func TestNetLimiter_CustomResponse(t *testing.T) {
	l := NewNetLimiter(&config.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 1,
		BurstSize:         1,
		ResponseCode:      503,
		ResponseMessage:   "slow down",
	}, newTestLogger())
	require.NotNil(t, l)
	defer l.Shutdown()

	l.CheckHTTP("1.1.1.1:1")
	allowed, code, msg := l.CheckHTTP("1.1.1.1:1")
	assert.False(t, allowed)
	assert.Equal(t, 503, code)
	assert.Equal(t, "slow down", msg)
}

func TestNetLimiter_InvalidIP(t *testing.T) {
	l := NewNetLimiter(&config.RateLimitConfig{
		IPBlacklist: []string{"10.0.0.1"},
	}, newTestLogger())
	require.NotNil(t, l)
	defer l.Shutdown()

	allowed, code, _ := l.CheckHTTP("not-an-address:80")
	assert.False(t, allowed)
	assert.Equal(t, 403, code)

	stats := l.GetStats()
	assert.Equal(t, uint64(1), stats["blocked_by_invalid"])
}
