// FILE: logtrace/src/internal/limit/throttle_test.go
package limit

import (
	"testing"

	"logtrace/src/internal/config"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewThrottle_NilWhenUnconfigured(t *testing.T) {
	logger := log.NewLogger()

	assert.Nil(t, NewThrottle(nil, logger))
	assert.Nil(t, NewThrottle(&config.RateLimitConfig{Enabled: false, RequestsPerSecond: 100}, logger))
	assert.Nil(t, NewThrottle(&config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0}, logger))
}

func TestThrottle_NilAllowsEverything(t *testing.T) {
	var th *Throttle
	for i := 0; i < 100; i++ {
		assert.True(t, th.Allow())
	}
	assert.Nil(t, th.GetStats())
}

func TestThrottle_DeniesBeyondBurst(t *testing.T) {
	// 1 entry/sec with burst 5: first 5 pass, sixth is denied
	th := NewThrottle(&config.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 1,
		BurstSize:         5,
	}, log.NewLogger())
	require.NotNil(t, th)

	passed := 0
	for i := 0; i < 6; i++ {
		if th.Allow() {
			passed++
		}
	}
	assert.Equal(t, 5, passed)

	stats := th.GetStats()
	assert.Equal(t, uint64(5), stats["allowed"])
	assert.Equal(t, uint64(1), stats["denied"])
}

func TestThrottle_DefaultBurst(t *testing.T) {
	th := NewThrottle(&config.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
	}, log.NewLogger())
	require.NotNil(t, th)

	// Burst clamps to 1: exactly one entry passes immediately
	assert.True(t, th.Allow())
	assert.False(t, th.Allow())
}
