// FILE: logtrace/src/internal/limit/throttle.go
package limit

import (
	"sync/atomic"

	"logtrace/src/internal/config"

	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"
)

// Throttle bounds pipeline throughput in entries per second. Unlike
// NetLimiter it has no notion of peers; it protects the store and sinks
// from a runaway source.
type Throttle struct {
	limiter *rate.Limiter
	logger  *log.Logger

	// Statistics
	allowed atomic.Uint64
	denied  atomic.Uint64
}

// NewThrottle creates a pipeline throttle. Returns nil when throttling
// is not configured; a nil throttle allows everything.
func NewThrottle(cfg *config.RateLimitConfig, logger *log.Logger) *Throttle {
	if cfg == nil || !cfg.Enabled || cfg.RequestsPerSecond <= 0 {
		return nil
	}

	burst := cfg.BurstSize
	if burst < 1 {
		burst = 1
	}

	logger.Info("msg", "Pipeline throttle initialized",
		"component", "throttle",
		"entries_per_second", cfg.RequestsPerSecond,
		"burst_size", burst)

	return &Throttle{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		logger:  logger,
	}
}

// Allow reports whether one more entry may pass. Nil-safe.
func (t *Throttle) Allow() bool {
	if t == nil {
		return true
	}
	if t.limiter.Allow() {
		t.allowed.Add(1)
		return true
	}
	t.denied.Add(1)
	return false
}

func (t *Throttle) GetStats() map[string]any {
	if t == nil {
		return nil
	}
	return map[string]any{
		"allowed": t.allowed.Load(),
		"denied":  t.denied.Load(),
	}
}
