// FILE: logtrace/src/internal/usage/store.go
package usage

import (
	"sync"
	"sync/atomic"
	"time"

	"logtrace/src/internal/core"

	"github.com/lixenwraith/log"
	"golang.org/x/sync/singleflight"
)

// Fetcher retrieves the raw usage snapshot and credential table.
// Client is the production implementation.
type Fetcher interface {
	FetchUsage() ([]core.UsageDetail, error)
	FetchCredentials() (map[string]core.CredentialInfo, error)
}

// Store caches gateway snapshots behind a short TTL and collapses
// concurrent refreshes of the same resource into a single upstream call.
type Store struct {
	fetcher  Fetcher
	usageTTL time.Duration
	credTTL  time.Duration
	logger   *log.Logger

	group singleflight.Group

	mu       sync.RWMutex
	usage    []core.UsageDetail
	usageAt  time.Time
	creds    map[string]core.CredentialInfo
	credsAt  time.Time

	// Statistics
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64
	fetchErrors atomic.Uint64
}

// NewStore creates a snapshot store. Non-positive TTLs fall back to the
// defaults (15s usage, 60s credentials).
func NewStore(fetcher Fetcher, usageTTL, credTTL time.Duration, logger *log.Logger) *Store {
	if usageTTL <= 0 {
		usageTTL = 15 * time.Second
	}
	if credTTL <= 0 {
		credTTL = 60 * time.Second
	}
	return &Store{
		fetcher:  fetcher,
		usageTTL: usageTTL,
		credTTL:  credTTL,
		logger:   logger,
	}
}

// UsageDetails returns the cached usage snapshot, refreshing it when the
// TTL has lapsed. A failed refresh falls back to the stale snapshot when
// one exists.
func (s *Store) UsageDetails() ([]core.UsageDetail, error) {
	s.mu.RLock()
	cached, fresh := s.usage, time.Since(s.usageAt) < s.usageTTL
	hasCache := s.usage != nil
	s.mu.RUnlock()

	if fresh {
		s.cacheHits.Add(1)
		return cached, nil
	}
	s.cacheMisses.Add(1)

	v, err, _ := s.group.Do("usage", func() (any, error) {
		details, err := s.fetcher.FetchUsage()
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.usage = details
		s.usageAt = time.Now()
		s.mu.Unlock()
		return details, nil
	})
	if err != nil {
		s.fetchErrors.Add(1)
		if hasCache {
			s.logger.Warn("msg", "Usage refresh failed, serving stale snapshot",
				"component", "usage_store",
				"error", err)
			return cached, nil
		}
		return nil, err
	}
	return v.([]core.UsageDetail), nil
}

// Credentials returns the cached credential table, refreshing on TTL lapse
// with the same stale-fallback behavior as UsageDetails.
func (s *Store) Credentials() (map[string]core.CredentialInfo, error) {
	s.mu.RLock()
	cached, fresh := s.creds, time.Since(s.credsAt) < s.credTTL
	hasCache := s.creds != nil
	s.mu.RUnlock()

	if fresh {
		s.cacheHits.Add(1)
		return cached, nil
	}
	s.cacheMisses.Add(1)

	v, err, _ := s.group.Do("credentials", func() (any, error) {
		creds, err := s.fetcher.FetchCredentials()
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.creds = creds
		s.credsAt = time.Now()
		s.mu.Unlock()
		return creds, nil
	})
	if err != nil {
		s.fetchErrors.Add(1)
		if hasCache {
			s.logger.Warn("msg", "Credential refresh failed, serving stale table",
				"component", "usage_store",
				"error", err)
			return cached, nil
		}
		return nil, err
	}
	return v.(map[string]core.CredentialInfo), nil
}

// Invalidate drops both caches; the next read refreshes.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.usageAt = time.Time{}
	s.credsAt = time.Time{}
	s.mu.Unlock()
}

// GetStats returns store statistics.
func (s *Store) GetStats() map[string]any {
	s.mu.RLock()
	usageAge := time.Since(s.usageAt)
	credAge := time.Since(s.credsAt)
	usageCount := len(s.usage)
	credCount := len(s.creds)
	s.mu.RUnlock()

	return map[string]any{
		"cache_hits":        s.cacheHits.Load(),
		"cache_misses":      s.cacheMisses.Load(),
		"fetch_errors":      s.fetchErrors.Load(),
		"usage_details":     usageCount,
		"usage_age_seconds": int(usageAge.Seconds()),
		"credentials":       credCount,
		"cred_age_seconds":  int(credAge.Seconds()),
	}
}
