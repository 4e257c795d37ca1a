// FILE: logtrace/src/internal/usage/store_test.go
package usage

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logtrace/src/internal/core"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

// stubFetcher counts upstream calls and can be switched to failing mode.
type stubFetcher struct {
	usageCalls atomic.Uint64
	credCalls  atomic.Uint64
	fail       atomic.Bool
	delay      time.Duration
}

func (f *stubFetcher) FetchUsage() ([]core.UsageDetail, error) {
	f.usageCalls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail.Load() {
		return nil, errors.New("gateway unreachable")
	}
	return []core.UsageDetail{{TimestampMS: 1700000000000, Model: "gpt-4o"}}, nil
}

func (f *stubFetcher) FetchCredentials() (map[string]core.CredentialInfo, error) {
	f.credCalls.Add(1)
	if f.fail.Load() {
		return nil, errors.New("gateway unreachable")
	}
	return map[string]core.CredentialInfo{"1": {Name: "a.json", Type: "gemini"}}, nil
}

func TestStore_CachesWithinTTL(t *testing.T) {
	fetcher := &stubFetcher{}
	store := NewStore(fetcher, time.Minute, time.Minute, newTestLogger())

	for i := 0; i < 5; i++ {
		details, err := store.UsageDetails()
		require.NoError(t, err)
		require.Len(t, details, 1)
	}

	assert.Equal(t, uint64(1), fetcher.usageCalls.Load())
}

func TestStore_RefreshesAfterInvalidate(t *testing.T) {
	fetcher := &stubFetcher{}
	store := NewStore(fetcher, time.Minute, time.Minute, newTestLogger())

	_, err := store.UsageDetails()
	require.NoError(t, err)

	store.Invalidate()

	_, err = store.UsageDetails()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), fetcher.usageCalls.Load())
}

func TestStore_CollapsesConcurrentRefreshes(t *testing.T) {
	fetcher := &stubFetcher{delay: 50 * time.Millisecond}
	store := NewStore(fetcher, time.Minute, time.Minute, newTestLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.UsageDetails()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(1), fetcher.usageCalls.Load())
}

func TestStore_ServesStaleOnRefreshFailure(t *testing.T) {
	fetcher := &stubFetcher{}
	store := NewStore(fetcher, time.Minute, time.Minute, newTestLogger())

	first, err := store.UsageDetails()
	require.NoError(t, err)

	fetcher.fail.Store(true)
	store.Invalidate()

	second, err := store.UsageDetails()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStore_ErrorWithoutCache(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.fail.Store(true)
	store := NewStore(fetcher, time.Minute, time.Minute, newTestLogger())

	_, err := store.UsageDetails()
	assert.Error(t, err)

	_, err = store.Credentials()
	assert.Error(t, err)
}

func TestStore_CredentialsCached(t *testing.T) {
	fetcher := &stubFetcher{}
	store := NewStore(fetcher, time.Minute, time.Minute, newTestLogger())

	for i := 0; i < 3; i++ {
		creds, err := store.Credentials()
		require.NoError(t, err)
		assert.Equal(t, "a.json", creds["1"].Name)
	}
	assert.Equal(t, uint64(1), fetcher.credCalls.Load())
}

func TestIndexKey(t *testing.T) {
	testCases := []struct {
		name     string
		in       any
		expected string
	}{
		{"String", "gemini-3", "gemini-3"},
		{"PaddedString", "  7 ", "7"},
		{"Float", float64(3), "3"},
		{"Nil", nil, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, indexKey(tc.in))
		})
	}
}
