// FILE: logtrace/src/internal/sink/sink_test.go
package sink

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"logtrace/src/internal/config"
	"logtrace/src/internal/core"
	"logtrace/src/internal/format"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

// syncBuffer guards a bytes.Buffer so the test can poll while the
// sink goroutine writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition not met before deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestFactory(t *testing.T) {
	logger := newTestLogger()

	t.Run("unknown type", func(t *testing.T) {
		_, err := New(config.SinkConfig{Type: "kafka"}, logger)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown sink type")
	})

	t.Run("stdout", func(t *testing.T) {
		s, err := New(config.SinkConfig{
			Type:   "stdout",
			Format: config.FormatConfig{Format: "raw"},
		}, logger)
		require.NoError(t, err)
		assert.Equal(t, "stdout", s.GetStats().Type)
	})

	t.Run("stderr", func(t *testing.T) {
		s, err := New(config.SinkConfig{
			Type:   "stderr",
			Format: config.FormatConfig{Format: "raw"},
		}, logger)
		require.NoError(t, err)
		assert.Equal(t, "stderr", s.GetStats().Type)
	})

	t.Run("invalid format rejected", func(t *testing.T) {
		_, err := New(config.SinkConfig{
			Type:   "stdout",
			Format: config.FormatConfig{Format: "yaml"},
		}, logger)
		assert.Error(t, err)
	})
}

func TestConsoleSinkWritesFormattedRecords(t *testing.T) {
	logger := newTestLogger()
	formatter, err := format.NewRawFormatter(logger)
	require.NoError(t, err)

	out := &syncBuffer{}
	s := newConsoleSink(map[string]any{}, "stdout", out, logger, formatter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	s.Input() <- core.ParsedLine{Raw: "hello sink", Message: "hello sink"}

	waitFor(t, func() bool {
		return strings.Contains(out.String(), "hello sink")
	})
	assert.Equal(t, uint64(1), s.GetStats().TotalProcessed)
}

func TestConsoleSinkSplitMode(t *testing.T) {
	logger := newTestLogger()
	formatter, err := format.NewRawFormatter(logger)
	require.NoError(t, err)

	t.Run("stdout drops severe levels", func(t *testing.T) {
		out := &syncBuffer{}
		s := newConsoleSink(map[string]any{"target": "split"}, "stdout", out, logger, formatter)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		require.NoError(t, s.Start(ctx))
		defer s.Stop()

		s.Input() <- core.ParsedLine{Level: "error", Raw: "boom"}
		s.Input() <- core.ParsedLine{Level: "info", Raw: "fine"}

		waitFor(t, func() bool {
			return strings.Contains(out.String(), "fine")
		})
		assert.NotContains(t, out.String(), "boom")
	})

	t.Run("stderr keeps only severe levels", func(t *testing.T) {
		out := &syncBuffer{}
		s := newConsoleSink(map[string]any{"target": "split"}, "stderr", out, logger, formatter)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		require.NoError(t, s.Start(ctx))
		defer s.Stop()

		s.Input() <- core.ParsedLine{Level: "info", Raw: "fine"}
		s.Input() <- core.ParsedLine{Level: "warn", Raw: "uh oh"}

		waitFor(t, func() bool {
			return strings.Contains(out.String(), "uh oh")
		})
		assert.NotContains(t, out.String(), "fine")
	})
}

func TestWantsLevel(t *testing.T) {
	tests := []struct {
		sinkType string
		level    string
		want     bool
	}{
		{"stdout", "info", true},
		{"stdout", "DEBUG", true},
		{"stdout", "error", false},
		{"stdout", "WARNING", false},
		{"stderr", "error", true},
		{"stderr", "warn", true},
		{"stderr", "fatal", true},
		{"stderr", "info", false},
		{"stderr", "", false},
	}

	for _, tt := range tests {
		s := &consoleSink{sinkType: tt.sinkType}
		assert.Equal(t, tt.want, s.wantsLevel(tt.level),
			"%s sink, level %q", tt.sinkType, tt.level)
	}
}
