// FILE: logtrace/src/internal/parse/parse_test.go
package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logtrace/src/internal/core"
)

func TestParse_FullRequestLine(t *testing.T) {
	raw := "[2024-01-01 10:00:00] [a1b2c3d4] info [router.go:22] | 200 | 12ms | 203.0.113.5 | POST /v1/chat/completions | req ok"

	p := Parse(raw)

	assert.Equal(t, raw, p.Raw)
	assert.Equal(t, "2024-01-01 10:00:00", p.Timestamp)
	assert.Equal(t, "a1b2c3d4", p.RequestID)
	assert.Equal(t, "info", p.Level)
	assert.Equal(t, "router.go:22", p.Source)
	assert.Equal(t, 200, p.StatusCode)
	assert.Equal(t, "12ms", p.Latency)
	assert.Equal(t, "203.0.113.5", p.IP)
	assert.Equal(t, "POST", p.Method)
	assert.Equal(t, "/v1/chat/completions", p.Path)
	assert.Equal(t, "req ok", p.Message)
}

func TestParse_RawPreserved(t *testing.T) {
	lines := []string{
		"",
		"   ",
		"plain text with no structure at all",
		"[2024-01-01 10:00:00] something happened",
		"[GIN] 2024/01/01 - 10:00:05 | 500 | 1.2s | 10.0.0.1 | GET /v1/models",
	}
	for _, raw := range lines {
		assert.Equal(t, raw, Parse(raw).Raw)
	}
}

func TestParse_NoStructure(t *testing.T) {
	p := Parse("  just some text  ")

	assert.Equal(t, "just some text", p.Message)
	assert.Empty(t, p.Timestamp)
	assert.Empty(t, p.Level)
	assert.Empty(t, p.Source)
	assert.Empty(t, p.RequestID)
	assert.Zero(t, p.StatusCode)
	assert.Empty(t, p.Latency)
	assert.Empty(t, p.IP)
	assert.Empty(t, p.Method)
	assert.Empty(t, p.Path)
}

func TestParse_EmptyLine(t *testing.T) {
	p := Parse("")
	assert.Equal(t, core.ParsedLine{}, p)
}

func TestParse_LevelNormalization(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected string
	}{
		{"BareUppercaseWarning", "WARNING disk nearly full", "warn"},
		{"BareWarn", "warn disk nearly full", "warn"},
		{"BracketedWarning", "[WARNING] disk nearly full", "warn"},
		{"BracketedError", "[ERROR] connect failed", "error"},
		{"BareInfoColon", "info: started", "info"},
		{"MixedCase", "Debug starting worker", "debug"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Parse(tc.raw).Level)
		})
	}
}

func TestParse_LevelInferenceFallback(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected string
	}{
		{"ErrorBeatsWarn", "retry warned about an error in handler", "error"},
		{"FatalBeatsEverything", "fatal error during startup", "fatal"},
		{"LocalizedWarning", "上游返回异常 警告 已降级", "warn"},
		{"NoKeyword", "all systems nominal", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Parse(tc.raw).Level)
		})
	}
}

func TestParse_RequestIDPlaceholder(t *testing.T) {
	p := Parse("[2024-01-01 10:00:00] [--------] info starting up")

	assert.Empty(t, p.RequestID)
	assert.Equal(t, "info", p.Level)
	assert.Equal(t, "starting up", p.Message)
}

func TestParse_GinTimestampSegment(t *testing.T) {
	t.Run("AdoptedWhenNoEarlierTimestamp", func(t *testing.T) {
		p := Parse("[GIN] 2024/01/01 - 10:00:05 | 200 | 3.4ms | 10.0.0.1 | GET /v1/models")
		assert.Equal(t, "2024/01/01 10:00:05", p.Timestamp)
		assert.Equal(t, 200, p.StatusCode)
		assert.Equal(t, "GET", p.Method)
		assert.Equal(t, "/v1/models", p.Path)
		assert.Empty(t, p.Message)
	})

	t.Run("DiscardedWhenConsistent", func(t *testing.T) {
		p := Parse("[2024-01-01 10:00:05] info | [GIN] 2024/01/01 - 10:00:05 | 200 | done")
		assert.Equal(t, "2024-01-01 10:00:05", p.Timestamp)
		assert.Equal(t, "done", p.Message)
	})

	t.Run("KeptWhenInconsistent", func(t *testing.T) {
		p := Parse("[2024-01-01 10:00:05] info | [GIN] 2024/01/01 - 23:59:59 | 200 | done")
		assert.Equal(t, "2024-01-01 10:00:05", p.Timestamp)
		assert.Contains(t, p.Message, "[GIN] 2024/01/01 - 23:59:59")
	})
}

func TestParse_StatusCodeRange(t *testing.T) {
	t.Run("OutOfRangeSegmentRejected", func(t *testing.T) {
		p := Parse("something | 999 | else")
		assert.Zero(t, p.StatusCode)
		assert.Contains(t, p.Message, "999")
	})

	t.Run("LowerBound", func(t *testing.T) {
		assert.Equal(t, 100, Parse("x | 100 | y").StatusCode)
	})

	t.Run("UpperBound", func(t *testing.T) {
		assert.Equal(t, 599, Parse("x | 599 | y").StatusCode)
	})

	t.Run("BelowRangeRejected", func(t *testing.T) {
		assert.Zero(t, Parse("x | 099 | y").StatusCode)
	})
}

func TestParse_PlainBodyStatusBattery(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected int
	}{
		{"MethodPathCode", "GET /health 200 in 1ms", 200},
		{"StatusLabel", "upstream replied status: 502", 502},
		{"StatusEquals", "request done status=429 backing off", 429},
		{"ReasonPhrase", "got 404 Not Found from upstream", 404},
		{"NoContext", "counted 12345 rows in 200 tables", 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Parse(tc.raw).StatusCode)
		})
	}
}

func TestParse_Latency(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected string
	}{
		{"PipeSegmentMillis", "a | 12.4ms | b", "12.4ms"},
		{"PipeSegmentChained", "a | 1m2.3s | b", "1m2.3s"},
		{"PlainBody", "upstream answered in 350ms total", "350ms"},
		{"Microseconds", "a | 87µs | b", "87µs"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Parse(tc.raw).Latency)
		})
	}
}

func TestParse_IPDetection(t *testing.T) {
	t.Run("IPv4Segment", func(t *testing.T) {
		assert.Equal(t, "203.0.113.5", Parse("a | 203.0.113.5 | b").IP)
	})

	t.Run("IPv6Compressed", func(t *testing.T) {
		assert.Equal(t, "::1", Parse("a | ::1 | b").IP)
	})

	t.Run("IPv6Full", func(t *testing.T) {
		addr := "2001:0db8:0000:0000:0000:0000:0000:0001"
		assert.Equal(t, addr, Parse("a | "+addr+" | b").IP)
	})

	t.Run("TimeOfDayRejected", func(t *testing.T) {
		assert.Empty(t, Parse("12:34:56 rest").IP)
	})

	t.Run("PartialHextetsRejected", func(t *testing.T) {
		assert.Empty(t, Parse("a | 2001:db8:1 | b").IP)
	})

	t.Run("BadIPv4Rejected", func(t *testing.T) {
		assert.Empty(t, Parse("a | 999.999.999.999 | b").IP)
	})
}

func TestParse_SegmentClaimedOnce(t *testing.T) {
	// Two status-looking segments: the detector claims only the first,
	// the second stays in the message.
	p := Parse("a | 200 | 404 | b")

	assert.Equal(t, 200, p.StatusCode)
	assert.Equal(t, "a | 404 | b", p.Message)
}

func TestParse_UnclaimedSegmentsRejoined(t *testing.T) {
	p := Parse("first part | 200 | second part | third")

	assert.Equal(t, 200, p.StatusCode)
	assert.Equal(t, "first part | second part | third", p.Message)
}

func TestParse_PrefixOrdering(t *testing.T) {
	// The source tag must not be claimed before request id and level.
	p := Parse("[2024-01-01 10:00:00] [deadbeef] warn [h.go:1] all good")

	assert.Equal(t, "deadbeef", p.RequestID)
	assert.Equal(t, "warn", p.Level)
	assert.Equal(t, "h.go:1", p.Source)
	assert.Equal(t, "all good", p.Message)
}

func TestParse_PrefixPipelineOrder(t *testing.T) {
	names := make([]string, 0, len(prefixPipeline))
	for _, ex := range prefixPipeline {
		names = append(names, ex.name)
	}
	require.Equal(t, []string{"timestamp", "request_id", "level", "source"}, names)

	detNames := make([]string, 0, len(segmentDetectors))
	for _, det := range segmentDetectors {
		detNames = append(detNames, det.name)
	}
	require.Equal(t, []string{
		"gin_timestamp", "request_id", "status_code", "latency",
		"ip", "method_path", "source",
	}, detNames)
}

func TestParse_Deterministic(t *testing.T) {
	raw := "[2024-01-01 10:00:00] [a1b2c3d4] info | 200 | 12ms | GET /v1/models | fine"
	assert.Equal(t, Parse(raw), Parse(raw))
}
