// FILE: logtrace/src/internal/trace/trace.go
package trace

import (
	"sort"
	"strings"
	"time"

	"logtrace/src/internal/core"
)

// Policy holds the tuned windows and weights of the weighted multi-signal
// scorer. The numbers are operational policy, not invariants; they are
// loaded from the [trace] config table and default to DefaultPolicy.
type Policy struct {
	// Time proximity windows.
	StrongWindow time.Duration
	WideWindow   time.Duration
	MaxWindow    time.Duration

	// Signal weights. Penalties are negative.
	StrongBonus   int
	WideBonus     int
	MaxBonus      int
	BeyondPenalty int

	MethodBonus   int
	MethodPenalty int

	PathExactBonus  int
	PathPrefixBonus int

	OutcomeBonus   int
	OutcomePenalty int

	// Confidence tier thresholds.
	HighThreshold   int
	MediumThreshold int

	// Result list bound.
	MaxCandidates int
}

// DefaultPolicy returns the shipped scoring policy.
func DefaultPolicy() Policy {
	return Policy{
		StrongWindow:    3 * time.Second,
		WideWindow:      10 * time.Second,
		MaxWindow:       30 * time.Second,
		StrongBonus:     40,
		WideBonus:       25,
		MaxBonus:        10,
		BeyondPenalty:   -15,
		MethodBonus:     15,
		MethodPenalty:   -20,
		PathExactBonus:  20,
		PathPrefixBonus: 10,
		OutcomeBonus:    10,
		OutcomePenalty:  -10,
		HighThreshold:   70,
		MediumThreshold: 40,
		MaxCandidates:   8,
	}
}

// Resolver ranks usage details against one parsed request log line.
// It is pure: identical inputs always yield identical output.
type Resolver struct {
	policy Policy
}

// New creates a resolver with the given policy. Zero window or candidate
// bounds fall back to the defaults.
func New(policy Policy) *Resolver {
	def := DefaultPolicy()
	if policy.MaxWindow <= 0 {
		policy.MaxWindow = def.MaxWindow
	}
	if policy.StrongWindow <= 0 {
		policy.StrongWindow = def.StrongWindow
	}
	if policy.WideWindow <= 0 {
		policy.WideWindow = def.WideWindow
	}
	if policy.MaxCandidates <= 0 {
		policy.MaxCandidates = def.MaxCandidates
	}
	return &Resolver{policy: policy}
}

// traceablePaths is the fixed allow-list of request paths for which
// correlation with usage telemetry is attempted.
var traceablePaths = map[string]bool{
	"/v1/chat/completions": true,
	"/v1/completions":      true,
	"/v1/messages":         true,
	"/v1/responses":        true,
	"/v1/embeddings":       true,
}

// traceablePrefix admits the versioned model-endpoint family,
// e.g. /v1beta/models/gemini-pro:generateContent.
const traceablePrefix = "/v1beta/models/"

// IsTraceableRequestPath reports whether resolution should be attempted for
// the given request path. Callers must check this gate before Resolve.
func IsTraceableRequestPath(path string) bool {
	p := normalizePath(path)
	if p == "" {
		return false
	}
	return traceablePaths[p] || strings.HasPrefix(p, traceablePrefix)
}

// Resolve scores every usage detail against the selected line and returns
// ranked candidates, best first. An empty result is a valid outcome, never
// an error.
func (r *Resolver) Resolve(line core.ParsedLine, details []core.UsageDetail) []core.TraceCandidate {
	lineTime, hasLineTime := parseLineTime(line.Timestamp)

	var candidates []core.TraceCandidate
	for _, d := range details {
		var delta *int64
		if hasLineTime && d.TimestampMS > 0 {
			ms := lineTime.UnixMilli() - d.TimestampMS
			if ms < 0 {
				ms = -ms
			}
			v := ms
			delta = &v
		}

		score, corroborated := r.score(line, d, delta)

		// Time-only evidence beyond the max window is noise.
		if delta != nil && *delta > r.policy.MaxWindow.Milliseconds() && !corroborated {
			continue
		}
		if score <= 0 {
			continue
		}

		candidates = append(candidates, core.TraceCandidate{
			Detail:      d,
			Score:       score,
			Confidence:  r.tier(score),
			TimeDeltaMS: delta,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		di, dj := candidates[i].TimeDeltaMS, candidates[j].TimeDeltaMS
		switch {
		case di != nil && dj != nil && *di != *dj:
			return *di < *dj
		case di != nil && dj == nil:
			return true
		case di == nil && dj != nil:
			return false
		}
		return candidates[i].Detail.TimestampMS > candidates[j].Detail.TimestampMS
	})

	if len(candidates) > r.policy.MaxCandidates {
		candidates = candidates[:r.policy.MaxCandidates]
	}
	return candidates
}

// Enrich attaches credential display names to candidates from a lookup
// table keyed by normalized auth index. Lookup never affects ranking.
func (r *Resolver) Enrich(candidates []core.TraceCandidate, creds map[string]core.CredentialInfo) {
	if len(creds) == 0 {
		return
	}
	for i := range candidates {
		key := strings.TrimSpace(candidates[i].Detail.AuthIndex)
		if info, ok := creds[key]; ok {
			candidates[i].SourceName = info.Name
			candidates[i].SourceType = info.Type
		}
	}
}

// score sums the weighted signal agreements for one detail. The second
// return reports whether any method or path signal corroborates the pairing.
func (r *Resolver) score(line core.ParsedLine, d core.UsageDetail, delta *int64) (int, bool) {
	score := 0
	corroborated := false

	if delta != nil {
		switch ms := *delta; {
		case ms <= r.policy.StrongWindow.Milliseconds():
			score += r.policy.StrongBonus
		case ms <= r.policy.WideWindow.Milliseconds():
			score += r.policy.WideBonus
		case ms <= r.policy.MaxWindow.Milliseconds():
			score += r.policy.MaxBonus
		default:
			score += r.policy.BeyondPenalty
		}
	}

	if line.Method != "" && d.Method != "" {
		if strings.EqualFold(line.Method, d.Method) {
			score += r.policy.MethodBonus
			corroborated = true
		} else {
			score += r.policy.MethodPenalty
		}
	}

	lp, dp := normalizePath(line.Path), normalizePath(d.Path)
	if lp != "" && dp != "" {
		switch {
		case lp == dp:
			score += r.policy.PathExactBonus
			corroborated = true
		case strings.HasPrefix(lp, dp) || strings.HasPrefix(dp, lp):
			score += r.policy.PathPrefixBonus
			corroborated = true
		}
	}

	if failed, known := line.Failed(); known {
		if failed == d.Failed {
			score += r.policy.OutcomeBonus
		} else {
			score += r.policy.OutcomePenalty
		}
	}

	return score, corroborated
}

func (r *Resolver) tier(score int) core.Confidence {
	switch {
	case score >= r.policy.HighThreshold:
		return core.ConfidenceHigh
	case score >= r.policy.MediumThreshold:
		return core.ConfidenceMedium
	default:
		return core.ConfidenceLow
	}
}

// normalizePath strips the query string and any trailing slash before
// comparison.
func normalizePath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if i := strings.IndexByte(path, '#'); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")
	return path
}

// parseLineTime interprets the parser's unnormalized timestamp string.
// Logger timestamps carry no zone; local time is assumed.
func parseLineTime(ts string) (time.Time, bool) {
	if ts == "" {
		return time.Time{}, false
	}
	s := strings.ReplaceAll(ts, "/", "-")
	s = strings.ReplaceAll(s, "T", " ")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, " - ", " ")

	t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
