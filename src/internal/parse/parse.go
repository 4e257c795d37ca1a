// FILE: logtrace/src/internal/parse/parse.go
package parse

import (
	"strconv"
	"strings"

	"logtrace/src/internal/core"
)

// Parse converts one raw log line into a structured record. It never fails:
// any segment that matches no detector is preserved verbatim in Message, and
// a line with no recognizable structure yields only Raw and Message.
func Parse(raw string) core.ParsedLine {
	p := core.ParsedLine{Raw: raw}

	rest := strings.TrimSpace(raw)
	if rest == "" {
		return p
	}

	for _, ex := range prefixPipeline {
		rest = ex.extract(&p, rest)
	}

	if strings.Contains(rest, "|") {
		rest = parsePipedBody(&p, rest)
	} else {
		parsePlainBody(&p, rest)
	}

	if p.Level == "" {
		p.Level = inferLevel(raw)
	}

	// A residual that is purely the request log's own GIN timestamp carries
	// no content once the record timestamp is known.
	if isRedundantGinTimestamp(rest, p.Timestamp) {
		rest = ""
	}

	p.Message = strings.TrimSpace(rest)
	return p
}

// prefixExtractor consumes one structured token from the start of the
// working line.
type prefixExtractor struct {
	name    string
	extract func(p *core.ParsedLine, rest string) string
}

// prefixPipeline fixes the priority order of prefix extraction. Each step
// removes its matched prefix so later steps never re-match claimed text.
var prefixPipeline = []prefixExtractor{
	{"timestamp", extractTimestampPrefix},
	{"request_id", extractRequestIDPrefix},
	{"level", extractLevelPrefix},
	{"source", extractSourcePrefix},
}

func extractTimestampPrefix(p *core.ParsedLine, rest string) string {
	m := timestampPrefixRe.FindStringSubmatch(rest)
	if m == nil {
		return rest
	}
	p.Timestamp = m[1]
	return rest[len(m[0]):]
}

func extractRequestIDPrefix(p *core.ParsedLine, rest string) string {
	if m := requestIDPrefixRe.FindStringSubmatch(rest); m != nil {
		p.RequestID = strings.ToLower(m[1])
		return rest[len(m[0]):]
	}
	// All-dash placeholder marks "no request id"; consume and discard.
	if m := requestIDBlankRe.FindString(rest); m != "" {
		return rest[len(m):]
	}
	return rest
}

func extractLevelPrefix(p *core.ParsedLine, rest string) string {
	if m := levelBracketRe.FindStringSubmatch(rest); m != nil {
		p.Level = normalizeLevel(m[1])
		return rest[len(m[0]):]
	}
	if m := levelBareRe.FindStringSubmatch(rest); m != nil {
		p.Level = normalizeLevel(m[1])
		return rest[len(m[0]):]
	}
	return rest
}

func extractSourcePrefix(p *core.ParsedLine, rest string) string {
	m := sourcePrefixRe.FindStringSubmatch(rest)
	if m == nil || m[1] == "GIN" {
		// [GIN] is a logger marker, not an origin tag; the GIN timestamp
		// detector owns it.
		return rest
	}
	p.Source = m[1]
	return rest[len(m[0]):]
}

// segmentDetector classifies one pipe-delimited segment. A detector claims
// at most one segment per line; the first matching segment wins.
type segmentDetector struct {
	name  string
	claim func(p *core.ParsedLine, seg string) bool
}

var segmentDetectors = []segmentDetector{
	{"gin_timestamp", claimGinTimestamp},
	{"request_id", claimRequestID},
	{"status_code", claimStatusCode},
	{"latency", claimLatency},
	{"ip", claimIP},
	{"method_path", claimMethodPath},
	{"source", claimSource},
}

// parsePipedBody splits the body on '|', classifies each segment against the
// detector battery, and rejoins whatever no detector claimed.
func parsePipedBody(p *core.ParsedLine, body string) string {
	segments := strings.Split(body, "|")
	for i := range segments {
		segments[i] = strings.TrimSpace(segments[i])
	}

	claimed := make([]bool, len(segments))
	for _, det := range segmentDetectors {
		for i, seg := range segments {
			if claimed[i] || seg == "" {
				continue
			}
			if det.claim(p, seg) {
				claimed[i] = true
				break
			}
		}
	}

	var leftover []string
	for i, seg := range segments {
		if !claimed[i] && seg != "" {
			leftover = append(leftover, seg)
		}
	}
	return strings.Join(leftover, " | ")
}

func claimGinTimestamp(p *core.ParsedLine, seg string) bool {
	m := ginTimestampRe.FindStringSubmatch(seg)
	if m == nil {
		return false
	}
	ts := m[1] + " " + m[2]
	if p.Timestamp == "" {
		p.Timestamp = ts
		return true
	}
	// Redundant copy of an already-known timestamp is metadata, not content.
	return timestampsConsistent(p.Timestamp, ts)
}

func claimRequestID(p *core.ParsedLine, seg string) bool {
	if requestIDSegDashRe.MatchString(seg) {
		return true
	}
	if p.RequestID != "" {
		return false
	}
	m := requestIDSegRe.FindStringSubmatch(seg)
	if m == nil {
		return false
	}
	p.RequestID = strings.ToLower(m[1])
	return true
}

func claimStatusCode(p *core.ParsedLine, seg string) bool {
	if p.StatusCode != 0 {
		return false
	}
	m := statusSegRe.FindStringSubmatch(seg)
	if m == nil {
		return false
	}
	code, _ := strconv.Atoi(m[1])
	if !validStatus(code) {
		return false
	}
	p.StatusCode = code
	return true
}

func claimLatency(p *core.ParsedLine, seg string) bool {
	if p.Latency != "" || !latencyRe.MatchString(seg) {
		return false
	}
	p.Latency = seg
	return true
}

func claimIP(p *core.ParsedLine, seg string) bool {
	if p.IP != "" || !isIPLiteral(seg) {
		return false
	}
	p.IP = seg
	return true
}

func claimMethodPath(p *core.ParsedLine, seg string) bool {
	if p.Method != "" {
		return false
	}
	m := methodPathRe.FindStringSubmatch(seg)
	if m == nil {
		return false
	}
	p.Method = m[1]
	p.Path = m[2]
	return true
}

func claimSource(p *core.ParsedLine, seg string) bool {
	if p.Source != "" {
		return false
	}
	m := sourceSegRe.FindStringSubmatch(seg)
	if m == nil || m[1] == "GIN" {
		return false
	}
	p.Source = m[1]
	return true
}

// parsePlainBody scans a body without pipe structure. Matches here are
// independently optional and non-exclusive, so nothing is consumed; the
// body stays in Message as-is.
func parsePlainBody(p *core.ParsedLine, body string) {
	if p.StatusCode == 0 {
		for _, re := range statusBattery {
			m := re.FindStringSubmatch(body)
			if m == nil {
				continue
			}
			code, _ := strconv.Atoi(m[1])
			if validStatus(code) {
				p.StatusCode = code
				break
			}
		}
	}

	if p.Latency == "" {
		if m := latencyScanRe.FindString(body); m != "" {
			p.Latency = m
		}
	}

	if p.IP == "" {
		if m := ipv4ScanRe.FindString(body); m != "" && isIPLiteral(m) {
			p.IP = m
		} else {
			for _, tok := range strings.Fields(body) {
				if isIPv6Literal(tok) {
					p.IP = tok
					break
				}
			}
		}
	}

	if p.Method == "" {
		if m := methodPathScanRe.FindStringSubmatch(body); m != nil {
			p.Method = m[1]
			p.Path = m[2]
		}
	}
}

// levelKeywords orders inference from most to least severe; the first
// keyword found in the raw line wins.
var levelKeywords = []struct {
	keyword string
	level   string
}{
	{"fatal", "fatal"},
	{"error", "error"},
	{"warning", "warn"},
	{"warn", "warn"},
	{"警告", "warn"},
	{"info", "info"},
	{"debug", "debug"},
	{"trace", "trace"},
}

// inferLevel scans the original raw line for level keywords when no
// explicit level token was found.
func inferLevel(raw string) string {
	lower := strings.ToLower(raw)
	for _, kw := range levelKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.level
		}
	}
	return ""
}

// isRedundantGinTimestamp reports whether the residual message is exactly a
// GIN-style timestamp consistent with the record's extracted timestamp.
func isRedundantGinTimestamp(rest, timestamp string) bool {
	if timestamp == "" {
		return false
	}
	m := ginTimestampRe.FindStringSubmatch(strings.TrimSpace(rest))
	if m == nil {
		return false
	}
	return timestampsConsistent(timestamp, m[1]+" "+m[2])
}
