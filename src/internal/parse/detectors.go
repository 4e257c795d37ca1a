// FILE: logtrace/src/internal/parse/detectors.go
package parse

import (
	"net"
	"regexp"
	"strings"
)

// Prefix tokens, anchored at line start. Each extractor consumes its match
// so later extractors never re-claim the same text.
var (
	timestampPrefixRe = regexp.MustCompile(`^\[?(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(?:\.\d{1,6})?)\]?\s*`)
	requestIDPrefixRe = regexp.MustCompile(`^\[([0-9a-fA-F]{8})\]\s*`)
	requestIDBlankRe  = regexp.MustCompile(`^\[-+\]\s*`)
	levelBracketRe    = regexp.MustCompile(`(?i)^\[(trace|debug|info|warning|warn|error|fatal)\]\s*`)
	levelBareRe       = regexp.MustCompile(`(?i)^(trace|debug|info|warning|warn|error|fatal)\b:?\s+`)
	sourcePrefixRe    = regexp.MustCompile(`^\[([^\[\]\s]+)\]\s*`)
)

// Segment tokens, matched against one trimmed pipe-delimited segment.
var (
	ginTimestampRe    = regexp.MustCompile(`^\[GIN\]\s*(\d{4}/\d{2}/\d{2})\s*-\s*(\d{2}:\d{2}:\d{2}(?:\.\d{1,6})?)$`)
	requestIDSegRe    = regexp.MustCompile(`^\[?([0-9a-fA-F]{8})\]?$`)
	requestIDSegDashRe = regexp.MustCompile(`^\[?-+\]?$`)
	statusSegRe       = regexp.MustCompile(`^(\d{3})$`)
	latencyRe         = regexp.MustCompile(`^\d+(?:\.\d+)?(?:ns|µs|us|ms|s|m|h)(?:\d+(?:\.\d+)?(?:ns|µs|us|ms|s|m|h))*$`)
	methodPathRe      = regexp.MustCompile(`^(GET|POST|PUT|DELETE|PATCH|HEAD|OPTIONS|CONNECT|TRACE)\s+(\S+)`)
	sourceSegRe       = regexp.MustCompile(`^\[([^\[\]]+)\]$`)
)

// Contextual status-code scan for bodies without pipe structure,
// tried in order, first in-range hit wins.
var statusBattery = []*regexp.Regexp{
	regexp.MustCompile(`\|\s*(\d{3})\s*\|`),
	regexp.MustCompile(`(?:GET|POST|PUT|DELETE|PATCH|HEAD|OPTIONS|CONNECT|TRACE)\s+\S+\s+(\d{3})\b`),
	regexp.MustCompile(`(?i)\bstatus\s*[:=]\s*"?(\d{3})\b`),
	regexp.MustCompile(`\b(\d{3})\s+(?:OK|Created|Accepted|No Content|Moved Permanently|Found|Not Modified|Bad Request|Unauthorized|Forbidden|Not Found|Method Not Allowed|Conflict|Too Many Requests|Internal Server Error|Not Implemented|Bad Gateway|Service Unavailable|Gateway Timeout)\b`),
}

// Free-standing scans for bodies without pipe structure.
var (
	latencyScanRe    = regexp.MustCompile(`\b\d+(?:\.\d+)?(?:ns|µs|us|ms|s|m|h)(?:\d+(?:\.\d+)?(?:ns|µs|us|ms|s|m|h))*\b`)
	methodPathScanRe = regexp.MustCompile(`\b(GET|POST|PUT|DELETE|PATCH|HEAD|OPTIONS|CONNECT|TRACE)\s+(\S+)`)
	ipv4ScanRe       = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
)

// timeOfDayRe matches bare clock strings that must never be taken for
// IPv6 literals.
var timeOfDayRe = regexp.MustCompile(`^\d{1,2}:\d{2}:\d{2}(?:\.\d+)?$`)

// validStatus bounds extracted status codes to the HTTP range.
func validStatus(code int) bool {
	return code >= 100 && code <= 599
}

// isIPLiteral reports whether s is an IPv4 or IPv6 address literal.
func isIPLiteral(s string) bool {
	if strings.Count(s, ".") == 3 && !strings.Contains(s, ":") {
		return net.ParseIP(s) != nil
	}
	return isIPv6Literal(s)
}

// isIPv6Literal requires either a compression marker or a full 8 hextets,
// and rejects time-of-day strings that the hextet pattern would otherwise
// accept.
func isIPv6Literal(s string) bool {
	if !strings.Contains(s, ":") {
		return false
	}
	if timeOfDayRe.MatchString(s) {
		return false
	}
	if !strings.Contains(s, "::") && strings.Count(s, ":") != 7 {
		return false
	}
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() == nil
}

// normalizeLevel lowercases a level token and folds aliases onto the
// canonical set.
func normalizeLevel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return "warn"
	}
	return s
}

// normalizeTimestamp folds GIN-style date separators onto the dashed form
// so timestamps from different loggers can be compared.
func normalizeTimestamp(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "T", " ")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, " - ", " ")
	return s
}

// timestampsConsistent compares two timestamps after second-level
// truncation.
func timestampsConsistent(a, b string) bool {
	an, bn := normalizeTimestamp(a), normalizeTimestamp(b)
	if len(an) > 19 {
		an = an[:19]
	}
	if len(bn) > 19 {
		bn = bn[:19]
	}
	return an != "" && an == bn
}
