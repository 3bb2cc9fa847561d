// Package correlator implements the Alert Correlator (SPEC_FULL.md
// §4.5): given a new alert, decide whether it joins an existing
// incident or founds a new one.
package correlator

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	timestampRe  = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:?\d{2})?\b`)
	uuidRe       = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)
	ipv4Re       = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	longHexRe    = regexp.MustCompile(`(?i)\b[0-9a-f]{12,}\b`)
	base64Re     = regexp.MustCompile(`\b[A-Za-z0-9+/]{20,}={0,2}\b`)
)

// TitleFingerprint strips volatile tokens — timestamps, UUIDs, IPs,
// long hex strings, and base64 blobs — from an alert title, collapses
// whitespace, and lowercases the result, so that "API 5xx spike at
// 2026-07-30T10:00:00Z (req abc123...)" and the same alert firing a
// minute later with a different timestamp/request id fingerprint
// identically.
func TitleFingerprint(title string) string {
	s := title
	s = timestampRe.ReplaceAllString(s, "")
	s = uuidRe.ReplaceAllString(s, "")
	s = base64Re.ReplaceAllString(s, "")
	s = longHexRe.ReplaceAllString(s, "")
	s = ipv4Re.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}
