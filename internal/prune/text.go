// Package prune shortens free text for log lines.
package prune

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultMarker   = "..."
	DefaultMaxBytes = 120
)

// Preview flattens s onto one line and cuts it to at most maxBytes bytes on a
// rune boundary, appending DefaultMarker when anything was dropped.
func Preview(s string, maxBytes int) string {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxBytes {
		return s
	}
	return safeUTF8Prefix(s, maxBytes) + DefaultMarker
}

func safeUTF8Prefix(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) == 0 {
		return ""
	}
	if maxBytes >= len(s) {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
