package utils

import "unicode/utf8"

// TruncateStr shortens s to at most maxLen runes, appending "..." when it cut
// anything. Multi-byte characters are never split.
func TruncateStr(s string, maxLen int) string {
	if maxLen < 0 {
		maxLen = 0
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
