package types

import "unicode/utf8"

// TruncateBytes caps s at max bytes, backing up so the cut never lands
// inside a multi-byte UTF-8 rune. Persisted rows and prompt bullets stay
// valid UTF-8 even when the cap falls mid-character.
func TruncateBytes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
