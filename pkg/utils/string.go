package utils

import "unicode/utf8"

// Truncate shortens s to at most maxLen bytes and appends an ellipsis when it
// was cut. The cut never splits a multi-byte character.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 0 {
		maxLen = 0
	}

	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// MaskSecret keeps the first visible characters of a secret so it can be
// identified in output without being disclosed.
func MaskSecret(secret string, visible int) string {
	if secret == "" {
		return ""
	}
	if visible <= 0 || len(secret) <= visible*2 {
		return "****"
	}
	return secret[:visible] + "..."
}
