package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// Hash computes a SHA-256 hex hash of a string for deduplication.
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Truncate shortens s to at most maxLen runes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen < 0 {
		maxLen = 0
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}

// FirstLine returns the first line of s without its line ending, with "..."
// appended when more lines follow.
func FirstLine(s string) string {
	line, rest, found := strings.Cut(s, "\n")
	line = strings.TrimSuffix(line, "\r")
	if found && strings.TrimSpace(rest) != "" {
		return line + "..."
	}
	return line
}

// LineCount counts lines the way an editor shows them: an empty string has
// none and a trailing newline does not start a new line.
func LineCount(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
