package utils

import (
	"strings"
	"unicode"
)

// ContainsString checks if a string slice contains a specific string.
func ContainsString(slice []string, item string) bool {
	for _, a := range slice {
		if a == item {
			return true
		}
	}
	return false
}

// RemoveString returns a new slice without any occurrence of item.
func RemoveString(slice []string, item string) []string {
	out := make([]string, 0, len(slice))
	for _, a := range slice {
		if a != item {
			out = append(out, a)
		}
	}
	return out
}

// Truncate returns the first n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// StripLabelPrefix drops the leading emoji or numbering word of a display
// name ("🛡️ VPN" -> "VPN", "1. Setup" -> "Setup"). Names without a space are
// returned unchanged.
func StripLabelPrefix(name string) string {
	_, rest, found := strings.Cut(name, " ")
	if !found {
		return strings.TrimSpace(name)
	}
	return strings.TrimSpace(rest)
}

// IsBlank reports whether s has no visible characters.
func IsBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
