package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// ContainsString reports whether `s` is in `list`.
func ContainsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// RemoveString returns `list` without any occurrence of `s`.
func RemoveString(list []string, s string) []string {
	out := list[:0:0]
	for _, item := range list {
		if item != s {
			out = append(out, item)
		}
	}
	return out
}
