package core

import (
	"strings"
	"time"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// NowFunc returns the current time; mockable in tests.
var NowFunc = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// Today returns the current date (UTC).
func Today() Date {
	return NewDate(NowFunc())
}

// ContainsString reports whether s is in list.
func ContainsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
