// Package util provides common utility functions used across the engine.
package util

import "strings"

// TrimQuotes removes one wrapping pair of double quotes from a string.
// Interior quotes, including doubled escapes at the end of the value, are
// left for FixEscapeQuotes.
func TrimQuotes(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// UnwrapArg undoes transport quoting on a single argument. Quote-wrapped
// args are unwrapped and their doubled interior quotes collapsed; bare args
// (JSON bodies dispatched directly) pass through untouched.
func UnwrapArg(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return FixEscapeQuotes(TrimQuotes(s))
	}
	return s
}

// SanitizeArgs trims quoting artifacts from every element of a raw
// argument list in place and returns it. Bridge transports double-quote
// string arguments and escape embedded quotes by doubling.
func SanitizeArgs(data []string) []string {
	for i, v := range data {
		data[i] = FixEscapeQuotes(TrimQuotes(v))
	}
	return data
}
