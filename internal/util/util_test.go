package util

import (
	"reflect"
	"testing"
)

func TestTrimQuotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no quotes", "hello", "hello"},
		{"double quoted", `"hello"`, "hello"},
		{"single quotes only", "'hello'", "'hello'"},
		{"quotes in middle", `he"llo`, `he"llo`},
		{"only quotes", `""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TrimQuotes(tt.input)
			if result != tt.expected {
				t.Errorf("TrimQuotes(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFixEscapeQuotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no escaped quotes", "hello", "hello"},
		{"single escaped quote", `he""llo`, `he"llo`},
		{"multiple escaped quotes", `a""b""c`, `a"b"c`},
		{"consecutive escaped", `a""""b`, `a""b`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FixEscapeQuotes(tt.input)
			if result != tt.expected {
				t.Errorf("FixEscapeQuotes(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestUnwrapArg(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"quoted arg", `"12.5,45.1"`, "12.5,45.1"},
		{"quoted with escapes", `"say ""hi"""`, `say "hi"`},
		{"bare arg", "90", "90"},
		{"bare json keeps empty strings", `[{"id":"","message":""}]`, `[{"id":"","message":""}]`},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := UnwrapArg(tt.input)
			if result != tt.expected {
				t.Errorf("UnwrapArg(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSanitizeArgs(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"empty slice", []string{}, []string{}},
		{"plain args", []string{"a", "b"}, []string{"a", "b"}},
		{"quoted args", []string{`"12.5,45.1"`, `"90"`}, []string{"12.5,45.1", "90"}},
		{"escaped quotes", []string{`"say ""hi"""`}, []string{`say "hi"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeArgs(tt.input)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("SanitizeArgs = %v, want %v", result, tt.expected)
			}
		})
	}
}
