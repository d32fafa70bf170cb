// pkg/redact/redact.go

package redact

import "strings"

// Value returns a string of asterisks of the same length as the input.
// Use for masking secrets in logs and reports (not cryptographically secure).
func Value(s string) string {
	if s == "" {
		return "(empty)"
	}
	return strings.Repeat("*", len([]rune(s)))
}

// Preview shows the first few characters of a value followed by a mask,
// enough to recognize a value without revealing it. Values shorter than
// eight characters are fully masked.
func Preview(s string) string {
	if len(s) < 8 {
		return Value(s)
	}
	return s[:3] + strings.Repeat("*", len(s)-3)
}
