// Package normalize canonicalizes user-supplied identifiers and short text.
package normalize

import "strings"

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses inner runs to one space.
// Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Username trims a display handle. Case is preserved; inner spaces collapse.
func Username(s string) string {
	return Name(s)
}

// Role lowercases and trims a role value.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Text trims surrounding whitespace from free text, keeping inner newlines.
func Text(s string) string {
	return strings.TrimSpace(s)
}
