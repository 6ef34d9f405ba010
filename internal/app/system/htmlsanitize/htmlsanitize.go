// Package htmlsanitize cleans user-supplied profile text before it is stored.
//
// Bio accepts light formatting (the UGC policy); every other free-text field
// is reduced to plain text.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// Sanitize removes dangerous markup and keeps safe formatting.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return ugcPolicy.Sanitize(s)
}

// IsPlainText reports whether s contains no tag-like markup.
func IsPlainText(s string) bool {
	return !(strings.Contains(s, "<") && strings.Contains(s, ">"))
}

// Bio prepares a profile bio for storage. Plain text is kept verbatim;
// anything with markup goes through Sanitize.
func Bio(s string) string {
	s = strings.TrimSpace(s)
	if IsPlainText(s) {
		return s
	}
	return Sanitize(s)
}

// PlainText strips all markup and returns unescaped text.
func PlainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || IsPlainText(s) {
		return s
	}
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}
