// Package sanitize provides text sanitization utilities.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	// htmlTagRegex matches HTML tags
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// StripHTML removes all HTML tags from a string, making it safe for
// text-only display or storage.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, " ")
	// Decode common HTML entities
	result = strings.ReplaceAll(result, "&lt;", "<")
	result = strings.ReplaceAll(result, "&gt;", ">")
	result = strings.ReplaceAll(result, "&amp;", "&")
	result = strings.ReplaceAll(result, "&quot;", "\"")
	result = strings.ReplaceAll(result, "&#39;", "'")
	// Re-strip after entity decode to catch encoded tags
	result = htmlTagRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// PlainText derives a plain-text projection from an inbound message: the
// text part when present, otherwise the HTML part with tags stripped and
// whitespace collapsed.
func PlainText(text, html string) string {
	if strings.TrimSpace(text) != "" {
		return text
	}
	if html == "" {
		return ""
	}
	return whitespaceRegex.ReplaceAllString(StripHTML(html), " ")
}
