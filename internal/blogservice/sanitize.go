package blogservice

import (
	"regexp"
	"strings"
)

var (
	scriptTagPattern = regexp.MustCompile(`(?is)<\s*script[^>]*>(.*?)<\s*/\s*script\s*>`)
	htmlTagPattern   = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// sanitizeHTML strips script tags from stored rich-text content.
func sanitizeHTML(content string) string {
	return scriptTagPattern.ReplaceAllString(content, "")
}

const excerptLength = 150

// deriveExcerpt produces a plain-text summary from the HTML content, cut at a
// word boundary.
func deriveExcerpt(content string) string {
	text := htmlTagPattern.ReplaceAllString(content, " ")
	text = strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))

	if len(text) <= excerptLength {
		return text
	}

	cut := text[:excerptLength]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}

	return cut + "…"
}
