package util

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// multiSpacePattern matches runs of whitespace, including newlines.
var multiSpacePattern = regexp.MustCompile(`\s+`)

// CleanText strips markup and entities from CMS text and collapses whitespace.
// Content editors paste from rich-text sources, so titles and descriptions may carry tags.
func CleanText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	// Escaped closing tags and slashes show up in JSON exported from the CMS.
	s = strings.ReplaceAll(s, `<\/`, `</`)
	s = strings.ReplaceAll(s, `\/`, `/`)

	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			s = doc.Text()
		}
	}

	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = multiSpacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CleanURL fixes escaped URLs (https:\/\/ -> https://) and trims whitespace.
func CleanURL(link string) string {
	link = strings.ReplaceAll(link, `\/`, `/`)
	return strings.TrimSpace(link)
}

// NeedsCleaning reports whether s still carries markup, escapes or stray whitespace.
func NeedsCleaning(s string) bool {
	if s == "" {
		return false
	}
	return strings.Contains(s, "<") ||
		strings.Contains(s, `\/`) ||
		strings.Contains(s, "&amp;") ||
		strings.Contains(s, "&nbsp;") ||
		strings.Contains(s, "  ") ||
		strings.ContainsAny(s, "\n\t") ||
		s != strings.TrimSpace(s)
}
