package render

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday"
)

// Telegram accepts only a small HTML subset: b, i, u, s, code, pre, a.
// ToHTML renders model markdown through blackfriday and rewrites the result
// down to that subset; anything else is stripped.

var (
	replacements = []struct {
		pattern *regexp.Regexp
		with    string
	}{
		{regexp.MustCompile(`<strong>`), "<b>"},
		{regexp.MustCompile(`</strong>`), "</b>"},
		{regexp.MustCompile(`<em>`), "<i>"},
		{regexp.MustCompile(`</em>`), "</i>"},
		{regexp.MustCompile(`<del>`), "<s>"},
		{regexp.MustCompile(`</del>`), "</s>"},
		{regexp.MustCompile(`<h[1-6]>`), "<b>"},
		{regexp.MustCompile(`</h[1-6]>`), "</b>\n"},
		{regexp.MustCompile(`<p>`), ""},
		{regexp.MustCompile(`</p>`), "\n"},
		{regexp.MustCompile(`<br\s*/?>`), "\n"},
		{regexp.MustCompile(`</?[uo]l>`), ""},
		{regexp.MustCompile(`<li>`), "• "},
		{regexp.MustCompile(`</li>`), "\n"},
		{regexp.MustCompile(`</?blockquote>`), ""},
		{regexp.MustCompile(`<hr\s*/?>`), "\n"},
	}

	anyTag = regexp.MustCompile(`<[^>]+>`)

	// Keep pre/code (with optional language class) and anchors; drop the rest.
	allowedTag = regexp.MustCompile(`^</?(?:b|i|u|s|code|pre|a)(?:\s[^>]*)?>$`)
)

func ToHTML(markdown string) string {
	html := string(blackfriday.MarkdownCommon([]byte(markdown)))

	for _, r := range replacements {
		html = r.pattern.ReplaceAllString(html, r.with)
	}

	html = anyTag.ReplaceAllStringFunc(html, func(tag string) string {
		if allowedTag.MatchString(tag) {
			return tag
		}
		return ""
	})

	return strings.TrimSpace(html)
}
