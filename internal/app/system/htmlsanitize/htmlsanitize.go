// internal/app/system/htmlsanitize/htmlsanitize.go
//
// Package htmlsanitize cleans user-authored rich text (hackathon
// descriptions, team notes, judge feedback) before storage or display.
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = buildPolicy()

func buildPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowTables()
	p.AllowImages()
	p.AllowLists()
	p.AllowElements("u", "s", "sub", "sup", "mark")
	p.AllowAttrs("class", "style").OnElements("table", "thead", "tbody", "tfoot", "tr", "th", "td")
	p.AllowAttrs("colspan", "rowspan").OnElements("th", "td")
	return p
}

// Sanitize removes dangerous markup from an HTML fragment, keeping the
// formatting elements allowed by the policy.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return policy.Sanitize(s)
}

// SanitizeToHTML sanitizes and returns the result as template.HTML for
// direct use in templates.
func SanitizeToHTML(s string) template.HTML {
	return template.HTML(Sanitize(s))
}

// IsPlainText reports whether s looks like plain text rather than HTML.
// The check is a heuristic: a string is HTML only if it contains both
// angle brackets.
func IsPlainText(s string) bool {
	return !(strings.Contains(s, "<") && strings.Contains(s, ">"))
}

// PlainTextToHTML escapes plain text and converts newlines to <br>,
// wrapping the result in a paragraph.
func PlainTextToHTML(s string) string {
	if s == "" {
		return ""
	}
	escaped := html.EscapeString(s)
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return "<p>" + escaped + "</p>"
}

// PrepareForDisplay converts stored content to safe HTML: plain text is
// escaped and paragraph-wrapped, HTML is sanitized.
func PrepareForDisplay(s string) template.HTML {
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return template.HTML(PlainTextToHTML(s))
	}
	return SanitizeToHTML(s)
}
