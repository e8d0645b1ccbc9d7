// internal/app/system/slug/slug.go
//
// Package slug derives URL-safe identifiers from hackathon titles.
package slug

import (
	"fmt"
	"strings"
)

// Make lowercases s, converts runs of characters outside [a-z0-9] to
// single hyphens, and trims leading/trailing hyphens. The result matches
// the slug pattern enforced by the hackathons collection validator.
func Make(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			prevHyphen = false
			continue
		}
		if !prevHyphen {
			b.WriteByte('-')
			prevHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// WithSuffix appends a numeric suffix for collision retries: ("spring", 2)
// yields "spring-2". n < 2 returns the base unchanged.
func WithSuffix(base string, n int) string {
	if n < 2 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}
