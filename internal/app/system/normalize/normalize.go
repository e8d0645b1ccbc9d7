// internal/app/system/normalize/normalize.go
//
// Package normalize provides canonical forms for user-supplied strings so
// comparisons and index lookups behave consistently.
package normalize

import "strings"

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EmailDomain returns the lowercased domain part of an email address, or
// "" when the address has no @.
func EmailDomain(email string) string {
	e := Email(email)
	at := strings.LastIndexByte(e, '@')
	if at < 0 || at == len(e)-1 {
		return ""
	}
	return e[at+1:]
}

// Name trims a display name, preserving case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Institution trims an institution name, preserving case.
func Institution(s string) string {
	return strings.TrimSpace(s)
}

// Status lowercases and trims a status value.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Role lowercases and trims a role value.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a query parameter, preserving case.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// Tags trims each tag, lowercases it, and drops empties and duplicates
// while preserving first-seen order.
func Tags(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
