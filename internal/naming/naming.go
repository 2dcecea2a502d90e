// Package naming converts attribute names between the snake_case used by
// records and the camelCase many remote APIs expect.
package naming

import (
	"regexp"
	"strings"
)

var (
	wordBoundary = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	lowerToUpper = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// Converter rewrites one attribute name.
type Converter func(string) string

// SnakeCase converts "firstName" and "FirstName" to "first_name".
func SnakeCase(s string) string {
	s = wordBoundary.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(lowerToUpper.ReplaceAllString(s, "${1}_${2}"))
}

// CamelCase converts "first_name" to "firstName". Runs of underscores
// collapse, except leading ones which are kept.
func CamelCase(s string) string {
	if s == "" {
		return ""
	}
	parts := strings.Split(s, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			b.WriteByte('_')
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(strings.ToLower(p[1:]))
	}
	out := b.String()
	if out == "" {
		return ""
	}
	return strings.ToLower(out[:1]) + out[1:]
}

// Identity leaves names unchanged.
func Identity(s string) string { return s }
