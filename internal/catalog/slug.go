package catalog

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Slugify derives a URL-stable identifier from an award name: runs of
// non-alphanumeric characters become a single hyphen, outer hyphens are
// trimmed, and the result is lower-cased. An empty result falls back to
// "award".
func Slugify(value string) string {
	s := nonAlnum.ReplaceAllString(strings.TrimSpace(value), "-")
	s = strings.ToLower(strings.Trim(s, "-"))
	if s == "" {
		return "award"
	}
	return s
}
