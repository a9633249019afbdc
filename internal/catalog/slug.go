package catalog

import (
	"regexp"
	"strings"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	edgeDashes   = regexp.MustCompile(`^-+|-+$`)
)

// Slugify lowercases name and collapses every run of characters outside
// [a-z0-9] into a single dash.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	return edgeDashes.ReplaceAllString(slug, "")
}
