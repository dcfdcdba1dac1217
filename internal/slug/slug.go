// Package slug derives task identifiers and display titles from free text.
package slug

import (
	"regexp"
	"strings"
)

// Fallback is used when derivation leaves nothing behind.
const Fallback = "task"

var (
	disallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespace = regexp.MustCompile(`\s+`)
	hyphens    = regexp.MustCompile(`-+`)
)

// Identity is a slug together with its human title.
type Identity struct {
	Slug  string
	Title string
}

// Derive normalizes text into a slug and title. It never fails.
func Derive(text string) Identity {
	s := Normalize(text)
	return Identity{Slug: s, Title: TitleFromSlug(s)}
}

// Normalize lowercases text and reduces it to hyphen-separated [a-z0-9] tokens.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = disallowed.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(strings.TrimSpace(s), "-")
	s = hyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return Fallback
	}
	return s
}

// TitleFromSlug title-cases each hyphen-separated token of a slug.
func TitleFromSlug(s string) string {
	var words []string
	for _, part := range strings.Split(s, "-") {
		if part == "" {
			continue
		}
		words = append(words, strings.ToUpper(part[:1])+part[1:])
	}
	if len(words) == 0 {
		return "Task"
	}
	return strings.Join(words, " ")
}
