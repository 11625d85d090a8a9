package ingest

import (
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Prompt categories understood by the generator.
const (
	CategoryGolf    = "golf"
	CategoryTech    = "tech"
	CategoryGeneral = "general"
)

var categoryKeywords = []struct {
	category string
	words    []string
}{
	{CategoryGolf, []string{"golf", "ball", "distance", "feel", "design", "골프"}},
	{CategoryTech, []string{"tech", "phone", "laptop", "camera", "keyboard"}},
}

// ProductNameFromPath derives a display name from an image path: the file
// name without extension, with dashes and underscores turned into spaces.
// Paths committed from macOS arrive decomposed, so the result is NFC.
func ProductNameFromPath(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	return strings.TrimSpace(norm.NFC.String(base))
}

// CategoryFromPath guesses a prompt category from keywords in the path.
func CategoryFromPath(p string) string {
	lower := strings.ToLower(norm.NFC.String(p))
	for _, kw := range categoryKeywords {
		for _, w := range kw.words {
			if strings.Contains(lower, w) {
				return kw.category
			}
		}
	}
	return CategoryGeneral
}

// SanitizeImageURL drops the stray leading "@" some clients prepend.
func SanitizeImageURL(u string) string {
	return strings.TrimPrefix(strings.TrimSpace(u), "@")
}

// ResolveImageURL turns a repository path into a fetchable URL using base.
// Absolute URLs are returned unchanged apart from sanitizing.
func ResolveImageURL(base, p string) string {
	p = SanitizeImageURL(p)
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") || base == "" {
		return p
	}
	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(norm.NFC.String(s))
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}
