package ingest

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/reviewpress/reviewpress/store"
)

// SummaryFallbackLen is how many characters of body text become the summary
// when the model did not supply one.
const SummaryFallbackLen = 200

// Trailer labels the model is asked to append after the article body.
var trailerLabels = []string{"title", "summary", "tags", "category"}

var (
	reTrailerLabel = regexp.MustCompile(`(?i)<strong>\s*(?:title|summary|tags|category)\s*</strong>\s*:`)
	// reTrailerEnd finds where a trailer value stops.
	reTrailerEnd = regexp.MustCompile(`(?i)<strong|<br\s*/?>|</p>|\n`)
	reEmptyWrap  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<p(?:\s[^>]*)?>(?:\s|&nbsp;|<br\s*/?>)*</p>`),
		regexp.MustCompile(`(?i)<li(?:\s[^>]*)?>(?:\s|&nbsp;|<br\s*/?>)*</li>`),
		regexp.MustCompile(`(?i)<div(?:\s[^>]*)?>(?:\s|&nbsp;|<br\s*/?>)*</div>`),
	}
	reTrailingMarkup = regexp.MustCompile(`(?i)(?:\s|<br\s*/?>|<hr\s*/?>)+$`)
	reTrailer     = func() map[string]*regexp.Regexp {
		m := make(map[string]*regexp.Regexp, len(trailerLabels))
		for _, label := range trailerLabels {
			m[label] = regexp.MustCompile(`(?im)<strong>\s*` + label + `\s*</strong>\s*:\s*(.+?)\s*(?:<strong>|<br\s*/?>|</p>|$)`)
		}
		return m
	}()
	reHeading   = regexp.MustCompile(`(?is)<h2[^>]*>(.*?)</h2>`)
	reTag       = regexp.MustCompile(`<[^>]*>`)
	reEmptyHTML = regexp.MustCompile(`(?i)^(?:\s|<p>|</p>|<br\s*/?>|<hr\s*/?>)*$`)
)

// Article is a generated post body with its metadata pulled out.
type Article struct {
	Title    string
	Summary  string
	Tags     string
	Category string
	Content  string
}

// ParseArticle extracts the trailer metadata from a model answer and returns
// the body with the trailer lines removed. Missing fields fall back: title to
// the first <h2> and then to "<product> 리뷰", summary to the leading text of
// the body, category to the requested category.
func ParseArticle(raw, productName, category string) Article {
	raw = stripCodeFence(raw)
	content := stripTrailer(raw)

	a := Article{
		Title:    trailerValue(raw, "title"),
		Summary:  trailerValue(raw, "summary"),
		Tags:     trailerValue(raw, "tags"),
		Category: normalizeCategory(trailerValue(raw, "category")),
		Content:  content,
	}
	if a.Title == "" {
		if m := reHeading.FindStringSubmatch(content); m != nil {
			a.Title = strings.TrimSpace(StripTags(m[1]))
		}
	}
	if a.Title == "" {
		a.Title = strings.TrimSpace(productName + " 리뷰")
	}
	if a.Summary == "" {
		a.Summary = truncateRunes(strings.TrimSpace(StripTags(content)), SummaryFallbackLen)
	}
	if a.Category == "" {
		a.Category = category
	}
	return a
}

func trailerValue(raw, label string) string {
	m := reTrailer[label].FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(StripTags(m[1]))
}

// stripTrailer cuts each `<strong>label</strong>: value` segment out of raw
// and removes the wrappers and separators those cuts leave empty. Body text
// sharing a line with the trailer is kept.
func stripTrailer(raw string) string {
	var b strings.Builder
	rest := raw
	for {
		loc := reTrailerLabel.FindStringIndex(rest)
		if loc == nil {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:loc[0]])
		rest = rest[loc[1]:]
		end := reTrailerEnd.FindStringIndex(rest)
		switch {
		case end == nil:
			rest = ""
		case strings.HasPrefix(strings.ToLower(rest[end[0]:end[1]]), "<br"):
			rest = rest[end[1]:]
		default:
			rest = rest[end[0]:]
		}
	}

	content := b.String()
	for _, re := range reEmptyWrap {
		content = re.ReplaceAllString(content, "")
	}
	lines := strings.Split(content, "\n")
	for len(lines) > 0 && reEmptyHTML.MatchString(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	content = strings.Join(lines, "\n")
	return strings.TrimSpace(reTrailingMarkup.ReplaceAllString(content, ""))
}

var categoryAliases = []struct{ alias, category string }{
	{"비거리", store.CategoryDistance},
	{"타구감", store.CategoryFeel},
	{"디자인", store.CategoryDesign},
}

// normalizeCategory lowercases the model's category and reduces answers
// such as "Feel" or "타구감(feel)" to the reader category they name.
func normalizeCategory(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" || store.IsCategory(v) {
		return v
	}
	for _, c := range store.Categories {
		if strings.Contains(v, c) {
			return c
		}
	}
	for _, a := range categoryAliases {
		if strings.Contains(v, a.alias) {
			return a.category
		}
	}
	return v
}

// StripTags removes anything that looks like an HTML tag.
func StripTags(s string) string {
	return reTag.ReplaceAllString(s, "")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// stripCodeFence unwraps an answer the model put inside ``` fences.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// drop the language tag line (```html, ```json)
		if !strings.ContainsAny(body[:nl], "<{") {
			body = body[nl+1:]
		}
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}
