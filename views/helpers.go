package views

import (
	"encoding/json"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/reviewpress/reviewpress/store"
)

var categoryLabels = map[string]string{
	store.CategoryDistance: "비거리",
	store.CategoryFeel:     "타구감",
	store.CategoryDesign:   "디자인",
}

// buildURL joins path segments onto a base URL.
func buildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// PostURL is the canonical address of p under base.
func PostURL(base string, p store.Post) string {
	return buildURL(base, "posts", strconv.FormatInt(p.ID, 10))
}

// CategoryLabel returns the reader-facing name of a category, or "전체" for none.
func CategoryLabel(category string) string {
	if l, ok := categoryLabels[category]; ok {
		return l
	}
	if category == "" {
		return "전체"
	}
	return category
}

// CategoryOptions lists the category menu, "all" first.
func CategoryOptions() []CategoryOption {
	opts := []CategoryOption{{Value: "", Label: CategoryLabel("")}}
	for _, c := range store.Categories {
		opts = append(opts, CategoryOption{Value: c, Label: CategoryLabel(c)})
	}
	return opts
}

// FormatDate renders a post date as 2006.01.02, or nothing for a zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006.01.02")
}

// RelatedPosts returns up to limit other posts in the same category as current.
func RelatedPosts(current store.Post, posts []store.Post, limit int) []store.Post {
	var related []store.Post
	for _, p := range posts {
		if p.ID == current.ID || current.Category == "" {
			continue
		}
		if strings.EqualFold(p.Category, current.Category) {
			related = append(related, p)
			if len(related) == limit {
				break
			}
		}
	}
	return related
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block using cfg values.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      buildURL(cfg.URL),
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	if cfg.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// BlogPostingJsonLD produces a Schema.org BlogPosting JSON-LD block for a post.
func BlogPostingJsonLD(cfg SiteConfig, post store.Post) string {
	postURL := PostURL(cfg.URL, post)
	data := map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "BlogPosting",
		"headline":    post.Title,
		"description": post.Summary,
		"url":         postURL,
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if !post.CreatedAt.IsZero() {
		data["datePublished"] = post.CreatedAt.UTC().Format(time.RFC3339)
	}
	if post.ImageURL != "" {
		data["image"] = post.ImageURL
	}
	author := post.Author
	if author == "" {
		author = cfg.Author
	}
	if author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  author,
		}
	}
	if tags := post.TagList(); len(tags) > 0 {
		data["keywords"] = strings.Join(tags, ", ")
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
