package reviewpress

import (
	"strings"

	"github.com/reviewpress/reviewpress/store"
)

// FilterPosts narrows posts to titles containing search (case-insensitive)
// and, when category is one of the reader categories, to that category.
// Any other category value leaves the list unfiltered.
func FilterPosts(posts []store.Post, search, category string) []store.Post {
	search = strings.ToLower(strings.TrimSpace(search))
	category = strings.TrimSpace(category)
	byCategory := store.IsCategory(category)
	if search == "" && !byCategory {
		return posts
	}
	filtered := make([]store.Post, 0, len(posts))
	for _, p := range posts {
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) {
			continue
		}
		if byCategory && p.Category != category {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}
