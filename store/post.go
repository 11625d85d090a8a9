// Package store holds the blog post type and the content store backends
// that the site reads from and the ingestion pipeline writes to.
package store

import (
	"strconv"
	"strings"
	"time"
)

// Table is the name of the posts table in every backend.
const Table = "tb_blog_posts"

// Display flag values.
const (
	DisplayYes = "Y"
	DisplayNo  = "N"
)

// Reader-facing categories. Posts may carry other values, but only these
// three are accepted as list filters.
const (
	CategoryDistance = "distance"
	CategoryFeel     = "feel"
	CategoryDesign   = "design"
)

// Categories lists the filterable categories in display order.
var Categories = []string{CategoryDistance, CategoryFeel, CategoryDesign}

// IsCategory reports whether c is one of the filterable categories.
func IsCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Post is a single row of tb_blog_posts.
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Category  string    `json:"category"`
	Tags      string    `json:"tags"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
	DisplayYN string    `json:"display_yn"`
}

// Published reports whether the post may be shown on the site.
func (p Post) Published() bool {
	return p.DisplayYN == DisplayYes
}

// Link returns the site path of the post.
func (p Post) Link() string {
	return "/posts/" + strconv.FormatInt(p.ID, 10)
}

// TagList splits the comma-separated tag string.
func (p Post) TagList() []string {
	return ParseTags(p.Tags)
}

// ParseTags splits a comma-delimited tag string into trimmed, non-empty tags.
func ParseTags(tagString string) []string {
	parts := strings.Split(tagString, ",")
	var tags []string
	for _, t := range parts {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
