package views

import (
	"html/template"

	"github.com/reviewpress/reviewpress/store"
)

// SiteConfig holds the site-wide settings every page needs.
type SiteConfig struct {
	Name        string
	URL         string
	Description string
	Author      string
	// Tagline is shown under the site name on the home and list pages.
	Tagline string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
	NoIndex     bool
}

// Page is the part every view shares.
type Page struct {
	Site   SiteConfig
	Meta   PageMeta
	JSONLD template.JS
	// Category is the active reader category, used to highlight the nav.
	Category string
}

// HomePage is the landing page: the newest post as hero and the rest as a grid.
type HomePage struct {
	Page
	Hero  *store.Post
	Posts []store.Post
	Error string
}

// PostsPage is the searchable post list.
type PostsPage struct {
	Page
	Posts  []store.Post
	Search string
	Error  string
}

// PostPage is a single post.
type PostPage struct {
	Page
	Post    store.Post
	Related []store.Post
}

// StaticPage is an about/privacy/terms page rendered from markdown.
type StaticPage struct {
	Page
	Heading string
	Body    template.HTML
}

// ErrorPage is shown for 404 and 5xx responses.
type ErrorPage struct {
	Page
	Code    int
	Heading string
	Message string
}

// CategoryOption is one entry of the category menu.
type CategoryOption struct {
	Value string
	Label string
}
