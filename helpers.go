package reviewpress

import (
	"net/url"
	"path"

	"github.com/reviewpress/reviewpress/store"
	"github.com/reviewpress/reviewpress/views"
)

// BuildURL joins a base URL with path segments.
func BuildURL(base string, pathSegments ...string) string {
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

// PostURL returns the canonical URL of p under the site URL.
func (c SiteConfig) PostURL(p store.Post) string {
	return views.PostURL(c.URL, p)
}
