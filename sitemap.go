package reviewpress

import (
	"encoding/xml"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/reviewpress/reviewpress/store"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod,omitempty"`
	ChangeFreq string  `xml:"changefreq,omitempty"`
	Priority   float64 `xml:"priority,omitempty"`
}

// buildSitemap lists the fixed pages and one entry per published post.
func (a *App) buildSitemap(posts []store.Post) sitemapURLSet {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: BuildURL(base), ChangeFreq: "daily", Priority: 1},
		{Loc: BuildURL(base, "posts"), ChangeFreq: "daily", Priority: 0.9},
		{Loc: BuildURL(base, "about"), ChangeFreq: "monthly", Priority: 0.5},
		{Loc: BuildURL(base, "privacy"), ChangeFreq: "yearly", Priority: 0.3},
		{Loc: BuildURL(base, "terms"), ChangeFreq: "yearly", Priority: 0.3},
	}
	if len(posts) > 0 {
		urls[0].LastMod = posts[0].CreatedAt.UTC().Format(time.RFC3339)
	}
	for _, p := range posts {
		urls = append(urls, sitemapURL{
			Loc:        a.Config.PostURL(p),
			LastMod:    p.CreatedAt.UTC().Format(time.RFC3339),
			ChangeFreq: "weekly",
			Priority:   0.8,
		})
	}
	return sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
}

func (a *App) renderSitemap(c echo.Context, posts []store.Post) error {
	return renderXML(c, "application/xml; charset=utf-8", a.buildSitemap(posts))
}
