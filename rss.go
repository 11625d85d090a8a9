package reviewpress

import (
	"encoding/xml"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/reviewpress/reviewpress/store"
)

const feedItems = 20

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Language    string    `xml:"language"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Category    string `xml:"category,omitempty"`
	Author      string `xml:"author,omitempty"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

func (a *App) buildFeed(posts []store.Post) rssXML {
	if len(posts) > feedItems {
		posts = posts[:feedItems]
	}
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		link := a.Config.PostURL(p)
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        link,
			Description: p.Summary,
			Category:    p.Category,
			Author:      p.Author,
			PubDate:     p.CreatedAt.UTC().Format(time.RFC1123Z),
			GUID:        link,
		})
	}
	return rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        BuildURL(a.Config.URL),
			Description: a.Config.Description,
			Language:    "ko",
			Items:       items,
		},
	}
}

func (a *App) renderRSS(c echo.Context, posts []store.Post) error {
	return renderXML(c, "application/rss+xml; charset=utf-8", a.buildFeed(posts))
}
