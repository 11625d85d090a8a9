package reviewpress

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/reviewpress/reviewpress/store"
	"github.com/reviewpress/reviewpress/views"
)

const (
	postsLoadError = "게시물을 불러오는 중 오류가 발생했습니다."
	relatedLimit   = 3
)

func (a *App) page(title, description, path string) views.Page {
	site := a.Config.View()
	if title == "" {
		title = site.Name
	} else {
		title += " | " + site.Name
	}
	if description == "" {
		description = site.Description
	}
	return views.Page{
		Site: site,
		Meta: views.PageMeta{
			Title:       title,
			Description: description,
			URL:         BuildURL(site.URL, path),
			OGType:      "website",
		},
	}
}

// handleHome shows the newest post as hero and the rest below it. A store
// failure is rendered as a message on an otherwise empty page.
func (a *App) handleHome(c echo.Context) error {
	data := views.HomePage{Page: a.page("", "", "")}
	data.JSONLD = template.JS(views.WebsiteJsonLD(data.Site))

	posts, err := a.Posts.ListPublished(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("home: list posts: %v", err)
		data.Error = postsLoadError
		return Render(c, a.Views.Home(data))
	}
	if len(posts) > 0 {
		data.Hero = &posts[0]
		data.Posts = posts[1:]
	}
	return Render(c, a.Views.Home(data))
}

func (a *App) handlePosts(c echo.Context) error {
	search := strings.TrimSpace(c.QueryParam("search"))
	category := strings.TrimSpace(c.QueryParam("category"))

	title := "전체 게시물"
	if store.IsCategory(category) {
		title = views.CategoryLabel(category) + " 리뷰"
	} else {
		category = ""
	}
	data := views.PostsPage{
		Page:   a.page(title, "", "posts"),
		Search: search,
	}
	data.Category = category

	posts, err := a.Posts.ListPublished(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("posts: list posts: %v", err)
		data.Error = postsLoadError
		return Render(c, a.Views.Posts(data))
	}
	data.Posts = FilterPosts(posts, search, category)
	return Render(c, a.Views.Posts(data))
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.Config.View()))
	}
	post, err := a.Posts.GetPublished(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.Config.View()))
	}
	if err != nil {
		return fmt.Errorf("get post %d: %w", id, err)
	}

	data := views.PostPage{
		Page: a.page(post.Title, post.Summary, post.Link()),
		Post: post,
	}
	data.Meta.OGType = "article"
	data.Meta.Image = post.ImageURL
	data.Category = post.Category

	// Related posts are optional; the page renders without them.
	if posts, err := a.Posts.ListPublished(ctx); err == nil {
		data.Related = views.RelatedPosts(post, posts, relatedLimit)
	} else {
		c.Logger().Warnf("post %d: related posts: %v", id, err)
	}
	return Render(c, a.Views.Post(data))
}

func (a *App) handleAbout(c echo.Context) error {
	return Render(c, a.Views.About(a.Config.View()))
}

func (a *App) handlePrivacy(c echo.Context) error {
	return Render(c, a.Views.Privacy(a.Config.View()))
}

func (a *App) handleTerms(c echo.Context) error {
	return Render(c, a.Views.Terms(a.Config.View()))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Posts.ListPublished(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Posts.ListPublished(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleHealth(c echo.Context) error {
	body := healthBody{Status: "ok", Store: a.Config.Store.Driver, Cache: "off"}
	switch {
	case a.redis != nil:
		body.Cache = "redis"
	case a.Config.Cache.TTL() > 0:
		body.Cache = "memory"
	}
	return c.JSON(http.StatusOK, body)
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(filepath.Join(a.Config.StaticDir, "favicon.ico"))
}

func (a *App) handleRobots(c echo.Context) error {
	body := "User-agent: *\nAllow: /\nDisallow: /functions/\n\nSitemap: " + BuildURL(a.Config.URL, "sitemap.xml") + "\n"
	return c.String(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	// Functions answer in JSON; pages answer in HTML.
	if strings.HasPrefix(c.Request().URL.Path, functionsPrefix) {
		a.Echo.DefaultHTTPErrorHandler(err, c)
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.Config.View()))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError(a.Config.View()))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
