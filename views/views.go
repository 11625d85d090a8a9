// Package views renders the site's pages. Page bodies are html/template
// files embedded in the binary and exposed as templ components, so handlers
// render every page the same way.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/a-h/templ"
)

//go:embed templates/*.html pages/*.md
var files embed.FS

var funcs = template.FuncMap{
	"date":          FormatDate,
	"categoryLabel": CategoryLabel,
	"categories":    CategoryOptions,
	"content":       Content,
	"year":          func() int { return time.Now().Year() },
}

var pages = func() map[string]*template.Template {
	base := template.Must(template.New("").Funcs(funcs).ParseFS(files, "templates/layout.html"))
	out := make(map[string]*template.Template)
	for _, name := range []string{"home", "posts", "post", "static", "error"} {
		t := template.Must(template.Must(base.Clone()).ParseFS(files, "templates/"+name+".html"))
		out[name] = t.Lookup("layout.html")
	}
	return out
}()

func render(name string, data any) templ.Component {
	return templ.FromGoHTML(pages[name], data)
}

// Home renders the landing page.
func Home(p HomePage) templ.Component {
	return render("home", p)
}

// Posts renders the post list.
func Posts(p PostsPage) templ.Component {
	return render("posts", p)
}

// Post renders a single post.
func Post(p PostPage) templ.Component {
	if p.JSONLD == "" {
		p.JSONLD = template.JS(BlogPostingJsonLD(p.Site, p.Post))
	}
	return render("post", p)
}

// About renders the about page.
func About(site SiteConfig) templ.Component {
	return staticPage(site, "about", "블로그 소개", "골프공 리뷰, 장비, 팁 등 골프 애호가를 위한 블로그 소개")
}

// Privacy renders the privacy policy.
func Privacy(site SiteConfig) templ.Component {
	return staticPage(site, "privacy", "개인정보처리방침", site.Name+" 개인정보처리방침")
}

// Terms renders the terms of service.
func Terms(site SiteConfig) templ.Component {
	return staticPage(site, "terms", "이용약관", site.Name+" 이용약관")
}

func staticPage(site SiteConfig, name, heading, description string) templ.Component {
	md, err := files.ReadFile("pages/" + name + ".md")
	if err != nil {
		return templ.ComponentFunc(func(_ context.Context, _ io.Writer) error {
			return fmt.Errorf("static page %s: %w", name, err)
		})
	}
	return render("static", StaticPage{
		Page: Page{
			Site: site,
			Meta: PageMeta{
				Title:       heading + " | " + site.Name,
				Description: description,
				URL:         buildURL(site.URL, name),
				OGType:      "website",
			},
		},
		Heading: heading,
		Body:    template.HTML(renderMarkdown(string(md))),
	})
}

// NotFound renders the 404 page.
func NotFound(site SiteConfig) templ.Component {
	return errorPage(site, http.StatusNotFound, "페이지를 찾을 수 없습니다",
		"요청하신 페이지가 존재하지 않거나, 주소가 잘못 입력되었습니다.")
}

// ServerError renders the 5xx page.
func ServerError(site SiteConfig) templ.Component {
	return errorPage(site, http.StatusInternalServerError, "일시적인 오류가 발생했습니다",
		"잠시 후 다시 시도해 주세요.")
}

func errorPage(site SiteConfig, code int, heading, message string) templ.Component {
	return render("error", ErrorPage{
		Page: Page{
			Site: site,
			Meta: PageMeta{
				Title:   heading + " | " + site.Name,
				OGType:  "website",
				NoIndex: true,
			},
		},
		Code:    code,
		Heading: heading,
		Message: message,
	})
}
