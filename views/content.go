package views

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Tags kept in rendered post bodies. Anything else is unwrapped to its text.
var allowedTags = map[atom.Atom]bool{
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.P: true, atom.Br: true, atom.Hr: true, atom.Span: true, atom.Div: true,
	atom.Strong: true, atom.B: true, atom.Em: true, atom.I: true, atom.U: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Blockquote: true,
	atom.Table: true, atom.Thead: true, atom.Tbody: true, atom.Tr: true, atom.Th: true, atom.Td: true, atom.Caption: true,
	atom.Figure: true, atom.Figcaption: true, atom.Img: true, atom.A: true,
}

// Tags dropped together with everything inside them.
var droppedTags = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Iframe: true, atom.Object: true,
	atom.Embed: true, atom.Noscript: true, atom.Template: true, atom.Form: true,
	atom.Head: true, atom.Title: true,
}

var allowedAttrs = map[string]bool{
	"href": true, "src": true, "alt": true, "title": true,
	"width": true, "height": true, "colspan": true, "rowspan": true,
}

// SanitizeHTML reduces a generated post body to a safe subset of HTML: no
// scripts, no event handlers, only http(s), mailto, tel and relative links.
// The first image is marked high priority, later ones load lazily.
func SanitizeHTML(raw string) string {
	var buf bytes.Buffer
	z := html.NewTokenizer(strings.NewReader(raw))
	skipDepth := 0
	images := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF or malformed input
			return buf.String()
		}
		tok := z.Token()
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			if droppedTags[tok.DataAtom] {
				if tt == html.StartTagToken && !isVoid(tok.DataAtom) {
					skipDepth++
				}
				continue
			}
			if skipDepth > 0 || !allowedTags[tok.DataAtom] {
				continue
			}
			if tok.DataAtom == atom.Img {
				src := ""
				for _, a := range tok.Attr {
					if a.Key == "src" {
						src = safeURL(a.Val)
					}
				}
				if src == "" {
					continue
				}
				images++
			}
			writeStartTag(&buf, tok, images)
		case html.EndTagToken:
			if droppedTags[tok.DataAtom] {
				if skipDepth > 0 && !isVoid(tok.DataAtom) {
					skipDepth--
				}
				continue
			}
			if skipDepth > 0 || !allowedTags[tok.DataAtom] || isVoid(tok.DataAtom) {
				continue
			}
			buf.WriteString("</" + tok.Data + ">")
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			buf.WriteString(html.EscapeString(tok.Data))
		}
	}
}

func writeStartTag(buf *bytes.Buffer, tok html.Token, imageIndex int) {
	buf.WriteString("<" + tok.Data)
	for _, a := range tok.Attr {
		key := strings.ToLower(a.Key)
		if !allowedAttrs[key] {
			continue
		}
		val := a.Val
		if key == "href" || key == "src" {
			val = safeURL(val)
			if val == "" {
				continue
			}
		}
		buf.WriteString(" " + key + `="` + html.EscapeString(val) + `"`)
	}
	switch tok.DataAtom {
	case atom.A:
		if isExternal(tok) {
			buf.WriteString(` target="_blank" rel="noopener noreferrer"`)
		}
	case atom.Img:
		if imageIndex == 1 {
			buf.WriteString(` fetchpriority="high"`)
		} else {
			buf.WriteString(` loading="lazy"`)
		}
		buf.WriteString(` decoding="async"`)
	}
	if isVoid(tok.DataAtom) {
		buf.WriteString(" />")
		return
	}
	buf.WriteString(">")
}

// voidTags never have an end tag.
var voidTags = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
	atom.Embed: true, atom.Hr: true, atom.Img: true, atom.Input: true,
	atom.Link: true, atom.Meta: true, atom.Source: true, atom.Track: true,
	atom.Wbr: true,
}

func isVoid(a atom.Atom) bool {
	return voidTags[a]
}

func isExternal(tok html.Token) bool {
	for _, a := range tok.Attr {
		if a.Key == "href" {
			return strings.HasPrefix(a.Val, "http://") || strings.HasPrefix(a.Val, "https://")
		}
	}
	return false
}

// safeURL returns raw if it is relative or uses an allowed scheme, else "".
func safeURL(raw string) string {
	val := strings.TrimSpace(raw)
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return val
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return val
	default:
		return ""
	}
}

// Content marks a sanitized post body as safe for the templates.
func Content(raw string) template.HTML {
	return template.HTML(SanitizeHTML(raw))
}
