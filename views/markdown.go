package views

import (
	"bytes"
	"html"
	"regexp"
	"strings"
)

var (
	reBold        = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reLink        = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	reOrderedItem = regexp.MustCompile(`^\d+\.\s`)
)

// renderMarkdown converts the small markdown subset used by the static pages
// (headings, paragraphs, lists, rules, bold and links) to HTML.
func renderMarkdown(md string) string {
	var buf bytes.Buffer
	inPara := false
	list := "" // "ul", "ol" or none

	flushPara := func() {
		if inPara {
			buf.WriteString("</p>")
			inPara = false
		}
	}
	flushList := func() {
		if list != "" {
			buf.WriteString("</" + list + ">")
			list = ""
		}
	}
	openList := func(kind string) {
		if list == kind {
			return
		}
		flushPara()
		flushList()
		buf.WriteString("<" + kind + ">")
		list = kind
	}

	for _, raw := range strings.Split(md, "\n") {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flushPara()
			flushList()
		case strings.HasPrefix(trimmed, "---"):
			flushPara()
			flushList()
			buf.WriteString("<hr/>")
		case strings.HasPrefix(trimmed, "### "):
			flushPara()
			flushList()
			buf.WriteString("<h3>" + formatInline(trimmed[4:]) + "</h3>")
		case strings.HasPrefix(trimmed, "## "):
			flushPara()
			flushList()
			buf.WriteString("<h2>" + formatInline(trimmed[3:]) + "</h2>")
		case strings.HasPrefix(trimmed, "- "):
			openList("ul")
			buf.WriteString("<li>" + formatInline(trimmed[2:]) + "</li>")
		case reOrderedItem.MatchString(trimmed):
			openList("ol")
			buf.WriteString("<li>" + formatInline(reOrderedItem.ReplaceAllString(trimmed, "")) + "</li>")
		default:
			flushList()
			if inPara {
				buf.WriteString("<br/>")
			} else {
				buf.WriteString("<p>")
				inPara = true
			}
			buf.WriteString(formatInline(trimmed))
		}
	}
	flushPara()
	flushList()
	return buf.String()
}

func formatInline(s string) string {
	escaped := html.EscapeString(strings.TrimSpace(s))
	escaped = reLink.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reLink.FindStringSubmatch(m)
		href := safeURL(html.UnescapeString(match[2]))
		if href == "" {
			return match[1]
		}
		return `<a href="` + html.EscapeString(href) + `">` + match[1] + `</a>`
	})
	return reBold.ReplaceAllString(escaped, "<strong>$1</strong>")
}
