package web

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// boilerplateTags are dropped before converting a page without a main element.
var boilerplateTags = map[string]bool{
	"nav": true, "header": true, "footer": true, "aside": true,
	"script": true, "style": true, "noscript": true, "iframe": true,
	"object": true, "embed": true, "form": true, "button": true,
}

var boilerplateClasses = map[string]bool{
	"nav": true, "navbar": true, "navigation": true, "sidebar": true,
	"menu": true, "toc": true, "footer": true, "header": true,
	"advertisement": true, "share": true, "comments": true, "breadcrumb": true,
}

// Document is the markdown rendering of a page.
type Document struct {
	Title    string
	Markdown string
}

// Converter turns HTML pages into markdown.
type Converter struct {
	md *md.Converter
}

// NewConverter creates a converter with GitHub-flavoured markdown output.
func NewConverter() *Converter {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	return &Converter{md: conv}
}

// Convert extracts the readable part of body and renders it as markdown.
// pageURL resolves relative links and may be nil.
func (c *Converter) Convert(body []byte, pageURL *url.URL) (*Document, error) {
	if pageURL == nil {
		pageURL = &url.URL{}
	}

	title := ""
	content := ""
	if article, err := readability.FromReader(bytes.NewReader(body), pageURL); err == nil {
		title = strings.TrimSpace(article.Title)
		content = article.Content
	}
	if strings.TrimSpace(content) == "" {
		content = mainContent(body)
	}
	if title == "" {
		title = htmlTitle(body)
	}

	markdown, err := c.md.ConvertString(content)
	if err != nil {
		return nil, err
	}
	markdown = cleanMarkdown(markdown)
	if title == "" {
		title = markdownTitle(markdown)
	}
	return &Document{Title: title, Markdown: markdown}, nil
}

func htmlTitle(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	if n := find(doc, func(n *html.Node) bool { return n.Data == "title" }); n != nil && n.FirstChild != nil {
		return strings.TrimSpace(n.FirstChild.Data)
	}
	return ""
}

// mainContent returns the HTML of the page's main region, or of its body
// with navigation and other chrome removed.
func mainContent(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return string(body)
	}

	for _, match := range []func(*html.Node) bool{
		func(n *html.Node) bool { return n.Data == "main" },
		func(n *html.Node) bool { return n.Data == "article" },
		func(n *html.Node) bool { return attr(n, "role") == "main" },
	} {
		if n := find(doc, match); n != nil {
			return render(n)
		}
	}

	prune(doc, func(n *html.Node) bool {
		if boilerplateTags[n.Data] {
			return true
		}
		for _, class := range strings.Fields(strings.ToLower(attr(n, "class"))) {
			if boilerplateClasses[class] {
				return true
			}
		}
		return false
	})

	if b := find(doc, func(n *html.Node) bool { return n.Data == "body" }); b != nil {
		return render(b)
	}
	return render(doc)
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

// prune removes every element for which match returns true.
func prune(n *html.Node, match func(*html.Node) bool) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && match(c) {
			n.RemoveChild(c)
		} else {
			prune(c, match)
		}
		c = next
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func render(n *html.Node) string {
	var sb strings.Builder
	_ = html.Render(&sb, n)
	return sb.String()
}

func cleanMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func markdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if t, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimSpace(t)
		}
	}
	return ""
}
