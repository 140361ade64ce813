package duckduckgo

import (
	"io"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

// parseResults walks the HTML result page. A result__a anchor opens a new
// result; the following result__snippet fills its snippet.
func parseResults(r io.Reader) ([]domain.WebResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var out []domain.WebResult
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			classes := strings.Fields(attr(n, "class"))
			switch {
			case n.Data == "a" && slices.Contains(classes, "result__a"):
				out = append(out, domain.WebResult{
					Title: strings.TrimSpace(textContent(n)),
					URL:   resolveURL(attr(n, "href")),
				})
				return
			case slices.Contains(classes, "result__snippet"):
				if len(out) > 0 && out[len(out)-1].Snippet == "" {
					out[len(out)-1].Snippet = strings.TrimSpace(textContent(n))
				}
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	filtered := out[:0]
	for _, res := range out {
		if strings.Contains(res.URL, "duckduckgo.com/y.js") {
			continue
		}
		filtered = append(filtered, res)
	}
	return filtered, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(n)
	return b.String()
}

// resolveURL unwraps DuckDuckGo redirect links (/l/?uddg=<target>).
func resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	return href
}
