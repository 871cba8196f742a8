package scraper

import (
	"net/url"
	"strings"

	"scout/scout/utils/types"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GoqueryExtractor turns rendered HTML into plain text and anchors.
type GoqueryExtractor struct{}

// skipped elements never contribute visible text
var skipped = map[string]bool{"script": true, "style": true, "noscript": true, "template": true}

// ExtractText returns the whitespace-normalized visible text of the document.
func (GoqueryExtractor) ExtractText(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	for _, n := range doc.Nodes {
		f(n)
	}
	return NormalizeWhitespace(sb.String()), nil
}

// ExtractLinks returns every a[href] resolved against base. Used when the
// renderer could not report anchors from the live DOM.
func (GoqueryExtractor) ExtractLinks(base, htmlContent string) ([]types.Link, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	var links []types.Link
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs := resolve(baseURL, href)
		if abs == "" {
			return
		}
		links = append(links, types.Link{Label: labelPtr(a.Text()), Href: abs})
	})
	return links, nil
}

// NormalizeWhitespace collapses every whitespace run to one space and trims.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolve resolves a relative URL against a base URL.
func resolve(base *url.URL, href string) string {
	p, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return base.ResolveReference(p).String()
}

func labelPtr(s string) *string {
	s = NormalizeWhitespace(s)
	if s == "" {
		return nil
	}
	return &s
}
