// Package extract pulls the chapter title and ordered paragraph text out of
// a raw chapter page.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Selectors for the chapter host's markup.
const (
	titleSelector   = ".article-title"
	contentSelector = ".article-content"
)

// Result is the extraction outcome for one page. Paragraphs are trimmed,
// non-empty, and in document order; an empty slice means the page has no
// recognizable content region and should be skipped. Title is empty when
// the page carries none.
type Result struct {
	Title      string
	Paragraphs []string
}

// Page extracts the title and paragraphs from raw chapter markup.
func Page(rawHTML string) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return Result{}, fmt.Errorf("parse page: %w", err)
	}

	var res Result
	res.Title = strings.TrimSpace(doc.Find(titleSelector).First().Text())

	content := doc.Find(contentSelector).First()
	if content.Length() == 0 {
		return res, nil
	}

	content.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			res.Paragraphs = append(res.Paragraphs, t)
		}
	})

	// Some chapters put bare text in the content div instead of <p> tags.
	if len(res.Paragraphs) == 0 {
		raw := nodeText(content.Nodes[0])
		for _, block := range strings.Split(CleanText(raw), "\n\n") {
			if t := strings.TrimSpace(block); t != "" {
				res.Paragraphs = append(res.Paragraphs, t)
			}
		}
	}

	return res, nil
}

var (
	trailingSpaceRe = regexp.MustCompile(`(?m)[ \t]+$`)
	leadingSpaceRe  = regexp.MustCompile(`(?m)^[ \t]+`)
	blankRunsRe     = regexp.MustCompile(`\n{3,}`)
)

// CleanText trims per-line whitespace and collapses runs of blank lines
// down to a single paragraph break.
func CleanText(text string) string {
	text = trailingSpaceRe.ReplaceAllString(text, "")
	text = leadingSpaceRe.ReplaceAllString(text, "")
	text = blankRunsRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// nodeText collects the text nodes under n, newline-separated. Whitespace
// nodes between blocks become blank lines, which CleanText and the caller's
// blank-line split turn into paragraph boundaries.
func nodeText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			parts = append(parts, strings.TrimSpace(n.Data))
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, "\n")
}
