package forum

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// FlattenText collects every text node below the selection in document
// order, collapses the whitespace inside each one, drops the empty ones and
// joins the rest with sep. Markup is discarded.
func FlattenText(sel *goquery.Selection, sep string) string {
	var chunks []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if words := strings.Fields(n.Data); len(words) > 0 {
				chunks = append(chunks, strings.Join(words, " "))
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(chunks, sep)
}
