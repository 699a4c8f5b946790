package tracklist

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// invisibleTags hold text that is never rendered
var invisibleTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
}

// walkText calls fn with every trimmed, non-empty visible text node under nodes, in document order
func walkText(nodes []*html.Node, fn func(string)) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				fn(s)
			}
			return
		case html.ElementNode:
			if invisibleTags[n.Data] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
}

// selectionText joins the text nodes of sel with single spaces
func selectionText(sel *goquery.Selection) string {
	var parts []string
	walkText(sel.Nodes, func(s string) { parts = append(parts, s) })
	return strings.Join(parts, " ")
}

// textLines flattens the document into its visible text lines
func textLines(doc *goquery.Document) []string {
	var lines []string
	walkText(doc.Nodes, func(s string) { lines = append(lines, s) })
	return lines
}
