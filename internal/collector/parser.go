package collector

import (
	"errors"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/onionwatch/onionwatch/internal/model"
)

// errListingTableNotFound is returned when the listing page lacks the
// expected table.
var errListingTableNotFound = errors.New("listing table not found in page")

// parseListing extracts items from a marketplace listing page.
//
// The listing is a <table class="table"> whose body rows each describe one
// post: title plus detail link in the first cell, category in the second,
// date in the third. Rows with any other cell count are navigation or
// spacer rows and are skipped silently. Relative detail links are resolved
// against the listing URL's origin.
//
// Design decision: We use golang.org/x/net/html rather than regex because
// it correctly handles the malformed HTML common on hidden services and
// gives us a proper tree to walk.
func parseListing(content io.Reader, base *url.URL) ([]model.Item, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	table := findElement(doc, "table", "table")
	if table == nil {
		return nil, errListingTableNotFound
	}

	// Title-case categories so name filters and aggregation see one
	// spelling regardless of how the site capitalizes them.
	caser := cases.Title(language.English)

	items := make([]model.Item, 0)
	for _, row := range findRows(table) {
		cells := childElements(row, "td")
		if len(cells) != 3 {
			continue
		}

		link := ""
		if a := findElement(cells[0], "a", ""); a != nil {
			link = resolveLink(getAttr(a, "href"), base)
		}

		items = append(items, model.Item{
			Title:    strings.TrimSpace(nodeText(cells[0])),
			Category: caser.String(strings.TrimSpace(nodeText(cells[1]))),
			Date:     strings.TrimSpace(nodeText(cells[2])),
			Link:     link,
		})
	}
	return items, nil
}

// parseBody extracts the body text from a detail page: the first <p>
// inside <div class="post-content"> → <div class="content">. The second
// return value reports whether the structure was found at all.
func parseBody(content io.Reader) (string, bool) {
	doc, err := html.Parse(content)
	if err != nil {
		return "", false
	}

	postContent := findElement(doc, "div", "post-content")
	if postContent == nil {
		return "", false
	}
	inner := findElement(postContent, "div", "content")
	if inner == nil {
		return "", false
	}
	p := findElement(inner, "p", "")
	if p == nil {
		return "", false
	}
	return strings.TrimSpace(nodeText(p)), true
}

// findRows returns the data rows of a table: the <tr> elements under its
// <tbody>, or directly under the table when no tbody is present (the HTML
// parser inserts one, but be lenient).
func findRows(table *html.Node) []*html.Node {
	parent := table
	if tbody := findElement(table, "tbody", ""); tbody != nil {
		parent = tbody
	}
	return descendantElements(parent, "tr")
}

// findElement returns the first descendant element with the given tag and,
// if class is non-empty, the given class attribute. Depth-first, so "first"
// matches document order.
func findElement(n *html.Node, tag, class string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag && (class == "" || hasClass(n, class)) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag, class); found != nil {
			return found
		}
	}
	return nil
}

// descendantElements returns all descendant elements with the given tag in
// document order.
func descendantElements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return out
}

// childElements returns the direct child elements with the given tag.
func childElements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
	}
	return out
}

// nodeText collects all text content under a node.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// hasClass reports whether the element carries the given class.
func hasClass(n *html.Node, class string) bool {
	for _, cls := range strings.Fields(getAttr(n, "class")) {
		if cls == class {
			return true
		}
	}
	return false
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// resolveLink resolves a detail link against the listing URL's origin.
// Absolute links pass through unchanged; anything unparseable yields the
// raw href so the failure surfaces at fetch time rather than silently
// dropping the item.
func resolveLink(href string, base *url.URL) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(u).String()
}
