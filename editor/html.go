package editor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExcerptLimit is the maximum excerpt length in characters.
const ExcerptLimit = 200

// blockTags are the elements treated as block containers by the toolbar's
// block-level commands.
var blockTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"div": true, "blockquote": true, "pre": true, "ul": true, "ol": true,
	"section": true, "article": true,
}

// Excerpt derives a plain-text summary from draft HTML: all markup is
// stripped and the result truncated to ExcerptLimit characters. Always
// recomputed at submission time, never user-edited.
func Excerpt(content string) string {
	text := stripTags(content)
	runes := []rune(text)
	if len(runes) > ExcerptLimit {
		runes = runes[:ExcerptLimit]
	}
	return strings.TrimSpace(string(runes))
}

// stripTags returns the text content of an HTML fragment.
func stripTags(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return doc.Text()
}

// removeAnchors unwraps every <a> element in the fragment, keeping its
// content in place.
func removeAnchors(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		inner, htmlErr := sel.Html()
		if htmlErr != nil {
			return
		}
		sel.ReplaceWithHtml(inner)
	})
	return doc.Find("body").Html()
}

// parseFragment parses buffer markup as body content, yielding its
// top-level nodes.
func parseFragment(fragment string) ([]*html.Node, error) {
	ctx := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	return html.ParseFragment(strings.NewReader(fragment), ctx)
}

// renderNode serializes a single node subtree back to markup.
func renderNode(n *html.Node) string {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return ""
	}
	return b.String()
}

func newElement(tag string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

func renameElement(n *html.Node, tag string) {
	n.Data = tag
	n.DataAtom = atom.Lookup([]byte(tag))
}

func isBlockElement(n *html.Node) bool {
	return n.Type == html.ElementNode && blockTags[n.Data]
}

// detach clears tree pointers so the node can be re-parented. Fragment
// nodes keep their original parent links after parsing.
func detach(n *html.Node) *html.Node {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
	n.Parent = nil
	n.PrevSibling = nil
	n.NextSibling = nil
	return n
}

func moveChildren(from, to *html.Node) {
	for c := from.FirstChild; c != nil; {
		next := c.NextSibling
		from.RemoveChild(c)
		to.AppendChild(c)
		c = next
	}
}

// setStyle replaces the element's style attribute.
func setStyle(n *html.Node, style string) {
	for i, a := range n.Attr {
		if a.Key == "style" {
			n.Attr[i].Val = style
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: style})
}
