package extraction

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/williampepple1/pricewatch/internal/price"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// elements whose text never renders
var hiddenElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
	atom.Iframe:   true,
}

// elements that break the text flow
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true, atom.Hr: true,
	atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true, atom.P: true,
	atom.Section: true, atom.Table: true, atom.Td: true, atom.Th: true, atom.Tr: true,
	atom.Ul: true, atom.Title: true, atom.Option: true,
}

// VisibleText returns the document text without script-like content.
// Block elements are padded with whitespace, and every Unicode space
// (newlines included) becomes an ASCII space.
func VisibleText(doc *goquery.Document) string {
	var b strings.Builder
	for _, n := range doc.Nodes {
		writeText(n, &b)
	}
	return price.NormalizeSpaces(b.String())
}

func writeText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if hiddenElements[n.DataAtom] {
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(c, b)
	}
	if block {
		b.WriteByte('\n')
	}
}
