// Package htmlutil extracts readable text lines from HTML pages, so lyrics
// pages can be fed to the generator line by line.
package htmlutil

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/happyhackingspace/rapgen/internal/textutil"
)

// LoadHTML parses HTML bytes into a goquery Document.
func LoadHTML(r io.Reader) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(r)
}

// LoadHTMLString parses HTML string into a goquery Document.
func LoadHTMLString(htmlStr string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
}

// skipped elements never contribute text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Head:     true,
}

// breaking elements end the current line.
var breaking = map[atom.Atom]bool{
	atom.Br: true, atom.P: true, atom.Div: true, atom.Li: true,
	atom.Tr: true, atom.Td: true, atom.Th: true, atom.Section: true,
	atom.Article: true, atom.Blockquote: true, atom.Pre: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Title: true, atom.Dd: true, atom.Dt: true,
}

// TextLines returns the visible text under sel, one entry per line. Block
// elements and <br> end a line; blank lines are dropped.
func TextLines(sel *goquery.Selection) []string {
	var lines []string
	var buf strings.Builder

	flush := func() {
		line := strings.TrimSpace(textutil.NormalizeWhitespaces(buf.String()))
		if line != "" {
			lines = append(lines, line)
		}
		buf.Reset()
	}

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			if skipped[n.DataAtom] {
				return
			}
			if breaking[n.DataAtom] {
				flush()
				defer flush()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}

	for _, n := range sel.Nodes {
		visit(n)
	}
	flush()
	return lines
}

// DocumentLines returns the visible text lines of the page body, or of the
// elements matching selector when it is not empty.
func DocumentLines(doc *goquery.Document, selector string) []string {
	if selector != "" {
		return TextLines(doc.Find(selector))
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		return TextLines(doc.Selection)
	}
	return TextLines(body)
}

// Title returns the trimmed page title.
func Title(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}
