package cleaner

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/truthlens/models"
	"golang.org/x/net/html"
)

// ExtractOptions narrows where the body text comes from.
type ExtractOptions struct {
	// Readability takes the body from the main article instead of the
	// whole document.
	Readability bool

	// Selector restricts the body to elements matching a CSS selector.
	Selector string
}

// invisibleTags never contribute to visible text.
const invisibleTags = "script, style, noscript, template, svg, iframe, head"

// ExtractPage applies the same rules as the in-tab extraction script:
//
//	header = document.title || first <h1>
//	body   = first MaxBodyChars characters of the visible text
//
// A page with no title and no text is still a result: both fields are
// empty. Only unparsable input or a bad selector is models.ErrExtraction.
func ExtractPage(rawHTML, sourceURL string, opts ExtractOptions) (*models.PageContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, models.NewError(models.ErrCodeExtraction, "failed to parse page HTML", err)
	}

	header := Header(doc)

	root := pageRoot(doc)
	articleHTML := rawHTML
	if opts.Selector != "" {
		if root, err = Narrow(doc, opts.Selector); err != nil {
			return nil, models.NewError(models.ErrCodeExtraction, "invalid css selector", err)
		}
		articleHTML = standalonePage(root)
	}

	var text string
	if opts.Readability {
		if article, ok := ExtractContent(articleHTML, sourceURL); ok {
			text = TextLines(article.TextContent)
		}
	}
	if text == "" {
		text = VisibleText(root)
	}

	return &models.PageContent{
		Header: header,
		Body:   Truncate(text, models.MaxBodyChars),
	}, nil
}

// Header returns the document title, falling back to the first <h1>.
func Header(doc *goquery.Document) string {
	if title := NormalizeText(doc.Find("head title").First().Text()); title != "" {
		return title
	}
	if title := NormalizeText(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return NormalizeText(doc.Find("h1").First().Text())
}

// VisibleText approximates innerText for root: script-like and metadata
// elements are dropped, block elements start a new line, and whitespace
// inside a line is collapsed. The underlying document is modified.
func VisibleText(root *goquery.Selection) string {
	root.Find(invisibleTags).Remove()
	root.Find("[hidden]").Remove()

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if _, ok := blockTags[n.Data]; ok {
				b.WriteByte('\n')
				defer b.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range root.Nodes {
		walk(n)
	}
	return TextLines(b.String())
}

// blockTags break the text flow the way a rendered layout would.
var blockTags = map[string]struct{}{
	"address": {}, "article": {}, "aside": {}, "blockquote": {}, "br": {},
	"dd": {}, "div": {}, "dl": {}, "dt": {}, "figcaption": {}, "footer": {},
	"form": {}, "h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"header": {}, "hr": {}, "li": {}, "main": {}, "nav": {}, "ol": {},
	"p": {}, "pre": {}, "section": {}, "table": {}, "td": {}, "th": {},
	"tr": {}, "ul": {},
}

// TextLines collapses whitespace within each line and drops blank lines,
// keeping the line breaks of the rendered layout.
func TextLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = NormalizeText(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// NormalizeText collapses every run of whitespace into a single space.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate returns at most n runes of s, never splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
