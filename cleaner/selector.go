package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Narrow returns the outermost elements of doc matching a CSS selector, so
// nested matches are not read twice. When nothing matches, the whole body
// is returned rather than an empty selection.
func Narrow(doc *goquery.Document, selector string) (*goquery.Selection, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, err
	}
	matched := doc.FindMatcher(m).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.ParentsMatcher(m).Length() == 0
	})
	if matched.Length() > 0 {
		return matched, nil
	}
	return pageRoot(doc), nil
}

// pageRoot is <body>, or the document itself for fragments without one.
func pageRoot(doc *goquery.Document) *goquery.Selection {
	if body := doc.Find("body"); body.Length() > 0 {
		return body
	}
	return doc.Selection
}

// standalonePage renders sel as its own document so readability can score
// it without the rest of the page.
func standalonePage(sel *goquery.Selection) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	sel.Each(func(_ int, s *goquery.Selection) {
		if h, err := goquery.OuterHtml(s); err == nil {
			b.WriteString(h)
			b.WriteByte('\n')
		}
	})
	b.WriteString("</body></html>")
	return b.String()
}
