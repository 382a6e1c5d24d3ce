package cleaner

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/truthlens/models"
)

func TestExtractPage_TitleAndVisibleText(t *testing.T) {
	raw := `<html><head><title>  Breaking   News </title><style>p{color:red}</style></head>
<body>
  <h1>Headline</h1>
  <p>Hello <b>big</b> world</p>
  <script>var secret = "do not read";</script>
  <noscript>enable js</noscript>
  <div hidden>hidden text</div>
  <span aria-hidden="true">icon</span>
</body></html>`

	page, err := ExtractPage(raw, "https://example.com/a", ExtractOptions{})
	if err != nil {
		t.Fatalf("ExtractPage: %v", err)
	}
	if page.Header != "Breaking News" {
		t.Errorf("Header = %q", page.Header)
	}
	if page.Body != "Headline\nHello big world\nicon" {
		t.Errorf("Body = %q", page.Body)
	}
}

func TestExtractPage_HeaderFallsBackToH1(t *testing.T) {
	raw := `<html><body><h1>First</h1><h1>Second</h1><p>text</p></body></html>`

	page, err := ExtractPage(raw, "https://example.com", ExtractOptions{})
	if err != nil {
		t.Fatalf("ExtractPage: %v", err)
	}
	if page.Header != "First" {
		t.Errorf("Header = %q, want First", page.Header)
	}
}

func TestExtractPage_TruncatesBody(t *testing.T) {
	raw := "<html><body><p>" + strings.Repeat("é", 2000) + "</p></body></html>"

	page, err := ExtractPage(raw, "https://example.com", ExtractOptions{})
	if err != nil {
		t.Fatalf("ExtractPage: %v", err)
	}
	if n := utf8.RuneCountInString(page.Body); n != models.MaxBodyChars {
		t.Errorf("body has %d runes, want %d", n, models.MaxBodyChars)
	}
	if !utf8.ValidString(page.Body) {
		t.Error("body is not valid UTF-8")
	}
}

func TestExtractPage_Selector(t *testing.T) {
	raw := `<html><head><title>T</title></head><body>
<nav>menu menu menu</nav>
<article id="main"><p>the story</p></article>
</body></html>`

	page, err := ExtractPage(raw, "https://example.com", ExtractOptions{Selector: "#main"})
	if err != nil {
		t.Fatalf("ExtractPage: %v", err)
	}
	if page.Body != "the story" {
		t.Errorf("Body = %q, want %q", page.Body, "the story")
	}
	if page.Header != "T" {
		t.Errorf("Header = %q, title must come from the full page", page.Header)
	}
}

func TestExtractPage_SelectorWithoutMatchKeepsPage(t *testing.T) {
	raw := `<html><body><p>all of it</p></body></html>`

	page, err := ExtractPage(raw, "https://example.com", ExtractOptions{Selector: ".missing"})
	if err != nil {
		t.Fatalf("ExtractPage: %v", err)
	}
	if page.Body != "all of it" {
		t.Errorf("Body = %q", page.Body)
	}
}

func TestExtractPage_NestedSelectorMatchesReadOnce(t *testing.T) {
	raw := `<html><body><div class="c"><p>outer</p><div class="c"><p>inner</p></div></div><p>skip</p></body></html>`

	page, err := ExtractPage(raw, "https://example.com", ExtractOptions{Selector: ".c"})
	if err != nil {
		t.Fatalf("ExtractPage: %v", err)
	}
	if page.Body != "outer\ninner" {
		t.Errorf("Body = %q", page.Body)
	}
}

func TestNarrow(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<body><p class="a">1</p><p class="a">2</p><p>3</p></body>`))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		selector string
		want     int
		wantErr  bool
	}{
		{"p.a", 2, false},
		{"p", 3, false},
		{".missing", 1, false}, // falls back to <body>
		{"p[", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			sel, err := Narrow(doc, tt.selector)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if err == nil && sel.Length() != tt.want {
				t.Errorf("matched %d, want %d", sel.Length(), tt.want)
			}
		})
	}
}

func TestExtractPage_InvalidSelector(t *testing.T) {
	_, err := ExtractPage(`<p>x</p>`, "https://example.com", ExtractOptions{Selector: "[[["})
	if !errors.Is(err, models.ErrExtraction) {
		t.Errorf("err = %v, want ErrExtraction", err)
	}
}

func TestExtractPage_EmptyPageIsAResult(t *testing.T) {
	for _, raw := range []string{
		"",
		`<html><head></head><body></body></html>`,
		`<html><body><script>only code</script></body></html>`,
	} {
		page, err := ExtractPage(raw, "https://example.com", ExtractOptions{})
		if err != nil {
			t.Errorf("ExtractPage(%q) err = %v, want empty content", raw, err)
			continue
		}
		if *page != (models.PageContent{}) {
			t.Errorf("ExtractPage(%q) = %+v, want empty header and body", raw, page)
		}
	}
}

func TestExtractPage_TruncatesAfterLineLayout(t *testing.T) {
	para := strings.Repeat("a", 1000)
	raw := "<html><body><p>" + para + "</p>\n\n\n<p>" + para + "</p></body></html>"

	page, err := ExtractPage(raw, "https://example.com", ExtractOptions{})
	if err != nil {
		t.Fatalf("ExtractPage: %v", err)
	}
	want := para + "\n" + strings.Repeat("a", models.MaxBodyChars-len(para)-1)
	if page.Body != want {
		t.Errorf("Body = %q...", page.Body[:20])
	}
}

func TestExtractPage_ReadabilityFallsBackOnShortPage(t *testing.T) {
	raw := `<html><head><title>T</title></head><body><p>tiny</p></body></html>`

	page, err := ExtractPage(raw, "https://example.com", ExtractOptions{Readability: true})
	if err != nil {
		t.Fatalf("ExtractPage: %v", err)
	}
	if page.Body != "tiny" {
		t.Errorf("Body = %q, want visible text fallback", page.Body)
	}
}

func TestExtractContent_InvalidURL(t *testing.T) {
	if _, ok := ExtractContent("<p>x</p>", "://bad"); ok {
		t.Error("expected ok == false for an unparsable URL")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"abc", 0, ""},
		{"", 4, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestTextLines(t *testing.T) {
	if got := TextLines("  a  b \n\n\t\n c\n"); got != "a b\nc" {
		t.Errorf("TextLines = %q", got)
	}
}

func TestNormalizeText(t *testing.T) {
	if got := NormalizeText("  a\n\tb   c "); got != "a b c" {
		t.Errorf("NormalizeText = %q", got)
	}
}
