package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the shortest article text (in characters) accepted
// from readability. Anything shorter usually means the algorithm picked a
// navigation block, so the caller falls back to the whole page text.
const minContentLength = 50

// ExtractContent runs the Mozilla Readability algorithm on rawHTML and
// reports whether it located a usable main article.
//
// It never fails hard: a bad URL, a parser error, or a too-short result all
// return ok == false and the caller reads the visible text instead.
func ExtractContent(rawHTML string, sourceURL string) (readability.Article, bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Warn("readability: invalid source URL, using visible text",
			"url", sourceURL, "error", err,
		)
		return readability.Article{}, false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Warn("readability: extraction failed, using visible text",
			"url", sourceURL, "error", err,
		)
		return readability.Article{}, false
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		slog.Debug("readability: article too short, using visible text",
			"url", sourceURL, "length", len(article.TextContent),
		)
		return readability.Article{}, false
	}

	return article, true
}
