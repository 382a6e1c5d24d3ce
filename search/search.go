// Package search looks up web evidence for a claim.
package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/use-agent/truthlens/config"
)

// Result is one search hit.
type Result struct {
	Title   string
	URL     string
	Content string
}

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// New returns the Searcher selected by cfg.Provider.
func New(cfg config.SearchConfig) (Searcher, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Timeout <= 0 {
		client.Timeout = 15 * time.Second
	}

	switch strings.ToLower(cfg.Provider) {
	case "", "duckduckgo", "ddg":
		return NewDuckDuckGo(cfg.BaseURL, cfg.MaxResults, client), nil
	case "searxng":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("search: searxng needs TRUTHLENS_SEARCH_URL")
		}
		return NewSearXNG(cfg.BaseURL, cfg.MaxResults, client), nil
	default:
		return nil, fmt.Errorf("search: unknown provider %q", cfg.Provider)
	}
}

// FormatEvidence renders results as the evidence block of a verification
// prompt, one hit per paragraph.
func FormatEvidence(results []Result) string {
	if len(results) == 0 {
		return "No results found."
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if r.Title != "" {
			b.WriteString(r.Title)
			b.WriteString("\n")
		}
		b.WriteString(r.Content)
		if r.URL != "" {
			b.WriteString("\nSource: ")
			b.WriteString(r.URL)
		}
	}
	return b.String()
}

func limit(results []Result, n int) []Result {
	if n > 0 && len(results) > n {
		return results[:n]
	}
	return results
}
