// Package engine loads the article page for the URL extractor. Engines of
// increasing weight race behind a Dispatcher: a plain HTTP client with a
// browser TLS fingerprint first, headless browser tiers after it. The
// browser tiers live in package scraper.
package engine

import (
	"context"
	"time"
)

// DefaultLanguage is sent when a request names no Accept-Language.
const DefaultLanguage = "en-US,en;q=0.9"

// Engine is one way of loading an article page.
type Engine interface {
	// Name identifies the tier in logs and domain memory.
	Name() string

	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest is one article to load.
type FetchRequest struct {
	URL string

	// Timeout caps this fetch. Zero leaves the deadline to the ctx.
	Timeout time.Duration

	// Stealth asks browser tiers to inject anti-detection patches.
	Stealth bool

	// Language is the Accept-Language value. Many news sites pick the
	// edition, and so the article text, from it.
	Language string
}

// AcceptLanguage returns Language or DefaultLanguage.
func (r *FetchRequest) AcceptLanguage() string {
	if r.Language != "" {
		return r.Language
	}
	return DefaultLanguage
}

// FetchResult is the article page as the winning tier loaded it.
type FetchResult struct {
	HTML string

	// FinalURL is where redirects ended; relative links and readability
	// resolve against it.
	FinalURL string

	// Engine and Elapsed are stamped by the Dispatcher.
	Engine  string
	Elapsed time.Duration
}

// SourceURL returns FinalURL, or requested when the tier could not tell.
func (r *FetchResult) SourceURL(requested string) string {
	if r.FinalURL != "" {
		return r.FinalURL
	}
	return requested
}
