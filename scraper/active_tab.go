package scraper

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/use-agent/truthlens/cleaner"
	"github.com/use-agent/truthlens/models"
	"github.com/ysmood/gson"
)

// extractInTabJS runs inside the tab: header is the title or the first
// <h1>, body is the rendered text of <body>.
const extractInTabJS = `() => {
	const h1 = document.querySelector("h1");
	const title = (document.title || "").trim();
	return {
		header: title || (h1 ? (h1.innerText || h1.textContent || "").trim() : ""),
		body: document.body ? (document.body.innerText || "") : "",
	};
}`

// restrictedSchemes are pages the browser does not let scripts run in.
var restrictedSchemes = []string{
	"chrome://", "chrome-extension://", "chrome-search://",
	"devtools://", "edge://", "about:",
}

// ActiveTabExtractor reads the focused tab of a Chrome the user started with
// --remote-debugging-port. Only the DevTools connection is closed when it
// is done; the user's browser keeps running.
type ActiveTabExtractor struct {
	controlURL string
}

// NewActiveTabExtractor accepts either the ws:// debugger URL or the
// http://host:port DevTools address.
func NewActiveTabExtractor(controlURL string) *ActiveTabExtractor {
	return &ActiveTabExtractor{controlURL: controlURL}
}

// Extract implements popup.Extractor.
func (e *ActiveTabExtractor) Extract(ctx context.Context) (*models.PageContent, error) {
	wsURL := e.controlURL
	if !strings.HasPrefix(wsURL, "ws://") && !strings.HasPrefix(wsURL, "wss://") {
		resolved, err := launcher.ResolveURL(wsURL)
		if err != nil {
			return nil, models.NewError(models.ErrCodeExtraction, "cannot resolve devtools address", err)
		}
		wsURL = resolved
	}

	// rod's Browser.Close would shut the user's Chrome down, so the
	// connection is owned here and dropped on return.
	ws := &cdp.WebSocket{}
	if err := ws.Connect(ctx, wsURL, nil); err != nil {
		return nil, models.NewError(models.ErrCodeExtraction, "cannot attach to browser", err)
	}
	defer func() {
		if err := ws.Close(); err != nil {
			slog.Debug("closing devtools connection", "error", err)
		}
	}()

	browser := rod.New().Client(cdp.New().Start(ws)).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, models.NewError(models.ErrCodeExtraction, "cannot attach to browser", err)
	}

	pages, err := browser.Pages()
	if err != nil {
		return nil, models.NewError(models.ErrCodeExtraction, "cannot list tabs", err)
	}

	page := activePage(pages)
	if page == nil {
		return nil, models.NewError(models.ErrCodeExtraction, "no open tab", nil)
	}

	info, err := page.Info()
	if err != nil {
		return nil, models.NewError(models.ErrCodeExtraction, "tab is gone", err)
	}
	if isRestrictedURL(info.URL) {
		return nil, models.NewError(models.ErrCodeExtraction, "cannot run script on "+info.URL, nil)
	}
	slog.Debug("extracting active tab", "url", info.URL, "title", info.Title)

	res, err := page.Context(ctx).Eval(extractInTabJS)
	if err != nil {
		return nil, models.NewError(models.ErrCodeExtraction, "extraction script failed", err)
	}
	return contentFromPayload(res.Value)
}

// activePage returns the first tab whose document is visible, falling back
// to the first tab.
func activePage(pages rod.Pages) *rod.Page {
	if len(pages) == 0 {
		return nil
	}
	for _, p := range pages {
		res, err := p.Eval(`() => document.visibilityState`)
		if err == nil && res.Value.Str() == "visible" {
			return p
		}
	}
	return pages[0]
}

func isRestrictedURL(u string) bool {
	for _, scheme := range restrictedSchemes {
		if strings.HasPrefix(u, scheme) {
			return true
		}
	}
	return false
}

// contentFromPayload cuts the rendered text to MaxBodyChars as-is. An empty
// page is still content; only a missing result is an extraction failure.
func contentFromPayload(v gson.JSON) (*models.PageContent, error) {
	if _, ok := v.Val().(map[string]any); !ok {
		return nil, models.NewError(models.ErrCodeExtraction, "extraction script returned no result", nil)
	}
	return &models.PageContent{
		Header: strings.TrimSpace(stringField(v, "header")),
		Body:   cleaner.Truncate(stringField(v, "body"), models.MaxBodyChars),
	}, nil
}

// stringField returns v[key] when it is a string, "" otherwise.
func stringField(v gson.JSON, key string) string {
	s, _ := v.Get(key).Val().(string)
	return s
}
