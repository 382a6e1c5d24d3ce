package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/truthlens/engine"
	"github.com/use-agent/truthlens/models"
	"github.com/ysmood/gson"
)

// Fetch renders req.URL in a pooled headless tab and returns its HTML.
// An error status on the navigation response fails the fetch.
//
// Order matters: stealth and the hijack router must be installed before
// Navigate or they do not apply to the first document. The deferred
// about:blank uses the page without the request context so cleanup still
// works after a timeout.
func (s *Scraper) Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	timeout := req.Timeout
	if timeout <= 0 || timeout > s.scraperCfg.MaxTimeout {
		timeout = s.scraperCfg.MaxTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s.activePages.Add(1)
	defer s.activePages.Add(-1)
	slog.Debug("browser fetch", "url", req.URL, "stealth", req.Stealth, "activePages", s.ActivePages())

	page, err := s.pagePool.Get(func() (*rod.Page, error) {
		return s.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		return nil, models.NewError(models.ErrCodeBrowserCrash, "failed to acquire page", err)
	}
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		s.pagePool.Put(page)
	}()

	if req.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	if err := (proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(navigationHeaders(req))}).Call(page); err != nil {
		slog.Debug("failed to set extra headers", "url", req.URL, "error", err)
	}

	if router := setupHijack(page, s.scraperCfg.BlockedResourceTypes, true); router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)

	if err := p.Navigate(req.URL); err != nil {
		return nil, categorizeError(err, "navigation failed")
	}

	// WaitRequestIdle conflicts with the hijack router on recent Chromium;
	// a stable DOM is good enough for reading article text.
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("DOM did not settle, reading current DOM", "url", req.URL, "error", err)
	}

	removeOverlays(p)

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to read page HTML")
	}

	if status := evalInt(p, navigationStatusJS); status >= 400 {
		return nil, models.NewError(models.ErrCodeNavigation, fmt.Sprintf("page returned HTTP %d", status), nil)
	}

	return &engine.FetchResult{
		HTML:     rawHTML,
		FinalURL: evalString(p, `() => window.location.href`),
	}, nil
}

// navigationStatusJS reads the document's HTTP status without subscribing
// to network events, which would fight the hijack router.
const navigationStatusJS = `() => {
	try {
		const entries = performance.getEntriesByType("navigation");
		if (entries.length > 0) return entries[0].responseStatus || 0;
	} catch (e) {}
	return 0;
}`

// navigationHeaders makes the visit look like a click from a search result.
func navigationHeaders(req *engine.FetchRequest) map[string]string {
	out := map[string]string{"Accept-Language": req.AcceptLanguage()}
	if u, err := url.Parse(req.URL); err == nil && u.Hostname() != "" {
		out["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
	}
	return out
}

func evalString(p *rod.Page, js string) string {
	res, err := p.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func evalInt(p *rod.Page, js string) int {
	res, err := p.Eval(js)
	if err != nil {
		return 0
	}
	return res.Value.Int()
}

// toHeadersMap converts plain headers to proto.NetworkHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// removeOverlays drops fixed and sticky layers (cookie walls, newsletter
// modals) so their text does not crowd out the article.
func removeOverlays(p *rod.Page) {
	const js = `() => {
		for (const el of document.querySelectorAll('*')) {
			const style = window.getComputedStyle(el);
			if (style.position === 'fixed' || style.position === 'sticky') {
				const z = parseInt(style.zIndex, 10);
				if (z >= 900 || style.zIndex === 'auto') el.remove();
			}
		}
		const selectors = [
			'[class*="cookie"]', '[id*="cookie"]',
			'[class*="consent"]', '[id*="consent"]',
			'[class*="gdpr"]', '[id*="gdpr"]',
			'[class*="paywall"]', '[id*="paywall"]',
		];
		for (const sel of selectors) {
			document.querySelectorAll(sel).forEach(el => {
				const pos = window.getComputedStyle(el).position;
				if (pos === 'fixed' || pos === 'sticky' || pos === 'absolute') el.remove();
			});
		}
		document.documentElement.style.overflow = '';
		if (document.body) document.body.style.overflow = '';
	}`
	_, _ = p.Eval(js)
}

// categorizeError maps rod failures to error codes.
func categorizeError(err error, msg string) *models.Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewError(models.ErrCodeNavigation, msg, err)
	}
}
