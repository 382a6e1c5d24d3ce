// Package scraper drives Chromium through go-rod. It supplies the headless
// browser engines used by the dispatcher and the extractors that turn a
// page, either a URL or the user's focused tab, into models.PageContent.
package scraper

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/truthlens/config"
	"github.com/use-agent/truthlens/models"
)

// Scraper owns a headless browser and its page pool.
// It is safe for concurrent use.
type Scraper struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	browserCfg  config.BrowserConfig
	scraperCfg  config.ScraperConfig
	activePages atomic.Int32
	closeOnce   sync.Once
}

// NewScraper launches a headless browser and creates the page pool.
func NewScraper(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) (*Scraper, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.DefaultProxy != "" {
		l = l.Proxy(browserCfg.DefaultProxy)
	}

	// Look less like automation; news sites often gate bots.
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	maxPages := browserCfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	slog.Debug("page pool created", "maxPages", maxPages)

	return &Scraper{
		browser:    browser,
		pagePool:   rod.NewPagePool(maxPages),
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
	}, nil
}

// ActivePages reports how many pool pages are currently loading.
func (s *Scraper) ActivePages() int {
	return int(s.activePages.Load())
}

// Close drains the page pool and kills the browser process so no Chromium
// is left behind. Safe to call more than once.
func (s *Scraper) Close() {
	s.closeOnce.Do(func() {
		s.pagePool.Cleanup(func(p *rod.Page) {
			_ = p.Close()
		})
		if err := s.browser.Close(); err != nil {
			slog.Warn("closing browser", "error", err)
		}
		slog.Debug("browser closed")
	})
}
