package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/use-agent/truthlens/config"
	"github.com/use-agent/truthlens/engine"
)

// Lazy launches the headless browser on the first Fetch. Most news pages
// are served by the plain HTTP engine, so one-shot callers often never
// need Chromium at all.
type Lazy struct {
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig

	once sync.Once
	sc   *Scraper
	err  error
	mu   sync.Mutex
}

func NewLazy(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) *Lazy {
	return &Lazy{browserCfg: browserCfg, scraperCfg: scraperCfg}
}

// Fetch launches the browser if needed and renders req.URL.
func (l *Lazy) Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	l.once.Do(func() {
		slog.Debug("launching headless browser")
		sc, err := NewScraper(l.browserCfg, l.scraperCfg)
		l.mu.Lock()
		l.sc, l.err = sc, err
		l.mu.Unlock()
	})
	if l.err != nil {
		return nil, l.err
	}
	return l.sc.Fetch(ctx, req)
}

// Started reports whether the browser has been launched.
func (l *Lazy) Started() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sc != nil
}

// Close shuts the browser down if it was ever launched.
func (l *Lazy) Close() {
	l.mu.Lock()
	sc := l.sc
	l.mu.Unlock()
	if sc != nil {
		sc.Close()
	}
}

// Fetcher renders a page in a real browser.
type Fetcher interface {
	Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error)
}

// browserEngine adapts a Fetcher into an engine tier.
type browserEngine struct {
	f       Fetcher
	stealth bool
}

func (b *browserEngine) Name() string {
	if b.stealth {
		return "browser-stealth"
	}
	return "browser"
}

func (b *browserEngine) Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	r := *req
	if b.stealth {
		r.Stealth = true
	}
	res, err := b.f.Fetch(ctx, &r)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", r.URL, err)
	}
	return res, nil
}

// NewDispatcher builds the standard engine race: plain HTTP first, then
// the headless browser, then the browser with stealth patches. memory may
// be nil for one-shot callers that never see the same site twice.
func NewDispatcher(cfg *config.Config, browser Fetcher, memory *engine.DomainMemory) *engine.Dispatcher {
	engines := []engine.Engine{
		engine.NewHTTPEngine(cfg.Engine.HTTPTimeout),
		&browserEngine{f: browser},
		&browserEngine{f: browser, stealth: true},
	}
	return engine.NewDispatcher(engines, cfg.Engine.EscalationDelays, memory)
}
