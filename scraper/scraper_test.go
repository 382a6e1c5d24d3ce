package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/use-agent/truthlens/cleaner"
	"github.com/use-agent/truthlens/config"
	"github.com/use-agent/truthlens/engine"
	"github.com/use-agent/truthlens/models"
	"github.com/ysmood/gson"
)

type dispatcherFunc func(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error)

func (f dispatcherFunc) Dispatch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	return f(ctx, req)
}

func TestURLExtractor_Extract(t *testing.T) {
	var got *engine.FetchRequest
	d := dispatcherFunc(func(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
		got = req
		return &engine.FetchResult{
			HTML:     `<html><head><title>Story</title></head><body><p>Body text</p></body></html>`,
			FinalURL: "https://news.example/story",
		}, nil
	})

	ex := NewURLExtractor(d, "https://news.example/s", URLOptions{Timeout: 5 * time.Second, Stealth: true})
	page, err := ex.Extract(context.Background())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if page.Header != "Story" || page.Body != "Body text" {
		t.Errorf("page = %+v", page)
	}
	if got.URL != "https://news.example/s" || !got.Stealth || got.Timeout != 5*time.Second {
		t.Errorf("fetch request = %+v", got)
	}
}

func TestURLExtractor_FetchFailure(t *testing.T) {
	d := dispatcherFunc(func(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
		return nil, errors.New("all engines failed")
	})

	_, err := NewURLExtractor(d, "https://x.example", URLOptions{}).Extract(context.Background())
	if !errors.Is(err, models.ErrExtraction) {
		t.Errorf("err = %v, want ErrExtraction", err)
	}
}

func TestURLExtractor_WithHTTPEngine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><h1>Moon made of cheese</h1>
<div id="story"><p>` + strings.Repeat("word ", 400) + `</p></div></body></html>`))
	}))
	defer srv.Close()

	d := engine.NewDispatcher([]engine.Engine{engine.NewHTTPEngine(time.Second)}, nil, nil)
	ex := NewURLExtractor(d, srv.URL, URLOptions{Extract: cleaner.ExtractOptions{Selector: "#story"}})

	page, err := ex.Extract(context.Background())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if page.Header != "Moon made of cheese" {
		t.Errorf("Header = %q", page.Header)
	}
	if len(page.Body) != models.MaxBodyChars {
		t.Errorf("body length = %d, want %d", len(page.Body), models.MaxBodyChars)
	}
}

func TestContentFromPayload(t *testing.T) {
	page, err := contentFromPayload(gson.New(map[string]any{
		"header": "  Title \n",
		"body":   "line one\n\n  line two",
	}))
	if err != nil {
		t.Fatalf("contentFromPayload: %v", err)
	}
	if page.Header != "Title" || page.Body != "line one\n\n  line two" {
		t.Errorf("page = %+v", page)
	}

	empty, err := contentFromPayload(gson.New(map[string]any{"header": "", "body": ""}))
	if err != nil || *empty != (models.PageContent{}) {
		t.Errorf("empty tab = %+v, %v; want empty content", empty, err)
	}

	long, _ := contentFromPayload(gson.New(map[string]any{"body": strings.Repeat("x ", models.MaxBodyChars)}))
	if long.Body != strings.Repeat("x ", models.MaxBodyChars/2) {
		t.Errorf("body was rewritten before truncation: %d chars", len(long.Body))
	}
	if _, err := contentFromPayload(gson.New(nil)); !errors.Is(err, models.ErrExtraction) {
		t.Errorf("nil payload err = %v, want ErrExtraction", err)
	}
}

func TestIsRestrictedURL(t *testing.T) {
	tests := map[string]bool{
		"chrome://settings":            true,
		"chrome-extension://abc/popup": true,
		"about:blank":                  true,
		"https://news.example":         false,
		"http://localhost:8080":        false,
	}
	for u, want := range tests {
		if got := isRestrictedURL(u); got != want {
			t.Errorf("isRestrictedURL(%q) = %v, want %v", u, got, want)
		}
	}
}

func TestIsTrackerHost(t *testing.T) {
	tests := map[string]bool{
		"doubleclick.net":               true,
		"pagead2.googlesyndication.com": true,
		"STATS.G.DOUBLECLICK.NET":       true,
		"news.example":                  false,
		"notdoubleclick.net":            false,
	}
	for host, want := range tests {
		if got := isTrackerHost(host); got != want {
			t.Errorf("isTrackerHost(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestNavigationHeaders(t *testing.T) {
	h := navigationHeaders(&engine.FetchRequest{URL: "https://news.example/a"})
	if h["Referer"] != "https://www.google.com/search?q=news.example" {
		t.Errorf("Referer = %q", h["Referer"])
	}
	if h["Accept-Language"] != engine.DefaultLanguage {
		t.Errorf("Accept-Language = %q", h["Accept-Language"])
	}

	h = navigationHeaders(&engine.FetchRequest{URL: "::bad", Language: "de-DE"})
	if _, ok := h["Referer"]; ok || h["Accept-Language"] != "de-DE" {
		t.Errorf("headers = %v", h)
	}
}

func TestCategorizeError(t *testing.T) {
	if err := categorizeError(context.DeadlineExceeded, "x"); err.Code != models.ErrCodeTimeout {
		t.Errorf("code = %s", err.Code)
	}
	if err := categorizeError(errors.New("net::ERR_NAME_NOT_RESOLVED"), "x"); err.Code != models.ErrCodeNavigation {
		t.Errorf("code = %s", err.Code)
	}
}

type fakeBrowser struct {
	calls atomic.Int32
	last  *engine.FetchRequest
	err   error
}

func (f *fakeBrowser) Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	f.calls.Add(1)
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &engine.FetchResult{HTML: "<p>rendered</p>"}, nil
}

func TestBrowserEngine(t *testing.T) {
	tests := []struct {
		stealth bool
		name    string
	}{
		{false, "browser"},
		{true, "browser-stealth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeBrowser{}
			e := &browserEngine{f: f, stealth: tt.stealth}
			if e.Name() != tt.name {
				t.Errorf("Name = %q", e.Name())
			}

			req := &engine.FetchRequest{URL: "https://a.example"}
			if _, err := e.Fetch(context.Background(), req); err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if f.last.Stealth != tt.stealth {
				t.Errorf("stealth = %v, want %v", f.last.Stealth, tt.stealth)
			}
			if req.Stealth {
				t.Error("caller's request was mutated")
			}
		})
	}
}

func TestBrowserEngine_WrapsError(t *testing.T) {
	cause := errors.New("browser unavailable")
	e := &browserEngine{f: &fakeBrowser{err: cause}}
	_, err := e.Fetch(context.Background(), &engine.FetchRequest{URL: "https://a.example"})
	if !errors.Is(err, cause) {
		t.Errorf("err = %v, want wrapped cause", err)
	}
}

func TestNewDispatcher_HTTPWinsWithoutBrowser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Plain</title></head><body>ok</body></html>`))
	}))
	defer srv.Close()

	cfg := config.Load()
	cfg.Engine.EscalationDelays = []time.Duration{0, time.Second, 2 * time.Second}

	browser := &fakeBrowser{err: errors.New("browser unavailable")}
	memory := engine.NewDomainMemory(time.Hour)
	d := NewDispatcher(cfg, browser, memory)

	res, err := d.Dispatch(context.Background(), &engine.FetchRequest{URL: srv.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Engine != "http" || !strings.Contains(res.HTML, "Plain") {
		t.Errorf("result = %+v", res)
	}
	if n := browser.calls.Load(); n != 0 {
		t.Errorf("browser fetch called %d times", n)
	}
	if memory.Len() != 1 {
		t.Errorf("memory.Len = %d, want the winner remembered", memory.Len())
	}
}

func TestLazy_CloseWithoutLaunch(t *testing.T) {
	l := NewLazy(config.BrowserConfig{}, config.ScraperConfig{})
	if l.Started() {
		t.Fatal("browser started before first fetch")
	}
	l.Close()
}
