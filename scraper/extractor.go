package scraper

import (
	"context"
	"time"

	"github.com/use-agent/truthlens/cleaner"
	"github.com/use-agent/truthlens/engine"
	"github.com/use-agent/truthlens/models"
)

// Dispatcher fetches rendered HTML; *engine.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error)
}

// URLOptions configures a URLExtractor.
type URLOptions struct {
	Timeout  time.Duration
	Stealth  bool
	Language string // Accept-Language; engine.DefaultLanguage when empty
	Extract  cleaner.ExtractOptions
}

// URLExtractor loads a URL through the engine race and extracts the page
// content from the resulting HTML.
type URLExtractor struct {
	dispatcher Dispatcher
	url        string
	opts       URLOptions
}

func NewURLExtractor(d Dispatcher, url string, opts URLOptions) *URLExtractor {
	return &URLExtractor{dispatcher: d, url: url, opts: opts}
}

// Extract implements popup.Extractor.
func (e *URLExtractor) Extract(ctx context.Context) (*models.PageContent, error) {
	res, err := e.dispatcher.Dispatch(ctx, &engine.FetchRequest{
		URL:      e.url,
		Timeout:  e.opts.Timeout,
		Stealth:  e.opts.Stealth,
		Language: e.opts.Language,
	})
	if err != nil {
		return nil, models.NewError(models.ErrCodeExtraction, "failed to load "+e.url, err)
	}

	return cleaner.ExtractPage(res.HTML, res.SourceURL(e.url), e.opts.Extract)
}
