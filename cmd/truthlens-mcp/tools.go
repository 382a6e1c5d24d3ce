package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/truthlens/cleaner"
	"github.com/use-agent/truthlens/config"
	"github.com/use-agent/truthlens/models"
	"github.com/use-agent/truthlens/popup"
	"github.com/use-agent/truthlens/scraper"
)

func handleCheckArticle(cl popup.Classifier, timeout time.Duration) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		header, err := request.RequireString("header")
		if err != nil {
			return mcp.NewToolResultError("header is required"), nil
		}
		body, err := request.RequireString("body")
		if err != nil {
			return mcp.NewToolResultError("body is required"), nil
		}

		ctx, cancel := withTimeout(ctx, timeout)
		defer cancel()

		content := &models.PageContent{
			Header: cleaner.NormalizeText(header),
			Body:   cleaner.Truncate(cleaner.NormalizeText(body), models.MaxBodyChars),
		}
		return classifyContent(ctx, cl, content), nil
	}
}

func handleCheckURL(d scraper.Dispatcher, cl popup.Classifier, cfg *config.Config) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		ctx, cancel := withTimeout(ctx, cfg.Popup.RequestTimeout)
		defer cancel()

		ex := scraper.NewURLExtractor(d, url, scraper.URLOptions{
			Timeout:  cfg.Scraper.MaxTimeout,
			Language: cfg.Scraper.AcceptLanguage,
			Extract:  cleaner.ExtractOptions{Readability: request.GetBool("readability", false)},
		})
		content, err := ex.Extract(ctx)
		if err != nil {
			slog.Warn("check_url extraction failed", "url", url, "error", err)
			return mcp.NewToolResultError(fmt.Sprintf("%s %v", popup.MsgScriptFailed, err)), nil
		}
		return classifyContent(ctx, cl, content), nil
	}
}

// classifyContent posts the content and renders the verdict the way the
// popup shows it.
func classifyContent(ctx context.Context, cl popup.Classifier, content *models.PageContent) *mcp.CallToolResult {
	result, err := cl.Predict(ctx, content)
	if err != nil {
		slog.Warn("classification failed", "header", content.Header, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("%s %v", popup.MsgBackendOffline, err))
	}
	return mcp.NewToolResultText(formatVerdict(result))
}

func formatVerdict(result *models.ClassificationResult) string {
	text := popup.FormatResult(result)
	if result.Explanation != "" {
		text += "\n\n" + result.Explanation
	}
	return text
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
