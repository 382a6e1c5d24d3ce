package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/truthlens/api/handler"
	"github.com/use-agent/truthlens/classify"
	"github.com/use-agent/truthlens/config"
	"github.com/use-agent/truthlens/engine"
	"github.com/use-agent/truthlens/scraper"
)

func main() {
	cfg := config.Load()
	// stdout carries the protocol.
	config.InitLogger(cfg.Log, os.Stderr)

	cl := classify.NewClient(cfg.Popup.Endpoint, nil)
	if key := os.Getenv("TRUTHLENS_API_KEY"); key != "" {
		cl.SetHeader("X-API-Key", key)
	}

	browser := scraper.NewLazy(cfg.Browser, cfg.Scraper)
	defer browser.Close()
	// The server outlives many check_url calls, so it remembers which tier
	// won for each site.
	dispatcher := scraper.NewDispatcher(cfg, browser, engine.NewDomainMemory(cfg.Engine.MemoryTTL))

	s := server.NewMCPServer(
		"truthlens",
		handler.Version,
		server.WithToolCapabilities(false),
	)

	checkArticleTool := mcp.NewTool("check_article",
		mcp.WithDescription("Fact-check a news article. Returns the verdict (Fake, Verified or Unverified), the share of claims found legit, and a per-claim explanation."),
		mcp.WithString("header",
			mcp.Required(),
			mcp.Description("The article headline"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("The article text; only the first 1500 characters are checked"),
		),
	)
	s.AddTool(checkArticleTool, handleCheckArticle(cl, cfg.Popup.RequestTimeout))

	checkURLTool := mcp.NewTool("check_url",
		mcp.WithDescription("Load a news page, extract its headline and visible text, and fact-check it. Uses a headless browser for JavaScript-heavy pages."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the article to check"),
		),
		mcp.WithBoolean("readability",
			mcp.Description("Take the text from the main article only instead of the whole page"),
		),
	)
	s.AddTool(checkURLTool, handleCheckURL(dispatcher, cl, cfg))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
