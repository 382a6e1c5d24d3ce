package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/use-agent/truthlens/classify"
	"github.com/use-agent/truthlens/cleaner"
	"github.com/use-agent/truthlens/config"
	"github.com/use-agent/truthlens/popup"
	"github.com/use-agent/truthlens/scraper"
)

var checkCmd = &cobra.Command{
	Use:   "check [url]",
	Short: "Analyze one page and print the verdict",
	Long: `Extracts {header, body} from the page, POSTs it to the classification
endpoint and renders the progress stages and the result.

Pass a URL, or --cdp with a DevTools address to read the focused tab of
your own browser. Exits 1 when extraction or classification fails.`,
	Example: `  truthlens check https://news.example/story
  truthlens check --cdp ws://127.0.0.1:9222/devtools/browser/<id>
  truthlens check --cdp http://127.0.0.1:9222`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("cdp", "", "DevTools address of a running Chrome; analyzes its focused tab")
	checkCmd.Flags().String("endpoint", "", "classification endpoint (default from TRUTHLENS_ENDPOINT)")
	checkCmd.Flags().String("api-key", "", "API key sent as X-API-Key")
	checkCmd.Flags().Duration("timeout", 0, "deadline for the whole run (default from TRUTHLENS_REQUEST_TIMEOUT)")
	checkCmd.Flags().Bool("readability", false, "take the body from the main article only")
	checkCmd.Flags().String("selector", "", "CSS selector restricting the body text")
	checkCmd.Flags().Bool("stealth", false, "always use stealth patches in the headless browser")
	// The focused tab is already rendered; page options would be ignored.
	for _, f := range []string{"readability", "selector", "stealth"} {
		checkCmd.MarkFlagsMutuallyExclusive("cdp", f)
	}
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cdp, _ := cmd.Flags().GetString("cdp")
	if (cdp == "") == (len(args) == 0) {
		return errors.New("provide exactly one of a URL argument or --cdp")
	}

	cfg := config.Load()
	applyCheckFlags(cmd, cfg)
	config.InitLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ex popup.Extractor
	if cdp != "" {
		ex = scraper.NewActiveTabExtractor(cdp)
	} else {
		readability, _ := cmd.Flags().GetBool("readability")
		selector, _ := cmd.Flags().GetString("selector")
		stealth, _ := cmd.Flags().GetBool("stealth")

		browser := scraper.NewLazy(cfg.Browser, cfg.Scraper)
		defer browser.Close()
		dispatcher := scraper.NewDispatcher(cfg, browser, nil)

		ex = scraper.NewURLExtractor(dispatcher, args[0], scraper.URLOptions{
			Timeout:  cfg.Scraper.MaxTimeout,
			Stealth:  stealth,
			Language: cfg.Scraper.AcceptLanguage,
			Extract:  cleaner.ExtractOptions{Readability: readability, Selector: selector},
		})
	}

	cl := classify.NewClient(cfg.Popup.Endpoint, nil)
	if key, _ := cmd.Flags().GetString("api-key"); key != "" {
		cl.SetHeader("X-API-Key", key)
	}

	ctrl := popup.NewController(ex, cl, popup.NewTerminalView(cmd.OutOrStdout()), popup.Options{
		Timeout:      cfg.Popup.RequestTimeout,
		TickInterval: cfg.Popup.TickInterval,
	})

	slog.Debug("running analysis", "endpoint", cfg.Popup.Endpoint, "cdp", cdp != "")
	if _, err := ctrl.Run(ctx); err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	return nil
}

// applyCheckFlags lets explicitly set flags override the environment.
func applyCheckFlags(cmd *cobra.Command, cfg *config.Config) {
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	// The terminal is for the verdict; keep log lines compact.
	cfg.Log.Format = "text"

	if cmd.Flags().Changed("endpoint") {
		cfg.Popup.Endpoint, _ = cmd.Flags().GetString("endpoint")
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Popup.RequestTimeout, _ = cmd.Flags().GetDuration("timeout")
	}
}
