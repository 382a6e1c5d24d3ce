package main

import (
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "truthlens",
	Short: "Check a news page against the truthlens classifier",
	Long: `truthlens extracts the headline and visible text of a news page, sends
them to a classification endpoint and prints the verdict with the
per-claim explanation.

The page is either a URL fetched here or the focused tab of a running
Chrome reached over the DevTools protocol (--cdp).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from TRUTHLENS_LOG_LEVEL)")
}
