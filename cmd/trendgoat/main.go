package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "trendgoat",
		Short: "TrendGoat - multi-source keyword trend collector and dashboard",
		Long: `TrendGoat collects data about a small set of tracked keywords from
Google Trends, Reddit, YouTube, Twitter/X and Upwork, merges it into a
per-source store (JSON files or MongoDB) and serves a dashboard with charts
and a trending keyword analysis.

Credentials are read from the environment or a local .env file:
  REDDIT_CLIENT_ID, REDDIT_CLIENT_SECRET, YOUTUBE_API_KEY,
  TWITTER_BEARER_TOKEN, MONGODB_URI`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(collectCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(keywordsCmd())
	rootCmd.AddCommand(schedulerCmd())
	rootCmd.AddCommand(purgeCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
