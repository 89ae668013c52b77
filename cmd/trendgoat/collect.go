package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/engine"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

var (
	collectSources []string
	concurrency    int
)

// collectCmd creates the "collect" subcommand.
func collectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect data for the tracked keywords",
		Long: `Run one collection: every selected source is fetched for the tracked
keywords, cleaned and merged into storage. Trending analysis is refreshed
afterwards unless engine.analyze_after_run is false.`,
		Example: "  trendgoat collect\n  trendgoat collect --sources reddit,youtube",
		RunE:    runCollect,
	}
	cmd.Flags().StringSliceVarP(&collectSources, "sources", "s", nil, "sources to collect (default: every enabled source)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", 0, "sources collected in parallel (default from config)")
	return cmd
}

func runCollect(cmd *cobra.Command, _ []string) error {
	srcs, err := types.ParseSources(collectSources)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), func(cfg *config.Config) {
		if concurrency > 0 {
			cfg.Engine.Concurrency = concurrency
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.withEngine(); err != nil {
		return err
	}

	report, err := a.engine.Run(cmd.Context(), srcs)
	if report != nil {
		printRunReport(report)
	}
	return err
}

func printRunReport(r *engine.RunReport) {
	fmt.Printf("\nCollection %s finished in %s\n", r.ID, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	fmt.Printf("Keywords: %v\n\n", r.Keywords)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tMETHOD\tFETCHED\tKEPT\tADDED\tTOTAL\tDURATION\tSTATUS")
	for _, s := range r.Sources {
		status := "ok"
		if !s.OK() {
			status = "failed: " + s.Error
		} else if len(s.Notes) > 0 {
			status = "ok (" + s.Notes[0] + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			s.Source.Label(), s.Method, s.Fetched, s.Kept, s.Added, s.Total, s.Duration, status)
	}
	tw.Flush()
	fmt.Printf("\n%d succeeded, %d failed\n", r.Succeeded, r.Failed)
}
